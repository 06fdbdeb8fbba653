package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"skynix/internal/domain"
)

const (
	cliChatID   = "direct"
	cliSenderID = "local"
)

// CLI implements domain.Channel for interactive terminal chat. Voice is not
// available here; everything typed is a text message.
type CLI struct {
	bus     domain.MessageBus
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	spinner bool

	outMu     sync.Mutex
	thinking  bool
	thinkStop chan struct{}
}

type CLIConfig struct {
	Logger  *slog.Logger
	In      io.Reader
	Out     io.Writer
	Spinner bool // animate while a typing action is pending
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		logger:  cfg.Logger,
		in:      cfg.In,
		out:     cfg.Out,
		spinner: cfg.Spinner,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until ctx is cancelled, the
// user quits, or input reaches EOF.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus
	bus.OnOutbound(c.Name(), c.deliver)

	c.print("SkynixIQ CLI. Ask about the weather and press Enter. Type /quit to exit.\nYou> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			c.print("You> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		c.bus.Publish(domain.InboundMessage{
			Channel:   c.Name(),
			ChatID:    cliChatID,
			SenderID:  cliSenderID,
			Kind:      domain.KindText,
			Content:   line,
			Timestamp: time.Now(),
		})
	}
}

func (c *CLI) deliver(msg domain.OutboundMessage) error {
	if msg.IsAction() {
		if msg.Action == domain.ActionTyping && c.spinner {
			c.startThinking()
		}
		return nil
	}
	c.stopThinking()
	return c.print("\r\033[K--- SkynixIQ ---\n" + msg.Content + "\n----------------\nYou> ")
}

func (c *CLI) print(s string) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, err := io.WriteString(c.out, s)
	return err
}

func (c *CLI) startThinking() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	stop := make(chan struct{})
	c.thinkStop = stop
	go func() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.outMu.Lock()
				fmt.Fprintf(c.out, "\r%s Checking the sky...", frames[i%len(frames)])
				c.outMu.Unlock()
			}
		}
	}()
}

func (c *CLI) stopThinking() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}

// Stop is a no-op; the REPL exits when Start returns.
func (c *CLI) Stop() error { return nil }

func (c *CLI) Send(ctx context.Context, chatID string, content string) error {
	return c.print(content + "\n")
}
