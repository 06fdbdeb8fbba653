package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"skynix/internal/domain"
)

const (
	telegramMaxMsgLen      = 4096 // runes
	telegramMaxSendRetries = 3
	// Bot API getFile refuses anything larger.
	telegramMaxFileBytes = 20 << 20
)

// botAPI is the subset of *tgbotapi.BotAPI the channel uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Telegram implements domain.Channel and domain.FileDownloader for a
// long-polling Telegram bot.
type Telegram struct {
	token      string
	restricted bool // any allowFrom entry configured, usable or not
	allowIDs   map[int64]struct{}
	allowNames map[string]struct{} // lower-cased, without '@'
	parseMode  string
	client    *http.Client

	bot    botAPI
	bus    domain.MessageBus
	logger *slog.Logger

	retryDelay time.Duration
}

type TelegramConfig struct {
	Token      string
	AllowFrom  []string // numeric user IDs or usernames; empty allows everyone
	ParseMode  string   // empty sends plain text
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	ids := make(map[int64]struct{})
	names := make(map[string]struct{})
	restricted := false
	for _, raw := range cfg.AllowFrom {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		restricted = true
		if id, err := strconv.ParseInt(entry, 10, 64); err == nil {
			ids[id] = struct{}{}
			continue
		}
		name := strings.TrimPrefix(entry, "@")
		if !validUsername(name) {
			cfg.Logger.Warn("ignoring invalid telegram allowFrom entry", "entry", entry)
			continue
		}
		names[strings.ToLower(name)] = struct{}{}
	}
	if restricted && len(ids) == 0 && len(names) == 0 {
		cfg.Logger.Warn("telegram allowFrom has no usable entries; every sender will be refused")
	}

	return &Telegram{
		token:      cfg.Token,
		restricted: restricted,
		allowIDs:   ids,
		allowNames: names,
		parseMode:  cfg.ParseMode,
		client:     cfg.HTTPClient,
		logger:     cfg.Logger,
		retryDelay: time.Second,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and polls for updates until ctx is done.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, tgbotapi.APIEndpoint, t.client)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	t.attach(bot, bus)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// attach wires the bot to the bus.
func (t *Telegram) attach(bot botAPI, bus domain.MessageBus) {
	t.bot = bot
	t.bus = bus
	bus.OnOutbound(t.Name(), t.deliver)
}

// Stop is a no-op: polling stops when Start's context is cancelled, and
// StopReceivingUpdates panics if called twice.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) Send(ctx context.Context, chatID string, content string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}
	return t.sendMessage(id, content)
}

// deliver is the outbound bus handler.
func (t *Telegram) deliver(msg domain.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.ChatID, err)
	}
	if msg.IsAction() {
		return t.sendAction(chatID, msg.Action)
	}
	return t.sendMessage(chatID, msg.Content)
}

// Download streams a voice attachment into dst.
func (t *Telegram) Download(ctx context.Context, fileID string, dst io.Writer) error {
	if t.bot == nil {
		return errors.New("telegram not connected")
	}
	link, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("resolve telegram file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		// The error text carries the URL, which embeds the bot token.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("download telegram file: %w", ctxErr)
		}
		return errors.New("download telegram file: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download telegram file: status %d", resp.StatusCode)
	}
	n, err := io.Copy(dst, io.LimitReader(resp.Body, telegramMaxFileBytes+1))
	if err != nil {
		return fmt.Errorf("download telegram file: %w", err)
	}
	if n > telegramMaxFileBytes {
		return fmt.Errorf("voice file exceeds %d bytes", telegramMaxFileBytes)
	}
	return nil
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return
	}

	userID := m.From.ID
	chatID := m.Chat.ID

	if !t.isAllowed(m.From) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", m.From.UserName,
		)
		_ = t.sendMessage(chatID, "⛔ Unauthorized. You are not in the allow list.")
		return
	}

	msg := domain.InboundMessage{
		Channel:   t.Name(),
		ChatID:    strconv.FormatInt(chatID, 10),
		SenderID:  strconv.FormatInt(userID, 10),
		Timestamp: time.Unix(int64(m.Date), 0),
	}

	switch {
	case m.Voice != nil:
		msg.Kind = domain.KindVoice
		msg.VoiceFileID = m.Voice.FileID
		t.logger.Info("telegram voice received",
			"user_id", userID,
			"chat_id", chatID,
			"duration_s", m.Voice.Duration,
		)
	case m.IsCommand():
		msg.Kind = domain.KindCommand
		msg.Command = m.Command()
		msg.Content = strings.TrimSpace(m.Text)
		t.logger.Info("telegram command received", "user_id", userID, "command", msg.Command)
	default:
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return
		}
		msg.Kind = domain.KindText
		msg.Content = text
		t.logger.Info("telegram message received",
			"user_id", userID,
			"chat_id", chatID,
			"text_len", len(text),
		)
	}

	t.bus.Publish(msg)
}

func (t *Telegram) isAllowed(u *tgbotapi.User) bool {
	if !t.restricted {
		return true
	}
	if _, ok := t.allowIDs[u.ID]; ok {
		return true
	}
	if u.UserName == "" {
		return false
	}
	_, ok := t.allowNames[strings.ToLower(u.UserName)]
	return ok
}

// validUsername reports whether s has Telegram's username shape:
// 5 to 32 characters of letters, digits and underscores.
func validUsername(s string) bool {
	if len(s) < 5 || len(s) > 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

func (t *Telegram) sendAction(chatID int64, action domain.OutboundAction) error {
	var kind string
	switch action {
	case domain.ActionTyping:
		kind = tgbotapi.ChatTyping
	default:
		return fmt.Errorf("unsupported chat action %q", action)
	}
	if _, err := t.bot.Request(tgbotapi.NewChatAction(chatID, kind)); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}
	return nil
}

func (t *Telegram) sendMessage(chatID int64, text string) error {
	for _, chunk := range splitMessage(text, telegramMaxMsgLen) {
		if err := t.sendChunk(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most maxLen runes, preferring
// to break after a newline in the second half of a piece.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > maxLen {
		cutAt := runeOffset(text, maxLen)
		if nl := strings.LastIndex(text[:cutAt], "\n"); nl > 0 && utf8.RuneCountInString(text[:nl]) >= maxLen/2 {
			cutAt = nl
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// runeOffset returns the byte offset of the n-th rune in s.
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// sendChunk sends one message with retry and rate limit handling. When a
// parse mode is set and Telegram rejects the entities, it resends as plain text.
func (t *Telegram) sendChunk(chatID int64, text string) error {
	var err error
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		if _, err = t.bot.Send(msg); err == nil {
			return nil
		}
		errStr := err.Error()

		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * t.retryDelay
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if msg.ParseMode != "" && strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram markup rejected, retrying as plain text",
				"error", err, "parse_mode", t.parseMode,
			)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * t.retryDelay
			t.logger.Warn("telegram send error, retrying", "error", err, "backoff", backoff)
			time.Sleep(backoff)
		}
	}
	t.logger.Error("telegram send failed after retries", "error", err, "attempts", telegramMaxSendRetries+1)
	return fmt.Errorf("telegram send: %w", err)
}
