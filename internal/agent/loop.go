package agent

import (
	"context"
	"log/slog"
	"sync"

	"skynix/internal/domain"
)

const defaultConcurrency = 8

// Loop feeds inbound bus messages to the pipeline.
type Loop struct {
	bus         domain.MessageBus
	pipeline    *Pipeline
	concurrency int
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// LoopConfig holds the loop's dependencies.
type LoopConfig struct {
	Bus         domain.MessageBus
	Pipeline    *Pipeline
	Concurrency int // max parallel messages (default 8)
	Logger      *slog.Logger
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		bus:         cfg.Bus,
		pipeline:    cfg.Pipeline,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Run consumes inbound messages and handles each on its own goroutine, at
// most concurrency at a time. It returns when ctx is done or the bus closes,
// after in-flight messages finish.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("agent loop started", "concurrency", l.concurrency)
	defer l.wg.Wait()

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("agent loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, agent loop stopping")
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				l.logger.Warn("dropping message on shutdown", "channel", msg.Channel, "sender", msg.SenderID)
				return
			}
			l.wg.Add(1)
			go func(m domain.InboundMessage) {
				defer l.wg.Done()
				defer func() { <-sem }()
				l.pipeline.Handle(ctx, m)
			}(msg)
		}
	}
}
