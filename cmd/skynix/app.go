package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"skynix/internal/agent"
	"skynix/internal/bus"
	"skynix/internal/config"
	"skynix/internal/domain"
	"skynix/internal/metrics"
	"skynix/internal/provider"
	"skynix/internal/speech"
	"skynix/internal/weather"
)

// app is the assembled message path shared by run and chat.
type app struct {
	bus      *bus.InMemoryBus
	metrics  *metrics.Collector
	pool     *agent.Pool
	pipeline *agent.Pipeline
	loop     *agent.Loop
}

// newApp wires the pipeline. downloader may be nil, in which case voice
// messages are answered with a processing error.
func newApp(cfg *config.Config, downloader domain.FileDownloader) *app {
	collector := metrics.New()
	messageBus := bus.New(100, logger)
	pool := agent.NewPool(cfg.Rewrite.PoolSize, logger)

	var transcriber agent.VoiceTranscriber
	switch {
	case downloader == nil:
	case !cfg.VoiceEnabled():
		logger.Warn("voice messages disabled: " + config.EnvSTTAPIKey + " is not set")
	default:
		transcriber = speech.New(speech.Config{
			Dir:        cfg.Speech.Dir,
			Downloader: downloader,
			Engine: provider.NewWhisper(provider.WhisperConfig{
				APIBase:  cfg.Speech.APIBase,
				APIKey:   cfg.Speech.APIKey,
				Model:    cfg.Speech.Model,
				Language: cfg.Speech.Language,
				Timeout:  cfg.Speech.Timeout,
				Logger:   logger,
			}),
			MaxSeconds: cfg.Speech.MaxSeconds,
			Timeout:    cfg.Speech.Timeout,
			Logger:     logger,
		})
	}

	enhancer := agent.NewEnhancer(agent.EnhancerConfig{
		Rewriter: newRewriter(cfg),
		Pool:     pool,
		Timeout:  cfg.Rewrite.Timeout,
		Metrics:  collector,
		Logger:   logger,
	})

	pipeline := agent.NewPipeline(agent.PipelineConfig{
		Bus: messageBus,
		Weather: weather.NewClient(weather.ClientConfig{
			APIKey:  cfg.Weather.APIKey,
			BaseURL: cfg.Weather.BaseURL,
			Timeout: cfg.Weather.Timeout,
			Logger:  logger,
		}),
		Speech:         transcriber,
		Enhancer:       enhancer,
		Limiter:        agent.NewSenderLimiter(cfg.Agent.RateBurst, cfg.Agent.RatePerMinute),
		Metrics:        collector,
		EchoTranscript: cfg.Speech.EchoTranscript,
		Logger:         logger,
	})

	return &app{
		bus:      messageBus,
		metrics:  collector,
		pool:     pool,
		pipeline: pipeline,
		loop: agent.NewLoop(agent.LoopConfig{
			Bus:         messageBus,
			Pipeline:    pipeline,
			Concurrency: cfg.Agent.MaxConcurrent,
			Logger:      logger,
		}),
	}
}

// newRewriter returns nil without an API key; the enhancer then falls back
// to the raw report.
func newRewriter(cfg *config.Config) domain.Rewriter {
	if cfg.Rewrite.APIKey == "" {
		return nil
	}
	client := provider.SharedHTTPClient(cfg.Rewrite.Timeout)
	models := append([]string{cfg.Rewrite.Model}, cfg.Rewrite.FallbackModels...)
	rewriters := make([]domain.Rewriter, 0, len(models))
	for _, m := range models {
		rewriters = append(rewriters, provider.NewChatRewriter(provider.ChatRewriterConfig{
			APIKey:     cfg.Rewrite.APIKey,
			APIBase:    cfg.Rewrite.BaseURL,
			Model:      m,
			HTTPClient: client,
			Logger:     logger,
		}))
	}
	if len(rewriters) == 1 {
		return rewriters[0]
	}
	return provider.NewFailoverRewriter(rewriters, logger)
}

// serveMetrics runs the /metrics and /healthz listener until ctx is done.
func serveMetrics(ctx context.Context, addr string, c *metrics.Collector) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.NewMux(c),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics listener failed", "addr", addr, "error", err)
	}
}
