package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skynix/internal/domain"
	"skynix/internal/metrics"
)

const defaultRewriteTimeout = 30 * time.Second

const enhancePromptTemplate = "Turn the following weather update into a single friendly, natural-sounding sentence, " +
	"as if spoken by a helpful AI assistant. Mention the city, temperature, what it feels like, and include a useful " +
	"suggestion based on the condition (like carrying an umbrella or staying hydrated). End with a single appropriate " +
	"weather emoji — no headers or extra formatting.\n\nWeather update: %s"

// Enhancer rephrases a raw weather report through a language model.
type Enhancer struct {
	rewriter domain.Rewriter
	pool     *Pool
	timeout  time.Duration
	metrics  *metrics.Collector
	logger   *slog.Logger
}

type EnhancerConfig struct {
	Rewriter domain.Rewriter
	Pool     *Pool // nil gets a private pool of default size
	Timeout  time.Duration
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

func NewEnhancer(cfg EnhancerConfig) *Enhancer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRewriteTimeout
	}
	if cfg.Pool == nil {
		cfg.Pool = NewPool(defaultPoolSize, cfg.Logger)
	}
	return &Enhancer{
		rewriter: cfg.Rewriter,
		pool:     cfg.Pool,
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// BuildPrompt returns the rewrite prompt for report.
func BuildPrompt(report string) string {
	return fmt.Sprintf(enhancePromptTemplate, report)
}

// Enhance returns the rewritten report, or the report annotated with the
// failure reason. It never fails.
func (e *Enhancer) Enhance(ctx context.Context, report string) string {
	if e.rewriter == nil {
		return annotate(report, errors.New("no rewrite service configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	prompt := BuildPrompt(report)
	out, err := e.pool.Submit(ctx, func(ctx context.Context) (string, error) {
		return e.rewriter.Rewrite(ctx, prompt)
	}).Await(ctx)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty response from rewrite service")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("rewrite timed out after %s", e.timeout)
	}

	if err != nil {
		e.metrics.Stage(metrics.StageRewrite, "error", time.Since(start))
		e.logger.Warn("enhancement failed", "rewriter", e.rewriter.Name(), "error", err)
		return annotate(report, err)
	}
	e.metrics.Stage(metrics.StageRewrite, "ok", time.Since(start))
	e.logger.Debug("enhancement done", "rewriter", e.rewriter.Name(), "duration", time.Since(start))
	return strings.TrimSpace(out)
}

func annotate(report string, reason error) string {
	return fmt.Sprintf("%s\n\n(⚠️ Enhancement failed: %s)", report, reason)
}
