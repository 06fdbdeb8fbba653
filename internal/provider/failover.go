package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"skynix/internal/domain"
)

// FailoverRewriter tries rewriters in order and returns the first success.
type FailoverRewriter struct {
	rewriters []domain.Rewriter
	logger    *slog.Logger
}

var _ domain.Rewriter = (*FailoverRewriter)(nil)

// NewFailoverRewriter creates a failover chain. At least one rewriter is required.
func NewFailoverRewriter(rewriters []domain.Rewriter, logger *slog.Logger) *FailoverRewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailoverRewriter{
		rewriters: rewriters,
		logger:    logger,
	}
}

func (f *FailoverRewriter) Name() string {
	names := make([]string, len(f.rewriters))
	for i, r := range f.rewriters {
		names[i] = r.Name()
	}
	return "failover(" + strings.Join(names, "→") + ")"
}

// Rewrite stops early once ctx is done; the remaining rewriters would fail
// the same way.
func (f *FailoverRewriter) Rewrite(ctx context.Context, prompt string) (string, error) {
	if len(f.rewriters) == 0 {
		return "", errors.New("failover chain is empty")
	}
	var lastErr error
	for i, r := range f.rewriters {
		out, err := r.Rewrite(ctx, prompt)
		if err == nil {
			if i > 0 {
				f.logger.Info("failover: used fallback rewriter",
					"rewriter", r.Name(),
					"attempt", i+1,
				)
			}
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		f.logger.Warn("failover: rewriter failed, trying next",
			"rewriter", r.Name(),
			"attempt", i+1,
			"error", err,
		)
	}
	return "", fmt.Errorf("all rewriters failed: %w", lastErr)
}
