package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

const maxRetries = 3

// retryBaseDelay scales the quadratic backoff; tests shrink it.
var retryBaseDelay = time.Second

// retryableError indicates a transient upstream failure.
type retryableError struct {
	statusCode int
	body       string
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.body)
}

func isRetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// backoff returns attempt² × base plus up to 50% jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(attempt*attempt) * retryBaseDelay
	return base + time.Duration(rand.Int64N(int64(base/2+1)))
}

// doWithRetry executes an HTTP request, retrying network failures, 5xx and 429.
// buildReq is called once per attempt so request bodies can be replayed.
func doWithRetry(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt)
			logger.Warn("retrying request", "attempt", attempt+1, "backoff", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &retryableError{statusCode: resp.StatusCode, body: string(body)}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", maxRetries+1, lastErr)
}
