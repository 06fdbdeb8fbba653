package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeRewriter echoes the report part of the prompt unless told otherwise.
type fakeRewriter struct {
	out     string
	err     error
	delay   time.Duration
	panicOn bool
	prompts []string
}

func (f *fakeRewriter) Name() string { return "fake" }

func (f *fakeRewriter) Rewrite(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.panicOn {
		panic("rewriter exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	_, report, _ := strings.Cut(prompt, "Weather update: ")
	return report, nil
}

func newTestEnhancer(r *fakeRewriter, timeout time.Duration) *Enhancer {
	cfg := EnhancerConfig{Pool: NewPool(2, testLogger()), Timeout: timeout, Logger: testLogger()}
	if r != nil {
		cfg.Rewriter = r
	}
	return NewEnhancer(cfg)
}

const accraReport = "🌤️ Weather in Accra:\nTemperature: 24.0°C\nFeels like: 23.5°C\nCondition: Clear Sky"

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(accraReport)
	if !strings.HasPrefix(p, "Turn the following weather update into a single friendly") {
		t.Errorf("unexpected prompt prefix: %q", p)
	}
	if !strings.HasSuffix(p, "\n\nWeather update: "+accraReport) {
		t.Errorf("prompt should end with the report: %q", p)
	}
	for _, want := range []string{"umbrella", "hydrated", "emoji"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestEnhance_Success(t *testing.T) {
	r := &fakeRewriter{out: "  It's a clear 24°C in Accra, feels like 23.5°C, stay hydrated! ☀️ \n"}
	e := newTestEnhancer(r, time.Second)

	got := e.Enhance(context.Background(), accraReport)
	if got != "It's a clear 24°C in Accra, feels like 23.5°C, stay hydrated! ☀️" {
		t.Errorf("got %q", got)
	}
	if len(r.prompts) != 1 || r.prompts[0] != BuildPrompt(accraReport) {
		t.Errorf("rewriter got prompts %q", r.prompts)
	}
}

func TestEnhance_EchoKeepsReport(t *testing.T) {
	e := newTestEnhancer(&fakeRewriter{}, time.Second)
	got := e.Enhance(context.Background(), accraReport)
	for _, want := range []string{"Accra", "24.0", "23.5", "Clear Sky"} {
		if !strings.Contains(got, want) {
			t.Errorf("echoed output missing %q: %q", want, got)
		}
	}
}

func TestEnhance_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		rewriter   *fakeRewriter
		timeout    time.Duration
		wantReason string
	}{
		{"error", &fakeRewriter{err: errors.New("quota exceeded")}, time.Second, "quota exceeded"},
		{"empty", &fakeRewriter{out: "   "}, time.Second, "empty response"},
		{"timeout", &fakeRewriter{delay: time.Second}, 20 * time.Millisecond, "timed out"},
		{"panic", &fakeRewriter{panicOn: true}, time.Second, "panicked"},
		{"unconfigured", nil, time.Second, "no rewrite service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnhancer(tt.rewriter, tt.timeout)
			got := e.Enhance(context.Background(), accraReport)

			prefix := accraReport + "\n\n(⚠️ Enhancement failed: "
			if !strings.HasPrefix(got, prefix) || !strings.HasSuffix(got, ")") {
				t.Fatalf("missing fallback marker: %q", got)
			}
			if !strings.Contains(got, tt.wantReason) {
				t.Errorf("reason %q not in %q", tt.wantReason, got)
			}
		})
	}
}
