package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skynix/internal/config"
	"skynix/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestParseCmd(t *testing.T) {
	cmd := parseCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"weather", "in", "Accra", "today", "please"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != "kind: city_request\ncity: accra\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestNewRewriter(t *testing.T) {
	logger = quietLogger()
	cfg := config.Defaults()
	if r := newRewriter(cfg); r != nil {
		t.Fatalf("expected nil rewriter without key, got %v", r.Name())
	}

	cfg.Rewrite.APIKey = "k"
	if r := newRewriter(cfg); r.Name() != "gemini-2.5-pro" {
		t.Errorf("single rewriter name = %q", r.Name())
	}

	cfg.Rewrite.FallbackModels = []string{"gemini-2.5-flash"}
	if r := newRewriter(cfg); r.Name() != "failover(gemini-2.5-pro→gemini-2.5-flash)" {
		t.Errorf("failover name = %q", r.Name())
	}
}

func TestApp_ChatRoundTrip(t *testing.T) {
	logger = quietLogger()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cod":200,"name":"Accra","weather":[{"description":"clear sky"}],"main":{"temp":24,"feels_like":23.5}}`))
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Weather.APIKey = "k"
	cfg.Weather.BaseURL = srv.URL
	a := newApp(cfg, nil)

	replies := make(chan string, 1)
	a.bus.OnOutbound("test", func(m domain.OutboundMessage) error {
		if !m.IsAction() {
			replies <- m.Content
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		a.loop.Run(context.Background())
		close(done)
	}()
	a.bus.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", SenderID: "u", Kind: domain.KindText, Content: "accra"})

	select {
	case got := <-replies:
		for _, want := range []string{"Accra", "24.0", "23.5", "Clear Sky", "Enhancement failed"} {
			if !strings.Contains(got, want) {
				t.Errorf("reply missing %q: %q", want, got)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}
	a.bus.Close()
	<-done
}

func TestCheckAudioDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")
	if err := checkAudioDir(dir); err != nil {
		t.Fatalf("check: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}
