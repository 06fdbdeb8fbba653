package weather

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Logger:  testLogger(),
	})
}

func TestFetch_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "accra" || q.Get("appid") != "test-key" || q.Get("units") != "metric" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"cod":200,"weather":[{"description":"clear sky"}],"main":{"temp":24.0,"feels_like":23.5}}`))
	})

	r := c.Fetch(context.Background(), "accra")
	if r.IsError() {
		t.Fatalf("unexpected error report: %+v", r.Error)
	}
	if r.Weather.City != "accra" || r.Weather.Temperature != 24.0 || r.Weather.FeelsLike != 23.5 {
		t.Fatalf("unexpected report: %+v", r.Weather)
	}
	if r.Weather.Condition != "Clear Sky" {
		t.Fatalf("expected title-cased condition, got %q", r.Weather.Condition)
	}
}

func TestFetch_CityNotFound_StringCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	r := c.Fetch(context.Background(), "xxxyyy")
	if !r.IsError() || r.Error.Kind != ErrCityNotFound {
		t.Fatalf("expected city not found, got %+v", r)
	}
	if r.Error.Message != "City not found: xxxyyy" {
		t.Fatalf("unexpected message %q", r.Error.Message)
	}
	if r.Text() != "⚠️ City not found: xxxyyy" {
		t.Fatalf("unexpected text %q", r.Text())
	}
}

func TestFetch_NonSuccessNumericCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	})

	r := c.Fetch(context.Background(), "paris")
	if !r.IsError() || r.Error.Kind != ErrCityNotFound {
		t.Fatalf("non-200 cod should map to city not found, got %+v", r)
	}
}

func TestFetch_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	r := c.Fetch(context.Background(), "paris")
	if !r.IsError() || r.Error.Kind != ErrTransport {
		t.Fatalf("expected transport error, got %+v", r)
	}
	if !strings.HasPrefix(r.Text(), "⚠️ Error: ") {
		t.Fatalf("unexpected text %q", r.Text())
	}
}

func TestFetch_EmptyConditions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cod":200,"weather":[],"main":{"temp":1,"feels_like":1}}`))
	})

	r := c.Fetch(context.Background(), "oslo")
	if !r.IsError() || r.Error.Kind != ErrTransport {
		t.Fatalf("expected transport error for empty weather list, got %+v", r)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: testLogger()})
	r := c.Fetch(context.Background(), "lima")
	if !r.IsError() || r.Error.Kind != ErrTransport {
		t.Fatalf("expected transport error on timeout, got %+v", r)
	}
}

func TestFetch_Unreachable(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Logger: testLogger()})
	r := c.Fetch(context.Background(), "lima")
	if !r.IsError() || r.Error.Message == "" {
		t.Fatalf("expected transport error with description, got %+v", r)
	}
}
