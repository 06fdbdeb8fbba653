package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Message(t *testing.T) {
	c := New()
	c.Message("text", "weather")
	c.Message("text", "weather")
	c.Message("voice", "not_understood")

	if got := testutil.ToFloat64(c.messages.WithLabelValues("text", "weather")); got != 2 {
		t.Errorf("text/weather = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.messages.WithLabelValues("voice", "not_understood")); got != 1 {
		t.Errorf("voice/not_understood = %v, want 1", got)
	}
}

func TestCollector_BeginEnd(t *testing.T) {
	c := New()
	end1 := c.Begin()
	end2 := c.Begin()
	if got := testutil.ToFloat64(c.inFlight); got != 2 {
		t.Fatalf("in flight = %v, want 2", got)
	}
	end1()
	end2()
	if got := testutil.ToFloat64(c.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.Message("text", "weather")
	c.Stage(StageWeather, "ok", time.Second)
	c.RateLimited()
	c.Panic()
	c.Begin()()
}

func TestNewMux(t *testing.T) {
	c := New()
	c.Stage(StageRewrite, "ok", 300*time.Millisecond)
	c.RateLimited()

	srv := httptest.NewServer(NewMux(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`skynix_stage_duration_seconds_count{outcome="ok",stage="rewrite"} 1`,
		"skynix_rate_limited_total 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewMux_Routing(t *testing.T) {
	srv := httptest.NewServer(NewMux(New()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/metrics", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /metrics status = %d, want 405", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}
