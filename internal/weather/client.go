// Package weather fetches current conditions from the OpenWeather API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	defaultTimeout = 10 * time.Second
)

// Client looks up current weather for a city.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

type ClientConfig struct {
	APIKey     string
	BaseURL    string        // default: OpenWeather current weather endpoint
	Timeout    time.Duration // per request; default 10s
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// statusCode is OpenWeather's "cod" field, which arrives as 200 or "404".
type statusCode int

func (c *statusCode) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = statusCode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cod: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("cod %q: %w", s, err)
	}
	*c = statusCode(n)
	return nil
}

type owmResponse struct {
	Cod     statusCode `json:"cod"`
	Message string     `json:"message,omitempty"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
}

// Fetch always returns a Report; failures are folded into an ErrorReport.
func (c *Client) Fetch(ctx context.Context, city string) Report {
	start := time.Now()
	report, err := c.fetch(ctx, city)
	if err != nil {
		c.logger.Warn("weather lookup failed", "city", city, "error", err)
		return errorReport(ErrTransport, err.Error())
	}
	c.logger.Info("weather lookup complete",
		"city", city,
		"error", report.IsError(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return report
}

func (c *Client) fetch(ctx context.Context, city string) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("openweather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Report{}, fmt.Errorf("read body: %w", err)
	}

	var data owmResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Report{}, fmt.Errorf("decode openweather response (status %d): %w", resp.StatusCode, err)
	}

	if data.Cod != http.StatusOK {
		return errorReport(ErrCityNotFound, "City not found: "+city), nil
	}
	if len(data.Weather) == 0 {
		return Report{}, fmt.Errorf("openweather response has no weather conditions")
	}

	return weatherReport(WeatherReport{
		City:        city,
		Temperature: data.Main.Temp,
		FeelsLike:   data.Main.FeelsLike,
		Condition:   TitleCase(data.Weather[0].Description),
	}), nil
}
