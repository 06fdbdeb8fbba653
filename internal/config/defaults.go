package config

import "time"

func Defaults() *Config {
	return &Config{
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5/weather",
			Timeout: 10 * time.Second,
		},
		Speech: SpeechConfig{
			Dir:            "audio",
			APIBase:        "https://api.groq.com/openai/v1",
			Model:          "whisper-large-v3",
			Timeout:        60 * time.Second,
			MaxSeconds:     120,
			EchoTranscript: true,
		},
		Rewrite: RewriteConfig{
			BaseURL:  "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:    "gemini-2.5-pro",
			Timeout:  30 * time.Second,
			PoolSize: 4,
		},
		Agent: AgentConfig{
			RatePerMinute: 20,
			RateBurst:     5,
			MaxConcurrent: 8,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
