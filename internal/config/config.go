package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables carrying secrets and the speech engine endpoint.
const (
	EnvBotToken      = "BOT_TOKEN"
	EnvWeatherAPIKey = "WEATHER_API_KEY"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvSTTAPIKey     = "STT_API_KEY"
	EnvSTTAPIBase    = "STT_API_BASE"
	EnvSTTModel      = "STT_MODEL"
)

// DefaultPath is read when no --config flag is given, if it exists.
const DefaultPath = "skynix.yaml"

// ErrMissingSecret is wrapped by CheckSecrets.
var ErrMissingSecret = errors.New("missing required secret")

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Weather  WeatherConfig  `yaml:"weather"`
	Speech   SpeechConfig   `yaml:"speech"`
	Rewrite  RewriteConfig  `yaml:"rewrite"`
	Agent    AgentConfig    `yaml:"agent"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type TelegramConfig struct {
	Token     string         `yaml:"token,omitempty"`
	AllowFrom FlexStringList `yaml:"allowFrom,omitempty"`
	ParseMode string         `yaml:"parseMode,omitempty"` // empty = plain text
}

type WeatherConfig struct {
	APIKey  string        `yaml:"apiKey,omitempty"`
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type SpeechConfig struct {
	Dir            string        `yaml:"dir"`
	APIKey         string        `yaml:"apiKey,omitempty"`
	APIBase        string        `yaml:"apiBase"`
	Model          string        `yaml:"model"`
	Language       string        `yaml:"language,omitempty"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxSeconds     int           `yaml:"maxSeconds"`
	EchoTranscript bool          `yaml:"echoTranscript"`
}

type RewriteConfig struct {
	APIKey         string        `yaml:"apiKey,omitempty"`
	BaseURL        string        `yaml:"baseURL"`
	Model          string        `yaml:"model"`
	FallbackModels []string      `yaml:"fallbackModels,omitempty"` // tried in order when Model fails
	Timeout        time.Duration `yaml:"timeout"`
	PoolSize       int           `yaml:"poolSize"`
}

type AgentConfig struct {
	RatePerMinute float64 `yaml:"ratePerMinute"`
	RateBurst     int     `yaml:"rateBurst"`
	MaxConcurrent int     `yaml:"maxConcurrent"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// FlexStringList accepts a YAML sequence of strings or numbers, or a single
// comma-separated scalar (handy with ${VAR} expansion).
type FlexStringList []string

func (f *FlexStringList) UnmarshalYAML(value *yaml.Node) error {
	var result []string
	switch value.Kind {
	case yaml.ScalarNode:
		for _, s := range strings.Split(value.Value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				result = append(result, s)
			}
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: list items must be scalars", item.Line)
			}
			result = append(result, strings.TrimSpace(item.Value))
		}
	default:
		return fmt.Errorf("line %d: expected a list or a comma-separated string", value.Line)
	}
	*f = result
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		path = ExpandPath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}

		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.Speech.Dir = ExpandPath(cfg.Speech.Dir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnv lets the environment override secrets and the speech endpoint.
func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvBotToken, &cfg.Telegram.Token},
		{EnvWeatherAPIKey, &cfg.Weather.APIKey},
		{EnvGeminiAPIKey, &cfg.Rewrite.APIKey},
		{EnvSTTAPIKey, &cfg.Speech.APIKey},
		{EnvSTTAPIBase, &cfg.Speech.APIBase},
		{EnvSTTModel, &cfg.Speech.Model},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}

// CheckSecrets reports every named secret that is empty.
func (c *Config) CheckSecrets(names ...string) error {
	values := map[string]string{
		EnvBotToken:      c.Telegram.Token,
		EnvWeatherAPIKey: c.Weather.APIKey,
		EnvGeminiAPIKey:  c.Rewrite.APIKey,
		EnvSTTAPIKey:     c.Speech.APIKey,
	}
	var missing []string
	for _, name := range names {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s in the environment or .env", ErrMissingSecret, strings.Join(missing, ", "))
	}
	return nil
}

// VoiceEnabled reports whether a speech engine is configured.
func (c *Config) VoiceEnabled() bool {
	return c.Speech.APIKey != ""
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // keep original if no env var and no default
		}
		return val
	})
}

// Validate checks that the tunables have usable values. Secrets are checked
// separately by CheckSecrets since not every command needs them.
func Validate(cfg *Config) error {
	var errs []string

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"weather.timeout", cfg.Weather.Timeout},
		{"speech.timeout", cfg.Speech.Timeout},
		{"rewrite.timeout", cfg.Rewrite.Timeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, p.name+" must be > 0")
		}
	}

	if cfg.Weather.BaseURL == "" {
		errs = append(errs, "weather.baseURL is required")
	}
	if cfg.Speech.Dir == "" {
		errs = append(errs, "speech.dir is required")
	}
	if cfg.Speech.MaxSeconds < 1 || cfg.Speech.MaxSeconds > 600 {
		errs = append(errs, "speech.maxSeconds must be between 1 and 600")
	}
	if cfg.Rewrite.Model == "" {
		errs = append(errs, "rewrite.model is required")
	}
	if cfg.Rewrite.PoolSize < 1 || cfg.Rewrite.PoolSize > 64 {
		errs = append(errs, "rewrite.poolSize must be between 1 and 64")
	}
	if cfg.Agent.RatePerMinute <= 0 {
		errs = append(errs, "agent.ratePerMinute must be > 0")
	}
	if cfg.Agent.RateBurst < 1 {
		errs = append(errs, "agent.rateBurst must be >= 1")
	}
	if cfg.Agent.MaxConcurrent < 1 || cfg.Agent.MaxConcurrent > 256 {
		errs = append(errs, "agent.maxConcurrent must be between 1 and 256")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be one of: text, json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
