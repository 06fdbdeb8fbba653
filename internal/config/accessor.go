package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sanitize returns a copy of the config with secrets masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.Telegram.AllowFrom = append(FlexStringList(nil), cfg.Telegram.AllowFrom...)
	c.Telegram.Token = maskString(c.Telegram.Token)
	c.Weather.APIKey = maskString(c.Weather.APIKey)
	c.Speech.APIKey = maskString(c.Speech.APIKey)
	c.Rewrite.APIKey = maskString(c.Rewrite.APIKey)
	return &c
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// GetByPath retrieves a config value by dot-notation path (e.g. "speech.timeout").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		v, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
		val, ok := v[key]
		if !ok {
			return nil, fmt.Errorf("key not found: %s", path)
		}
		current = val
	}
	return current, nil
}

// ListPaths returns every leaf path with its current value.
func ListPaths(cfg *Config) map[string]any {
	m, err := toMap(cfg)
	if err != nil {
		return nil
	}
	result := make(map[string]any)
	flattenMap("", m, result)
	return result
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func flattenMap(prefix string, m map[string]any, result map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenMap(path, val, result)
		default:
			result[path] = val
		}
	}
}
