package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Evolution struct {
		BaseURL  string `yaml:"base_url"`
		Instance string `yaml:"instance"`
		APIKey   string `yaml:"api_key"`
		DelayMS  int    `yaml:"delay_ms"`
	} `yaml:"evolution"`
	LLM struct {
		APIURL string `yaml:"api_url"`
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"llm"`
	Quiz struct {
		Topic          string `yaml:"topic"`
		TotalQuestions int    `yaml:"total_questions"`
		TTL            string `yaml:"ttl"`
	} `yaml:"quiz"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	Bot struct {
		GroupOnly bool `yaml:"group_only"`
	} `yaml:"bot"`
	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"ratelimit"`
	Whitelist struct {
		File string `yaml:"file"`
	} `yaml:"whitelist"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
