package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	Generation struct {
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		PerChunk  int    `yaml:"per_chunk"`
		CallDelay string `yaml:"call_delay"`
		Disabled  bool   `yaml:"disabled"`
	} `yaml:"generation"`
	Pipeline struct {
		ChunkSize          int      `yaml:"chunk_size"`
		MaxChars           int      `yaml:"max_chars"`
		OptionCount        int      `yaml:"option_count"`
		MaxQuestionLen     int      `yaml:"max_question_len"`
		MaxOptionLen       int      `yaml:"max_option_len"`
		BlockedKeywords    []string `yaml:"blocked_keywords"`
		DefaultAnswerIndex int      `yaml:"default_answer_index"`
		MinTheoryLen       int      `yaml:"min_theory_len"`
	} `yaml:"pipeline"`
	Bundle struct {
		Max int `yaml:"max"`
		Min int `yaml:"min"`
	} `yaml:"bundle"`
	Quiz struct {
		Window       string  `yaml:"window"`
		NegativeMark float64 `yaml:"negative_mark"`
	} `yaml:"quiz"`
	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Load reads YAML config from path, applies defaults and environment
// fallbacks for secrets. A missing file is not an error: defaults plus
// environment variables are a valid configuration.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Postgres.URL == "" {
		cfg.Postgres.URL = os.Getenv("POSTGRES_URL")
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o"
	}
	if c.Generation.PerChunk <= 0 {
		c.Generation.PerChunk = 10
	}
	if c.Generation.CallDelay == "" {
		c.Generation.CallDelay = "350ms"
	}
	if c.Pipeline.ChunkSize <= 0 {
		c.Pipeline.ChunkSize = 4000
	}
	if c.Pipeline.MaxChars <= 0 {
		c.Pipeline.MaxChars = 200_000
	}
	if c.Pipeline.OptionCount <= 0 {
		c.Pipeline.OptionCount = 4
	}
	if c.Pipeline.MaxQuestionLen <= 0 {
		c.Pipeline.MaxQuestionLen = 300
	}
	if c.Pipeline.MaxOptionLen <= 0 {
		c.Pipeline.MaxOptionLen = 100
	}
	if c.Pipeline.MinTheoryLen <= 0 {
		c.Pipeline.MinTheoryLen = 500
	}
	if c.Bundle.Max <= 0 {
		c.Bundle.Max = 50
	}
	if c.Bundle.Min <= 0 {
		c.Bundle.Min = 20
	}
	if c.Quiz.Window == "" {
		c.Quiz.Window = "20s"
	}
	if c.Quiz.NegativeMark == 0 {
		c.Quiz.NegativeMark = 0.25
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
}

// ValidateIngest checks credentials the ingest pipeline needs. Missing
// required credentials fail fast, before any document is processed.
func (c Config) ValidateIngest() error {
	if !c.Generation.Disabled && c.Generation.APIKey == "" {
		return fmt.Errorf("generation api_key not configured (set generation.api_key or OPENAI_API_KEY, or disable generation)")
	}
	return nil
}

// ValidateBot checks credentials the delivery bot needs.
func (c Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured (set telegram.token or TELEGRAM_BOT_TOKEN)")
	}
	return nil
}

// WindowDuration returns the per-question poll visibility window.
func (c Config) WindowDuration() time.Duration {
	return parseDuration(c.Quiz.Window, 20*time.Second)
}

// CallDelayDuration returns the fixed delay between generation calls.
func (c Config) CallDelayDuration() time.Duration {
	return parseDuration(c.Generation.CallDelay, 350*time.Millisecond)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
