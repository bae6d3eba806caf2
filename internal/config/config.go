// Package config exposes strongly typed application configuration structs
// loaded from YAML, with env overrides for secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// CoinGlass configures the upstream market-data source the poller samples.
type CoinGlass struct {
	BaseURL      string   `yaml:"base_url"`
	APIKey       string   `yaml:"api_key"`
	Symbols      []string `yaml:"symbols"`
	PollInterval int      `yaml:"poll_interval_ms"`
	SymbolPause  int      `yaml:"symbol_pause_ms"`
	Timeout      int      `yaml:"timeout_ms"`
}

// Dedup configures the optional idempotency guard on signal creation. When
// disabled, replayed deliveries create duplicate signal records, matching the
// relay's historical behavior.
type Dedup struct {
	Enabled  bool   `yaml:"enabled"`
	RedisURL string `yaml:"redis_url"`
	TTL      int    `yaml:"ttl_ms"`
}

// Relay configures the webhook ingestion endpoint and, for the poller, where
// to deliver signals.
type Relay struct {
	ListenAddr string `yaml:"listen_addr"`
	WebhookURL string `yaml:"webhook_url"`
	Secret     string `yaml:"secret"`
	MinScore   int    `yaml:"min_score"`
	Workers    int    `yaml:"workers"`
	QueueSize  int    `yaml:"queue_size"`
	Dedup      Dedup  `yaml:"dedup"`
}

// Store configures the downstream append-only record store.
type Store struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Timeout      int    `yaml:"timeout_ms"`
	FallbackPath string `yaml:"fallback_path"`
}

// Telegram configures the optional chat notifier. Empty token or chat id
// disables notification entirely.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

// Retry bounds every outbound call in the pipeline.
type Retry struct {
	Attempts int `yaml:"attempts"`
	Delay    int `yaml:"delay_ms"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	CoinGlass CoinGlass `yaml:"coinglass"`
	Relay     Relay     `yaml:"relay"`
	Store     Store     `yaml:"store"`
	Telegram  Telegram  `yaml:"telegram"`
	Retry     Retry     `yaml:"retry"`
}

// Load reads a YAML file, hydrates a Config, applies env overrides for
// secrets, and fills defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyEnv()
	config.applyDefaults()
	return &config, nil
}

// applyEnv lets deploy environments inject secrets without touching the YAML
// file. Env always wins over the file.
func (c *Config) applyEnv() {
	overrideString(&c.CoinGlass.APIKey, "COINGLASS_KEY")
	overrideString(&c.CoinGlass.BaseURL, "COINGLASS_BASE")
	overrideString(&c.Relay.Secret, "WEBHOOK_SECRET")
	overrideString(&c.Relay.WebhookURL, "WEBHOOK_URL")
	overrideString(&c.Store.APIKey, "BASE44_KEY")
	overrideString(&c.Store.BaseURL, "BASE44_BASE")
	overrideString(&c.Telegram.Token, "TELEGRAM_TOKEN")
	overrideString(&c.Telegram.ChatID, "TELEGRAM_CHATID")
	overrideString(&c.Relay.Dedup.RedisURL, "REDIS_URL")
	if symbols := os.Getenv("SYMBOLS"); symbols != "" {
		c.CoinGlass.Symbols = splitSymbols(symbols)
	}
}

func (c *Config) applyDefaults() {
	if c.CoinGlass.BaseURL == "" {
		c.CoinGlass.BaseURL = "https://open-api-v4.coinglass.com"
	}
	if c.CoinGlass.PollInterval <= 0 {
		c.CoinGlass.PollInterval = 60_000
	}
	if c.CoinGlass.SymbolPause <= 0 {
		c.CoinGlass.SymbolPause = 500
	}
	if c.CoinGlass.Timeout <= 0 {
		c.CoinGlass.Timeout = 10_000
	}
	if c.Relay.MinScore <= 0 {
		c.Relay.MinScore = 70
	}
	if c.Relay.ListenAddr == "" {
		c.Relay.ListenAddr = ":8080"
	}
	if c.Relay.Workers <= 0 {
		c.Relay.Workers = 4
	}
	if c.Relay.QueueSize <= 0 {
		c.Relay.QueueSize = 256
	}
	if c.Relay.Dedup.TTL <= 0 {
		c.Relay.Dedup.TTL = int(time.Hour / time.Millisecond)
	}
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = 8_000
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = 2
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = 800
	}
}

// ValidatePoller checks the settings the poller cannot start without.
func (c *Config) ValidatePoller() error {
	if c.CoinGlass.APIKey == "" {
		return fmt.Errorf("missing coinglass api key (set COINGLASS_KEY)")
	}
	if c.Relay.WebhookURL == "" {
		return fmt.Errorf("missing webhook url (set WEBHOOK_URL)")
	}
	if len(c.CoinGlass.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	return nil
}

// ValidateRelay checks the settings the relay cannot start without.
func (c *Config) ValidateRelay() error {
	if c.Relay.Secret == "" {
		return fmt.Errorf("missing webhook secret (set WEBHOOK_SECRET)")
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
