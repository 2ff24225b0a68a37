package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port     int    `yaml:"port"`
		AdminKey string `yaml:"admin_key"`
		// SeedToken guards the demo-data endpoint. Empty disables seeding.
		SeedToken string `yaml:"seed_token"`
		// RateLimitPerSecond applies to public endpoints per client IP.
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst     int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Business struct {
		// Timezone is the single fixed business timezone, e.g. "America/Los_Angeles".
		Timezone      string `yaml:"timezone"`
		OpenTime      string `yaml:"open_time"`  // "08:00"
		CloseTime     string `yaml:"close_time"` // "18:00"
		SlotMinutes   int    `yaml:"slot_minutes"`
		BufferMinutes int    `yaml:"buffer_minutes"`
		MaxPerDay     int    `yaml:"max_per_day"`
	} `yaml:"business"`

	Pricing struct {
		// PriceCents maps lesson duration in minutes to price in cents.
		PriceCents map[int]int `yaml:"price_cents"`
		// CashDiscount is the fraction taken off whole-dollar prices for cash.
		CashDiscount float64 `yaml:"cash_discount"`
		// PrepaidHours maps duration in minutes to debited prepaid hours.
		PrepaidHours map[int]float64 `yaml:"prepaid_hours"`
	} `yaml:"pricing"`

	Secrets struct {
		// TokenSecret derives the AES key for the stored credential.
		TokenSecret string `yaml:"token_secret"`
		// FallbackToken is used when no credential is stored.
		FallbackToken string `yaml:"fallback_token"`
	} `yaml:"secrets"`

	Redis struct {
		Address    string `yaml:"address"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`

	Google struct {
		Enabled      bool   `yaml:"enabled"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		CalendarID   string `yaml:"calendar_id"`
	} `yaml:"google"`

	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		AdminChatID int64  `yaml:"admin_chat_id"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = cfg.validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.RateLimitPerSecond <= 0 {
		c.Server.RateLimitPerSecond = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/golf_booking.db"
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = "data/backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 14
	}
	if c.Business.OpenTime == "" {
		c.Business.OpenTime = "08:00"
	}
	if c.Business.CloseTime == "" {
		c.Business.CloseTime = "18:00"
	}
	if c.Business.SlotMinutes <= 0 {
		c.Business.SlotMinutes = 15
	}
	if c.Business.BufferMinutes <= 0 {
		c.Business.BufferMinutes = 15
	}
	if c.Business.MaxPerDay <= 0 {
		c.Business.MaxPerDay = 4
	}
	if len(c.Pricing.PriceCents) == 0 {
		c.Pricing.PriceCents = map[int]int{30: 9000, 45: 13500, 60: 18000}
	}
	if c.Pricing.CashDiscount <= 0 {
		c.Pricing.CashDiscount = 0.11
	}
	if len(c.Pricing.PrepaidHours) == 0 {
		c.Pricing.PrepaidHours = map[int]float64{30: 0.5, 45: 0.75, 60: 1.0}
	}
	if c.Redis.TTLSeconds == 0 {
		c.Redis.TTLSeconds = 60
	}
}

func (c *Config) validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid business timezone %q: %w", c.Business.Timezone, err)
	}
	for d := range c.Pricing.PrepaidHours {
		if _, ok := c.Pricing.PriceCents[d]; !ok {
			return fmt.Errorf("prepaid_hours has duration %d with no matching price", d)
		}
	}
	if c.Secrets.TokenSecret == "" {
		return fmt.Errorf("secrets.token_secret is required")
	}
	return nil
}

// Location returns the business timezone, defaulting to the system locale.
func (c *Config) Location() (*time.Location, error) {
	if c.Business.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Business.Timezone)
}

// Durations returns the bookable lesson durations in ascending order.
func (c *Config) Durations() []int {
	out := make([]int, 0, len(c.Pricing.PriceCents))
	for d := range c.Pricing.PriceCents {
		out = append(out, d)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
