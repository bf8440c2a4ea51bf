package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | webhook (future)
	Workers  int     `yaml:"workers"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port            int           `yaml:"port"`
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type BroadcastConfig struct {
	SendTimeout  time.Duration `yaml:"send_timeout"`  // per-recipient delivery timeout
	StaleTimeout time.Duration `yaml:"stale_timeout"` // in_flight age before reconciliation
	RatePerSec   int           `yaml:"rate_per_sec"`  // Telegram allows ~30 msg/s
}

type RetentionConfig struct {
	InteractionDays int           `yaml:"interaction_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ReportInterval  time.Duration `yaml:"report_interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Retention RetentionConfig `yaml:"retention"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.AccessTokenTTL <= 0 {
		cfg.Web.AccessTokenTTL = 30 * time.Minute
	}
	if cfg.Web.RefreshTokenTTL <= 0 {
		cfg.Web.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Broadcast.SendTimeout <= 0 {
		cfg.Broadcast.SendTimeout = 10 * time.Second
	}
	if cfg.Broadcast.StaleTimeout <= 0 {
		cfg.Broadcast.StaleTimeout = 15 * time.Minute
	}
	if cfg.Broadcast.RatePerSec <= 0 {
		cfg.Broadcast.RatePerSec = 25
	}
	if cfg.Retention.InteractionDays <= 0 {
		cfg.Retention.InteractionDays = 30
	}
	if cfg.Retention.CleanupInterval <= 0 {
		cfg.Retention.CleanupInterval = 24 * time.Hour
	}
	if cfg.Retention.ReportInterval <= 0 {
		cfg.Retention.ReportInterval = 24 * time.Hour
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Web.JWTSecret == "" {
		return nil, errors.New("web.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
