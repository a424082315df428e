// File: internal/config/config.go
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
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StateTTL time.Duration `yaml:"state_ttl"` // conversation flow expiry
}

type RelayConfig struct {
	TempDir       string        `yaml:"temp_dir"`
	ItemDelay     time.Duration `yaml:"item_delay"`     // pause between batch items
	FreeLimit     int           `yaml:"free_limit"`     // max batch count, free tier
	PremiumLimit  int           `yaml:"premium_limit"`  // max batch count, premium tier
	SizeCapMB     int64         `yaml:"size_cap_mb"`    // single-message upload ceiling
	PartSizeMB    int64         `yaml:"part_size_mb"`   // split part size when over the cap
	StagingChatID int64         `yaml:"staging_chat_id"`
	SharedSession string        `yaml:"shared_session"` // operator fallback identity, optional
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Relay    RelayConfig    `yaml:"relay"`
	Admin    AdminConfig    `yaml:"admin"`
	Security SecurityConfig `yaml:"security"`

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
	if cfg.Redis.StateTTL <= 0 {
		cfg.Redis.StateTTL = 15 * time.Minute
	}
	if cfg.Relay.TempDir == "" {
		cfg.Relay.TempDir = os.TempDir()
	}
	if cfg.Relay.ItemDelay <= 0 {
		cfg.Relay.ItemDelay = 10 * time.Second
	}
	if cfg.Relay.FreeLimit <= 0 {
		cfg.Relay.FreeLimit = 25
	}
	if cfg.Relay.PremiumLimit <= 0 {
		cfg.Relay.PremiumLimit = 500
	}
	if cfg.Relay.SizeCapMB <= 0 {
		cfg.Relay.SizeCapMB = 2000
	}
	if cfg.Relay.PartSizeMB <= 0 {
		cfg.Relay.PartSizeMB = 1900
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
	if cfg.Relay.PartSizeMB >= cfg.Relay.SizeCapMB {
		return nil, errors.New("relay.part_size_mb must be below relay.size_cap_mb")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
