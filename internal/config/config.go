package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`

	RedisURL  string `mapstructure:"redis_url"`
	RedisPass string `mapstructure:"redis_pass"`
	RedisDB   int    `mapstructure:"redis_db"`

	BotToken  string  `mapstructure:"bot_token"`
	JWTSecret string  `mapstructure:"jwt_secret"`
	AdminIDs  []int64 `mapstructure:"-"`

	TickInterval     time.Duration `mapstructure:"tick_interval"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	SessionIdleTTL   time.Duration `mapstructure:"session_idle_ttl"`

	CatalogPath          string `mapstructure:"catalog_path"`
	NotificationsEnabled bool   `mapstructure:"notifications_enabled"`
	MetricsEnabled       bool   `mapstructure:"metrics_enabled"`
}

var keys = []string{
	"env", "port",
	"redis_url", "redis_pass", "redis_db",
	"bot_token", "jwt_secret", "admin_ids",
	"tick_interval", "autosave_interval", "session_idle_ttl",
	"catalog_path", "notifications_enabled", "metrics_enabled",
}

// Load reads configuration from the environment. Variable names are the
// upper-cased keys, e.g. REDIS_URL or TICK_INTERVAL.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %v", k, err)
		}
	}

	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_secret", "dev-secret-change-me")
	v.SetDefault("tick_interval", "1s")
	v.SetDefault("autosave_interval", "30s")
	v.SetDefault("session_idle_ttl", "10m")
	v.SetDefault("notifications_enabled", true)
	v.SetDefault("metrics_enabled", true)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	ids, err := parseIDs(v.GetString("admin_ids"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %v", err)
	}
	cfg.AdminIDs = ids

	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive")
	}
	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret-change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
