package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from YAML with ${ENV_VAR}
// placeholder expansion.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address        string `yaml:"address"`
		Password       string `yaml:"password"`
		DB             int    `yaml:"db"`
		GridTTLSeconds int    `yaml:"grid_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup BackupConfig `yaml:"backup"`

	Laundry struct {
		MaxAdvanceDays       int `yaml:"max_advance_days"`
		CooldownSeconds      int `yaml:"cooldown_seconds"`
		WasherMaxMinutesWeek int `yaml:"washer_max_minutes_week"`
		DryerMaxMinutesWeek  int `yaml:"dryer_max_minutes_week"`
	} `yaml:"laundry"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// BackupConfig controls the periodic database backup loop.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the configuration file at path, falling back to
// configs/config.yaml.
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

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/waschplan.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MaxAdvance returns the booking horizon.
func (c *Config) MaxAdvance() time.Duration {
	if c.Laundry.MaxAdvanceDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Laundry.MaxAdvanceDays) * 24 * time.Hour
}

// Cooldown returns the per-room reservation cooldown.
func (c *Config) Cooldown() time.Duration {
	if c.Laundry.CooldownSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Laundry.CooldownSeconds) * time.Second
}

// WasherQuota returns the weekly washer minutes cap per room.
func (c *Config) WasherQuota() int {
	if c.Laundry.WasherMaxMinutesWeek <= 0 {
		return 9 * 60
	}
	return c.Laundry.WasherMaxMinutesWeek
}

// DryerQuota returns the weekly dryer minutes cap per room.
func (c *Config) DryerQuota() int {
	if c.Laundry.DryerMaxMinutesWeek <= 0 {
		return 18 * 60
	}
	return c.Laundry.DryerMaxMinutesWeek
}

// BackupInterval returns the delay between backup runs.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
