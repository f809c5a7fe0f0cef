package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything the server needs at startup
type Config struct {
	Env                     string
	Debug                   bool
	LogLevel                string
	Port                    string
	DatabasePath            string
	MissingPossessionPolicy string
	RateLimitPerMinute      float64
	MonitorInterval         time.Duration
	ShutdownTimeout         time.Duration
}

type fileConfig struct {
	Env                     string  `toml:"env"`
	Debug                   bool    `toml:"debug"`
	LogLevel                string  `toml:"log_level"`
	Port                    string  `toml:"port"`
	DatabasePath            string  `toml:"database_path"`
	MissingPossessionPolicy string  `toml:"missing_possession_policy"`
	RateLimitPerMinute      float64 `toml:"rate_limit_per_minute"`
	MonitorInterval         string  `toml:"monitor_interval"`
	ShutdownTimeout         string  `toml:"shutdown_timeout"`
}

// Default returns the configuration used when no file or env overrides exist
func Default() Config {
	return Config{
		Env:                     "development",
		LogLevel:                "info",
		Port:                    "8080",
		DatabasePath:            "ventil.db",
		MissingPossessionPolicy: "skip",
		RateLimitPerMinute:      600,
		MonitorInterval:         time.Minute,
		ShutdownTimeout:         5 * time.Second,
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (skipped when path is empty), then environment variables
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("env") {
		cfg.Env = strings.TrimSpace(raw.Env)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("database_path") {
		cfg.DatabasePath = strings.TrimSpace(raw.DatabasePath)
	}
	if meta.IsDefined("missing_possession_policy") {
		cfg.MissingPossessionPolicy = strings.TrimSpace(raw.MissingPossessionPolicy)
	}
	if meta.IsDefined("rate_limit_per_minute") {
		cfg.RateLimitPerMinute = raw.RateLimitPerMinute
	}
	if meta.IsDefined("monitor_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.MonitorInterval))
		if err != nil {
			return fmt.Errorf("parse monitor_interval: %w", err)
		}
		cfg.MonitorInterval = d
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	undecoded := meta.Undecoded()
	if len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DEBUG: %w", err)
		}
		cfg.Debug = debug
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("MISSING_POSSESSION_POLICY"); v != "" {
		cfg.MissingPossessionPolicy = v
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("config missing port")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("config port %q is not a number", cfg.Port)
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return fmt.Errorf("config missing database_path")
	}
	switch cfg.MissingPossessionPolicy {
	case "skip", "abort":
	default:
		return fmt.Errorf("config missing_possession_policy must be skip or abort, got %q", cfg.MissingPossessionPolicy)
	}
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("config rate_limit_per_minute must not be negative")
	}
	if cfg.MonitorInterval <= 0 {
		return fmt.Errorf("config monitor_interval must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("config shutdown_timeout must be positive")
	}
	return nil
}

// Production reports whether the server runs with production settings
func (c Config) Production() bool {
	return c.Env == "production"
}
