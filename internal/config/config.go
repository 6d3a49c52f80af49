// Package config loads settings from an optional YAML file named by
// CARP_CONFIG, then applies environment overrides on top.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config carries every knob the binaries read.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	AuthMode  string `yaml:"auth_mode"` // none or token
	AuthToken string `yaml:"auth_token"`

	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`

	WebhookURL         string `yaml:"webhook_url"`
	WebhookSecret      string `yaml:"webhook_secret"`
	WebhookMaxAttempts int    `yaml:"webhook_max_attempts"`

	Trials   int   `yaml:"trials"`
	PoolSize int   `yaml:"k"`
	SeedBase int64 `yaml:"seed"`
	Workers  int   `yaml:"workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the baseline configuration: the original pipeline's solver
// settings and conservative service limits.
func Default() Config {
	return Config{
		Port:               "8080",
		AuthMode:           "none",
		RateRPS:            10,
		RateBurst:          20,
		WebhookMaxAttempts: 10,
		Trials:             5,
		PoolSize:           10,
		SeedBase:           12345,
		Workers:            runtime.NumCPU(),
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load builds the effective configuration: defaults, then the YAML file when
// CARP_CONFIG is set, then environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CARP_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	envStr("PORT", &c.Port)
	envStr("DATABASE_URL", &c.DatabaseURL)
	envStr("REDIS_URL", &c.RedisURL)
	envStr("AUTH_MODE", &c.AuthMode)
	envStr("AUTH_TOKEN", &c.AuthToken)
	envFloat("RATE_RPS", &c.RateRPS)
	envInt("RATE_BURST", &c.RateBurst)
	envStr("WEBHOOK_URL", &c.WebhookURL)
	envStr("WEBHOOK_SECRET", &c.WebhookSecret)
	envInt("WEBHOOK_MAX_ATTEMPTS", &c.WebhookMaxAttempts)
	envInt("SOLVER_TRIALS", &c.Trials)
	envInt("SOLVER_K", &c.PoolSize)
	envInt64("SOLVER_SEED", &c.SeedBase)
	envInt("WORKERS", &c.Workers)
	envStr("LOG_LEVEL", &c.LogLevel)
	envStr("LOG_FORMAT", &c.LogFormat)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
