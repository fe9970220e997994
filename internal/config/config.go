// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config filled with defaults.
// - Load(ctx) layers a YAML file, an optional .env file and VMATCH_* env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"

	"github.com/okian/vmatch/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds the graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Storage  StorageConfig  `koanf:"storage"`
	Redis    RedisConfig    `koanf:"redis"`
	Matching MatchingConfig `koanf:"matching"`
	Notify   NotifyConfig   `koanf:"notify"`
	Chat     ChatConfig     `koanf:"chat"`
}

// StorageConfig selects the catalog backend.
type StorageConfig struct {
	// Driver is memory, postgres or sqlite.
	Driver          string        `koanf:"driver"`
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig enables the read-through cache when Addr is set.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
	Prefix   string        `koanf:"prefix"`
}

// MatchingConfig tunes ranking and proactive notifications.
type MatchingConfig struct {
	DefaultLimit      int `koanf:"default_limit"`
	MaxLimit          int `koanf:"max_limit"`
	NotifyTopK        int `koanf:"notify_top_k"`
	CandidatePoolSize int `koanf:"candidate_pool_size"`

	Weights                 scoring.Weights `koanf:"weights"`
	NearKm                  float64         `koanf:"near_km"`
	MaxKm                   float64         `koanf:"max_km"`
	ExperienceHoursCeiling  float64         `koanf:"experience_hours_ceiling"`
	ExperienceImpactCeiling float64         `koanf:"experience_impact_ceiling"`
}

// NotifyConfig configures the notification dispatcher.
type NotifyConfig struct {
	// Channel is log, ses or sns.
	Channel         string        `koanf:"channel"`
	Workers         int           `koanf:"workers"`
	QueueSize       int           `koanf:"queue_size"`
	DedupeSize      int           `koanf:"dedupe_size"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
	AWSRegion       string        `koanf:"aws_region"`
	FromEmail       string        `koanf:"from_email"`
	TopicARN        string        `koanf:"topic_arn"`
}

// ChatConfig configures the chatbot. An empty APIKey disables it.
type ChatConfig struct {
	APIKey        string        `koanf:"api_key"`
	Model         string        `koanf:"model"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxMessageLen int           `koanf:"max_message_len"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ShutdownTimeout: 15 * time.Second,
		Storage: StorageConfig{
			Driver:          "memory",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			TTL:    5 * time.Minute,
			Prefix: "vmatch:",
		},
		Matching: MatchingConfig{
			DefaultLimit:            10,
			MaxLimit:                100,
			NotifyTopK:              5,
			CandidatePoolSize:       20,
			Weights:                 scoring.DefaultWeights(),
			NearKm:                  5,
			MaxKm:                   100,
			ExperienceHoursCeiling:  200,
			ExperienceImpactCeiling: 100,
		},
		Notify: NotifyConfig{
			Channel:         "log",
			Workers:         runtime.NumCPU(),
			QueueSize:       1024,
			DedupeSize:      50_000,
			DeliveryTimeout: 10 * time.Second,
			AWSRegion:       "us-east-1",
		},
		Chat: ChatConfig{
			Model:         "gemini-2.5-flash",
			Timeout:       30 * time.Second,
			MaxMessageLen: 2000,
		},
	}
}
