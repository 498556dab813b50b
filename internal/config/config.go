// Package config loads engine settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
)

// Workbook loaders.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// Config is the process configuration. Every field can be overridden by a
// CLI flag after Load.
type Config struct {
	LogLevel  string `env:"RECALC_LOG_LEVEL" envDefault:"info"`
	Workbooks string `env:"RECALC_WORKBOOKS" envDefault:"."`
	Loader    string `env:"RECALC_LOADER" envDefault:"file"`
	Evaluator string `env:"RECALC_EVALUATOR" envDefault:"hcl"`

	// EvalTimeout bounds one expression evaluation in backends that can loop.
	EvalTimeout time.Duration `env:"RECALC_EVAL_TIMEOUT" envDefault:"5s"`

	Store     string `env:"RECALC_STORE" envDefault:"memory"`
	StorePath string `env:"RECALC_STORE_PATH"`

	RedisAddr     string        `env:"RECALC_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"RECALC_REDIS_PASSWORD"`
	RedisDB       int           `env:"RECALC_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"RECALC_REDIS_PREFIX" envDefault:"recalc:result:"`
	RedisTTL      time.Duration `env:"RECALC_REDIS_TTL" envDefault:"0s"`
	RedisLock     bool          `env:"RECALC_REDIS_LOCK" envDefault:"false"`

	EncryptionKey          string   `env:"RECALC_ENCRYPTION_KEY"`
	EncryptionPreviousKeys []string `env:"RECALC_ENCRYPTION_PREVIOUS_KEYS" envSeparator:","`
	Redact                 []string `env:"RECALC_REDACT" envSeparator:","`

	MQTTBroker   string `env:"RECALC_MQTT_BROKER"`
	MQTTTopic    string `env:"RECALC_MQTT_TOPIC" envDefault:"recalc/results"`
	MQTTClientID string `env:"RECALC_MQTT_CLIENT_ID" envDefault:"recalc"`

	HTTPAddr    string `env:"RECALC_HTTP_ADDR" envDefault:":8080"`
	MailboxSize int    `env:"RECALC_MAILBOX_SIZE" envDefault:"64"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store) {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite, StoreBolt:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch strings.ToLower(c.Loader) {
	case LoaderFile, LoaderLoam:
	default:
		return fmt.Errorf("unknown loader %q", c.Loader)
	}
	if c.MailboxSize < 0 {
		return fmt.Errorf("mailbox size must not be negative, got %d", c.MailboxSize)
	}
	if c.EvalTimeout < 0 {
		return fmt.Errorf("evaluation timeout must not be negative, got %s", c.EvalTimeout)
	}
	if c.RedisTTL < 0 {
		return fmt.Errorf("redis ttl must not be negative, got %s", c.RedisTTL)
	}
	return nil
}
