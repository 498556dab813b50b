package config_test

import (
	"testing"
	"time"

	"github.com/aretw0/recalc/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ".", cfg.Workbooks)
	assert.Equal(t, "hcl", cfg.Evaluator)
	assert.Equal(t, config.LoaderFile, cfg.Loader)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, "recalc/results", cfg.MQTTTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 64, cfg.MailboxSize)
	assert.Equal(t, 5*time.Second, cfg.EvalTimeout)
	assert.Zero(t, cfg.RedisTTL)
	assert.Empty(t, cfg.EncryptionPreviousKeys)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"RECALC_STORE":                    "redis",
		"RECALC_REDIS_TTL":                "90s",
		"RECALC_REDIS_LOCK":               "true",
		"RECALC_ENCRYPTION_PREVIOUS_KEYS": "a,b",
		"RECALC_REDACT":                   `^HR\.,ssn`,
		"RECALC_MAILBOX_SIZE":             "8",
		"RECALC_EVAL_TIMEOUT":             "250ms",
		"OTEL_EXPORTER_OTLP_ENDPOINT":     "http://collector:4318",
	})
	require.NoError(t, err)

	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, 90*time.Second, cfg.RedisTTL)
	assert.True(t, cfg.RedisLock)
	assert.Equal(t, []string{"a", "b"}, cfg.EncryptionPreviousKeys)
	assert.Equal(t, []string{`^HR\.`, "ssn"}, cfg.Redact)
	assert.Equal(t, 8, cfg.MailboxSize)
	assert.Equal(t, 250*time.Millisecond, cfg.EvalTimeout)
	assert.Equal(t, "http://collector:4318", cfg.OTLPEndpoint)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown store", map[string]string{"RECALC_STORE": "postgres"}},
		{"unknown loader", map[string]string{"RECALC_LOADER": "git"}},
		{"negative mailbox", map[string]string{"RECALC_MAILBOX_SIZE": "-1"}},
		{"negative eval timeout", map[string]string{"RECALC_EVAL_TIMEOUT": "-1s"}},
		{"bad duration", map[string]string{"RECALC_REDIS_TTL": "soon"}},
		{"bad bool", map[string]string{"RECALC_REDIS_LOCK": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFrom(tt.vars)
			assert.Error(t, err)
		})
	}
}
