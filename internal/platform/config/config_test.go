package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.SpeculativeLookup)
	assert.Equal(t, "corpatlas.audit.v1", cfg.AuditTopic)
	assert.Equal(t, float64(1), cfg.AuditSampleRate)
	assert.NotNil(t, cfg.Env)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CORPATLAS_ADDR", ":9999")
	t.Setenv("CORPATLAS_PROVIDER_TIMEOUT", "3s")
	t.Setenv("CORPATLAS_SPECULATIVE_LOOKUP", "true")
	t.Setenv("CORPATLAS_KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("CORPATLAS_AUDIT_SAMPLE_RATE", "0.25")
	t.Setenv("INSEE_API_KEY", "test-key")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.True(t, cfg.SpeculativeLookup)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0.25, cfg.AuditSampleRate)
	assert.Equal(t, "test-key", cfg.Env["INSEE_API_KEY"])
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CORPATLAS_PROVIDER_TIMEOUT", "soon")
	t.Setenv("CORPATLAS_RATE_LIMIT", "many")
	t.Setenv("CORPATLAS_AUDIT_SAMPLE_RATE", "most")

	cfg := FromEnv()

	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.Equal(t, float64(1), cfg.AuditSampleRate)
}
