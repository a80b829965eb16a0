// Package config reads process configuration from the environment exactly
// once at startup. Nothing in the tree polls os.Getenv afterwards; provider
// adapters get their keys through the snapshot captured here.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the corpatlas process configuration.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	// ProviderTimeout bounds every single adapter call issued by the
	// dispatcher. Exceeding it counts as a transient provider failure.
	ProviderTimeout time.Duration

	// RequestTimeout bounds a whole inbound request, including fallback
	// across several providers. It must comfortably exceed ProviderTimeout.
	RequestTimeout time.Duration

	// SpeculativeLookup races all candidate providers for reference
	// lookups instead of walking them sequentially. Costs quota, saves
	// latency; off by default.
	SpeculativeLookup bool

	// CacheTTL bounds how long a normalized record may be served without
	// re-querying providers. Zero disables the cache.
	CacheTTL time.Duration

	RedisURL    string
	PostgresDSN string

	KafkaBrokers []string
	AuditTopic   string

	// AuditSampleRate is the fraction of operational audit events kept by
	// the Kafka sink. Compliance events always pass regardless.
	AuditSampleRate float64

	// APIKeyHash is the bcrypt hash of the inbound service API key. Empty
	// disables authentication (local development only).
	APIKeyHash string

	RateLimit  int
	RateWindow time.Duration

	// Env is the one-time environment snapshot. Provider registries read
	// per-provider keys (INSEE_API_KEY, ...) from it rather than from the
	// live environment.
	Env map[string]string
}

// RedisConfig carries tuning for the shared redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis returns the redis client configuration derived from this config.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromEnv builds the configuration from environment variables so main stays
// lean. Defaults favor local development.
func FromEnv() Config {
	env := snapshot()
	return Config{
		Addr:              getString(env, "CORPATLAS_ADDR", ":8080"),
		LogLevel:          getString(env, "CORPATLAS_LOG_LEVEL", "info"),
		LogFormat:         getString(env, "CORPATLAS_LOG_FORMAT", "json"),
		ProviderTimeout:   getDuration(env, "CORPATLAS_PROVIDER_TIMEOUT", 10*time.Second),
		RequestTimeout:    getDuration(env, "CORPATLAS_REQUEST_TIMEOUT", 45*time.Second),
		SpeculativeLookup: getBool(env, "CORPATLAS_SPECULATIVE_LOOKUP", false),
		CacheTTL:          getDuration(env, "CORPATLAS_CACHE_TTL", 15*time.Minute),
		RedisURL:          getString(env, "CORPATLAS_REDIS_URL", ""),
		PostgresDSN:       getString(env, "CORPATLAS_POSTGRES_DSN", ""),
		KafkaBrokers:      getList(env, "CORPATLAS_KAFKA_BROKERS"),
		AuditTopic:        getString(env, "CORPATLAS_AUDIT_TOPIC", "corpatlas.audit.v1"),
		AuditSampleRate:   getFloat(env, "CORPATLAS_AUDIT_SAMPLE_RATE", 1),
		APIKeyHash:        getString(env, "CORPATLAS_API_KEY_HASH", ""),
		RateLimit:         getInt(env, "CORPATLAS_RATE_LIMIT", 120),
		RateWindow:        getDuration(env, "CORPATLAS_RATE_WINDOW", time.Minute),
		Env:               env,
	}
}

func snapshot() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

func getString(env map[string]string, key, def string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return def
}

func getBool(env map[string]string, key string, def bool) bool {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func getInt(env map[string]string, key string, def int) int {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getFloat(env map[string]string, key string, def float64) float64 {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getDuration(env map[string]string, key string, def time.Duration) time.Duration {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}

func getList(env map[string]string, key string) []string {
	v, ok := env[key]
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
