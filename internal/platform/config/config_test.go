package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("BALLOTGATE_ENV", "dev")
	t.Setenv("REGISTRY_BACKEND", "")
	t.Setenv("JWT_SIGNING_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendSQLite, cfg.Registry.Backend)
	assert.True(t, cfg.EarlyRejection)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.False(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.RateLimit.Enabled())
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Second, cfg.Registry.TxTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BALLOTGATE_ENV", "dev")
	t.Setenv("REGISTRY_BACKEND", BackendRedis)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")
	t.Setenv("RATE_LIMIT_PER_KIOSK", "0")
	t.Setenv("SESSION_TTL", "2m")
	t.Setenv("EARLY_REJECTION", "false")
	t.Setenv("REGISTRY_TX_TIMEOUT", "750ms")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Registry.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.EarlyRejection)
	assert.False(t, cfg.RateLimit.Enabled())
	assert.Equal(t, 750*time.Millisecond, cfg.Registry.TxTimeout)
}

func TestFromEnv_InvalidDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestValidate(t *testing.T) {
	base := Server{
		Environment:   "dev",
		JWTSigningKey: "k",
		SessionTTL:    time.Minute,
		Registry:      RegistryConfig{Backend: BackendSQLite, TxTimeout: time.Second},
	}
	require.NoError(t, base.Validate())

	t.Run("postgres requires dsn", func(t *testing.T) {
		cfg := base
		cfg.Registry.Backend = BackendPostgres
		assert.Error(t, cfg.Validate())
	})

	t.Run("memory backend rejected in production", func(t *testing.T) {
		cfg := base
		cfg.Environment = "prod"
		cfg.IdentityPepper = "pepper"
		cfg.Registry.Backend = BackendMemory
		assert.Error(t, cfg.Validate())
	})

	t.Run("production requires pepper", func(t *testing.T) {
		cfg := base
		cfg.Environment = "prod"
		assert.Error(t, cfg.Validate())
	})

	t.Run("registry transaction timeout must be positive", func(t *testing.T) {
		cfg := base
		cfg.Registry.TxTimeout = 0
		assert.ErrorContains(t, cfg.Validate(), "REGISTRY_TX_TIMEOUT")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base
		cfg.Registry.Backend = "etcd"
		assert.Error(t, cfg.Validate())
	})
}
