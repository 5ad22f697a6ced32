package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "ballotgate/pkg/platform/strings"
)

// Registry backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	KioskID       string
	JWTSigningKey string
	// IdentityPepper keys the digests used as vote registry keys. Changing it
	// orphans every existing vote record.
	IdentityPepper string
	// EarlyRejection rejects voters who already voted at the credential stage,
	// before any biometric step runs.
	EarlyRejection bool
	VoterRollPath  string
	SessionTTL     time.Duration

	Registry   RegistryConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Biometrics BiometricsConfig
	RateLimit  RateLimitConfig
}

type RegistryConfig struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	// TxTimeout bounds a claim transaction that arrives without a deadline.
	TxTimeout time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	ReceiptTopic string
	// OutboxPollInterval controls how often the relay drains the outbox.
	OutboxPollInterval time.Duration
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type BiometricsConfig struct {
	FingerprintURL string
	FaceURL        string
	Timeout        time.Duration
}

// RateLimitConfig bounds requests per kiosk. A zero limit disables it.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

func (r RateLimitConfig) Enabled() bool { return r.Limit > 0 && r.Window > 0 }

// IsDev reports whether development defaults are acceptable.
func (s Server) IsDev() bool { return s.Environment == "" || s.Environment == "dev" }

// FromEnv builds a Server config from environment variables so main stays
// lean. A .env file in the working directory is loaded first when present;
// real environment variables win.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:           envOr("BALLOTGATE_ADDR", ":8080"),
		Environment:    envOr("BALLOTGATE_ENV", "dev"),
		KioskID:        envOr("KIOSK_ID", "kiosk-local"),
		JWTSigningKey:  os.Getenv("JWT_SIGNING_KEY"),
		IdentityPepper: os.Getenv("IDENTITY_PEPPER"),
		EarlyRejection: envOr("EARLY_REJECTION", "true") == "true",
		VoterRollPath:  envOr("VOTER_ROLL_PATH", "voter_roll.json"),
		Registry: RegistryConfig{
			Backend:     envOr("REGISTRY_BACKEND", BackendSQLite),
			SQLitePath:  envOr("REGISTRY_SQLITE_PATH", "votes.db"),
			PostgresDSN: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   envOr("KAFKA_AUDIT_TOPIC", "ballotgate.audit"),
			ReceiptTopic: envOr("KAFKA_RECEIPT_TOPIC", "ballotgate.receipts"),
		},
		Biometrics: BiometricsConfig{
			FingerprintURL: os.Getenv("FINGERPRINT_ORACLE_URL"),
			FaceURL:        os.Getenv("FACE_ORACLE_URL"),
		},
	}

	var err error
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", 15*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.Registry.TxTimeout, err = envDuration("REGISTRY_TX_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Kafka.OutboxPollInterval, err = envDuration("OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Biometrics.Timeout, err = envDuration("BIOMETRIC_TIMEOUT", 8*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.Limit, err = envInt("RATE_LIMIT_PER_KIOSK", 120); err != nil {
		return Server{}, err
	}
	if cfg.RateLimit.Window, err = envDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = envDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}

	if cfg.JWTSigningKey == "" && cfg.IsDev() {
		// Use a default for development - must be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations that cannot start.
func (s Server) Validate() error {
	switch s.Registry.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if s.Registry.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres registry backend")
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis registry backend")
		}
	default:
		return fmt.Errorf("unknown registry backend %q", s.Registry.Backend)
	}
	// The memory backend also keeps the audit trail in a bounded ring.
	if s.Registry.Backend == BackendMemory && !s.IsDev() {
		return fmt.Errorf("memory registry backend is not durable and only allowed in dev")
	}
	if s.Registry.TxTimeout <= 0 {
		return fmt.Errorf("REGISTRY_TX_TIMEOUT must be positive")
	}
	if s.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required outside dev")
	}
	if !s.IsDev() && s.IdentityPepper == "" {
		return fmt.Errorf("IDENTITY_PEPPER is required outside dev")
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}
