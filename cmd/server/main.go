package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"ballotgate/internal/biometric"
	"ballotgate/internal/credential"
	"ballotgate/internal/notify"
	"ballotgate/internal/platform/config"
	"ballotgate/internal/platform/database"
	"ballotgate/internal/platform/httpserver"
	"ballotgate/internal/platform/kafka"
	"ballotgate/internal/platform/kioskauth"
	"ballotgate/internal/platform/logger"
	"ballotgate/internal/platform/metrics"
	"ballotgate/internal/platform/redis"
	"ballotgate/internal/ratelimit"
	ratememory "ballotgate/internal/ratelimit/store/memory"
	rateredis "ballotgate/internal/ratelimit/store/redis"
	registryhandler "ballotgate/internal/registry/handler"
	registryservice "ballotgate/internal/registry/service"
	registrymemory "ballotgate/internal/registry/store/memory"
	registrypostgres "ballotgate/internal/registry/store/postgres"
	registryredis "ballotgate/internal/registry/store/redis"
	registrysqlite "ballotgate/internal/registry/store/sqlite"
	sessionhandler "ballotgate/internal/session/handler"
	sessionservice "ballotgate/internal/session/service"
	sessionmemory "ballotgate/internal/session/store/memory"
	sessionredis "ballotgate/internal/session/store/redis"
	httptransport "ballotgate/internal/transport/http"
	"ballotgate/pkg/platform/audit"
	"ballotgate/pkg/platform/audit/publisher"
	auditmemory "ballotgate/pkg/platform/audit/store/memory"
	auditpostgres "ballotgate/pkg/platform/audit/store/postgres"
	auditredis "ballotgate/pkg/platform/audit/store/redis"
	auditsqlite "ballotgate/pkg/platform/audit/store/sqlite"
	"ballotgate/pkg/platform/audit/worker"
	"ballotgate/pkg/platform/privacy"
)

const (
	shutdownTimeout = 10 * time.Second
	topicPartitions = 3
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("ballotgate stopped", "error", err)
		os.Exit(1)
	}
}

// infra holds the shared connections, opened once and closed on exit.
type infra struct {
	db     *sql.DB
	redis  *redis.Client
	kafka  *kgo.Client
	checks map[string]httptransport.HealthCheck
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	hasher, err := privacy.NewHasher(cfg.IdentityPepper)
	if err != nil {
		return err
	}

	inf, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer inf.close()

	roll, err := credential.OpenFileRoll(cfg.VoterRollPath, log)
	if err != nil {
		return fmt.Errorf("load voter roll: %w", err)
	}

	auditStore, outbox := buildAuditStore(cfg, inf)
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(256),
	)
	defer func() { _ = auditPublisher.Close() }()

	registry, err := buildRegistry(ctx, cfg, inf, hasher, auditPublisher, m, log)
	if err != nil {
		return err
	}

	fingerprint, err := buildMatcher(cfg.Biometrics.FingerprintURL, biometric.ModalityFingerprint, roll, cfg, m, log)
	if err != nil {
		return err
	}
	face, err := buildMatcher(cfg.Biometrics.FaceURL, biometric.ModalityFace, roll, cfg, m, log)
	if err != nil {
		return err
	}

	var sessions sessionservice.Store = sessionmemory.New(cfg.SessionTTL)
	if inf.redis != nil {
		sessions = sessionredis.New(inf.redis.Client, cfg.SessionTTL)
	}

	var receipts sessionservice.ReceiptNotifier = notify.NewLogNotifier(log)
	if inf.kafka != nil {
		receipts = notify.NewKafkaNotifier(inf.kafka, cfg.Kafka.ReceiptTopic, log)
	}

	checkpoint, err := sessionservice.New(sessions, credential.NewDecoder(roll), fingerprint, face, registry,
		sessionservice.WithLogger(log),
		sessionservice.WithMetrics(m),
		sessionservice.WithAuditPublisher(auditPublisher),
		sessionservice.WithIdentityHasher(hasher),
		sessionservice.WithReceiptNotifier(receipts, roll),
		sessionservice.WithEarlyRejection(cfg.EarlyRejection),
	)
	if err != nil {
		return err
	}

	var rateLimit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled() {
		var windows ratelimit.Store = ratememory.New()
		if inf.redis != nil {
			windows = rateredis.New(inf.redis.Client)
		}
		rateLimit = ratelimit.New(windows, cfg.RateLimit.Limit, cfg.RateLimit.Window, log).PerKiosk
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Metrics:   m,
		Kiosks:    kioskauth.New(cfg.JWTSigningKey, "ballotgate"),
		RateLimit: rateLimit,
		Handlers: []httptransport.RouteRegistrar{
			sessionhandler.New(checkpoint, log),
			registryhandler.New(registry, log),
		},
		HealthChecks: inf.checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ballotgate",
			"addr", cfg.Addr,
			"kiosk_id", cfg.KioskID,
			"registry_backend", cfg.Registry.Backend,
			"voters", roll.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reloadRollOnHangup(gctx, roll, log)
		return nil
	})
	if outbox != nil {
		if inf.kafka == nil {
			log.Warn("audit outbox is not relayed: KAFKA_BROKERS is unset")
		} else {
			relay := worker.NewRelay(outbox, inf.kafka, cfg.Kafka.AuditTopic,
				worker.WithLogger(log),
				worker.WithMetrics(m),
				worker.WithInterval(cfg.Kafka.OutboxPollInterval),
			)
			g.Go(func() error {
				if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}
	return g.Wait()
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	inf := &infra{checks: map[string]httptransport.HealthCheck{}}

	switch cfg.Registry.Backend {
	case config.BackendPostgres:
		db, err := database.OpenPostgres(ctx, cfg.Registry.PostgresDSN)
		if err != nil {
			return nil, err
		}
		inf.db = db
	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Registry.SQLitePath)
		if err != nil {
			return nil, err
		}
		inf.db = db
	case config.BackendMemory:
		log.Warn("memory vote registry in use: votes are lost on restart")
	}
	if inf.db != nil {
		inf.checks["registry"] = inf.db.PingContext
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		inf.close()
		return nil, err
	}
	if rc != nil {
		inf.redis = rc
		inf.checks["redis"] = rc.Health
	}

	kc, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		inf.close()
		return nil, err
	}
	if kc != nil {
		inf.kafka = kc
		if err := kafka.EnsureTopics(ctx, kc, topicPartitions, cfg.Kafka.AuditTopic, cfg.Kafka.ReceiptTopic); err != nil {
			inf.close()
			return nil, err
		}
		inf.checks["kafka"] = kc.Ping
	}
	return inf, nil
}

// buildAuditStore keeps the audit trail in the same store as the votes. SQL
// backends write an outbox row in the claim transaction so vote_cast commits
// atomically with the vote. Only the dev-only memory backend keeps a bounded
// in-memory trail with nothing to relay.
func buildAuditStore(cfg config.Server, inf *infra) (audit.Store, worker.Outbox) {
	switch cfg.Registry.Backend {
	case config.BackendPostgres:
		return auditpostgres.New(inf.db), worker.NewPostgresOutbox(inf.db)
	case config.BackendSQLite:
		return auditsqlite.New(inf.db), worker.NewSQLiteOutbox(inf.db)
	case config.BackendRedis:
		return auditredis.New(inf.redis.Client), worker.NewRedisStreamOutbox(inf.redis.Client, auditredis.StreamKey, cfg.KioskID)
	default:
		return auditmemory.NewInMemoryStore(), nil
	}
}

func buildRegistry(
	ctx context.Context,
	cfg config.Server,
	inf *infra,
	hasher *privacy.Hasher,
	auditPublisher registryservice.AuditPublisher,
	m *metrics.Metrics,
	log *slog.Logger,
) (*registryservice.Service, error) {
	opts := []registryservice.Option{
		registryservice.WithLogger(log),
		registryservice.WithMetrics(m),
		registryservice.WithAuditPublisher(auditPublisher),
	}

	var store registryservice.Store
	switch cfg.Registry.Backend {
	case config.BackendPostgres:
		store = registrypostgres.New(inf.db)
		opts = append(opts, registryservice.WithTransactor(newRegistrySQLTx(inf.db, cfg.Registry.TxTimeout)))
	case config.BackendSQLite:
		store = registrysqlite.New(inf.db)
		opts = append(opts, registryservice.WithTransactor(newRegistrySQLTx(inf.db, cfg.Registry.TxTimeout)))
	case config.BackendRedis:
		redisStore := registryredis.New(inf.redis.Client)
		if err := redisStore.CheckDurability(ctx); err != nil {
			if !cfg.IsDev() {
				return nil, fmt.Errorf("redis vote registry: %w", err)
			}
			log.Warn("redis vote registry may lose acknowledged votes on crash", "error", err)
		}
		store = redisStore
	default:
		store = registrymemory.New()
	}
	return registryservice.New(store, hasher, opts...)
}

func buildMatcher(
	url string,
	modality biometric.Modality,
	roll credential.VoterDirectory,
	cfg config.Server,
	m *metrics.Metrics,
	log *slog.Logger,
) (biometric.Matcher, error) {
	if url == "" {
		return biometric.NewEnrolledMatcher(roll, modality), nil
	}
	return biometric.NewOracleClient(url, modality,
		biometric.WithTimeout(cfg.Biometrics.Timeout),
		biometric.WithVoterDirectory(roll),
		biometric.WithMetrics(m),
		biometric.WithLogger(log),
	)
}

func reloadRollOnHangup(ctx context.Context, roll *credential.FileRoll, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := roll.Reload(ctx); err != nil {
				log.Error("voter roll reload failed; keeping previous roll", "error", err)
			}
		}
	}
}
