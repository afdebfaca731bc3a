package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dcaf/internal/admin"
	httpapi "dcaf/internal/http"
	identityadapters "dcaf/internal/identity/adapters"
	identityhandler "dcaf/internal/identity/handler"
	identitymetrics "dcaf/internal/identity/metrics"
	identityports "dcaf/internal/identity/ports"
	identityservice "dcaf/internal/identity/service"
	jwttoken "dcaf/internal/jwt_token"
	loginadapters "dcaf/internal/login/adapters"
	"dcaf/internal/login/device"
	loginhandler "dcaf/internal/login/handler"
	loginmetrics "dcaf/internal/login/metrics"
	loginports "dcaf/internal/login/ports"
	"dcaf/internal/login/security"
	loginservice "dcaf/internal/login/service"
	"dcaf/internal/login/store/challenge"
	"dcaf/internal/platform/config"
	"dcaf/internal/platform/httpserver"
	"dcaf/internal/platform/kafka/producer"
	"dcaf/internal/platform/logger"
	"dcaf/internal/platform/redis"
	ratelimitmetrics "dcaf/internal/ratelimit/metrics"
	ratelimitmw "dcaf/internal/ratelimit/middleware"
	ratelimitmodels "dcaf/internal/ratelimit/models"
	"dcaf/internal/ratelimit/store/bucket"
	"dcaf/pkg/platform/audit"
	"dcaf/pkg/platform/audit/publisher"
	"dcaf/pkg/platform/audit/store/memory"
	"dcaf/pkg/platform/audit/store/postgres"
	"dcaf/pkg/platform/circuit"
)

const (
	shutdownGrace   = 10 * time.Second
	auditBufferSize = 1024
)

// main wires the pipelines to their backing stores and serves HTTP until
// SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using development signing key", "env", cfg.Env)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	health := map[string]httpapi.HealthCheck{}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		health["redis"] = rc.Health
		log.Info("redis connected")
	}

	auditStore, closeAudit, err := buildAuditStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	if db, ok := auditStore.(*postgres.Store); ok {
		health["postgres"] = db.Ping
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	notifier, closeNotifier, err := buildNotifier(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	profiles, insights, err := buildProfileSources(cfg.Pipeline, rc, log)
	if err != nil {
		return err
	}
	identitySvc := identityservice.New(profiles, insights,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(identitymetrics.New(reg)),
		identityservice.WithNotifier(notifier),
		identityservice.WithAuditPublisher(auditPublisher),
		identityservice.WithFetchTimeout(cfg.Pipeline.FetchTimeout),
	)

	credentials := loginadapters.NewCredentialDirectory()
	if cfg.Pipeline.CredentialsPath != "" {
		credentials, err = loginadapters.LoadCredentials(cfg.Pipeline.CredentialsPath)
		if err != nil {
			return err
		}
	}
	var ledger loginports.ChallengeLedger = challenge.NewInMemoryLedger()
	if rc != nil {
		ledger = challenge.NewRedisLedger(rc.Client)
	}
	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	loginSvc := loginservice.New(
		credentials,
		loginadapters.NewHeuristicAnalyzer(device.NewService(cfg.Pipeline.DeviceFingerprints),
			loginadapters.WithAnalyzerLogger(log),
		),
		ledger,
		jwtSvc,
		loginservice.WithLogger(log),
		loginservice.WithMetrics(loginmetrics.New(reg)),
		loginservice.WithNotifier(notifier),
		loginservice.WithAuditPublisher(auditPublisher),
		loginservice.WithChallengeIssuer(security.NewChallengeIssuer(security.WithChallengeTTL(cfg.Pipeline.ChallengeTTL))),
		loginservice.WithTokenTTL(cfg.Pipeline.TokenTTL),
		loginservice.WithStepUpTTL(cfg.Pipeline.StepUpTTL),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:     log,
		Registry:   reg,
		Identity:   identityhandler.New(identitySvc, log),
		Login:      loginhandler.New(loginSvc, jwtSvc, log),
		Admin:      admin.New(auditStore, log),
		RateLimit:  buildRateLimiter(cfg.RateLimit, rc, reg, log),
		Tokens:     jwtSvc.Middleware(),
		AdminToken: cfg.AdminToken,
		Health:     health,
	})

	log.Info("starting dcaf", "addr", cfg.Addr)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), shutdownGrace, log)
}

func buildAuditStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (audit.Store, func(), error) {
	if cfg.URL == "" {
		return memory.NewInMemoryStore(), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("postgres audit store ready")
	return store, closeDB(db, log), nil
}

func closeDB(db *sql.DB, log *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
}

// notifier is satisfied by both pipelines' Notifier ports.
type notifier interface {
	identityports.Notifier
	loginports.Notifier
}

func buildNotifier(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (notifier, func(), error) {
	if len(cfg.Brokers) == 0 {
		return producer.NopNotifier{}, func() {}, nil
	}
	p, err := producer.New(cfg.Brokers, cfg.Topic, producer.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	if err := p.EnsureTopic(ctx, 3, 1); err != nil {
		// Brokers may forbid topic creation; notifications are best effort.
		log.Warn("could not ensure notification topic", "topic", cfg.Topic, "error", err)
	}
	return p, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Close(flushCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Warn("failed to flush notifications", "error", err)
		}
	}, nil
}

func buildProfileSources(cfg config.Pipeline, rc *redis.Client, log *slog.Logger) (identityports.ProfileSource, identityports.MatchInsightSource, error) {
	var (
		profiles identityports.ProfileSource
		insights identityports.MatchInsightSource
	)
	switch {
	case cfg.ProfileSourceURL != "":
		src := identityadapters.NewHTTPSource(cfg.ProfileSourceURL, identityadapters.WithAPIKey(cfg.ProfileSourceAPIKey))
		profiles = identityadapters.NewBreakerProfileSource(src.Profiles(), newBreaker("profiles", cfg), log)
		insights = identityadapters.NewBreakerInsightSource(src.Insights(), newBreaker("insights", cfg), log)
	case cfg.FixturesPath != "":
		fx, err := identityadapters.LoadFixtures(cfg.FixturesPath)
		if err != nil {
			return nil, nil, err
		}
		profiles, insights = fx.Profiles(), fx.Insights()
	default:
		fx := identityadapters.DefaultFixtures()
		profiles, insights = fx.Profiles(), fx.Insights()
	}

	if rc != nil && cfg.ProfileCacheTTL > 0 {
		profiles = identityadapters.NewCachedProfileSource(profiles, rc.Client, cfg.ProfileCacheTTL, log)
		insights = identityadapters.NewCachedInsightSource(insights, rc.Client, cfg.ProfileCacheTTL, log)
	}
	return profiles, insights, nil
}

func buildRateLimiter(cfg config.RateLimitConfig, rc *redis.Client, reg prometheus.Registerer, log *slog.Logger) *ratelimitmw.Middleware {
	var store ratelimitmw.BucketStore = bucket.NewInMemoryBucketStore()
	if rc != nil {
		store = bucket.NewRedisBucketStore(rc.Client)
	}
	return ratelimitmw.New(store, log,
		ratelimitmw.WithDisabled(cfg.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithPolicy(ratelimitmodels.ClassAuth, ratelimitmodels.Policy{Limit: cfg.Auth, Window: cfg.Window}),
		ratelimitmw.WithPolicy(ratelimitmodels.ClassSensitive, ratelimitmodels.Policy{Limit: cfg.Sensitive, Window: cfg.Window}),
	)
}

func newBreaker(name string, cfg config.Pipeline) *circuit.Breaker {
	return circuit.New(name,
		circuit.WithFailureThreshold(cfg.BreakerThreshold),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
}
