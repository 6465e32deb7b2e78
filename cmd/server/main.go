package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	appservice "github.com/turtacn/credence/internal/application/service"
	"github.com/turtacn/credence/internal/config"
	domainservice "github.com/turtacn/credence/internal/domain/service"
	"github.com/turtacn/credence/internal/infrastructure/audit"
	"github.com/turtacn/credence/internal/infrastructure/crypto"
	"github.com/turtacn/credence/internal/infrastructure/kms"
	"github.com/turtacn/credence/internal/infrastructure/monitoring"
	"github.com/turtacn/credence/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/credence/internal/infrastructure/persistence/redis"
	"github.com/turtacn/credence/internal/infrastructure/ratelimit"
	"github.com/turtacn/credence/internal/interfaces/http"
	"github.com/turtacn/credence/internal/interfaces/http/handlers"
	"github.com/turtacn/credence/internal/interfaces/http/middleware"
	"github.com/turtacn/credence/pkg/constants"
	"github.com/turtacn/credence/pkg/logger"
)

func main() {
	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info", Format: "json", OutputPath: "stdout"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	// Load config
	loader := config.NewLoader(startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	loader.Watch(func(next *config.Config) {
		appLogger.SetLevel(constants.LogLevel(next.Log.Level))
	})

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error(context.Background(), "Server exited", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keys are loaded once; a missing key stops the process here.
	source, err := kms.NewSecretSource(cfg, appLogger)
	if err != nil {
		return err
	}
	keys, err := kms.LoadKeyStore(ctx, source, appLogger)
	if err != nil {
		return err
	}
	tokens, err := crypto.NewTokenManager(keys, crypto.WithTTL(cfg.Token.TTL), crypto.WithIssuer(cfg.Token.Issuer))
	if err != nil {
		return err
	}
	cipher, err := crypto.NewFieldCipher(keys)
	if err != nil {
		return err
	}
	params := crypto.DigestParamsFrom(cfg.Password)
	if err := params.Validate(); err != nil {
		return err
	}

	// Observability
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	tracing, err := monitoring.NewTracingManager(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(tracing.Shutdown)

	// Initialize database
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	checkers := map[string]handlers.HealthChecker{"database": db}

	// Initialize Redis
	var redisConn *redis.RedisConnection
	if cfg.Redis.Enabled {
		redisConn = redis.NewRedisConnection(&cfg.Redis, appLogger)
		if err := redisConn.Connect(ctx); err != nil {
			return err
		}
		defer redisConn.Close()
		checkers["redis"] = redisConn
	}

	rateLimiter, err := newRateLimiter(cfg, redisConn, appLogger)
	if err != nil {
		return err
	}

	auditSink, err := audit.NewSink(ctx, &cfg.Audit, db.DB(), appLogger)
	if err != nil {
		return err
	}
	defer auditSink.Close()

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(db.DB(), appLogger)
	projectRepo := postgres.NewProjectRepository(db.DB(), appLogger)
	documentRepo := postgres.NewDocumentRepository(db.DB(), cipher, metrics, appLogger)

	// Initialize application services
	authAppSvc := appservice.NewAuthAppService(accountRepo, tokens, rateLimiter, auditSink, metrics, params, appLogger)
	accountAppSvc := appservice.NewAccountAppService(accountRepo, auditSink, params, appLogger)
	projectAppSvc := appservice.NewProjectAppService(accountRepo, projectRepo, documentRepo, appLogger)

	router := http.NewRouter(cfg, http.Dependencies{
		Authenticator:  middleware.NewRequestAuthenticator(tokens, accountRepo, &cfg.Server, metrics, auditSink, appLogger),
		AuthHandler:    handlers.NewAuthHandler(authAppSvc),
		AccountHandler: handlers.NewAccountHandler(accountAppSvc, appLogger),
		ProjectHandler: handlers.NewProjectHandler(projectAppSvc),
		HealthHandler:  handlers.NewHealthHandler(checkers, appLogger),
		SignupLimiter:  rateLimiter,
		Metrics:        metrics,
		Tracer:         tracing,
		HTTPMetrics:    metrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, appLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(router.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return router.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newRateLimiter returns the login and signup limiter, or nil when rate
// limiting is disabled. The redis backend falls back to a per-process limiter
// while redis is unreachable.
func newRateLimiter(cfg *config.Config, redisConn *redis.RedisConnection, log logger.Logger) (domainservice.RateLimitService, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	limits := ratelimit.ConfigFrom(&cfg.RateLimit)
	memory := ratelimit.NewMemoryRateLimiter(limits)
	if cfg.RateLimit.Backend != "redis" {
		return memory, nil
	}
	return ratelimit.NewRedisRateLimiter(redisConn.GetClient(), limits, memory, log)
}

func shutdownWithTimeout(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = fn(ctx)
}
