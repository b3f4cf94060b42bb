// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/storefront/backend/internal/admin"
	"github.com/carterperez-dev/storefront/backend/internal/audit"
	"github.com/carterperez-dev/storefront/backend/internal/auth"
	"github.com/carterperez-dev/storefront/backend/internal/catalog"
	"github.com/carterperez-dev/storefront/backend/internal/config"
	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/customer"
	"github.com/carterperez-dev/storefront/backend/internal/health"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
	"github.com/carterperez-dev/storefront/backend/internal/middleware"
	"github.com/carterperez-dev/storefront/backend/internal/server"
)

const (
	drainDelay = 5 * time.Second

	refreshPruneInterval = time.Hour
	refreshPruneGrace    = 24 * time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log, cfg.App)
	slog.SetDefault(logger)

	logger.Info("starting application", "version", cfg.App.Version)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracing and metrics initialized",
			"endpoint", cfg.Otel.Endpoint,
			"sample_rate", cfg.Otel.SampleRate,
		)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis, cfg.Otel.ServiceName)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	clock := core.RealClock{}

	hasher, err := core.NewPasswordHasher(cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT, clock)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "HS256",
		"access_ttl", jwtManager.AccessTTL(),
		"refresh_ttl", cfg.JWT.RefreshTokenExpire,
	)

	events := audit.New(cfg.Kafka, logger)
	logger.Info("audit publisher initialized",
		"kafka_enabled", cfg.Kafka.Enabled,
		"topic", cfg.Kafka.Topic,
	)

	adminSvc := admin.NewService(admin.NewRepository(db.DB))
	customerSvc := customer.NewService(customer.NewRepository(db.DB))

	refreshManager := auth.NewRefreshManager(
		auth.NewRepository(db.DB),
		clock,
		cfg.JWT.RefreshTokenExpire,
	)
	authSvc := auth.NewService(
		jwtManager,
		refreshManager,
		hasher,
		events,
		clock,
		adminSvc,
		customerSvc,
	)
	authHandler := auth.NewHandler(authSvc, auth.NewCookieWriter(cfg.Cookie, clock))

	guard := middleware.NewGuard(jwtManager, authSvc)

	customerHandler := customer.NewHandler(customerSvc)
	catalogHandler := catalog.NewHandler()

	healthHandler := health.NewHandler(cfg.App.Version,
		health.Dependency{Name: "database", Checker: db, Critical: true},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Admins:     adminSvc,
		Customers:  customerSvc,
		Accounts:   authSvc,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	globalLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.LimitFromConfig(cfg.RateLimit),
		FailOpen: true,
		Skip:     middleware.SkipPaths("/healthz", "/livez", "/readyz"),
	})
	defer globalLimiter.Stop()

	credentialLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Prefix:   "auth",
		Limit:    middleware.LimitFromConfig(cfg.AuthRateLimit),
		KeyFunc:  middleware.KeyByIPAndEndpoint,
		FailOpen: true,
	})
	defer credentialLimiter.Stop()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(globalLimiter.Handler)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS, cfg.CSRF.HeaderName))

	healthHandler.RegisterRoutes(router)

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.CSRF(middleware.NewCSRFConfig(cfg.CSRF, cfg.Cookie)))

		authHandler.RegisterRoutes(r, guard, credentialLimiter.Handler)
		customerHandler.RegisterRoutes(r, guard.RequireCustomer)
		adminHandler.RegisterRoutes(r, guard.RequireAdmin)
		catalogHandler.RegisterRoutes(r, guard.Optional(identity.KindCustomer))
	})

	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		refreshManager.RunPruner(ctx, refreshPruneInterval, refreshPruneGrace, logger)
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	background.Wait()

	if err := events.Close(); err != nil {
		logger.Error("audit publisher close error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig, app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", app.Name,
		"environment", app.Environment,
	)
}
