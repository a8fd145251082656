package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/operate360/operate360/internal/app"
	"github.com/operate360/operate360/internal/auth"
	"github.com/operate360/operate360/internal/observability"
	"github.com/operate360/operate360/internal/platform/cache"
	"github.com/operate360/operate360/internal/platform/db"
	"github.com/operate360/operate360/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("operate360 stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	healthChecks := map[string]app.HealthCheck{
		"postgres": dbpool.Ping,
	}

	var redisClient *redis.Client
	if cfg.RevocationBackend == app.RevocationRedis {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	codec, err := auth.NewTokenCodec(cfg.JWTSecret, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		return err
	}
	metrics := observability.NewMetrics()
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	group, ctx := errgroup.WithContext(ctx)

	registry, err := newRegistry(cfg, dbpool, redisClient)
	if err != nil {
		return err
	}
	if memory, ok := registry.(*auth.MemoryRegistry); ok {
		group.Go(func() error {
			return memory.Run(ctx, cfg.RevocationSweepInterval)
		})
	}
	logger.Info("revocation registry ready", slog.String("backend", cfg.RevocationBackend))

	guard := auth.NewGuard(codec, registry, logger, metrics)
	authService := auth.NewService(auth.NewRepository(dbpool), hasher, codec, registry)
	authHandler := auth.NewHandler(logger, authService, guard, metrics, cfg.AuthRateLimitPerMinute)

	usersService := users.NewService(users.NewRepository(dbpool), hasher, cfg.AdminRoleID)
	usersHandler := users.NewHandler(logger, usersService, guard, cfg.AdminRoleID)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		Metrics:      metrics,
		HealthChecks: healthChecks,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRegistry(cfg *app.Config, pool *pgxpool.Pool, client *redis.Client) (auth.RevocationRegistry, error) {
	switch cfg.RevocationBackend {
	case app.RevocationMemory:
		return auth.NewMemoryRegistry(), nil
	case app.RevocationRedis:
		return auth.NewRedisRegistry(client), nil
	case app.RevocationPostgres:
		return auth.NewPGRegistry(pool), nil
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", cfg.RevocationBackend)
	}
}
