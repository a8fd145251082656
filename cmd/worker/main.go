package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/operate360/operate360/internal/app"
	"github.com/operate360/operate360/internal/auth"
	jobmetrics "github.com/operate360/operate360/internal/jobs"
	"github.com/operate360/operate360/internal/observability"
	"github.com/operate360/operate360/internal/platform/db"
	"github.com/operate360/operate360/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	metrics := observability.NewMetrics()
	purgeJob := jobs.NewRevocationPurgeJob(
		auth.NewPGRegistry(pool),
		logger,
		jobmetrics.NewMetrics(metrics.Registerer()),
		metrics,
	)

	purgeTask, err := jobs.NewRevocationPurgeTask(jobs.RevocationPurgePayload{})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRevocationPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RevocationPurgeCron, Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	client := jobs.NewClient(redisOpts)
	defer client.Close()
	if _, err := client.EnqueueRevocationPurge(ctx, jobs.RevocationPurgePayload{}); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Warn("enqueue startup purge", slog.Any("error", err))
	}

	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	router := chi.NewRouter()
	router.Route("/jobs", jobs.NewHandler(inspector, logger).MountRoutes)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	opsServer := &http.Server{Addr: cfg.WorkerAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("starting worker ops server", slog.String("addr", cfg.WorkerAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker ops server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
