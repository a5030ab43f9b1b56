package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deal_insights_backend/internal/deals"
	"deal_insights_backend/internal/scheduler"
	"deal_insights_backend/platform/config"
	"deal_insights_backend/platform/db"
	"deal_insights_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting insights worker", "env", cfg.Env)

	if !cfg.IsSchedulerEnabled() {
		panic("REDIS_URL is required to run the insights worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := withRetry(ctx, log, "database migrations", 3, time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

	dealsModule, err := deals.NewModule(pool, cfg, log)
	if err != nil {
		log.Error("failed to initialize deals module", "error", err)
		panic("failed to initialize deals module: " + err.Error())
	}
	defer func() { _ = dealsModule.Close() }()

	if store := dealsModule.PostgresSnapshots(); store != nil {
		go scheduler.NewSnapshotCleanup(store, log, cfg).Run(ctx)
	}

	worker, err := scheduler.NewWorker(cfg, dealsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize insights worker", "error", err)
		panic("failed to initialize insights worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
