package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"deal_insights_backend/internal/scheduler"
	"deal_insights_backend/platform/config"
	"deal_insights_backend/platform/db"
	"deal_insights_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

const batchSize = 100

type openDeal struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	workspaceID uuid.UUID
}

// listPageFunc returns up to limit open deals with an id above after, by id.
type listPageFunc func(ctx context.Context, after uuid.UUID, limit int) ([]openDeal, error)

type warmupStats struct {
	enqueued int
	failed   int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting insights warmup", "ratePerSecond", cfg.WarmupRatePerSecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	listPage := func(ctx context.Context, after uuid.UUID, limit int) ([]openDeal, error) {
		return listOpenDeals(ctx, pool, after, limit)
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.WarmupRatePerSecond), 1)

	stats, err := warmup(ctx, listPage, client, limiter, log)
	if err != nil {
		log.Error("insights warmup stopped", "enqueued", stats.enqueued, "failed", stats.failed, "error", err)
		return
	}
	log.Info("insights warmup finished", "enqueued", stats.enqueued, "failed", stats.failed)
}

// warmup queues both refresh kinds for every open deal. A failed enqueue is
// counted and skipped; listing errors and cancellation stop the run.
func warmup(ctx context.Context, listPage listPageFunc, enqueuer scheduler.RefreshEnqueuer, limiter *rate.Limiter, log *logger.Logger) (warmupStats, error) {
	kinds := []string{scheduler.RefreshKindInsights, scheduler.RefreshKindRecommendations}

	var (
		stats warmupStats
		after uuid.UUID
	)
	for {
		batch, err := listPage(ctx, after, batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			return stats, nil
		}

		for _, deal := range batch {
			for _, kind := range kinds {
				if err := limiter.Wait(ctx); err != nil {
					return stats, err
				}
				err := enqueuer.EnqueueInsightsRefresh(ctx, scheduler.InsightsRefreshPayload{
					TenantID:    deal.tenantID.String(),
					WorkspaceID: deal.workspaceID.String(),
					DealID:      deal.id.String(),
					Kind:        kind,
				})
				if err != nil {
					log.Error("failed to enqueue refresh", "dealId", deal.id, "kind", kind, "error", err)
					stats.failed++
					continue
				}
				stats.enqueued++
			}
		}

		after = batch[len(batch)-1].id
	}
}

// listOpenDeals pages through open deals of every tenant by id.
func listOpenDeals(ctx context.Context, pool *pgxpool.Pool, after uuid.UUID, limit int) ([]openDeal, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, tenant_id, workspace_id
		FROM deals
		WHERE status = 'open'
		  AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := make([]openDeal, 0, limit)
	for rows.Next() {
		var deal openDeal
		if err := rows.Scan(&deal.id, &deal.tenantID, &deal.workspaceID); err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return deals, nil
}
