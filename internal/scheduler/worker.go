package scheduler

import (
	"context"
	"fmt"

	"deal_insights_backend/internal/deals/insights"
	"deal_insights_backend/platform/apperr"
	"deal_insights_backend/platform/config"
	"deal_insights_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// InsightsRefresher recomputes cached deal payloads.
type InsightsRefresher interface {
	GetInsights(ctx context.Context, input insights.GetInsightsInput) (insights.Insights, error)
	GetRecommendations(ctx context.Context, input insights.GetRecommendationsInput) (insights.Recommendations, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	refresher InsightsRefresher
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, refresher InsightsRefresher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		refresher: refresher,
		log:       log,
	}

	mux.HandleFunc(TaskInsightsRefresh, w.handleInsightsRefresh)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleInsightsRefresh forces a recomputation. Only retryable failures are
// handed back to asynq for another attempt.
func (w *Worker) handleInsightsRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseInsightsRefreshPayload(task)
	if err != nil {
		return fmt.Errorf("decode refresh payload: %v: %w", err, asynq.SkipRetry)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant id: %v: %w", err, asynq.SkipRetry)
	}
	workspaceID, err := uuid.Parse(payload.WorkspaceID)
	if err != nil {
		return fmt.Errorf("invalid workspace id: %v: %w", err, asynq.SkipRetry)
	}
	ctx = context.WithValue(ctx, logger.TenantIDKey, tenantID.String())
	if taskID, ok := asynq.GetTaskID(ctx); ok {
		ctx = context.WithValue(ctx, logger.TaskIDKey, taskID)
	}

	switch payload.Kind {
	case RefreshKindInsights:
		_, err = w.refresher.GetInsights(ctx, insights.GetInsightsInput{
			TenantID:          tenantID,
			WorkspaceID:       workspaceID,
			DealID:            payload.DealID,
			ForceRefresh:      true,
			WorkspaceLanguage: payload.Language,
		})
	case RefreshKindRecommendations:
		_, err = w.refresher.GetRecommendations(ctx, insights.GetRecommendationsInput{
			TenantID:          tenantID,
			WorkspaceID:       workspaceID,
			DealID:            payload.DealID,
			ForceRefresh:      true,
			WorkspaceLanguage: payload.Language,
		})
	default:
		return fmt.Errorf("unknown refresh kind %q: %w", payload.Kind, asynq.SkipRetry)
	}

	if err == nil {
		return nil
	}
	w.log.WithContext(ctx).Warn("insights refresh failed",
		"dealId", payload.DealID,
		"kind", payload.Kind,
		"errorKind", apperr.GetKind(err).String(),
		"error", err,
	)
	if !apperr.IsRetryable(err) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
