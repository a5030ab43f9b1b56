package scheduler

import (
	"encoding/json"

	"deal_insights_backend/internal/deals/ports"

	"github.com/hibiken/asynq"
)

const TaskInsightsRefresh = "deals.insights.refresh"

// Refresh kinds match the snapshot kinds they recompute.
const (
	RefreshKindInsights        = string(ports.SnapshotKindInsights)
	RefreshKindRecommendations = string(ports.SnapshotKindRecommendations)
)

type InsightsRefreshPayload struct {
	TenantID    string `json:"tenantId"`
	WorkspaceID string `json:"workspaceId"`
	DealID      string `json:"dealId"`
	Kind        string `json:"kind"`
	Language    string `json:"language,omitempty"`
}

func NewInsightsRefreshTask(payload InsightsRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightsRefresh, data), nil
}

func ParseInsightsRefreshPayload(task *asynq.Task) (InsightsRefreshPayload, error) {
	var payload InsightsRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InsightsRefreshPayload{}, err
	}
	return payload, nil
}
