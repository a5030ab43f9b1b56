package ports

import (
	"context"

	"github.com/google/uuid"
)

// WorkspaceAISettings are the per-workspace toggles for generated insights.
type WorkspaceAISettings struct {
	AIInsightsEnabled bool
}

// WorkspaceAISettingsReader loads the AI settings of a workspace.
//
// Returning an error should be treated as "unknown settings" by callers;
// AI augmentation fails safe (disabled) when settings cannot be loaded.
type WorkspaceAISettingsReader func(ctx context.Context, tenantID, workspaceID uuid.UUID) (WorkspaceAISettings, error)

// AIFeatureGate decides whether generative augmentation runs for a workspace.
type AIFeatureGate interface {
	IsAIEnabled(ctx context.Context, tenantID, workspaceID uuid.UUID) bool
}
