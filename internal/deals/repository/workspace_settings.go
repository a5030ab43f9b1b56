package repository

import (
	"context"
	"errors"

	"deal_insights_backend/internal/deals/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetWorkspaceAISettings satisfies ports.WorkspaceAISettingsReader. A
// workspace without a settings row has AI insights disabled.
func (r *Repository) GetWorkspaceAISettings(ctx context.Context, tenantID, workspaceID uuid.UUID) (ports.WorkspaceAISettings, error) {
	var settings ports.WorkspaceAISettings
	err := r.pool.QueryRow(ctx, `
		SELECT ai_insights_enabled
		FROM workspace_settings
		WHERE tenant_id = $1 AND workspace_id = $2
	`, tenantID, workspaceID).Scan(&settings.AIInsightsEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.WorkspaceAISettings{}, nil
	}
	return settings, err
}
