// Package featuregate resolves whether generated insights may run for a
// workspace. The global flag and the workspace setting must both be on.
package featuregate

import (
	"context"

	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/platform/logger"

	"github.com/google/uuid"
)

type Gate struct {
	global   bool
	settings ports.WorkspaceAISettingsReader
	log      *logger.Logger
}

var _ ports.AIFeatureGate = (*Gate)(nil)

func New(global bool, settings ports.WorkspaceAISettingsReader, log *logger.Logger) *Gate {
	if log == nil {
		log = logger.Nop()
	}
	return &Gate{global: global, settings: settings, log: log}
}

// IsAIEnabled fails safe: unreadable settings count as disabled.
func (g *Gate) IsAIEnabled(ctx context.Context, tenantID, workspaceID uuid.UUID) bool {
	if !g.global || g.settings == nil {
		return false
	}

	settings, err := g.settings(ctx, tenantID, workspaceID)
	if err != nil {
		g.log.WithContext(ctx).Warn("workspace ai settings unavailable, treating as disabled",
			"tenantId", tenantID,
			"workspaceId", workspaceID,
			"error", err,
		)
		return false
	}
	return settings.AIInsightsEnabled
}
