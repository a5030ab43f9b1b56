package repository

import (
	"context"
	"fmt"

	"deal_insights_backend/internal/deals/ports"

	"github.com/google/uuid"
)

// GetTimeline returns the newest entries first. Only deal timelines are
// stored in this schema.
func (r *Repository) GetTimeline(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, limit int) ([]ports.TimelineEntry, error) {
	if entityType != ports.TimelineEntityDeal {
		return nil, fmt.Errorf("unsupported timeline entity %q", entityType)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(occurred_at, created_at), subject, body, type, channel_key, direction
		FROM deal_activities
		WHERE tenant_id = $1 AND deal_id = $2
		ORDER BY COALESCE(occurred_at, created_at) DESC, id DESC
		LIMIT $3
	`, tenantID, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ports.TimelineEntry, 0)
	for rows.Next() {
		var e ports.TimelineEntry
		if err := rows.Scan(&e.Timestamp, &e.Subject, &e.Body, &e.Type, &e.ChannelKey, &e.Direction); err != nil {
			return nil, err
		}
		items = append(items, e)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

func (r *Repository) ListActivities(ctx context.Context, tenantID, dealID uuid.UUID, limit int) ([]ports.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT type, due_at, status
		FROM deal_activities
		WHERE tenant_id = $1 AND deal_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, dealID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ports.Activity, 0)
	for rows.Next() {
		var a ports.Activity
		if err := rows.Scan(&a.Type, &a.DueAt, &a.Status); err != nil {
			return nil, err
		}
		items = append(items, a)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}
