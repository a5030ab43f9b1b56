package repository

import (
	"context"
	"errors"
	"time"

	"deal_insights_backend/internal/deals/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotStore keeps snapshots in the append-only deal_insight_snapshots table.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

func (s *SnapshotStore) FindActive(ctx context.Context, key ports.SnapshotKey, now time.Time) (*ports.Snapshot, error) {
	var (
		snapshot ports.Snapshot
		kind     string
		payload  []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, workspace_id, deal_id, kind, generated_at, payload, version, ttl_expires_at
		FROM deal_insight_snapshots
		WHERE tenant_id = $1 AND workspace_id = $2 AND deal_id = $3 AND kind = $4
		  AND ttl_expires_at > $5
		ORDER BY generated_at DESC
		LIMIT 1
	`, key.TenantID, key.WorkspaceID, key.DealID, string(key.Kind), now).Scan(
		&snapshot.ID, &snapshot.TenantID, &snapshot.WorkspaceID, &snapshot.DealID, &kind,
		&snapshot.GeneratedAt, &payload, &snapshot.Version, &snapshot.TTLExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot.Kind = ports.SnapshotKind(kind)
	snapshot.Payload = payload
	return &snapshot, nil
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot ports.Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deal_insight_snapshots (
			id, tenant_id, workspace_id, deal_id, kind, generated_at, payload, version, ttl_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, snapshot.ID, snapshot.TenantID, snapshot.WorkspaceID, snapshot.DealID, string(snapshot.Kind),
		snapshot.GeneratedAt, string(snapshot.Payload), snapshot.Version, snapshot.TTLExpiresAt)
	return err
}

// DeleteExpiredBefore physically removes snapshots whose TTL ended before
// the cutoff.
func (s *SnapshotStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM deal_insight_snapshots
		WHERE ttl_expires_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
