package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SnapshotKind distinguishes cached payload families for the same deal.
type SnapshotKind string

const (
	SnapshotKindInsights        SnapshotKind = "insights"
	SnapshotKindRecommendations SnapshotKind = "recommendations"
)

// SnapshotKey identifies a cache slot.
type SnapshotKey struct {
	TenantID    uuid.UUID
	WorkspaceID uuid.UUID
	DealID      uuid.UUID
	Kind        SnapshotKind
}

// Snapshot is a cached, time-boxed payload. Snapshots are never updated in
// place: a refresh saves a new one.
type Snapshot struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenantId"`
	WorkspaceID  uuid.UUID       `json:"workspaceId"`
	DealID       uuid.UUID       `json:"dealId"`
	Kind         SnapshotKind    `json:"kind"`
	GeneratedAt  time.Time       `json:"generatedAt"`
	Payload      json.RawMessage `json:"payload"`
	Version      string          `json:"version"`
	TTLExpiresAt time.Time       `json:"ttlExpiresAt"`
}

// Key returns the cache slot of the snapshot.
func (s Snapshot) Key() SnapshotKey {
	return SnapshotKey{TenantID: s.TenantID, WorkspaceID: s.WorkspaceID, DealID: s.DealID, Kind: s.Kind}
}

// ActiveAt reports whether the snapshot may still satisfy a lookup at now.
func (s Snapshot) ActiveAt(now time.Time) bool {
	return s.TTLExpiresAt.After(now)
}

// SnapshotStore is an append-only keyed cache with explicit expiry.
type SnapshotStore interface {
	// FindActive returns the most recently generated snapshot for key whose
	// TTL is after now, or nil when there is none.
	FindActive(ctx context.Context, key SnapshotKey, now time.Time) (*Snapshot, error)

	// Save inserts a snapshot without touching earlier ones.
	Save(ctx context.Context, snapshot Snapshot) error
}
