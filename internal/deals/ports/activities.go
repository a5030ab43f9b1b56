package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TimelineEntityDeal is the entity type used for deal timelines.
const TimelineEntityDeal = "deal"

// TimelineEntry is one interaction on an entity's timeline.
type TimelineEntry struct {
	Timestamp  time.Time
	Subject    string
	Body       string
	Type       string
	ChannelKey *string
	Direction  *string
}

// Activity is a planned or completed task, call or meeting.
type Activity struct {
	Type   string
	DueAt  *time.Time
	Status string
}

// Activity types and statuses used by the what's-missing checklist.
const (
	ActivityTypeTask    = "task"
	ActivityTypeCall    = "call"
	ActivityTypeMeeting = "meeting"

	ActivityStatusOpen = "open"
)

// ActivityReader reads activities and rendered timelines.
type ActivityReader interface {
	// GetTimeline returns up to limit entries, newest first.
	GetTimeline(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, limit int) ([]TimelineEntry, error)

	ListActivities(ctx context.Context, tenantID, dealID uuid.UUID, limit int) ([]Activity, error)
}
