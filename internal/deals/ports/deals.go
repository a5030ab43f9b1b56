// Package ports defines the interfaces the deals insights domain requires
// from external systems. Readers, the snapshot store and the text generator
// are provided by the composition root, so the domain never imports a
// concrete database or model client.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by readers when the requested record does not exist
// for the tenant.
var ErrNotFound = errors.New("not found")

// Deal is the slice of a deal record that insights need.
type Deal struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	WorkspaceID        uuid.UUID
	Title              string
	Notes              *string
	StageID            string
	Status             string
	Amount             *float64
	Currency           *string
	ExpectedCloseDate  *time.Time
	PrimaryContactID   *uuid.UUID
	PrimaryContactName *string
	WonAt              *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasLinkedContact reports whether a contact is attached to the deal.
func (d Deal) HasLinkedContact() bool {
	return d.PrimaryContactID != nil
}

// StageTransition records a deal moving between pipeline stages.
type StageTransition struct {
	FromStageID    *string
	ToStageID      string
	TransitionedAt time.Time
}

// DealListFilter narrows a deal listing. Empty fields do not filter.
type DealListFilter struct {
	Status  string
	StageID string
}

// DealPage is one page of a cursor-paginated listing. An empty NextCursor
// means the listing is exhausted.
type DealPage struct {
	Items      []Deal
	NextCursor string
}

// DealReader reads deals and their stage history.
type DealReader interface {
	// FindByID returns ErrNotFound when the deal does not belong to the tenant.
	FindByID(ctx context.Context, tenantID, dealID uuid.UUID) (Deal, error)

	// GetStageTransitions returns at most limit transitions in any order.
	GetStageTransitions(ctx context.Context, tenantID, dealID uuid.UUID, limit int) ([]StageTransition, error)

	List(ctx context.Context, tenantID uuid.UUID, filter DealListFilter, pageSize int, cursor string) (DealPage, error)
}
