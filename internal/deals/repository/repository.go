// Package repository implements the deals read ports and the Postgres
// snapshot store on pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"deal_insights_backend/internal/deals/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is the ports sentinel so callers can match on either.
var ErrNotFound = ports.ErrNotFound

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ ports.DealReader     = (*Repository)(nil)
	_ ports.ActivityReader = (*Repository)(nil)
)

const dealColumns = `
	id, tenant_id, workspace_id, title, notes, stage_id, status, amount::float8, currency,
	expected_close_date, primary_contact_id, primary_contact_name, won_at, created_at, updated_at`

func scanDeal(row pgx.Row) (ports.Deal, error) {
	var d ports.Deal
	err := row.Scan(
		&d.ID, &d.TenantID, &d.WorkspaceID, &d.Title, &d.Notes, &d.StageID, &d.Status, &d.Amount, &d.Currency,
		&d.ExpectedCloseDate, &d.PrimaryContactID, &d.PrimaryContactName, &d.WonAt, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

func (r *Repository) FindByID(ctx context.Context, tenantID, dealID uuid.UUID) (ports.Deal, error) {
	deal, err := scanDeal(r.pool.QueryRow(ctx, `
		SELECT `+dealColumns+`
		FROM deals
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, dealID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.Deal{}, ErrNotFound
	}
	return deal, err
}

func (r *Repository) GetStageTransitions(ctx context.Context, tenantID, dealID uuid.UUID, limit int) ([]ports.StageTransition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT from_stage_id, to_stage_id, transitioned_at
		FROM deal_stage_transitions
		WHERE tenant_id = $1 AND deal_id = $2
		ORDER BY transitioned_at DESC
		LIMIT $3
	`, tenantID, dealID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ports.StageTransition, 0)
	for rows.Next() {
		var t ports.StageTransition
		if err := rows.Scan(&t.FromStageID, &t.ToStageID, &t.TransitionedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// List pages through deals ordered by id. The cursor is the id of the last
// deal of the previous page.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, filter ports.DealListFilter, pageSize int, cursor string) (ports.DealPage, error) {
	var after *uuid.UUID
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return ports.DealPage{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		after = &id
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+dealColumns+`
		FROM deals
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR stage_id = $3)
		  AND ($4::uuid IS NULL OR id > $4)
		ORDER BY id ASC
		LIMIT $5
	`, tenantID, filter.Status, filter.StageID, after, pageSize+1)
	if err != nil {
		return ports.DealPage{}, err
	}
	defer rows.Close()

	items := make([]ports.Deal, 0, pageSize)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return ports.DealPage{}, err
		}
		items = append(items, deal)
	}
	if rows.Err() != nil {
		return ports.DealPage{}, rows.Err()
	}

	page := ports.DealPage{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		page.NextCursor = page.Items[pageSize-1].ID.String()
	}
	return page, nil
}
