// Package insights orchestrates deal insights, recommendations and
// communication summaries: it serves cached snapshots, recomputes the
// deterministic health analytics on a miss, optionally augments the result
// with generated text and stores the outcome as a new snapshot.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"deal_insights_backend/internal/deals/analytics"
	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/internal/deals/signals"
	"deal_insights_backend/platform/apperr"
	"deal_insights_backend/platform/logger"
	"deal_insights_backend/platform/validator"

	"github.com/google/uuid"
)

// FailurePolicy decides what a use case does when text generation fails.
type FailurePolicy string

const (
	// PolicyRaise surfaces the failure as an external-service error.
	PolicyRaise FailurePolicy = "raise"
	// PolicyFallback serves the deterministic result instead.
	PolicyFallback FailurePolicy = "fallback"
)

// ParseFailurePolicy accepts "raise" or "fallback", case-insensitively.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyRaise:
		return PolicyRaise, nil
	case PolicyFallback:
		return PolicyFallback, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", value)
}

const (
	DefaultSnapshotTTL = 30 * time.Minute

	activityReadLimit = 200
)

// Deps are the collaborators of the service. Generator and Gate may be nil,
// which disables augmentation.
type Deps struct {
	Deals      ports.DealReader
	Activities ports.ActivityReader
	Snapshots  ports.SnapshotStore
	Generator  ports.TextGenerator
	Gate       ports.AIFeatureGate
	Log        *logger.Logger
}

// Config tunes the service. Zero values select the defaults: insights raise
// on generation failure, summaries fall back.
type Config struct {
	InsightsPolicy FailurePolicy
	SummaryPolicy  FailurePolicy
	SnapshotTTL    time.Duration
	Now            func() time.Time
}

type Service struct {
	deals      ports.DealReader
	activities ports.ActivityReader
	snapshots  ports.SnapshotStore
	generator  ports.TextGenerator
	gate       ports.AIFeatureGate
	aggregator *signals.Aggregator
	validator  *validator.Validator
	log        *logger.Logger

	insightsPolicy FailurePolicy
	summaryPolicy  FailurePolicy
	snapshotTTL    time.Duration
	now            func() time.Time
}

func New(deps Deps, cfg Config) *Service {
	s := &Service{
		deals:          deps.Deals,
		activities:     deps.Activities,
		snapshots:      deps.Snapshots,
		generator:      deps.Generator,
		gate:           deps.Gate,
		aggregator:     signals.New(deps.Deals),
		validator:      validator.New(),
		log:            deps.Log,
		insightsPolicy: cfg.InsightsPolicy,
		summaryPolicy:  cfg.SummaryPolicy,
		snapshotTTL:    cfg.SnapshotTTL,
		now:            cfg.Now,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.insightsPolicy == "" {
		s.insightsPolicy = PolicyRaise
	}
	if s.summaryPolicy == "" {
		s.summaryPolicy = PolicyFallback
	}
	if s.snapshotTTL <= 0 {
		s.snapshotTTL = DefaultSnapshotTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// dealContext is everything a use case needs about one deal at one instant.
type dealContext struct {
	deal       ports.Deal
	timeline   []ports.TimelineEntry
	activities []ports.Activity
	analytics  domain.AnalyticsResult
	now        time.Time
}

// parseRequest rejects bad input before any I/O.
func (s *Service) parseRequest(input any, tenantID, workspaceID uuid.UUID, dealID string) (uuid.UUID, error) {
	if err := s.validator.Struct(input); err != nil {
		return uuid.Nil, apperr.Validation("dealId must be a non-empty id").WithDetails(validator.Describe(err))
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, apperr.Validation("tenantId is required")
	}
	if workspaceID == uuid.Nil {
		return uuid.Nil, apperr.Validation("workspaceId is required")
	}
	id, err := uuid.Parse(dealID)
	if err != nil {
		return uuid.Nil, apperr.Validation("dealId must be a non-empty id")
	}
	return id, nil
}

func (s *Service) loadDealContext(ctx context.Context, tenantID, workspaceID, dealID uuid.UUID, now time.Time) (dealContext, error) {
	deal, err := s.deals.FindByID(ctx, tenantID, dealID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return dealContext{}, apperr.NotFound("deal not found")
		}
		return dealContext{}, apperr.Internal("load deal", err)
	}
	if deal.WorkspaceID != workspaceID {
		return dealContext{}, apperr.NotFound("deal not found")
	}

	aggregated, err := s.aggregator.ComputeForDeal(ctx, deal, now)
	if err != nil {
		return dealContext{}, err
	}

	timeline, err := s.activities.GetTimeline(ctx, tenantID, ports.TimelineEntityDeal, dealID, promptTimelineLimit)
	if err != nil {
		return dealContext{}, apperr.Internal("load deal timeline", err)
	}
	activities, err := s.activities.ListActivities(ctx, tenantID, dealID, activityReadLimit)
	if err != nil {
		return dealContext{}, apperr.Internal("load deal activities", err)
	}

	runtime := domain.RuntimeSignals{
		StageID:           deal.StageID,
		ExpectedCloseDate: deal.ExpectedCloseDate,
		Amount:            deal.Amount,
		HasLinkedContact:  deal.HasLinkedContact(),
		StageEnteredAt:    aggregated.StageEnteredAt,
		ActivityCount:     len(activities),
		Now:               now,
	}
	if latest := latestEntry(timeline); latest != nil {
		runtime.LastActivityAt = &latest.Timestamp
	}

	return dealContext{
		deal:       deal,
		timeline:   timeline,
		activities: activities,
		analytics:  analytics.ComputeDealAIAnalytics(aggregated.Historical, runtime),
		now:        now,
	}, nil
}

func (s *Service) aiEnabled(ctx context.Context, tenantID, workspaceID uuid.UUID) bool {
	return s.generator != nil && s.gate != nil && s.gate.IsAIEnabled(ctx, tenantID, workspaceID)
}

// findCached returns the decoded payload of the active snapshot, or nil when
// there is none or it no longer matches the current version and shape.
func findCached[T any](ctx context.Context, s *Service, key ports.SnapshotKey, version string, now time.Time) (*T, error) {
	snapshot, err := s.snapshots.FindActive(ctx, key, now)
	if err != nil {
		return nil, apperr.Internal("read snapshot", err)
	}
	log := s.log.WithContext(ctx)
	if snapshot == nil {
		log.SnapshotEvent("miss", key.DealID.String(), string(key.Kind))
		return nil, nil
	}
	if snapshot.Version != version {
		log.SnapshotEvent("stale_version", key.DealID.String(), string(key.Kind))
		return nil, nil
	}

	var payload T
	if err := json.Unmarshal(snapshot.Payload, &payload); err != nil {
		log.SnapshotEvent("undecodable", key.DealID.String(), string(key.Kind))
		return nil, nil
	}
	if err := s.validator.Struct(payload); err != nil {
		log.SnapshotEvent("shape_mismatch", key.DealID.String(), string(key.Kind))
		return nil, nil
	}

	log.SnapshotEvent("hit", key.DealID.String(), string(key.Kind))
	return &payload, nil
}

// saveSnapshot appends a new snapshot. A failed write is logged and the
// computed payload is still returned to the caller.
func (s *Service) saveSnapshot(ctx context.Context, key ports.SnapshotKey, version string, payload any, now time.Time) {
	log := s.log.WithContext(ctx)

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error("encode snapshot payload", "dealId", key.DealID, "kind", key.Kind, "error", err)
		return
	}

	snapshot := ports.Snapshot{
		ID:           uuid.New(),
		TenantID:     key.TenantID,
		WorkspaceID:  key.WorkspaceID,
		DealID:       key.DealID,
		Kind:         key.Kind,
		GeneratedAt:  now,
		Payload:      raw,
		Version:      version,
		TTLExpiresAt: now.Add(s.snapshotTTL),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		log.Warn("save snapshot failed", "dealId", key.DealID, "kind", key.Kind, "error", err)
		return
	}
	log.SnapshotEvent("saved", key.DealID.String(), string(key.Kind))
}
