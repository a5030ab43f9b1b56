package insights

import (
	"context"
	"sync"
	"time"

	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/internal/deals/snapshots"

	"github.com/google/uuid"
)

type fakeDeals struct {
	mu          sync.Mutex
	deals       map[uuid.UUID]ports.Deal
	closed      []ports.Deal
	transitions map[uuid.UUID][]ports.StageTransition
	findCalls   int
}

func (f *fakeDeals) FindByID(_ context.Context, tenantID, dealID uuid.UUID) (ports.Deal, error) {
	f.mu.Lock()
	f.findCalls++
	f.mu.Unlock()
	d, ok := f.deals[dealID]
	if !ok || d.TenantID != tenantID {
		return ports.Deal{}, ports.ErrNotFound
	}
	return d, nil
}

func (f *fakeDeals) GetStageTransitions(_ context.Context, _ uuid.UUID, dealID uuid.UUID, _ int) ([]ports.StageTransition, error) {
	return f.transitions[dealID], nil
}

func (f *fakeDeals) List(_ context.Context, _ uuid.UUID, filter ports.DealListFilter, _ int, _ string) (ports.DealPage, error) {
	items := make([]ports.Deal, 0)
	for _, d := range f.closed {
		if d.Status == filter.Status && d.StageID == filter.StageID {
			items = append(items, d)
		}
	}
	return ports.DealPage{Items: items}, nil
}

func (f *fakeDeals) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

type fakeActivities struct {
	timeline   []ports.TimelineEntry
	activities []ports.Activity
	err        error
}

func (f *fakeActivities) GetTimeline(_ context.Context, _ uuid.UUID, _ string, _ uuid.UUID, limit int) ([]ports.TimelineEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	items := newestFirst(f.timeline)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeActivities) ListActivities(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ int) ([]ports.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.activities, nil
}

type stubGenerator struct {
	text  string
	err   error
	calls int
	last  ports.TextGenerationRequest
}

func (g *stubGenerator) GenerateText(_ context.Context, req ports.TextGenerationRequest) (string, error) {
	g.calls++
	g.last = req
	return g.text, g.err
}

type stubGate struct{ enabled bool }

func (g stubGate) IsAIEnabled(context.Context, uuid.UUID, uuid.UUID) bool { return g.enabled }

type fixture struct {
	tenant     uuid.UUID
	workspace  uuid.UUID
	deal       ports.Deal
	deals      *fakeDeals
	activities *fakeActivities
	store      *snapshots.MemoryStore
	generator  *stubGenerator
	gate       stubGate
	now        time.Time
}

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// newFixture builds a healthy proposal-stage deal: recent activity, close
// date, amount, linked contact and an upcoming meeting.
func newFixture() *fixture {
	tenant, workspace := uuid.New(), uuid.New()
	deal := ports.Deal{
		ID:                 uuid.New(),
		TenantID:           tenant,
		WorkspaceID:        workspace,
		Title:              "Acme rollout",
		StageID:            "proposal",
		Status:             "open",
		Amount:             ptr(12000.0),
		Currency:           ptr("EUR"),
		ExpectedCloseDate:  ptr(ts("2026-03-01T00:00:00Z")),
		PrimaryContactID:   ptr(uuid.New()),
		PrimaryContactName: ptr("Dana Smith"),
		CreatedAt:          ts("2026-02-01T00:00:00Z"),
	}

	activities := []ports.Activity{
		{Type: "meeting", Status: "open", DueAt: ptr(ts("2026-02-20T14:00:00Z"))},
		{Type: "call", Status: "done", DueAt: ptr(ts("2026-02-16T09:00:00Z"))},
		{Type: "email", Status: "done"},
		{Type: "email", Status: "done"},
		{Type: "note", Status: "done"},
		{Type: "task", Status: "done", DueAt: ptr(ts("2026-02-11T09:00:00Z"))},
	}

	return &fixture{
		tenant:    tenant,
		workspace: workspace,
		deal:      deal,
		deals: &fakeDeals{
			deals: map[uuid.UUID]ports.Deal{deal.ID: deal},
			transitions: map[uuid.UUID][]ports.StageTransition{
				deal.ID: {{FromStageID: ptr("qualified"), ToStageID: "proposal", TransitionedAt: ts("2026-02-12T00:00:00Z")}},
			},
		},
		activities: &fakeActivities{
			timeline: []ports.TimelineEntry{
				{Timestamp: ts("2026-02-10T08:00:00Z"), Type: "email", Subject: "Intro", Body: "Hello", ChannelKey: ptr("email"), Direction: ptr("inbound")},
				{Timestamp: ts("2026-02-16T09:30:00Z"), Type: "call", Subject: "Pricing call", Body: "Discussed pricing\nnext steps", ChannelKey: ptr("phone"), Direction: ptr("outbound")},
			},
			activities: activities,
		},
		store:     snapshots.NewMemoryStore(),
		generator: &stubGenerator{},
		now:       ts("2026-02-17T10:00:00Z"),
	}
}

// updateDeal replaces the stored deal after a test tweaks it.
func (f *fixture) updateDeal(mutate func(d *ports.Deal)) {
	mutate(&f.deal)
	f.deals.deals[f.deal.ID] = f.deal
}

func (f *fixture) service(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return f.now }
	}
	return New(Deps{
		Deals:      f.deals,
		Activities: f.activities,
		Snapshots:  f.store,
		Generator:  f.generator,
		Gate:       f.gate,
	}, cfg)
}

func (f *fixture) insightsInput() GetInsightsInput {
	return GetInsightsInput{TenantID: f.tenant, WorkspaceID: f.workspace, DealID: f.deal.ID.String()}
}

func (f *fixture) insightsKey() ports.SnapshotKey {
	return ports.SnapshotKey{TenantID: f.tenant, WorkspaceID: f.workspace, DealID: f.deal.ID, Kind: ports.SnapshotKindInsights}
}
