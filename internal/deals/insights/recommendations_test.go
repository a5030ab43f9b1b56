package insights

import (
	"context"
	"testing"

	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
)

func (f *fixture) recommendationsInput() GetRecommendationsInput {
	return GetRecommendationsInput{TenantID: f.tenant, WorkspaceID: f.workspace, DealID: f.deal.ID.String()}
}

func TestGetRecommendationsForHealthyDeal(t *testing.T) {
	f := newFixture()
	f.gate = stubGate{enabled: true}
	svc := f.service(Config{})

	got, err := svc.GetRecommendations(context.Background(), f.recommendationsInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Items) != 2 {
		t.Fatalf("expected stage move and agenda, got %+v", got.Items)
	}
	move := got.Items[0]
	if move.Type != RecommendStageMove || move.Rank != 1 {
		t.Fatalf("expected stage move ranked first, got %+v", move)
	}
	if move.Action.FromStageID != domain.StageProposal || move.Action.ToStageID != domain.StageNegotiation {
		t.Fatalf("unexpected stage move action %+v", move.Action)
	}
	if move.Title != "Move the deal to negotiation" {
		t.Fatalf("unexpected title %q", move.Title)
	}
	agenda := got.Items[1]
	if agenda.Type != RecommendMeetingAgenda || agenda.Rank != 2 || agenda.Action.DueDate != "2026-02-20" {
		t.Fatalf("unexpected agenda %+v", agenda)
	}
	if f.generator.calls != 0 {
		t.Fatal("recommendations must not call the generator")
	}

	again, err := svc.GetRecommendations(context.Background(), f.recommendationsInput())
	if err != nil {
		t.Fatalf("cached call: %v", err)
	}
	if f.deals.calls() != 1 || len(again.Items) != 2 {
		t.Fatalf("expected cached recommendations, got %d reads", f.deals.calls())
	}
}

func TestGetRecommendationsForStalledDeal(t *testing.T) {
	f := newFixture()
	f.updateDeal(func(d *ports.Deal) {
		d.StageID = "lead"
		d.ExpectedCloseDate = nil
		d.Amount = nil
		d.PrimaryContactID = nil
	})
	f.activities.timeline = nil
	f.activities.activities = nil

	got, err := f.service(Config{}).GetRecommendations(context.Background(), f.recommendationsInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []RecommendationType{RecommendScheduleTask, RecommendDraftMessage, RecommendCloseDateUpdate}
	if len(got.Items) != len(want) {
		t.Fatalf("expected %v, got %+v", want, got.Items)
	}
	for i, typ := range want {
		if got.Items[i].Type != typ || got.Items[i].Rank != i+1 {
			t.Fatalf("item %d: expected %s, got %+v", i, typ, got.Items[i])
		}
	}
	task := got.Items[0]
	if task.Action.ActivityType != ports.ActivityTypeCall || task.Action.DueDate != "2026-02-18" {
		t.Fatalf("stalled deals should get a call tomorrow, got %+v", task.Action)
	}
	if got.Items[1].Action.Intent != "re_engage" || got.Items[1].Action.Channel != "email" {
		t.Fatalf("unexpected draft action %+v", got.Items[1].Action)
	}
}

func TestStageMoveSkippedWithoutOpenNextStage(t *testing.T) {
	f := newFixture()
	f.updateDeal(func(d *ports.Deal) { d.StageID = "negotiation" })

	got, err := f.service(Config{}).GetRecommendations(context.Background(), f.recommendationsInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Analytics.WinProbability < stageMoveMinProbability {
		t.Fatalf("fixture should be a likely winner, got %v", got.Analytics.WinProbability)
	}
	for _, item := range got.Items {
		if item.Type == RecommendStageMove {
			t.Fatalf("negotiation has no open next stage: %+v", item)
		}
	}
}

func TestStageMoveRequiresProbabilityThreshold(t *testing.T) {
	dc := dealContext{
		deal:      ports.Deal{StageID: "qualified"},
		analytics: domain.AnalyticsResult{WinProbability: 0.69},
	}
	if _, ok := recommendStageMove(dc, "en"); ok {
		t.Fatal("expected no stage move below 0.70")
	}

	dc.analytics.WinProbability = 0.70
	rec, ok := recommendStageMove(dc, "en")
	if !ok || rec.Action.ToStageID != domain.StageProposal {
		t.Fatalf("expected move to proposal, got %+v %v", rec, ok)
	}
}

func TestCloseDateUpdateComparesForecast(t *testing.T) {
	expected := ts("2026-03-01T00:00:00Z")
	tests := []struct {
		name     string
		forecast *string
		wantOK   bool
		wantDate string
	}{
		{name: "forecast far away", forecast: ptr("2026-03-12"), wantOK: true, wantDate: "2026-03-12"},
		{name: "forecast close enough", forecast: ptr("2026-03-05"), wantOK: false},
		{name: "forecast exactly a week away", forecast: ptr("2026-03-08"), wantOK: false},
		{name: "no forecast", forecast: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := dealContext{
				deal:      ports.Deal{ExpectedCloseDate: &expected},
				analytics: domain.AnalyticsResult{ForecastCloseDate: tt.forecast, Confidence: 0.6},
			}
			rec, ok := recommendCloseDateUpdate(dc, "en")
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.wantOK, ok, rec)
			}
			if ok && (rec.Action.CloseDate != tt.wantDate || rec.Confidence != 0.6) {
				t.Fatalf("unexpected recommendation %+v", rec)
			}
		})
	}

	rec, ok := recommendCloseDateUpdate(dealContext{
		analytics: domain.AnalyticsResult{ForecastCloseDate: ptr("2026-03-12"), Confidence: 0.8},
	}, "en")
	if !ok || rec.Action.CloseDate != "2026-03-12" || rec.Confidence != 0.8 {
		t.Fatalf("missing close date should propose the forecast, got %+v", rec)
	}
}

func TestBuildRecommendationsCapsAndRanks(t *testing.T) {
	now := ts("2026-02-17T10:00:00Z")
	dc := dealContext{
		deal: ports.Deal{StageID: "proposal"},
		analytics: domain.AnalyticsResult{
			Status:            domain.HealthAtRisk,
			WinProbability:    0.82,
			Confidence:        0.55,
			ForecastCloseDate: ptr("2026-03-01"),
			TopFactors: []domain.AnalyticsFactor{
				{Label: "No recent activity", Weight: -0.16, Impact: domain.ImpactNegative},
			},
		},
		now: now,
	}

	items := buildRecommendations(dc, "en")
	if len(items) != maxRecommendations {
		t.Fatalf("expected every rule to fire, got %d", len(items))
	}
	for i, item := range items {
		if item.Rank != i+1 {
			t.Fatalf("unexpected rank %d at %d", item.Rank, i)
		}
		if i > 0 && items[i-1].Confidence < item.Confidence {
			t.Fatalf("items not ordered by confidence: %+v", items)
		}
	}
	if items[0].Type != RecommendStageMove || items[0].Confidence != 0.82 {
		t.Fatalf("expected stage move first, got %+v", items[0])
	}

	var agenda *Recommendation
	for i := range items {
		if items[i].Type == RecommendMeetingAgenda {
			agenda = &items[i]
		}
	}
	if agenda == nil || len(agenda.Action.Topics) != 3 || agenda.Action.Topics[0] != "No recent activity" {
		t.Fatalf("unexpected agenda topics %+v", agenda)
	}
}
