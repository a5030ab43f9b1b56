package analytics

import (
	"math"
	"testing"
	"time"

	"deal_insights_backend/internal/deals/domain"
)

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return t
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrFloat(v float64) *float64 { return &v }

func TestComputeDealAIAnalyticsStalledScenario(t *testing.T) {
	historical := domain.HistoricalSignals{
		StageID:         domain.StageProposal,
		StageConversion: domain.StageConversion{Won: 2, Closed: 12},
		StageMedianDays: ptrFloat(6),
		WonSampleSize:   2,
	}
	runtime := domain.RuntimeSignals{
		StageID:        domain.StageProposal,
		StageEnteredAt: day("2026-01-20"),
		LastActivityAt: ptrTime(day("2026-01-25")),
		ActivityCount:  1,
		Now:            day("2026-02-17"),
	}

	result := ComputeDealAIAnalytics(historical, runtime)

	if result.Status != domain.HealthStalled {
		t.Fatalf("expected STALLED, got %s", result.Status)
	}
	if result.WinProbability >= 0.30 {
		t.Fatalf("expected win probability below 0.30, got %.3f", result.WinProbability)
	}
	if !result.LowConfidence {
		t.Fatalf("expected low confidence")
	}
	if result.Explanation != explanationStalled {
		t.Fatalf("unexpected explanation %q", result.Explanation)
	}
}

func goodScenario() (domain.HistoricalSignals, domain.RuntimeSignals) {
	historical := domain.HistoricalSignals{
		StageID:               domain.StageNegotiation,
		StageConversion:       domain.StageConversion{Won: 14, Closed: 20},
		StageRemainingP50Days: ptrFloat(9),
		StageRemainingP80Days: ptrFloat(16),
		StageSampleSize:       14,
		WonSampleSize:         14,
	}
	runtime := domain.RuntimeSignals{
		StageID:           domain.StageNegotiation,
		ExpectedCloseDate: ptrTime(day("2026-03-01")),
		Amount:            ptrFloat(25000),
		HasLinkedContact:  true,
		StageEnteredAt:    day("2026-02-12"),
		LastActivityAt:    ptrTime(day("2026-02-16")),
		ActivityCount:     6,
		Now:               day("2026-02-17"),
	}
	return historical, runtime
}

func TestComputeDealAIAnalyticsGoodScenario(t *testing.T) {
	historical, runtime := goodScenario()

	result := ComputeDealAIAnalytics(historical, runtime)

	if result.Status != domain.HealthGood {
		t.Fatalf("expected GOOD, got %s", result.Status)
	}
	if result.WinProbability <= 0.65 {
		t.Fatalf("expected win probability above 0.65, got %.3f", result.WinProbability)
	}
	if result.LowConfidence {
		t.Fatalf("expected confident result, confidence=%.3f", result.Confidence)
	}
	if result.ForecastRange == nil {
		t.Fatalf("expected forecast range")
	}
	if got := *result.ForecastRange.P50CloseDate; got != "2026-02-26" {
		t.Fatalf("expected p50 2026-02-26, got %s", got)
	}
	if got := *result.ForecastRange.P80CloseDate; got != "2026-03-05" {
		t.Fatalf("expected p80 2026-03-05, got %s", got)
	}
	if result.ForecastCloseDate == nil || *result.ForecastCloseDate != *result.ForecastRange.P50CloseDate {
		t.Fatalf("expected forecast close date to equal p50 close date")
	}
}

func TestComputeDealAIAnalyticsWithoutForecastSignal(t *testing.T) {
	historical, runtime := goodScenario()
	historical.StageRemainingP50Days = nil
	historical.StageRemainingP80Days = nil

	result := ComputeDealAIAnalytics(historical, runtime)

	if result.ForecastRange != nil {
		t.Fatalf("expected nil forecast range, got %+v", result.ForecastRange)
	}
	if result.ForecastCloseDate != nil {
		t.Fatalf("expected nil forecast close date, got %s", *result.ForecastCloseDate)
	}
}

func TestComputeDealAIAnalyticsP80OnlyForecast(t *testing.T) {
	historical, runtime := goodScenario()
	historical.StageRemainingP50Days = nil

	result := ComputeDealAIAnalytics(historical, runtime)

	if result.ForecastRange == nil || result.ForecastRange.P80CloseDate == nil {
		t.Fatalf("expected a range carrying only p80")
	}
	if result.ForecastRange.P50CloseDate != nil || result.ForecastCloseDate != nil {
		t.Fatalf("expected p50 and forecast close date to stay empty")
	}
}

func TestForecastDateRoundTrip(t *testing.T) {
	historical, runtime := goodScenario()
	runtime.Now = time.Date(2026, 5, 30, 18, 45, 0, 0, time.UTC)

	result := ComputeDealAIAnalytics(historical, runtime)

	parsed, err := time.Parse(time.DateOnly, *result.ForecastRange.P50CloseDate)
	if err != nil {
		t.Fatalf("p50 close date is not an ISO date: %v", err)
	}
	want := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Fatalf("expected %s, got %s", want, parsed)
	}
}

func TestNoActivityIsAlwaysStalled(t *testing.T) {
	historical, runtime := goodScenario()
	runtime.LastActivityAt = nil
	runtime.StageEnteredAt = runtime.Now

	result := ComputeDealAIAnalytics(historical, runtime)

	if result.Status != domain.HealthStalled {
		t.Fatalf("expected STALLED without any activity, got %s", result.Status)
	}
}

func TestAtRiskWhenDataMissing(t *testing.T) {
	historical, runtime := goodScenario()
	runtime.HasLinkedContact = false

	result := ComputeDealAIAnalytics(historical, runtime)

	if result.Status != domain.HealthAtRisk {
		t.Fatalf("expected AT_RISK without a linked contact, got %s", result.Status)
	}
}

func TestStageDurationAdjustments(t *testing.T) {
	now := day("2026-02-17")
	cases := []struct {
		name        string
		median      *float64
		enteredDays int
		wantLabel   string
	}{
		{"far over median", ptrFloat(10), 19, "Far over typical stage time"},
		{"over median", ptrFloat(10), 15, "Over typical stage time"},
		{"faster than median", ptrFloat(10), 6, "Progressing faster than median"},
		{"no benchmark long stage", nil, 25, "Long time in stage"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			historical := domain.HistoricalSignals{StageMedianDays: tc.median}
			runtime := domain.RuntimeSignals{
				StageID:          domain.StageLead,
				HasLinkedContact: true,
				StageEnteredAt:   now.AddDate(0, 0, -tc.enteredDays),
				LastActivityAt:   ptrTime(now.AddDate(0, 0, -4)),
				ActivityCount:    3,
				Now:              now,
			}
			in := scoringInput{historical: historical, runtime: runtime, timeInStageDays: float64(tc.enteredDays)}
			var got string
			for _, rule := range adjustmentGroups[0] {
				if rule.applies(in) {
					got = rule.label
					break
				}
			}
			if got != tc.wantLabel {
				t.Fatalf("expected %q, got %q", tc.wantLabel, got)
			}
			// Full scoring must agree with the table.
			result := ComputeDealAIAnalytics(historical, runtime)
			found := false
			for _, f := range result.TopFactors {
				if f.Label == tc.wantLabel {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q among top factors %+v", tc.wantLabel, result.TopFactors)
			}
		})
	}
}

func TestTopFactorsKeepEmissionOrderOnTies(t *testing.T) {
	now := day("2026-02-17")
	historical := domain.HistoricalSignals{StageConversion: domain.StageConversion{Won: 5, Closed: 10}}
	runtime := domain.RuntimeSignals{
		StageID:           domain.StageProposal,
		ExpectedCloseDate: ptrTime(now.AddDate(0, 1, 0)),
		Amount:            ptrFloat(100),
		HasLinkedContact:  true,
		StageEnteredAt:    now.AddDate(0, 0, -3),
		ActivityCount:     6,
		Now:               now,
	}

	result := ComputeDealAIAnalytics(historical, runtime)

	if len(result.TopFactors) != 3 {
		t.Fatalf("expected 3 top factors, got %d", len(result.TopFactors))
	}
	want := []string{"No activity recorded", "Stage conversion rate", "High engagement"}
	for i, label := range want {
		if result.TopFactors[i].Label != label {
			t.Fatalf("factor %d: expected %q, got %q", i, label, result.TopFactors[i].Label)
		}
	}
	if result.TopFactors[0].Impact != domain.ImpactNegative {
		t.Fatalf("expected negative impact on the no-activity factor")
	}
}

func TestBoundsHoldAcrossInputs(t *testing.T) {
	now := day("2026-02-17")
	medians := []*float64{nil, ptrFloat(0), ptrFloat(3), ptrFloat(40)}
	activity := []*time.Time{nil, ptrTime(now), ptrTime(now.AddDate(0, 0, -10)), ptrTime(now.AddDate(0, 0, -90))}
	conversions := []domain.StageConversion{{}, {Won: 0, Closed: 50}, {Won: 50, Closed: 50}, {Won: 3, Closed: 4}}
	counts := []int{0, 1, 5, 100}

	for _, median := range medians {
		for _, last := range activity {
			for _, conv := range conversions {
				for _, count := range counts {
					result := ComputeDealAIAnalytics(
						domain.HistoricalSignals{StageMedianDays: median, StageConversion: conv, WonSampleSize: conv.Won},
						domain.RuntimeSignals{
							StageID:        "custom-stage",
							StageEnteredAt: now.AddDate(0, 0, -12),
							LastActivityAt: last,
							ActivityCount:  count,
							Now:            now,
						},
					)
					if result.WinProbability < 0.02 || result.WinProbability > 0.98 {
						t.Fatalf("win probability out of bounds: %.3f", result.WinProbability)
					}
					if result.Confidence < 0.25 || result.Confidence > 0.95 {
						t.Fatalf("confidence out of bounds: %.3f", result.Confidence)
					}
					if len(result.TopFactors) == 0 || len(result.TopFactors) > 3 {
						t.Fatalf("unexpected top factor count %d", len(result.TopFactors))
					}
				}
			}
		}
	}
}

// Indexes into adjustmentGroups.
const (
	groupRecency = iota + 1
	groupVolume
	groupCloseDate
	groupAmount
	groupContact
)

// adjustmentScenario scores 0.58 before recency and volume: a 0.5 observed
// rate, close date +0.05, amount +0.03, linked contact, no stage benchmark
// and 3 days in stage. Activity 5 days ago and 3 activities emit nothing.
func adjustmentScenario() (domain.HistoricalSignals, domain.RuntimeSignals) {
	now := day("2026-02-17")
	historical := domain.HistoricalSignals{StageConversion: domain.StageConversion{Won: 5, Closed: 10}}
	runtime := domain.RuntimeSignals{
		StageID:           domain.StageProposal,
		ExpectedCloseDate: ptrTime(now.AddDate(0, 1, 0)),
		Amount:            ptrFloat(1000),
		HasLinkedContact:  true,
		StageEnteredAt:    now.AddDate(0, 0, -3),
		LastActivityAt:    ptrTime(now.AddDate(0, 0, -5)),
		ActivityCount:     3,
		Now:               now,
	}
	return historical, runtime
}

func emittedRule(group []factorRule, in scoringInput) *factorRule {
	for i := range group {
		if group[i].applies(in) {
			return &group[i]
		}
	}
	return nil
}

func TestActivityAndCompletenessAdjustments(t *testing.T) {
	activityDaysAgo := func(days int) func(*domain.RuntimeSignals) {
		return func(r *domain.RuntimeSignals) { r.LastActivityAt = ptrTime(r.Now.AddDate(0, 0, -days)) }
	}
	activityCount := func(n int) func(*domain.RuntimeSignals) {
		return func(r *domain.RuntimeSignals) { r.ActivityCount = n }
	}

	cases := []struct {
		name       string
		group      int
		mutate     func(*domain.RuntimeSignals)
		wantLabel  string
		wantWeight float64
		wantDelta  float64
	}{
		{"no activity at all", groupRecency, func(r *domain.RuntimeSignals) { r.LastActivityAt = nil }, "No activity recorded", -0.18, -0.18},
		{"activity 20 days ago", groupRecency, activityDaysAgo(20), "No activity in over two weeks", -0.16, -0.16},
		{"activity 15 days ago", groupRecency, activityDaysAgo(15), "No activity in over two weeks", -0.16, -0.16},
		{"activity exactly 14 days ago", groupRecency, activityDaysAgo(14), "No activity in over a week", -0.08, -0.08},
		{"activity 10 days ago", groupRecency, activityDaysAgo(10), "No activity in over a week", -0.08, -0.08},
		{"activity exactly 7 days ago", groupRecency, activityDaysAgo(7), "", 0, 0},
		{"activity 5 days ago", groupRecency, activityDaysAgo(5), "", 0, 0},
		{"activity 3 days ago", groupRecency, activityDaysAgo(3), "", 0, 0},
		{"activity exactly 2 days ago", groupRecency, activityDaysAgo(2), "Recent activity", 0.08, 0.08},
		{"activity today", groupRecency, activityDaysAgo(0), "Recent activity", 0.08, 0.08},
		{"no activities", groupVolume, activityCount(0), "Very little activity", -0.07, -0.07},
		{"one activity", groupVolume, activityCount(1), "Very little activity", -0.07, -0.07},
		{"two activities", groupVolume, activityCount(2), "", 0, 0},
		{"five activities", groupVolume, activityCount(5), "", 0, 0},
		{"six activities", groupVolume, activityCount(6), "High engagement", 0.05, 0.05},
		{"close date set", groupCloseDate, func(*domain.RuntimeSignals) {}, "Expected close date set", 0.05, 0},
		{"close date missing", groupCloseDate, func(r *domain.RuntimeSignals) { r.ExpectedCloseDate = nil }, "Missing expected close date", -0.05, -0.10},
		{"amount set", groupAmount, func(*domain.RuntimeSignals) {}, "Amount set", 0.03, 0},
		{"amount missing", groupAmount, func(r *domain.RuntimeSignals) { r.Amount = nil }, "", 0, -0.03},
		{"contact linked", groupContact, func(*domain.RuntimeSignals) {}, "", 0, 0},
		{"contact missing", groupContact, func(r *domain.RuntimeSignals) { r.HasLinkedContact = false }, "No linked contact", -0.06, -0.06},
	}

	historical, reference := adjustmentScenario()
	baseline := ComputeDealAIAnalytics(historical, reference).WinProbability
	if math.Abs(baseline-0.58) > 1e-9 {
		t.Fatalf("expected baseline probability 0.58, got %.4f", baseline)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runtime := reference
			tc.mutate(&runtime)

			rule := emittedRule(adjustmentGroups[tc.group], newScoringInput(historical, runtime))
			switch {
			case tc.wantLabel == "" && rule != nil:
				t.Fatalf("expected no factor, got %q", rule.label)
			case tc.wantLabel != "" && rule == nil:
				t.Fatalf("expected %q, got no factor", tc.wantLabel)
			case rule != nil && (rule.label != tc.wantLabel || rule.weight != tc.wantWeight):
				t.Fatalf("expected %q (%.2f), got %q (%.2f)", tc.wantLabel, tc.wantWeight, rule.label, rule.weight)
			}

			got := ComputeDealAIAnalytics(historical, runtime).WinProbability - baseline
			if math.Abs(got-tc.wantDelta) > 1e-9 {
				t.Fatalf("expected probability delta %.2f, got %.4f", tc.wantDelta, got)
			}
		})
	}
}
