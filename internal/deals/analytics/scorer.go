// Package analytics scores deal health from historical stage statistics and
// the deal's current activity signals. Everything here is pure: the only
// notion of time is RuntimeSignals.Now.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"deal_insights_backend/internal/deals/domain"
)

const (
	minProbability = 0.02
	maxProbability = 0.98
	minConfidence  = 0.25
	maxConfidence  = 0.95

	// A stage needs this many closed deals before its observed rate replaces the baseline.
	reliableClosedDeals = 5

	reliableRateWeight = 0.16
	baselineRateWeight = 0.08

	maxTopFactors = 3
)

const (
	explanationGood    = "Deal is progressing normally with recent activity and complete key data."
	explanationAtRisk  = "Deal shows risk signals: activity is slowing or key deal data is missing."
	explanationStalled = "Deal appears stalled: no recent activity or it has exceeded the typical time in stage."
)

// ComputeDealAIAnalytics turns historical and runtime signals into a health
// status, win probability, confidence and close-date forecast.
func ComputeDealAIAnalytics(historical domain.HistoricalSignals, runtime domain.RuntimeSignals) domain.AnalyticsResult {
	in := newScoringInput(historical, runtime)

	probability, factors := seedProbability(historical, runtime.StageID)

	for _, group := range adjustmentGroups {
		for _, rule := range group {
			if !rule.applies(in) {
				continue
			}
			probability += rule.weight
			factors = append(factors, newFactor(rule.label, rule.reason, rule.weight))
			break
		}
	}

	probability = clamp(probability, minProbability, maxProbability)
	status := classify(in)
	confidence := computeConfidence(historical, runtime.ActivityCount)
	forecastDate, forecastRange := forecast(historical, runtime.Now)

	return domain.AnalyticsResult{
		Status:            status,
		Explanation:       explanationFor(status),
		WinProbability:    probability,
		Confidence:        confidence,
		LowConfidence:     confidence < 0.5 || historical.StageConversion.Closed < reliableClosedDeals || historical.WonSampleSize < reliableClosedDeals,
		ForecastCloseDate: forecastDate,
		ForecastRange:     forecastRange,
		TopFactors:        topFactors(factors),
	}
}

func newScoringInput(historical domain.HistoricalSignals, runtime domain.RuntimeSignals) scoringInput {
	in := scoringInput{
		historical:      historical,
		runtime:         runtime,
		timeInStageDays: math.Max(0, daysBetween(runtime.StageEnteredAt, runtime.Now)),
	}
	if runtime.LastActivityAt != nil {
		days := math.Max(0, daysBetween(*runtime.LastActivityAt, runtime.Now))
		in.lastActivityDays = &days
	}
	return in
}

// seedProbability starts from the stage's observed win rate when enough
// closed deals back it, otherwise from the fixed baseline table.
func seedProbability(historical domain.HistoricalSignals, stageID string) (float64, []domain.AnalyticsFactor) {
	conversion := historical.StageConversion
	if conversion.Closed >= reliableClosedDeals {
		rate := float64(conversion.Won) / float64(conversion.Closed)
		factor := domain.AnalyticsFactor{
			Label:  "Stage conversion rate",
			Reason: fmt.Sprintf("%d of %d closed deals in this stage were won.", conversion.Won, conversion.Closed),
			Weight: reliableRateWeight,
			Impact: domain.ImpactPositive,
		}
		return rate, []domain.AnalyticsFactor{factor}
	}

	factor := domain.AnalyticsFactor{
		Label:  "Baseline stage win rate",
		Reason: "Too few closed deals in this stage; using the default win rate for the stage.",
		Weight: baselineRateWeight,
		Impact: domain.ImpactPositive,
	}
	return domain.BaselineWinRate(stageID), []domain.AnalyticsFactor{factor}
}

// classify applies STALLED, then AT_RISK, then GOOD.
func classify(in scoringInput) domain.HealthStatus {
	stalledByActivity := true
	if in.lastActivityDays != nil {
		stalledByActivity = *in.lastActivityDays > 14
	}

	var stalledByStageTime bool
	if median := in.historical.StageMedianDays; median != nil {
		stalledByStageTime = in.timeInStageDays > *median*1.8
	} else {
		stalledByStageTime = in.timeInStageDays > 30
	}

	if stalledByActivity || stalledByStageTime {
		return domain.HealthStalled
	}

	atRiskByActivity := true
	if in.lastActivityDays != nil {
		atRiskByActivity = *in.lastActivityDays > 7
	}
	atRiskByMissingData := in.runtime.ExpectedCloseDate == nil ||
		in.runtime.ActivityCount < 2 ||
		!in.runtime.HasLinkedContact

	if atRiskByActivity || atRiskByMissingData {
		return domain.HealthAtRisk
	}
	return domain.HealthGood
}

func explanationFor(status domain.HealthStatus) string {
	switch status {
	case domain.HealthStalled:
		return explanationStalled
	case domain.HealthAtRisk:
		return explanationAtRisk
	default:
		return explanationGood
	}
}

func computeConfidence(historical domain.HistoricalSignals, activityCount int) float64 {
	closed := math.Min(float64(historical.StageConversion.Closed), 40)
	won := math.Min(float64(historical.WonSampleSize), 25)
	activities := math.Min(float64(activityCount), 8)
	return clamp(0.30+closed/100+won/100+activities/40, minConfidence, maxConfidence)
}

// forecast projects the remaining-days percentiles from now. The range is nil
// unless at least one percentile is known.
func forecast(historical domain.HistoricalSignals, now time.Time) (*string, *domain.ForecastRange) {
	p50 := projectDate(now, historical.StageRemainingP50Days)
	p80 := projectDate(now, historical.StageRemainingP80Days)
	if p50 == nil && p80 == nil {
		return nil, nil
	}
	return p50, &domain.ForecastRange{P50CloseDate: p50, P80CloseDate: p80}
}

func projectDate(now time.Time, days *float64) *string {
	if days == nil {
		return nil
	}
	date := domain.ISODate(now.Add(time.Duration(*days * float64(24*time.Hour))))
	return &date
}

// topFactors keeps the strongest factors by absolute weight; ties keep
// emission order.
func topFactors(factors []domain.AnalyticsFactor) []domain.AnalyticsFactor {
	ranked := make([]domain.AnalyticsFactor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Weight) > math.Abs(ranked[j].Weight)
	})
	if len(ranked) > maxTopFactors {
		ranked = ranked[:maxTopFactors]
	}
	return ranked
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
