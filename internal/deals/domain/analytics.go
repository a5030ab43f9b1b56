// Package domain holds the value types shared by the deal health scorer,
// the signal aggregator and the insights orchestrator.
package domain

import "time"

// HealthStatus classifies a deal's momentum.
type HealthStatus string

const (
	HealthGood    HealthStatus = "GOOD"
	HealthAtRisk  HealthStatus = "AT_RISK"
	HealthStalled HealthStatus = "STALLED"
)

// FactorImpact is the direction of a single factor's contribution.
type FactorImpact string

const (
	ImpactPositive FactorImpact = "positive"
	ImpactNegative FactorImpact = "negative"
	ImpactNeutral  FactorImpact = "neutral"
)

// StageConversion counts closed deals sampled for a stage.
type StageConversion struct {
	Won    int `json:"won"`
	Closed int `json:"closed"`
}

// HistoricalSignals are computed per request from stage-transition history
// of comparable closed deals. Never persisted.
type HistoricalSignals struct {
	StageID               string          `json:"stageId"`
	StageConversion       StageConversion `json:"stageConversion"`
	StageMedianDays       *float64        `json:"stageMedianDays"`
	StageRemainingP50Days *float64        `json:"stageRemainingP50Days"`
	StageRemainingP80Days *float64        `json:"stageRemainingP80Days"`
	StageSampleSize       int             `json:"stageSampleSize"`
	WonSampleSize         int             `json:"wonSampleSize"`
}

// RuntimeSignals describe the deal as it is right now.
type RuntimeSignals struct {
	StageID           string
	ExpectedCloseDate *time.Time
	Amount            *float64
	HasLinkedContact  bool
	StageEnteredAt    time.Time
	LastActivityAt    *time.Time
	ActivityCount     int
	Now               time.Time
}

// AnalyticsFactor is one heuristic contribution to the win probability.
// Weight is a signed magnitude in probability units.
type AnalyticsFactor struct {
	Label  string       `json:"label" validate:"required"`
	Reason string       `json:"reason"`
	Weight float64      `json:"weight"`
	Impact FactorImpact `json:"impact" validate:"oneof=positive negative neutral"`
}

// ForecastRange holds the p50/p80 close-date estimates as ISO dates.
type ForecastRange struct {
	P50CloseDate *string `json:"p50CloseDate"`
	P80CloseDate *string `json:"p80CloseDate"`
}

// AnalyticsResult is the scorer's output. It is recomputed on every
// non-cached request and never mutated.
type AnalyticsResult struct {
	Status            HealthStatus      `json:"status" validate:"oneof=GOOD AT_RISK STALLED"`
	Explanation       string            `json:"explanation"`
	WinProbability    float64           `json:"winProbability" validate:"gte=0,lte=1"`
	Confidence        float64           `json:"confidence" validate:"gte=0,lte=1"`
	LowConfidence     bool              `json:"lowConfidence"`
	ForecastCloseDate *string           `json:"forecastCloseDate"`
	ForecastRange     *ForecastRange    `json:"forecastRange"`
	TopFactors        []AnalyticsFactor `json:"topFactors" validate:"max=3,dive"`
}

// ISODate formats t as a UTC calendar date.
func ISODate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
