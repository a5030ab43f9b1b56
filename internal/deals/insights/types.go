package insights

import (
	"time"

	"deal_insights_backend/internal/deals/domain"

	"github.com/google/uuid"
)

// Payload versions. Bump when the cached shape changes so stale snapshots
// are recomputed instead of served.
const (
	InsightsVersion        = "deal-insights.v1"
	RecommendationsVersion = "deal-recommendations.v1"
)

// GetInsightsInput asks for the insights of one deal.
type GetInsightsInput struct {
	TenantID          uuid.UUID
	WorkspaceID       uuid.UUID
	DealID            string `validate:"required,uuid"`
	ForceRefresh      bool
	WorkspaceLanguage string
}

// GetRecommendationsInput asks for the ranked next actions of one deal.
type GetRecommendationsInput struct {
	TenantID          uuid.UUID
	WorkspaceID       uuid.UUID
	DealID            string `validate:"required,uuid"`
	ForceRefresh      bool
	WorkspaceLanguage string
}

// SummarizeInput asks for a summary of a deal's communication history.
type SummarizeInput struct {
	TenantID          uuid.UUID
	WorkspaceID       uuid.UUID
	DealID            string `validate:"required,uuid"`
	WorkspaceLanguage string
}

// Severity ranks a missing item.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Codes of the deterministic what's-missing checklist.
const (
	MissingCloseDate = "missing_close_date"
	MissingNextStep  = "missing_next_step"
	MissingContact   = "missing_contact"
	MissingAmount    = "missing_amount"
	EmptyTimeline    = "empty_timeline"
)

type MissingItem struct {
	Code     string   `json:"code" validate:"required"`
	Label    string   `json:"label" validate:"required"`
	Severity Severity `json:"severity" validate:"oneof=high medium low"`
}

type KeyEntity struct {
	Kind       string  `json:"kind" validate:"required"`
	Value      string  `json:"value" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type Summary struct {
	Situation       string   `json:"situation" validate:"required"`
	LastInteraction string   `json:"lastInteraction"`
	KeyStakeholders []string `json:"keyStakeholders"`
	Needs           []string `json:"needs"`
	Objections      []string `json:"objections"`
	NextStep        string   `json:"nextStep"`
}

// Insights is the cached insights payload.
type Insights struct {
	DealID              string                 `json:"dealId" validate:"required,uuid"`
	Summary             Summary                `json:"summary"`
	WhatMissing         []MissingItem          `json:"whatMissing" validate:"dive"`
	KeyEntities         []KeyEntity            `json:"keyEntities" validate:"dive"`
	Confidence          float64                `json:"confidence" validate:"gte=0,lte=1"`
	FreshnessTimestamp  time.Time              `json:"freshnessTimestamp"`
	SourceActivityCount int                    `json:"sourceActivityCount" validate:"gte=0"`
	TimelineEmpty       bool                   `json:"timelineEmpty"`
	Cached              bool                   `json:"cached"`
	Analytics           domain.AnalyticsResult `json:"analytics"`
}

// RecommendationType names a suggested follow-up.
type RecommendationType string

const (
	RecommendScheduleTask    RecommendationType = "schedule_task"
	RecommendDraftMessage    RecommendationType = "draft_message"
	RecommendMeetingAgenda   RecommendationType = "meeting_agenda"
	RecommendStageMove       RecommendationType = "stage_move"
	RecommendCloseDateUpdate RecommendationType = "close_date_update"
)

// RecommendationAction is the machine-actionable part of a suggestion.
// Only the fields relevant to the type are set.
type RecommendationAction struct {
	ActivityType string   `json:"activityType,omitempty"`
	DueDate      string   `json:"dueDate,omitempty"`
	Channel      string   `json:"channel,omitempty"`
	Intent       string   `json:"intent,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	FromStageID  string   `json:"fromStageId,omitempty"`
	ToStageID    string   `json:"toStageId,omitempty"`
	CloseDate    string   `json:"closeDate,omitempty"`
}

type Recommendation struct {
	Rank       int                  `json:"rank" validate:"gte=1"`
	Type       RecommendationType   `json:"type" validate:"oneof=schedule_task draft_message meeting_agenda stage_move close_date_update"`
	Title      string               `json:"title" validate:"required"`
	Rationale  string               `json:"rationale"`
	Confidence float64              `json:"confidence" validate:"gte=0,lte=1"`
	Action     RecommendationAction `json:"action"`
}

// Recommendations is the cached recommendations payload.
type Recommendations struct {
	DealID             string                 `json:"dealId" validate:"required,uuid"`
	Items              []Recommendation       `json:"items" validate:"max=5,dive"`
	FreshnessTimestamp time.Time              `json:"freshnessTimestamp"`
	Cached             bool                   `json:"cached"`
	Analytics          domain.AnalyticsResult `json:"analytics"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// CommunicationSummary condenses a deal's timeline. Generated is false when
// the deterministic fallback was served.
type CommunicationSummary struct {
	DealID              string    `json:"dealId"`
	Summary             string    `json:"summary" validate:"required"`
	KeyPoints           []string  `json:"keyPoints"`
	Sentiment           Sentiment `json:"sentiment" validate:"oneof=positive neutral negative"`
	NextStep            string    `json:"nextStep"`
	SourceActivityCount int       `json:"sourceActivityCount"`
	Generated           bool      `json:"generated"`
}
