package insights

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
)

const (
	maxRecommendations = 5

	stageMoveMinProbability = 0.70
	closeDateToleranceDays  = 7
	quietContactDays        = 7
	maxAgendaTopics         = 5
)

// GetRecommendations serves the active recommendations snapshot of a deal or
// derives a fresh set. It never calls the text generator.
func (s *Service) GetRecommendations(ctx context.Context, input GetRecommendationsInput) (Recommendations, error) {
	input.DealID = strings.TrimSpace(input.DealID)
	dealID, err := s.parseRequest(input, input.TenantID, input.WorkspaceID, input.DealID)
	if err != nil {
		return Recommendations{}, err
	}
	lang := normalizeLanguage(input.WorkspaceLanguage)
	now := s.now().UTC()
	key := ports.SnapshotKey{
		TenantID:    input.TenantID,
		WorkspaceID: input.WorkspaceID,
		DealID:      dealID,
		Kind:        ports.SnapshotKindRecommendations,
	}

	if !input.ForceRefresh {
		cached, err := findCached[Recommendations](ctx, s, key, RecommendationsVersion, now)
		if err != nil {
			return Recommendations{}, err
		}
		if cached != nil {
			return *cached, nil
		}
	}

	dc, err := s.loadDealContext(ctx, input.TenantID, input.WorkspaceID, dealID, now)
	if err != nil {
		return Recommendations{}, err
	}

	result := Recommendations{
		DealID:             dealID.String(),
		Items:              buildRecommendations(dc, lang),
		FreshnessTimestamp: now,
		Cached:             false,
		Analytics:          dc.analytics,
	}

	s.saveSnapshot(ctx, key, RecommendationsVersion, result, now)
	return result, nil
}

// buildRecommendations evaluates every rule, ranks the hits by confidence
// (rule order breaks ties) and keeps the best five.
func buildRecommendations(dc dealContext, lang string) []Recommendation {
	items := make([]Recommendation, 0, maxRecommendations)
	for _, rule := range recommendationRules {
		if rec, ok := rule(dc, lang); ok {
			rec.Confidence = round2(rec.Confidence)
			items = append(items, rec)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Confidence > items[j].Confidence
	})
	if len(items) > maxRecommendations {
		items = items[:maxRecommendations]
	}
	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

type recommendationRule func(dc dealContext, lang string) (Recommendation, bool)

var recommendationRules = []recommendationRule{
	recommendScheduleTask,
	recommendDraftMessage,
	recommendMeetingAgenda,
	recommendStageMove,
	recommendCloseDateUpdate,
}

// recommendScheduleTask fires when nothing is planned. Stalled deals get a
// call for the next day instead of a task.
func recommendScheduleTask(dc dealContext, lang string) (Recommendation, bool) {
	if nextPlannedActivity(dc.activities, dc.now) != nil {
		return Recommendation{}, false
	}

	activityType, dueIn, confidence := ports.ActivityTypeTask, 2, 0.80
	if dc.analytics.Status == domain.HealthStalled {
		activityType, dueIn, confidence = ports.ActivityTypeCall, 1, 0.90
	}
	return Recommendation{
		Type:       RecommendScheduleTask,
		Title:      message(lang, msgScheduleTask),
		Rationale:  message(lang, msgScheduleTaskWhy),
		Confidence: confidence,
		Action: RecommendationAction{
			ActivityType: activityType,
			DueDate:      domain.ISODate(dc.now.AddDate(0, 0, dueIn)),
		},
	}, true
}

// recommendDraftMessage fires after a week without recorded contact.
func recommendDraftMessage(dc dealContext, lang string) (Recommendation, bool) {
	latest := latestEntry(dc.timeline)
	if latest != nil && dc.now.Sub(latest.Timestamp) <= quietContactDays*24*time.Hour {
		return Recommendation{}, false
	}

	channel, intent, confidence := "email", "follow_up", 0.75
	if latest != nil && latest.ChannelKey != nil && strings.TrimSpace(*latest.ChannelKey) != "" {
		channel = strings.TrimSpace(*latest.ChannelKey)
	}
	if dc.analytics.Status == domain.HealthStalled {
		intent, confidence = "re_engage", 0.85
	}
	return Recommendation{
		Type:       RecommendDraftMessage,
		Title:      message(lang, msgDraftMessage),
		Rationale:  message(lang, msgDraftMessageWhy),
		Confidence: confidence,
		Action:     RecommendationAction{Channel: channel, Intent: intent},
	}, true
}

// recommendMeetingAgenda fires for an upcoming meeting or, without one, for
// deals in the proposal or negotiation stage.
func recommendMeetingAgenda(dc dealContext, lang string) (Recommendation, bool) {
	action := RecommendationAction{ActivityType: ports.ActivityTypeMeeting, Topics: agendaTopics(dc)}
	confidence := 0.0

	if meeting := nextPlannedOfType(dc.activities, dc.now, ports.ActivityTypeMeeting); meeting != nil {
		action.DueDate = domain.ISODate(*meeting.DueAt)
		confidence = 0.70
	} else {
		switch domain.NormalizeStage(dc.deal.StageID) {
		case domain.StageProposal, domain.StageNegotiation:
			confidence = 0.60
		default:
			return Recommendation{}, false
		}
	}

	return Recommendation{
		Type:       RecommendMeetingAgenda,
		Title:      message(lang, msgMeetingAgenda),
		Rationale:  message(lang, msgMeetingAgendaWhy),
		Confidence: confidence,
		Action:     action,
	}, true
}

func agendaTopics(dc dealContext) []string {
	topics := make([]string, 0, maxAgendaTopics)
	for _, factor := range dc.analytics.TopFactors {
		if factor.Impact == domain.ImpactNegative {
			topics = append(topics, factor.Label)
		}
	}
	if dc.deal.ExpectedCloseDate == nil {
		topics = append(topics, "Agree on a target close date")
	}
	if dc.deal.Amount == nil {
		topics = append(topics, "Confirm budget and deal amount")
	}
	if len(topics) > maxAgendaTopics {
		topics = topics[:maxAgendaTopics]
	}
	return topics
}

// recommendStageMove fires for likely winners that still have an open
// stage ahead of them.
func recommendStageMove(dc dealContext, lang string) (Recommendation, bool) {
	probability := dc.analytics.WinProbability
	if probability < stageMoveMinProbability {
		return Recommendation{}, false
	}
	next, ok := domain.NextOpenStage(dc.deal.StageID)
	if !ok {
		return Recommendation{}, false
	}
	return Recommendation{
		Type:       RecommendStageMove,
		Title:      message(lang, msgStageMove, next),
		Rationale:  message(lang, msgStageMoveWhy, int(math.Round(probability*100))),
		Confidence: probability,
		Action: RecommendationAction{
			FromStageID: domain.NormalizeStage(dc.deal.StageID),
			ToStageID:   next,
		},
	}, true
}

// recommendCloseDateUpdate fires when no close date is set, or when the p50
// forecast is more than a week away from it.
func recommendCloseDateUpdate(dc dealContext, lang string) (Recommendation, bool) {
	forecast := dc.analytics.ForecastCloseDate
	expected := dc.deal.ExpectedCloseDate

	if expected == nil {
		rec := Recommendation{
			Type:       RecommendCloseDateUpdate,
			Title:      message(lang, msgCloseDateSet),
			Rationale:  message(lang, msgCloseDateSetWhy),
			Confidence: 0.50,
		}
		if forecast != nil {
			rec.Action.CloseDate = *forecast
			rec.Confidence = math.Max(rec.Confidence, dc.analytics.Confidence)
		}
		return rec, true
	}

	if forecast == nil {
		return Recommendation{}, false
	}
	forecastDate, err := time.Parse(time.DateOnly, *forecast)
	if err != nil {
		return Recommendation{}, false
	}
	expectedDate, _ := time.Parse(time.DateOnly, domain.ISODate(*expected))
	if math.Abs(forecastDate.Sub(expectedDate).Hours()/24) <= closeDateToleranceDays {
		return Recommendation{}, false
	}

	return Recommendation{
		Type:       RecommendCloseDateUpdate,
		Title:      message(lang, msgCloseDateShift, *forecast),
		Rationale:  message(lang, msgCloseDateShiftWhy, *forecast),
		Confidence: dc.analytics.Confidence,
		Action:     RecommendationAction{CloseDate: *forecast},
	}, true
}

func nextPlannedOfType(activities []ports.Activity, now time.Time, activityType string) *ports.Activity {
	matching := make([]ports.Activity, 0, len(activities))
	for _, a := range activities {
		if strings.EqualFold(strings.TrimSpace(a.Type), activityType) {
			matching = append(matching, a)
		}
	}
	return nextPlannedActivity(matching, now)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
