package insights

import (
	"context"
	"errors"
	"strings"

	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/platform/ai/llmjson"
	"deal_insights_backend/platform/apperr"
)

const summaryKeyPoints = 3

type generatedSummary struct {
	Summary   string    `json:"summary" validate:"required"`
	KeyPoints []string  `json:"keyPoints"`
	Sentiment Sentiment `json:"sentiment" validate:"omitempty,oneof=positive neutral negative"`
	NextStep  string    `json:"nextStep"`
}

// SummarizeCommunication condenses the deal timeline. It is not cached.
// Under the default fallback policy a generation failure yields the
// deterministic summary instead of an error.
func (s *Service) SummarizeCommunication(ctx context.Context, input SummarizeInput) (CommunicationSummary, error) {
	input.DealID = strings.TrimSpace(input.DealID)
	dealID, err := s.parseRequest(input, input.TenantID, input.WorkspaceID, input.DealID)
	if err != nil {
		return CommunicationSummary{}, err
	}
	lang := normalizeLanguage(input.WorkspaceLanguage)

	deal, err := s.deals.FindByID(ctx, input.TenantID, dealID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return CommunicationSummary{}, apperr.NotFound("deal not found")
		}
		return CommunicationSummary{}, apperr.Internal("load deal", err)
	}
	if deal.WorkspaceID != input.WorkspaceID {
		return CommunicationSummary{}, apperr.NotFound("deal not found")
	}

	timeline, err := s.activities.GetTimeline(ctx, input.TenantID, ports.TimelineEntityDeal, dealID, promptTimelineLimit)
	if err != nil {
		return CommunicationSummary{}, apperr.Internal("load deal timeline", err)
	}

	fallback := buildFallbackSummary(deal, timeline, lang)
	if len(timeline) == 0 || !s.aiEnabled(ctx, input.TenantID, input.WorkspaceID) {
		return fallback, nil
	}

	generated, err := s.generateSummary(ctx, deal, timeline, lang)
	if err != nil {
		fellBack := s.summaryPolicy == PolicyFallback
		s.log.WithContext(ctx).GenerationFailure("communication_summary", dealID.String(), err, fellBack)
		if fellBack {
			return fallback, nil
		}
		return CommunicationSummary{}, err
	}

	sentiment := generated.Sentiment
	if sentiment == "" {
		sentiment = SentimentNeutral
	}
	keyPoints := generated.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return CommunicationSummary{
		DealID:              deal.ID.String(),
		Summary:             strings.TrimSpace(generated.Summary),
		KeyPoints:           keyPoints,
		Sentiment:           sentiment,
		NextStep:            strings.TrimSpace(generated.NextStep),
		SourceActivityCount: len(timeline),
		Generated:           true,
	}, nil
}

func (s *Service) generateSummary(ctx context.Context, deal ports.Deal, timeline []ports.TimelineEntry, lang string) (generatedSummary, error) {
	raw, err := s.generator.GenerateText(ctx, ports.TextGenerationRequest{
		SystemPrompt:    summarySystemPrompt(lang),
		UserPrompt:      summaryUserPrompt(deal, timeline),
		Temperature:     summaryTemperature,
		MaxOutputTokens: summaryMaxOutputTokens,
	})
	if err != nil {
		return generatedSummary{}, apperr.ExternalService("generate communication summary", err)
	}

	var out generatedSummary
	if err := llmjson.Decode(raw, &out); err != nil {
		return generatedSummary{}, apperr.ExternalService("parse generated communication summary", err)
	}
	if err := s.validator.Struct(out); err != nil {
		return generatedSummary{}, apperr.ExternalService("generated communication summary has an unexpected shape", err)
	}
	return out, nil
}

func buildFallbackSummary(deal ports.Deal, timeline []ports.TimelineEntry, lang string) CommunicationSummary {
	result := CommunicationSummary{
		DealID:              deal.ID.String(),
		Summary:             message(lang, msgNoCommunication),
		KeyPoints:           []string{},
		Sentiment:           SentimentNeutral,
		NextStep:            message(lang, msgNextStepDefault),
		SourceActivityCount: len(timeline),
	}
	if len(timeline) == 0 {
		return result
	}

	recent := newestFirst(timeline)
	latest := recent[0]
	result.Summary = message(lang, msgCommunication, len(timeline), singleLine(latest.Subject), domain.ISODate(latest.Timestamp))
	for _, e := range recent {
		if len(result.KeyPoints) == summaryKeyPoints {
			break
		}
		if subject := singleLine(e.Subject); subject != "" {
			result.KeyPoints = append(result.KeyPoints, subject)
		}
	}
	return result
}
