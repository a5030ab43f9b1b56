package insights

import (
	"context"
	"fmt"
	"strings"

	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/platform/ai/llmjson"
	"deal_insights_backend/platform/apperr"
)

const fallbackConfidence = 0.45

// generatedInsights is the part of the insights payload the model may supply.
type generatedInsights struct {
	Summary     *Summary      `json:"summary" validate:"required"`
	WhatMissing []MissingItem `json:"whatMissing" validate:"dive"`
	KeyEntities []KeyEntity   `json:"keyEntities" validate:"dive"`
	Confidence  *float64      `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// GetInsights serves the active insights snapshot of a deal or computes and
// stores a fresh one.
func (s *Service) GetInsights(ctx context.Context, input GetInsightsInput) (Insights, error) {
	input.DealID = strings.TrimSpace(input.DealID)
	dealID, err := s.parseRequest(input, input.TenantID, input.WorkspaceID, input.DealID)
	if err != nil {
		return Insights{}, err
	}
	lang := normalizeLanguage(input.WorkspaceLanguage)
	now := s.now().UTC()
	key := ports.SnapshotKey{
		TenantID:    input.TenantID,
		WorkspaceID: input.WorkspaceID,
		DealID:      dealID,
		Kind:        ports.SnapshotKindInsights,
	}

	if !input.ForceRefresh {
		cached, err := findCached[Insights](ctx, s, key, InsightsVersion, now)
		if err != nil {
			return Insights{}, err
		}
		if cached != nil {
			return *cached, nil
		}
	}

	dc, err := s.loadDealContext(ctx, input.TenantID, input.WorkspaceID, dealID, now)
	if err != nil {
		return Insights{}, err
	}

	missing := whatMissing(dc.deal, dc.activities, dc.timeline, now, lang)
	result := buildFallbackInsights(dc, missing, lang)

	if s.aiEnabled(ctx, input.TenantID, input.WorkspaceID) {
		generated, err := s.generateInsights(ctx, dc, missing, lang)
		switch {
		case err == nil:
			result = mergeGeneratedInsights(result, generated)
		case s.insightsPolicy == PolicyFallback:
			s.log.WithContext(ctx).GenerationFailure("deal_insights", dealID.String(), err, true)
		default:
			s.log.WithContext(ctx).GenerationFailure("deal_insights", dealID.String(), err, false)
			return Insights{}, err
		}
	} else {
		s.log.WithContext(ctx).Debug("ai insights disabled, serving deterministic insights", "dealId", dealID)
	}

	s.saveSnapshot(ctx, key, InsightsVersion, result, now)
	return result, nil
}

func (s *Service) generateInsights(ctx context.Context, dc dealContext, missing []MissingItem, lang string) (generatedInsights, error) {
	userPrompt, err := insightsUserPrompt(dc, missing)
	if err != nil {
		return generatedInsights{}, apperr.Internal("render insights prompt", err)
	}

	raw, err := s.generator.GenerateText(ctx, ports.TextGenerationRequest{
		SystemPrompt:    insightsSystemPrompt(lang),
		UserPrompt:      userPrompt,
		Temperature:     insightsTemperature,
		MaxOutputTokens: insightsMaxOutputTokens,
	})
	if err != nil {
		return generatedInsights{}, apperr.ExternalService("generate deal insights", err)
	}

	var out generatedInsights
	if err := llmjson.Decode(raw, &out); err != nil {
		return generatedInsights{}, apperr.ExternalService("parse generated deal insights", err)
	}
	if err := s.validator.Struct(out); err != nil {
		return generatedInsights{}, apperr.ExternalService("generated deal insights have an unexpected shape", err)
	}
	return out, nil
}

// buildFallbackInsights derives the whole payload from stored data only.
func buildFallbackInsights(dc dealContext, missing []MissingItem, lang string) Insights {
	deal := dc.deal

	situation := ""
	if deal.Notes != nil {
		situation = strings.TrimSpace(*deal.Notes)
	}
	if situation == "" {
		situation = message(lang, msgOpportunity, deal.Title)
	}

	lastInteraction := message(lang, msgNoActivity)
	if latest := latestEntry(dc.timeline); latest != nil {
		lastInteraction = fmt.Sprintf("%s (%s)", singleLine(latest.Subject), domain.ISODate(latest.Timestamp))
	}

	nextStep := message(lang, msgNextStepDefault)
	if planned := nextPlannedActivity(dc.activities, dc.now); planned != nil {
		nextStep = message(lang, msgNextStepPlanned, planned.Type, domain.ISODate(*planned.DueAt))
	}

	stakeholders := []string{}
	if deal.PrimaryContactName != nil && strings.TrimSpace(*deal.PrimaryContactName) != "" {
		stakeholders = append(stakeholders, strings.TrimSpace(*deal.PrimaryContactName))
	}

	return Insights{
		DealID: deal.ID.String(),
		Summary: Summary{
			Situation:       situation,
			LastInteraction: lastInteraction,
			KeyStakeholders: stakeholders,
			Needs:           []string{},
			Objections:      []string{},
			NextStep:        nextStep,
		},
		WhatMissing:         missing,
		KeyEntities:         recordEntities(deal),
		Confidence:          fallbackConfidence,
		FreshnessTimestamp:  dc.now,
		SourceActivityCount: len(dc.timeline),
		TimelineEmpty:       len(dc.timeline) == 0,
		Cached:              false,
		Analytics:           dc.analytics,
	}
}

// recordEntities lists the entities read straight from the deal record.
func recordEntities(deal ports.Deal) []KeyEntity {
	entities := []KeyEntity{}
	if deal.PrimaryContactName != nil && strings.TrimSpace(*deal.PrimaryContactName) != "" {
		entities = append(entities, KeyEntity{Kind: "contact", Value: strings.TrimSpace(*deal.PrimaryContactName), Confidence: 1})
	}
	if deal.Amount != nil {
		value := fmt.Sprintf("%.2f", *deal.Amount)
		if deal.Currency != nil && *deal.Currency != "" {
			value += " " + *deal.Currency
		}
		entities = append(entities, KeyEntity{Kind: "amount", Value: value, Confidence: 1})
	}
	if deal.ExpectedCloseDate != nil {
		entities = append(entities, KeyEntity{Kind: "expected_close_date", Value: domain.ISODate(*deal.ExpectedCloseDate), Confidence: 1})
	}
	return entities
}

// mergeGeneratedInsights lets the generated narrative replace the summary
// and entities while the checklist keeps every deterministic code.
func mergeGeneratedInsights(base Insights, generated generatedInsights) Insights {
	merged := base
	merged.Summary = normalizeSummary(*generated.Summary)
	merged.WhatMissing = mergeWhatMissing(base.WhatMissing, generated.WhatMissing)
	if len(generated.KeyEntities) > 0 {
		merged.KeyEntities = generated.KeyEntities
	}
	if generated.Confidence != nil {
		merged.Confidence = *generated.Confidence
	} else {
		merged.Confidence = base.Analytics.Confidence
	}
	return merged
}

func normalizeSummary(s Summary) Summary {
	if s.KeyStakeholders == nil {
		s.KeyStakeholders = []string{}
	}
	if s.Needs == nil {
		s.Needs = []string{}
	}
	if s.Objections == nil {
		s.Objections = []string{}
	}
	return s
}
