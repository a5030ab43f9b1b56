package insights

import (
	"encoding/json"
	"fmt"
	"strings"

	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
)

const (
	insightsTemperature     = 0.2
	insightsMaxOutputTokens = 1200
	summaryTemperature      = 0.3
	summaryMaxOutputTokens  = 600
)

type promptDeal struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	StageID           string   `json:"stageId"`
	Status            string   `json:"status"`
	Amount            *float64 `json:"amount"`
	Currency          *string  `json:"currency"`
	ExpectedCloseDate *string  `json:"expectedCloseDate"`
	PrimaryContact    *string  `json:"primaryContact"`
	Notes             *string  `json:"notes"`
}

func toPromptDeal(deal ports.Deal) promptDeal {
	p := promptDeal{
		ID:             deal.ID.String(),
		Title:          deal.Title,
		StageID:        deal.StageID,
		Status:         deal.Status,
		Amount:         deal.Amount,
		Currency:       deal.Currency,
		PrimaryContact: deal.PrimaryContactName,
		Notes:          deal.Notes,
	}
	if deal.ExpectedCloseDate != nil {
		date := domain.ISODate(*deal.ExpectedCloseDate)
		p.ExpectedCloseDate = &date
	}
	return p
}

func insightsSystemPrompt(lang string) string {
	return fmt.Sprintf(`You are a sales assistant that analyses a single deal in a CRM.
Answer in %s. Respond with one JSON object and nothing else, using this shape:
{
  "summary": {
    "situation": string,
    "lastInteraction": string,
    "keyStakeholders": [string],
    "needs": [string],
    "objections": [string],
    "nextStep": string
  },
  "whatMissing": [{"code": string, "label": string, "severity": "high" | "medium" | "low"}],
  "keyEntities": [{"kind": string, "value": string, "confidence": number between 0 and 1}],
  "confidence": number between 0 and 1
}
Reuse the codes of the provided missing items when you refer to them. Do not invent facts that are not in the timeline.`, languageName(lang))
}

func insightsUserPrompt(dc dealContext, missing []MissingItem) (string, error) {
	dealJSON, err := json.MarshalIndent(toPromptDeal(dc.deal), "", "  ")
	if err != nil {
		return "", err
	}
	analyticsJSON, err := json.MarshalIndent(dc.analytics, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Deal:\n")
	b.Write(dealJSON)
	b.WriteString("\n\nHealth analytics:\n")
	b.Write(analyticsJSON)
	b.WriteString("\n\nTimeline (oldest first):\n")
	if timeline := renderTimeline(dc.timeline, promptTimelineLimit); timeline != "" {
		b.WriteString(timeline)
	} else {
		b.WriteString("(empty)")
	}
	b.WriteString("\n\nMissing items:\n")
	if len(missing) == 0 {
		b.WriteString("(none)")
	}
	for i, item := range missing {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s (%s): %s", item.Code, item.Severity, item.Label)
	}
	return b.String(), nil
}

func summarySystemPrompt(lang string) string {
	return fmt.Sprintf(`You summarise the communication history of a sales deal.
Answer in %s. Respond with one JSON object and nothing else, using this shape:
{"summary": string, "keyPoints": [string], "sentiment": "positive" | "neutral" | "negative", "nextStep": string}`, languageName(lang))
}

func summaryUserPrompt(deal ports.Deal, timeline []ports.TimelineEntry) string {
	return fmt.Sprintf("Deal: %s (stage %s)\n\nTimeline (oldest first):\n%s",
		deal.Title, deal.StageID, renderTimeline(timeline, promptTimelineLimit))
}
