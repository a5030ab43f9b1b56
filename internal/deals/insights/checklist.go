package insights

import (
	"strings"
	"time"

	"deal_insights_backend/internal/deals/ports"
)

// whatMissing evaluates each checklist item independently and keeps only the
// ones that hold, in a fixed order.
func whatMissing(deal ports.Deal, activities []ports.Activity, timeline []ports.TimelineEntry, now time.Time, lang string) []MissingItem {
	items := make([]MissingItem, 0, 5)
	add := func(code string, key messageKey, severity Severity) {
		items = append(items, MissingItem{Code: code, Label: message(lang, key), Severity: severity})
	}

	if deal.ExpectedCloseDate == nil {
		add(MissingCloseDate, msgMissingCloseDate, SeverityHigh)
	}
	if nextPlannedActivity(activities, now) == nil {
		add(MissingNextStep, msgMissingNextStep, SeverityHigh)
	}
	if !deal.HasLinkedContact() {
		add(MissingContact, msgMissingContact, SeverityMedium)
	}
	if deal.Amount == nil {
		add(MissingAmount, msgMissingAmount, SeverityMedium)
	}
	if len(timeline) == 0 {
		add(EmptyTimeline, msgEmptyTimeline, SeverityLow)
	}
	return items
}

// nextPlannedActivity returns the earliest open task, call or meeting due
// after now.
func nextPlannedActivity(activities []ports.Activity, now time.Time) *ports.Activity {
	var next *ports.Activity
	for i := range activities {
		a := activities[i]
		if !isFollowUpType(a.Type) || !strings.EqualFold(a.Status, ports.ActivityStatusOpen) {
			continue
		}
		if a.DueAt == nil || !a.DueAt.After(now) {
			continue
		}
		if next == nil || a.DueAt.Before(*next.DueAt) {
			next = &activities[i]
		}
	}
	return next
}

func isFollowUpType(activityType string) bool {
	switch strings.ToLower(strings.TrimSpace(activityType)) {
	case ports.ActivityTypeTask, ports.ActivityTypeCall, ports.ActivityTypeMeeting:
		return true
	}
	return false
}

// mergeWhatMissing unions both lists by code. A later entry for a code
// replaces the earlier one in place; new codes are appended.
func mergeWhatMissing(base, generated []MissingItem) []MissingItem {
	merged := make([]MissingItem, 0, len(base)+len(generated))
	index := make(map[string]int, len(base)+len(generated))
	for _, list := range [][]MissingItem{base, generated} {
		for _, item := range list {
			code := strings.TrimSpace(item.Code)
			if code == "" {
				continue
			}
			item.Code = code
			if i, ok := index[code]; ok {
				merged[i] = item
				continue
			}
			index[code] = len(merged)
			merged = append(merged, item)
		}
	}
	return merged
}
