package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"deal_insights_backend/internal/deals/ports"
)

const (
	promptTimelineLimit = 20
	timelineBodyMaxLen  = 280
)

// renderTimeline formats the newest limit entries oldest-first, numbered
// from 1:
//
//	1. [2026-02-16T10:00:00Z] call/phone (outbound): Intro | Talked budget
func renderTimeline(entries []ports.TimelineEntry, limit int) string {
	recent := newestFirst(entries)
	if len(recent) > limit {
		recent = recent[:limit]
	}

	var b strings.Builder
	for i := range recent {
		e := recent[len(recent)-1-i]
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. [%s] %s%s%s: %s | %s",
			i+1,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Type,
			optionalPart("/", e.ChannelKey, ""),
			optionalPart(" (", e.Direction, ")"),
			singleLine(e.Subject),
			truncate(singleLine(e.Body), timelineBodyMaxLen),
		)
	}
	return b.String()
}

func newestFirst(entries []ports.TimelineEntry) []ports.TimelineEntry {
	sorted := make([]ports.TimelineEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted
}

func latestEntry(entries []ports.TimelineEntry) *ports.TimelineEntry {
	if len(entries) == 0 {
		return nil
	}
	latest := newestFirst(entries)[0]
	return &latest
}

func optionalPart(prefix string, value *string, suffix string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return ""
	}
	return prefix + strings.TrimSpace(*value) + suffix
}

func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "..."
}
