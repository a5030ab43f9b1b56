package analytics

import "deal_insights_backend/internal/deals/domain"

// scoringInput carries the derived quantities every rule predicate reads.
type scoringInput struct {
	historical       domain.HistoricalSignals
	runtime          domain.RuntimeSignals
	timeInStageDays  float64
	lastActivityDays *float64
}

// stageRatio is time in stage relative to the median of won deals.
// ok is false when the median is unknown or not positive.
func (in scoringInput) stageRatio() (float64, bool) {
	median := in.historical.StageMedianDays
	if median == nil || *median <= 0 {
		return 0, false
	}
	return in.timeInStageDays / *median, true
}

type factorRule struct {
	label   string
	reason  string
	weight  float64
	applies func(in scoringInput) bool
}

// adjustmentGroups are evaluated in order. Within a group the first rule that
// applies emits its factor and the rest of the group is skipped, so each
// group contributes at most one factor.
var adjustmentGroups = [][]factorRule{
	// Time in stage compared to won deals.
	{
		{
			label:  "Far over typical stage time",
			reason: "Time in the current stage is more than 1.8x the median of won deals.",
			weight: -0.20,
			applies: func(in scoringInput) bool {
				ratio, ok := in.stageRatio()
				return ok && ratio > 1.8
			},
		},
		{
			label:  "Over typical stage time",
			reason: "Time in the current stage is above the median of won deals.",
			weight: -0.10,
			applies: func(in scoringInput) bool {
				ratio, ok := in.stageRatio()
				return ok && ratio > 1.2
			},
		},
		{
			label:  "Progressing faster than median",
			reason: "The deal is moving through this stage faster than won deals usually do.",
			weight: 0.07,
			applies: func(in scoringInput) bool {
				ratio, ok := in.stageRatio()
				return ok && ratio < 0.7
			},
		},
		{
			label:  "Long time in stage",
			reason: "No stage benchmark is available and the deal has been in this stage for over 21 days.",
			weight: -0.08,
			applies: func(in scoringInput) bool {
				return in.historical.StageMedianDays == nil && in.timeInStageDays > 21
			},
		},
	},
	// Activity recency.
	{
		{
			label:   "No activity recorded",
			reason:  "No activity has ever been logged on this deal.",
			weight:  -0.18,
			applies: func(in scoringInput) bool { return in.lastActivityDays == nil },
		},
		{
			label:   "No activity in over two weeks",
			reason:  "The last activity was more than 14 days ago.",
			weight:  -0.16,
			applies: func(in scoringInput) bool { return *in.lastActivityDays > 14 },
		},
		{
			label:   "No activity in over a week",
			reason:  "The last activity was more than 7 days ago.",
			weight:  -0.08,
			applies: func(in scoringInput) bool { return *in.lastActivityDays > 7 },
		},
		{
			label:   "Recent activity",
			reason:  "There was activity within the last 2 days.",
			weight:  0.08,
			applies: func(in scoringInput) bool { return *in.lastActivityDays <= 2 },
		},
	},
	// Activity volume.
	{
		{
			label:   "Very little activity",
			reason:  "Fewer than 2 activities are associated with the deal.",
			weight:  -0.07,
			applies: func(in scoringInput) bool { return in.runtime.ActivityCount < 2 },
		},
		{
			label:   "High engagement",
			reason:  "6 or more activities are associated with the deal.",
			weight:  0.05,
			applies: func(in scoringInput) bool { return in.runtime.ActivityCount >= 6 },
		},
	},
	// Data completeness, one group per field.
	{
		{
			label:   "Expected close date set",
			reason:  "The deal has an expected close date.",
			weight:  0.05,
			applies: func(in scoringInput) bool { return in.runtime.ExpectedCloseDate != nil },
		},
		{
			label:   "Missing expected close date",
			reason:  "No expected close date has been set.",
			weight:  -0.05,
			applies: func(in scoringInput) bool { return in.runtime.ExpectedCloseDate == nil },
		},
	},
	{
		{
			label:   "Amount set",
			reason:  "The deal has a monetary amount.",
			weight:  0.03,
			applies: func(in scoringInput) bool { return in.runtime.Amount != nil },
		},
	},
	{
		{
			label:   "No linked contact",
			reason:  "No contact is linked to the deal.",
			weight:  -0.06,
			applies: func(in scoringInput) bool { return !in.runtime.HasLinkedContact },
		},
	},
}

func newFactor(label, reason string, weight float64) domain.AnalyticsFactor {
	impact := domain.ImpactNeutral
	switch {
	case weight > 0:
		impact = domain.ImpactPositive
	case weight < 0:
		impact = domain.ImpactNegative
	}
	return domain.AnalyticsFactor{Label: label, Reason: reason, Weight: weight, Impact: impact}
}
