package domain

import "strings"

// Pipeline stage identifiers, in pipeline order.
const (
	StageLead        = "lead"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

// Deal statuses.
const (
	DealStatusOpen = "open"
	DealStatusWon  = "won"
	DealStatusLost = "lost"
)

// pipelineOrder lists the open stages a deal moves through before closing.
var pipelineOrder = []string{StageLead, StageQualified, StageProposal, StageNegotiation}

// stageBaselineWinRate is used when a stage has too few closed deals to trust
// its observed conversion rate.
var stageBaselineWinRate = map[string]float64{
	StageLead:        0.18,
	StageQualified:   0.35,
	StageProposal:    0.50,
	StageNegotiation: 0.68,
}

// DefaultBaselineWinRate applies to stage ids outside the known pipeline.
const DefaultBaselineWinRate = 0.40

// NormalizeStage lower-cases and trims a stage id for table lookups.
func NormalizeStage(stageID string) string {
	return strings.ToLower(strings.TrimSpace(stageID))
}

// BaselineWinRate returns the fixed historical win rate for a stage.
func BaselineWinRate(stageID string) float64 {
	if rate, ok := stageBaselineWinRate[NormalizeStage(stageID)]; ok {
		return rate
	}
	return DefaultBaselineWinRate
}

// IsTerminalStage reports whether the stage closes the deal.
func IsTerminalStage(stageID string) bool {
	switch NormalizeStage(stageID) {
	case StageWon, StageLost:
		return true
	default:
		return false
	}
}

// NextOpenStage returns the next non-terminal stage after stageID.
// ok is false for the last open stage, terminal stages and unknown ids.
func NextOpenStage(stageID string) (string, bool) {
	normalized := NormalizeStage(stageID)
	for i, stage := range pipelineOrder {
		if stage == normalized && i+1 < len(pipelineOrder) {
			return pipelineOrder[i+1], true
		}
	}
	return "", false
}
