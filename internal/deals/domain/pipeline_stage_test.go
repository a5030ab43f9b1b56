package domain

import "testing"

func TestBaselineWinRateLookup(t *testing.T) {
	cases := map[string]float64{
		"lead":        0.18,
		" Qualified ": 0.35,
		"PROPOSAL":    0.50,
		"negotiation": 0.68,
		"discovery":   DefaultBaselineWinRate,
		"":            DefaultBaselineWinRate,
	}
	for stage, want := range cases {
		if got := BaselineWinRate(stage); got != want {
			t.Fatalf("stage %q: expected %.2f, got %.2f", stage, want, got)
		}
	}
}

func TestNextOpenStage(t *testing.T) {
	if next, ok := NextOpenStage("Proposal"); !ok || next != StageNegotiation {
		t.Fatalf("expected negotiation after proposal, got %q (ok=%v)", next, ok)
	}
	for _, stage := range []string{StageNegotiation, StageWon, StageLost, "unknown"} {
		if next, ok := NextOpenStage(stage); ok {
			t.Fatalf("expected no open stage after %q, got %q", stage, next)
		}
	}
}
