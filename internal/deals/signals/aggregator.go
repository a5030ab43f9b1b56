// Package signals derives the historical stage statistics the deal health
// scorer needs from raw stage-transition history.
package signals

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"deal_insights_backend/internal/deals/analytics"
	"deal_insights_backend/internal/deals/domain"
	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// Sampling caps keep the fan-out bounded per request.
	defaultSampleCap       = 60
	defaultTransitionLimit = 120

	listPageSize         = 25
	transitionReadWorker = 6
)

// Result bundles the historical signals with the target deal's own stage timing.
type Result struct {
	Historical      domain.HistoricalSignals
	StageEnteredAt  time.Time
	TimeInStageDays float64
}

// Aggregator computes per-stage statistics from closed deals. It does not cache.
type Aggregator struct {
	deals           ports.DealReader
	sampleCap       int
	transitionLimit int
}

// New creates an aggregator reading through deals.
func New(deals ports.DealReader) *Aggregator {
	return &Aggregator{
		deals:           deals,
		sampleCap:       defaultSampleCap,
		transitionLimit: defaultTransitionLimit,
	}
}

// Compute loads the deal and aggregates statistics for its current stage.
func (a *Aggregator) Compute(ctx context.Context, tenantID, dealID uuid.UUID, now time.Time) (Result, error) {
	deal, err := a.deals.FindByID(ctx, tenantID, dealID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return Result{}, apperr.NotFound("deal not found")
		}
		return Result{}, apperr.Internal("load deal", err)
	}
	return a.ComputeForDeal(ctx, deal, now)
}

// ComputeForDeal aggregates statistics for an already loaded deal.
func (a *Aggregator) ComputeForDeal(ctx context.Context, deal ports.Deal, now time.Time) (Result, error) {
	stage := domain.NormalizeStage(deal.StageID)

	won, err := a.sampleClosed(ctx, deal.TenantID, domain.DealStatusWon, deal.StageID)
	if err != nil {
		return Result{}, err
	}
	lost, err := a.sampleClosed(ctx, deal.TenantID, domain.DealStatusLost, deal.StageID)
	if err != nil {
		return Result{}, err
	}

	durations, remaining, err := a.collectStageSamples(ctx, deal.TenantID, won, stage)
	if err != nil {
		return Result{}, err
	}

	wonInStage := countInStage(won, stage)
	historical := domain.HistoricalSignals{
		StageID: deal.StageID,
		StageConversion: domain.StageConversion{
			Won:    wonInStage,
			Closed: wonInStage + countInStage(lost, stage),
		},
		StageSampleSize: len(remaining),
		WonSampleSize:   len(won),
	}
	if median, ok := analytics.Median(durations); ok {
		historical.StageMedianDays = &median
	}
	if p50, ok := analytics.Percentile(remaining, 0.5); ok {
		historical.StageRemainingP50Days = &p50
	}
	if p80, ok := analytics.Percentile(remaining, 0.8); ok {
		historical.StageRemainingP80Days = &p80
	}

	entered, err := a.stageEnteredAt(ctx, deal, stage)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Historical:      historical,
		StageEnteredAt:  entered,
		TimeInStageDays: math.Max(0, daysBetween(entered, now)),
	}, nil
}

// sampleClosed pages through closed deals in the stage until the cap is
// reached or the listing is exhausted.
func (a *Aggregator) sampleClosed(ctx context.Context, tenantID uuid.UUID, status, stageID string) ([]ports.Deal, error) {
	filter := ports.DealListFilter{Status: status, StageID: stageID}
	sampled := make([]ports.Deal, 0, a.sampleCap)
	cursor := ""

	for len(sampled) < a.sampleCap {
		pageSize := min(listPageSize, a.sampleCap-len(sampled))
		page, err := a.deals.List(ctx, tenantID, filter, pageSize, cursor)
		if err != nil {
			return nil, apperr.Internal("list "+status+" deals", err)
		}
		for _, d := range page.Items {
			if len(sampled) == a.sampleCap {
				break
			}
			sampled = append(sampled, d)
		}
		if page.NextCursor == "" || len(page.Items) == 0 {
			break
		}
		cursor = page.NextCursor
	}
	return sampled, nil
}

type stageSamples struct {
	durations []float64
	remaining []float64
}

// collectStageSamples reads each won deal's history with bounded concurrency.
// Results are stored by index so the output does not depend on scheduling.
func (a *Aggregator) collectStageSamples(ctx context.Context, tenantID uuid.UUID, won []ports.Deal, stage string) ([]float64, []float64, error) {
	perDeal := make([]stageSamples, len(won))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transitionReadWorker)
	for i, d := range won {
		g.Go(func() error {
			transitions, err := a.deals.GetStageTransitions(gctx, tenantID, d.ID, a.transitionLimit)
			if err != nil {
				return err
			}
			perDeal[i] = samplesFromTransitions(transitions, stage, d.WonAt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, apperr.Internal("load stage transitions", err)
	}

	var durations, remaining []float64
	for _, s := range perDeal {
		durations = append(durations, s.durations...)
		remaining = append(remaining, s.remaining...)
	}
	return durations, remaining, nil
}

// samplesFromTransitions records, for every entry into stage, how long the
// deal stayed (when it left again) and how long it still took to win.
func samplesFromTransitions(transitions []ports.StageTransition, stage string, wonAt *time.Time) stageSamples {
	ordered := sortedTransitions(transitions)
	var out stageSamples
	for i, t := range ordered {
		if domain.NormalizeStage(t.ToStageID) != stage {
			continue
		}
		if i+1 < len(ordered) {
			out.durations = append(out.durations, daysBetween(t.TransitionedAt, ordered[i+1].TransitionedAt))
		}
		if wonAt != nil {
			out.remaining = append(out.remaining, math.Max(0, daysBetween(t.TransitionedAt, *wonAt)))
		}
	}
	return out
}

// stageEnteredAt is the time of the last transition into the deal's current
// stage, falling back to the deal's creation time.
func (a *Aggregator) stageEnteredAt(ctx context.Context, deal ports.Deal, stage string) (time.Time, error) {
	transitions, err := a.deals.GetStageTransitions(ctx, deal.TenantID, deal.ID, a.transitionLimit)
	if err != nil {
		return time.Time{}, apperr.Internal("load deal stage transitions", err)
	}
	ordered := sortedTransitions(transitions)
	for i := len(ordered) - 1; i >= 0; i-- {
		if domain.NormalizeStage(ordered[i].ToStageID) == stage {
			return ordered[i].TransitionedAt, nil
		}
	}
	return deal.CreatedAt, nil
}

func sortedTransitions(transitions []ports.StageTransition) []ports.StageTransition {
	ordered := make([]ports.StageTransition, len(transitions))
	copy(ordered, transitions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TransitionedAt.Before(ordered[j].TransitionedAt)
	})
	return ordered
}

func countInStage(deals []ports.Deal, stage string) int {
	n := 0
	for _, d := range deals {
		if domain.NormalizeStage(d.StageID) == stage {
			n++
		}
	}
	return n
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
