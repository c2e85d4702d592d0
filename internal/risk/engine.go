// Package risk implements the prediction layer: three independent detectors
// (creative fatigue, ROI decay, LTV drift) over a recent-vs-baseline window
// split, folded into a single global risk level.
//
// Detectors are pure functions over the same immutable input window. They
// share no state, so the engine fans them out concurrently and fans their
// signals back in, in a fixed order for deterministic output.
package risk

import (
	"context"
	"sync"

	"github.com/ignite/adpilot/internal/domain"
)

// redHighSignalCount is the number of high-severity signals that escalates
// the global level to red.
const redHighSignalCount = 3

// Engine runs the three detectors and aggregates their signals. It is
// stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates a risk engine.
func NewEngine() *Engine { return &Engine{} }

// Detect evaluates all detectors against the window ending at window.End and
// returns their signals plus the aggregated global level. The context bounds
// the whole fan-out; on expiry the partial signal set is discarded and the
// context error returned.
func (e *Engine) Detect(ctx context.Context, records []domain.MetricRecord, cohorts []domain.CohortRecord, window domain.DateRange) (domain.RiskResult, error) {
	w := splitWindow(window.End)

	detectors := []func() []domain.RiskSignal{
		func() []domain.RiskSignal { return detectCreativeFatigue(records, w) },
		func() []domain.RiskSignal { return detectRoiDecay(records, w) },
		func() []domain.RiskSignal { return detectLtvDrift(cohorts) },
	}

	// Fan-out: one goroutine per detector, results slotted by index so the
	// fan-in order (fatigue, decay, drift) never depends on scheduling.
	results := make([][]domain.RiskSignal, len(detectors))
	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i, detect := range detectors {
			wg.Add(1)
			go func(i int, detect func() []domain.RiskSignal) {
				defer wg.Done()
				results[i] = detect()
			}(i, detect)
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return domain.RiskResult{}, ctx.Err()
	}

	var signals []domain.RiskSignal
	for _, r := range results {
		signals = append(signals, r...)
	}

	return domain.RiskResult{Signals: signals, Level: Aggregate(signals)}, nil
}

// Aggregate folds a signal set into the global risk level: red with three or
// more high-severity signals, yellow with at least one signal of any
// severity, green otherwise. Re-evaluated from scratch every run; this is not
// a sticky alarm.
func Aggregate(signals []domain.RiskSignal) domain.GlobalRiskLevel {
	high := 0
	for _, s := range signals {
		if s.Severity == domain.SeverityHigh {
			high++
		}
	}
	switch {
	case high >= redHighSignalCount:
		return domain.RiskRed
	case len(signals) >= 1:
		return domain.RiskYellow
	default:
		return domain.RiskGreen
	}
}
