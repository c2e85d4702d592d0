// Package recommend implements the decision layer: candidate corrective
// actions generated from attribution and risk output, scored with fixed
// policy weights, and greedily selected under a per-type diversity quota.
package recommend

import (
	"sort"

	"github.com/ignite/adpilot/internal/domain"
)

// Scoring weights. Fixed policy, not user-configurable.
const (
	weightImpact     = 0.4
	weightSeverity   = 0.3
	weightConfidence = 0.2
	weightUrgency    = 0.1
)

// Selection bounds.
const (
	maxActions        = 3
	maxIncreaseBudget = 1 // diversity quota: never only "scale the winner"
)

// Engine pools the three generators, scores, and selects. Stateless and safe
// for concurrent use.
type Engine struct{}

// NewEngine creates a recommendation engine.
func NewEngine() *Engine { return &Engine{} }

// Recommend produces at most three ranked actions plus the summed expected
// uplift. An empty pool (healthy portfolio) returns an empty list with zero
// uplift; that is success, not an error.
func (e *Engine) Recommend(attr domain.AttributionResult, risk domain.RiskResult) domain.RecommendationResult {
	var pool []candidate
	pool = append(pool, generateShiftBudget(attr, risk)...)
	pool = append(pool, generatePauseCreative(risk)...)
	pool = append(pool, generateIncreaseBudget(attr, risk)...)

	scoreCandidates(pool)
	rank(pool)

	actions := selectDiverse(pool)

	var uplift float64
	for _, a := range actions {
		uplift += a.EstimatedImpactUSD
	}
	return domain.RecommendationResult{Actions: actions, TotalPotentialUpliftUSD: uplift}
}

// scoreCandidates assigns each candidate's score. The impact term is
// normalized to the pool maximum so the fixed weights stay meaningful across
// dollar scales.
func scoreCandidates(pool []candidate) {
	var maxImpact float64
	for _, c := range pool {
		if c.action.EstimatedImpactUSD > maxImpact {
			maxImpact = c.action.EstimatedImpactUSD
		}
	}
	for i := range pool {
		c := &pool[i]
		impact := 0.0
		if maxImpact > 0 {
			impact = c.action.EstimatedImpactUSD / maxImpact
		}
		c.action.Score = weightImpact*impact +
			weightSeverity*severityWeight(c.severity) +
			weightConfidence*c.confidence +
			weightUrgency*urgencyWeight(c.action.Urgency)
	}
}

// rank orders by score descending, breaking ties by higher impact, then by
// action-type precedence (pause > shift > increase) so output is fully
// deterministic.
func rank(pool []candidate) {
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i].action, pool[j].action
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.EstimatedImpactUSD != b.EstimatedImpactUSD {
			return a.EstimatedImpactUSD > b.EstimatedImpactUSD
		}
		return typePrecedence(a.Type) < typePrecedence(b.Type)
	})
}

// selectDiverse greedily takes the top candidates subject to the quota of at
// most one increase_budget action.
func selectDiverse(pool []candidate) []domain.Action {
	var actions []domain.Action
	increases := 0
	for _, c := range pool {
		if len(actions) == maxActions {
			break
		}
		if c.action.Type == domain.ActionIncreaseBudget {
			if increases == maxIncreaseBudget {
				continue
			}
			increases++
		}
		actions = append(actions, c.action)
	}
	return actions
}

func severityWeight(s domain.Severity) float64 {
	switch s {
	case domain.SeverityHigh:
		return 1.0
	case domain.SeverityMedium:
		return 0.6
	default:
		return 0.3
	}
}

func urgencyWeight(u domain.Urgency) float64 {
	switch u {
	case domain.UrgencyHigh:
		return 1.0
	case domain.UrgencyMedium:
		return 0.6
	default:
		return 0.3
	}
}

func typePrecedence(t domain.ActionType) int {
	switch t {
	case domain.ActionPauseCreative:
		return 0
	case domain.ActionShiftBudget:
		return 1
	default:
		return 2
	}
}
