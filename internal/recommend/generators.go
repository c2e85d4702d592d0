package recommend

import (
	"fmt"

	"github.com/ignite/adpilot/internal/domain"
)

// Generator policy constants.
const (
	// Fraction of a struggling channel's spend proposed for reallocation.
	shiftFraction = 0.10
	// Fraction of a winning channel's spend proposed as an increase.
	increaseFraction = 0.10
	// Minimum fatigue probability before a pause is proposed.
	pauseProbabilityFloor = 0.6
	// Days of avoided loss credited to pausing a fatigued creative.
	pauseHorizonDays = 7
)

// candidate is an action plus the scoring evidence that produced it.
type candidate struct {
	action     domain.Action
	severity   domain.Severity // empty for risk-free proposals
	confidence float64
}

// generateShiftBudget proposes moving spend from every loser or
// decay-flagged channel to the best winner. One proposal per source channel;
// multiple signals on the same channel are additive evidence, not extra
// actions.
func generateShiftBudget(attr domain.AttributionResult, risk domain.RiskResult) []candidate {
	target := bestWinner(attr)
	if target == nil || target.LTVAdjustedROAS == nil {
		return nil
	}

	decayBy := make(map[string]domain.Severity)
	for _, s := range risk.Signals {
		if s.RoiDecay != nil {
			decayBy[s.RoiDecay.ChannelID] = s.Severity
		}
	}

	var out []candidate
	for _, ch := range attr.Channels {
		severity, decaying := decayBy[ch.ChannelID]
		if ch.Status != domain.StatusLoser && !decaying {
			continue
		}
		if ch.ChannelID == target.ChannelID || ch.LTVAdjustedROAS == nil {
			continue
		}

		shift := shiftFraction * ch.TotalSpend
		impact := shift * (*target.LTVAdjustedROAS - *ch.LTVAdjustedROAS)
		if impact <= 0 {
			continue
		}
		if !decaying {
			severity = domain.SeverityMedium
		}

		out = append(out, candidate{
			action: domain.Action{
				Type:               domain.ActionShiftBudget,
				Target:             domain.ActionTarget{ChannelID: ch.ChannelID, ToChannelID: target.ChannelID},
				EstimatedImpactUSD: impact,
				Urgency:            domain.UrgencyHigh,
				Rationale: fmt.Sprintf("shift %.0f%% of %s spend ($%.2f) to %s (ROAS %.2f vs %.2f)",
					shiftFraction*100, ch.ChannelID, shift, target.ChannelID,
					*target.LTVAdjustedROAS, *ch.LTVAdjustedROAS),
			},
			severity:   severity,
			confidence: 0.7,
		})
	}
	return out
}

// generatePauseCreative proposes pausing every creative whose fatigue
// probability clears the floor. Impact is one week of avoided loss.
func generatePauseCreative(risk domain.RiskResult) []candidate {
	var out []candidate
	for _, s := range risk.Signals {
		f := s.CreativeFatigue
		if f == nil || f.Probability7d <= pauseProbabilityFloor {
			continue
		}

		urgency := domain.UrgencyMedium
		if f.Probability7d > 0.8 {
			urgency = domain.UrgencyHigh
		}

		impact := f.DailySpend * (f.PredictedDropPct / 100) * pauseHorizonDays

		out = append(out, candidate{
			action: domain.Action{
				Type:               domain.ActionPauseCreative,
				Target:             domain.ActionTarget{CreativeID: f.CreativeID},
				EstimatedImpactUSD: impact,
				Urgency:            urgency,
				Rationale: fmt.Sprintf("creative %s shows %.0f%% fatigue probability (predicted %.1f%% performance drop)",
					f.CreativeID, f.Probability7d*100, f.PredictedDropPct),
			},
			severity:   s.Severity,
			confidence: f.Probability7d,
		})
	}
	return out
}

// generateIncreaseBudget proposes a modest increase for winners carrying no
// risk signal.
func generateIncreaseBudget(attr domain.AttributionResult, risk domain.RiskResult) []candidate {
	if attr.Blended.BlendedROAS == nil {
		return nil
	}
	blended := *attr.Blended.BlendedROAS

	flagged := make(map[string]bool)
	for _, s := range risk.Signals {
		if s.RoiDecay != nil {
			flagged[s.RoiDecay.ChannelID] = true
		}
	}

	var out []candidate
	for _, ch := range attr.Channels {
		if ch.Status != domain.StatusWinner || flagged[ch.ChannelID] || ch.LTVAdjustedROAS == nil {
			continue
		}

		increase := increaseFraction * ch.TotalSpend
		impact := increase * (*ch.LTVAdjustedROAS - blended)
		if impact <= 0 {
			continue
		}

		urgency := domain.UrgencyLow
		if *ch.LTVAdjustedROAS > blended*1.5 {
			urgency = domain.UrgencyMedium
		}

		out = append(out, candidate{
			action: domain.Action{
				Type:               domain.ActionIncreaseBudget,
				Target:             domain.ActionTarget{ChannelID: ch.ChannelID},
				EstimatedImpactUSD: impact,
				Urgency:            urgency,
				Rationale: fmt.Sprintf("increase %s budget by %.0f%% ($%.2f): ROAS %.2f vs blended %.2f with no active risk",
					ch.ChannelID, increaseFraction*100, increase, *ch.LTVAdjustedROAS, blended),
			},
			confidence: 0.5,
		})
	}
	return out
}

// bestWinner returns the winner channel with the highest LTV-adjusted ROAS,
// or nil if there are no winners.
func bestWinner(attr domain.AttributionResult) *domain.ChannelSummary {
	var best *domain.ChannelSummary
	for i := range attr.Channels {
		ch := &attr.Channels[i]
		if ch.Status != domain.StatusWinner || ch.LTVAdjustedROAS == nil {
			continue
		}
		if best == nil || *ch.LTVAdjustedROAS > *best.LTVAdjustedROAS {
			best = ch
		}
	}
	return best
}
