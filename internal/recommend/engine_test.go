package recommend

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adpilot/internal/domain"
)

func channel(id string, status domain.ChannelStatus, spend, roas float64) domain.ChannelSummary {
	return domain.ChannelSummary{
		ChannelID:       id,
		TotalSpend:      spend,
		TotalRevenue:    spend * roas,
		RawROAS:         domain.Float64(roas),
		LTVAdjustedROAS: domain.Float64(roas),
		LTVFactor:       1.0,
		Status:          status,
	}
}

func attrResult(blended float64, channels ...domain.ChannelSummary) domain.AttributionResult {
	return domain.AttributionResult{
		Channels: channels,
		Blended:  domain.BlendedMetrics{BlendedROAS: domain.Float64(blended), MER: domain.Float64(blended)},
	}
}

func fatigueSignal(creativeID string, probability, dropPct, dailySpend float64) domain.RiskSignal {
	severity := domain.SeverityMedium
	if probability > 0.8 {
		severity = domain.SeverityHigh
	}
	return domain.RiskSignal{
		Type:     domain.SignalCreativeFatigue,
		Severity: severity,
		CreativeFatigue: &domain.CreativeFatigueSignal{
			CreativeID:       creativeID,
			Probability7d:    probability,
			PredictedDropPct: dropPct,
			Trigger:          domain.TriggerCVRDrop,
			DailySpend:       dailySpend,
		},
	}
}

func decaySignal(channelID string, severity domain.Severity) domain.RiskSignal {
	return domain.RiskSignal{
		Type:     domain.SignalRoiDecay,
		Severity: severity,
		RoiDecay: &domain.RoiDecaySignal{ChannelID: channelID, DropPct: 20, Trend: "declining"},
	}
}

func TestRecommend_ShiftBudgetFromLoserToBestWinner(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.5,
		channel("meta", domain.StatusWinner, 9000, 3.6),
		channel("google", domain.StatusNeutral, 9000, 2.4),
		channel("tiktok", domain.StatusLoser, 9000, 1.8),
	)

	result := e.Recommend(attr, domain.RiskResult{})

	var shifts []domain.Action
	for _, a := range result.Actions {
		if a.Type == domain.ActionShiftBudget {
			shifts = append(shifts, a)
		}
	}
	require.Len(t, shifts, 1)

	shift := shifts[0]
	assert.Equal(t, "tiktok", shift.Target.ChannelID)
	assert.Equal(t, "meta", shift.Target.ToChannelID)
	assert.Equal(t, domain.UrgencyHigh, shift.Urgency)
	// 10% of 9000 = 900 shifted at a 1.8 ROAS differential.
	assert.InDelta(t, 900*(3.6-1.8), shift.EstimatedImpactUSD, 0.01)
}

func TestRecommend_DecayFlaggedChannelShiftsEvenWhenNeutral(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.5,
		channel("meta", domain.StatusWinner, 9000, 3.6),
		channel("tiktok", domain.StatusNeutral, 9000, 2.4),
	)
	risk := domain.RiskResult{
		Signals: []domain.RiskSignal{decaySignal("tiktok", domain.SeverityHigh)},
		Level:   domain.RiskYellow,
	}

	result := e.Recommend(attr, risk)

	found := false
	for _, a := range result.Actions {
		if a.Type == domain.ActionShiftBudget && a.Target.ChannelID == "tiktok" {
			found = true
		}
	}
	assert.True(t, found, "decay-flagged channel should be shifted even before it classifies as loser")
}

func TestRecommend_NoWinnerNoShift(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.0,
		channel("meta", domain.StatusNeutral, 5000, 2.1),
		channel("tiktok", domain.StatusLoser, 5000, 1.2),
	)

	result := e.Recommend(attr, domain.RiskResult{})
	for _, a := range result.Actions {
		assert.NotEqual(t, domain.ActionShiftBudget, a.Type, "no shift target without a winner")
	}
}

func TestRecommend_PauseCreative(t *testing.T) {
	e := NewEngine()
	attr := attrResult(2.5, channel("meta", domain.StatusNeutral, 5000, 2.5))

	tests := []struct {
		name        string
		probability float64
		wantAction  bool
		wantUrgency domain.Urgency
	}{
		{"high probability pauses urgently", 0.9, true, domain.UrgencyHigh},
		{"moderate probability pauses", 0.7, true, domain.UrgencyMedium},
		{"below floor no action", 0.55, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := domain.RiskResult{
				Signals: []domain.RiskSignal{fatigueSignal("cr-1", tt.probability, 30, 200)},
				Level:   domain.RiskYellow,
			}
			result := e.Recommend(attr, risk)

			var pause *domain.Action
			for i, a := range result.Actions {
				if a.Type == domain.ActionPauseCreative {
					pause = &result.Actions[i]
				}
			}
			if !tt.wantAction {
				assert.Nil(t, pause)
				return
			}
			require.NotNil(t, pause)
			assert.Equal(t, "cr-1", pause.Target.CreativeID)
			assert.Equal(t, tt.wantUrgency, pause.Urgency)
			// daily_spend x drop x 7 days = 200 x 0.30 x 7
			assert.InDelta(t, 420.0, pause.EstimatedImpactUSD, 0.01)
		})
	}
}

func TestRecommend_IncreaseBudgetQuota(t *testing.T) {
	e := NewEngine()

	// Three clean winners: only one increase_budget may survive selection.
	attr := attrResult(2.0,
		channel("a", domain.StatusWinner, 5000, 3.0),
		channel("b", domain.StatusWinner, 5000, 3.2),
		channel("c", domain.StatusWinner, 5000, 3.4),
	)

	result := e.Recommend(attr, domain.RiskResult{})

	increases := 0
	for _, a := range result.Actions {
		if a.Type == domain.ActionIncreaseBudget {
			increases++
		}
	}
	assert.Equal(t, 1, increases)
	// Best winner takes the slot.
	for _, a := range result.Actions {
		if a.Type == domain.ActionIncreaseBudget {
			assert.Equal(t, "c", a.Target.ChannelID)
		}
	}
}

func TestRecommend_RiskFlaggedWinnerNotIncreased(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.0, channel("meta", domain.StatusWinner, 5000, 3.0))
	risk := domain.RiskResult{
		Signals: []domain.RiskSignal{decaySignal("meta", domain.SeverityMedium)},
		Level:   domain.RiskYellow,
	}

	result := e.Recommend(attr, risk)
	for _, a := range result.Actions {
		assert.NotEqual(t, domain.ActionIncreaseBudget, a.Type)
	}
}

func TestRecommend_NeverMoreThanThreeActions(t *testing.T) {
	e := NewEngine()

	channels := []domain.ChannelSummary{channel("w", domain.StatusWinner, 9000, 4.0)}
	var signals []domain.RiskSignal
	for i := 0; i < 8; i++ {
		channels = append(channels, channel(fmt.Sprintf("loser-%d", i), domain.StatusLoser, 9000, 1.5))
		signals = append(signals, fatigueSignal(fmt.Sprintf("cr-%d", i), 0.9, 40, 300))
	}
	attr := attrResult(2.5, channels...)

	result := e.Recommend(attr, domain.RiskResult{Signals: signals, Level: domain.RiskRed})
	assert.LessOrEqual(t, len(result.Actions), 3)
}

func TestRecommend_HealthyPortfolioIsEmptySuccess(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.5,
		channel("meta", domain.StatusNeutral, 5000, 2.5),
		channel("google", domain.StatusNeutral, 5000, 2.5),
	)

	result := e.Recommend(attr, domain.RiskResult{Level: domain.RiskGreen})
	assert.Empty(t, result.Actions)
	assert.Zero(t, result.TotalPotentialUpliftUSD)
}

func TestRecommend_UpliftIsSumOfSelected(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.5,
		channel("meta", domain.StatusWinner, 9000, 3.6),
		channel("tiktok", domain.StatusLoser, 9000, 1.8),
	)
	risk := domain.RiskResult{
		Signals: []domain.RiskSignal{fatigueSignal("cr-1", 0.9, 30, 200)},
		Level:   domain.RiskYellow,
	}

	result := e.Recommend(attr, risk)
	require.NotEmpty(t, result.Actions)

	var sum float64
	for _, a := range result.Actions {
		sum += a.EstimatedImpactUSD
	}
	assert.InDelta(t, sum, result.TotalPotentialUpliftUSD, 0.0001)
}

func TestRecommend_Deterministic(t *testing.T) {
	e := NewEngine()

	attr := attrResult(2.5,
		channel("meta", domain.StatusWinner, 9000, 3.6),
		channel("google", domain.StatusLoser, 9000, 1.9),
		channel("tiktok", domain.StatusLoser, 9000, 1.9),
	)
	risk := domain.RiskResult{
		Signals: []domain.RiskSignal{
			fatigueSignal("cr-1", 0.85, 25, 150),
			fatigueSignal("cr-2", 0.85, 25, 150),
		},
		Level: domain.RiskYellow,
	}

	a, _ := json.Marshal(e.Recommend(attr, risk))
	b, _ := json.Marshal(e.Recommend(attr, risk))
	assert.Equal(t, a, b)
}
