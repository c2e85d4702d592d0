package risk

import (
	"math"
	"sort"

	"github.com/ignite/adpilot/internal/domain"
)

// Detector thresholds. Fixed policy constants; not configurable per call.
const (
	FatigueCVRDropThreshold     = 0.20
	FatigueCPAIncreaseThreshold = 0.25
	FatigueFrequencyThreshold   = 3.5

	DecayDropThreshold = 0.15
	DecayHighThreshold = 0.25

	DriftThreshold     = 0.10
	DriftHighThreshold = 0.15
)

// assumedBaselineFrequency anchors the frequency proxy: metric rows carry no
// reach, so recent ad frequency is estimated by scaling a typical baseline
// frequency by the growth in daily impressions (a stable audience sees
// proportionally more impressions as frequency rises).
const assumedBaselineFrequency = 2.0

// Probability that a flagged creative fatigues within 7 days, monotonic in
// the worst-violated sub-signal's relative excess past its threshold.
const (
	fatigueProbFloor = 0.55
	fatigueProbSlope = 0.40
	fatigueProbCap   = 0.95
)

// detectCreativeFatigue flags creatives whose recent window shows a CVR drop,
// CPA increase, or over-frequency against the baseline window. Creatives with
// fewer than minBaselinePoints baseline rows emit nothing.
func detectCreativeFatigue(records []domain.MetricRecord, w windowSplit) []domain.RiskSignal {
	recent, baseline := accumulate(records, w, func(r domain.MetricRecord) string { return r.CreativeID })

	ids := make([]string, 0, len(recent))
	for id := range recent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var signals []domain.RiskSignal
	for _, id := range ids {
		rt := recent[id]
		bt, ok := baseline[id]
		if !ok || bt.points < minBaselinePoints {
			continue // insufficient history
		}

		cvrDrop := relDrop(bt.cvr(), rt.cvr())
		cpaRise := relRise(bt.cpa(), rt.cpa())
		frequency := frequencyProxy(bt, rt)

		type violation struct {
			trigger domain.FatigueTrigger
			excess  float64
		}
		var violations []violation
		if cvrDrop != nil && *cvrDrop > FatigueCVRDropThreshold {
			violations = append(violations, violation{domain.TriggerCVRDrop, (*cvrDrop - FatigueCVRDropThreshold) / FatigueCVRDropThreshold})
		}
		if cpaRise != nil && *cpaRise > FatigueCPAIncreaseThreshold {
			violations = append(violations, violation{domain.TriggerCPAIncrease, (*cpaRise - FatigueCPAIncreaseThreshold) / FatigueCPAIncreaseThreshold})
		}
		if frequency != nil && *frequency > FatigueFrequencyThreshold {
			violations = append(violations, violation{domain.TriggerFrequency, (*frequency - FatigueFrequencyThreshold) / FatigueFrequencyThreshold})
		}
		if len(violations) == 0 {
			continue
		}

		worst := violations[0]
		for _, v := range violations[1:] {
			if v.excess > worst.excess {
				worst = v
			}
		}

		probability := math.Min(fatigueProbCap, fatigueProbFloor+fatigueProbSlope*worst.excess)

		dropPct := 0.0
		if cvrDrop != nil && *cvrDrop > 0 {
			dropPct = *cvrDrop * 100
		}

		severity := domain.SeverityMedium
		if probability > 0.8 {
			severity = domain.SeverityHigh
		}

		signals = append(signals, domain.RiskSignal{
			Type:     domain.SignalCreativeFatigue,
			Severity: severity,
			CreativeFatigue: &domain.CreativeFatigueSignal{
				CreativeID:       id,
				Probability7d:    probability,
				PredictedDropPct: dropPct,
				Trigger:          worst.trigger,
				DailySpend:       rt.spend / recentWindowDays,
			},
		})
	}
	return signals
}

// frequencyProxy estimates recent ad frequency from impression growth. Nil
// when the baseline served no impressions.
func frequencyProxy(baseline, recent *entityTotals) *float64 {
	baseDaily := float64(baseline.impressions) / baselineWindowDays
	recentDaily := float64(recent.impressions) / recentWindowDays
	if baseDaily == 0 {
		return nil
	}
	v := assumedBaselineFrequency * recentDaily / baseDaily
	return &v
}

// detectRoiDecay flags channels whose recent ROAS fell more than 15% below
// the baseline window's ROAS.
func detectRoiDecay(records []domain.MetricRecord, w windowSplit) []domain.RiskSignal {
	recent, baseline := accumulate(records, w, func(r domain.MetricRecord) string { return r.ChannelID })

	ids := make([]string, 0, len(recent))
	for id := range recent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var signals []domain.RiskSignal
	for _, id := range ids {
		rt := recent[id]
		bt, ok := baseline[id]
		if !ok || bt.points < minBaselinePoints {
			continue // insufficient history
		}

		drop := relDrop(bt.roas(), rt.roas())
		if drop == nil || *drop <= DecayDropThreshold {
			continue
		}

		severity := domain.SeverityMedium
		if *drop > DecayHighThreshold {
			severity = domain.SeverityHigh
		}

		signals = append(signals, domain.RiskSignal{
			Type:     domain.SignalRoiDecay,
			Severity: severity,
			RoiDecay: &domain.RoiDecaySignal{
				ChannelID: id,
				DropPct:   *drop * 100,
				Trend:     "declining",
			},
		})
	}
	return signals
}

// detectLtvDrift compares the mean 90-day LTV of the most recent 3 cohort
// months against the prior 3-6 months. Fewer than 3 baseline months emits
// nothing.
func detectLtvDrift(cohorts []domain.CohortRecord) []domain.RiskSignal {
	if len(cohorts) < driftRecentMonths+minDriftBaselineMonths {
		return nil
	}

	sorted := make([]domain.CohortRecord, len(cohorts))
	copy(sorted, cohorts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CohortMonth < sorted[j].CohortMonth })

	recent := sorted[len(sorted)-driftRecentMonths:]
	baseline := sorted[:len(sorted)-driftRecentMonths]
	if len(baseline) > driftMaxBaselineMonths {
		baseline = baseline[len(baseline)-driftMaxBaselineMonths:]
	}

	baseAvg := meanLTV90(baseline)
	recentAvg := meanLTV90(recent)
	if baseAvg == 0 {
		return nil // undefined baseline, skip
	}

	drift := (baseAvg - recentAvg) / baseAvg
	if drift <= DriftThreshold {
		return nil
	}

	severity := domain.SeverityMedium
	if drift > DriftHighThreshold {
		severity = domain.SeverityHigh
	}

	return []domain.RiskSignal{{
		Type:     domain.SignalLtvDrift,
		Severity: severity,
		LtvDrift: &domain.LtvDriftSignal{
			Status:           "declining",
			DriftPct:         drift * 100,
			RecentAvgLTV90:   recentAvg,
			BaselineAvgLTV90: baseAvg,
		},
	}}
}

func meanLTV90(cohorts []domain.CohortRecord) float64 {
	if len(cohorts) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cohorts {
		sum += c.LTV90
	}
	return sum / float64(len(cohorts))
}
