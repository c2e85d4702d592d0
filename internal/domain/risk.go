package domain

// Severity grades an individual risk signal.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SignalType discriminates the RiskSignal tagged union.
type SignalType string

const (
	SignalCreativeFatigue SignalType = "creative_fatigue"
	SignalRoiDecay        SignalType = "roi_decay"
	SignalLtvDrift        SignalType = "ltv_drift"
)

// FatigueTrigger names which fatigue sub-signal crossed its threshold
// furthest (relative to the threshold).
type FatigueTrigger string

const (
	TriggerCVRDrop     FatigueTrigger = "cvr_drop"
	TriggerCPAIncrease FatigueTrigger = "cpa_increase"
	TriggerFrequency   FatigueTrigger = "frequency"
)

// CreativeFatigueSignal flags a creative whose recent performance indicates
// audience over-exposure.
type CreativeFatigueSignal struct {
	CreativeID string `json:"creative_id"`

	// Probability7d estimates the chance the creative fatigues within the
	// next 7 days; monotonic in how far past threshold the worst-violated
	// sub-signal is.
	Probability7d float64 `json:"probability_7d"`

	// PredictedDropPct is the expected performance drop, cvr_drop x 100 when
	// the CVR drop is the triggering signal.
	PredictedDropPct float64        `json:"predicted_drop_pct"`
	Trigger          FatigueTrigger `json:"trigger"`

	DailySpend float64 `json:"daily_spend"`
}

// RoiDecaySignal flags a channel whose recent ROAS fell materially below its
// baseline.
type RoiDecaySignal struct {
	ChannelID string  `json:"channel_id"`
	DropPct   float64 `json:"drop_pct"`
	Trend     string  `json:"trend"`
}

// LtvDriftSignal flags portfolio-wide customer-value erosion across recent
// acquisition cohorts.
type LtvDriftSignal struct {
	Status           string  `json:"status"`
	DriftPct         float64 `json:"drift_pct"`
	RecentAvgLTV90   float64 `json:"recent_avg_ltv_90d"`
	BaselineAvgLTV90 float64 `json:"baseline_avg_ltv_90d"`
}

// RiskSignal is a tagged union over the three detector outputs. Exactly one
// variant pointer is non-nil, matching Type. Signals carry no identity beyond
// the run that produced them.
type RiskSignal struct {
	Type     SignalType `json:"type"`
	Severity Severity   `json:"severity"`

	CreativeFatigue *CreativeFatigueSignal `json:"creative_fatigue,omitempty"`
	RoiDecay        *RoiDecaySignal        `json:"roi_decay,omitempty"`
	LtvDrift        *LtvDriftSignal        `json:"ltv_drift,omitempty"`
}

// GlobalRiskLevel is the single portfolio severity computed as a pure fold
// over the run's signal set. It is not a sticky alarm state.
type GlobalRiskLevel string

const (
	RiskGreen  GlobalRiskLevel = "green"
	RiskYellow GlobalRiskLevel = "yellow"
	RiskRed    GlobalRiskLevel = "red"
)

// RiskResult is the Risk Engine's output for one run.
type RiskResult struct {
	Signals []RiskSignal    `json:"signals"`
	Level   GlobalRiskLevel `json:"level"`
}

// SignalsFor returns the signals attached to a channel ID.
func (r RiskResult) SignalsFor(channelID string) []RiskSignal {
	var out []RiskSignal
	for _, s := range r.Signals {
		if s.RoiDecay != nil && s.RoiDecay.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}
