package domain

import "time"

// ActionType enumerates the corrective actions the decision layer can
// recommend. Actions are recommendations, not commands; applying them is an
// external concern.
type ActionType string

const (
	ActionShiftBudget    ActionType = "shift_budget"
	ActionPauseCreative  ActionType = "pause_creative"
	ActionIncreaseBudget ActionType = "increase_budget"
)

// Urgency grades how quickly an action should be applied.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ActionTarget references the channel and/or creative an action applies to.
// ToChannelID is set only for shift_budget (the destination channel).
type ActionTarget struct {
	ChannelID   string `json:"channel_id,omitempty"`
	ToChannelID string `json:"to_channel_id,omitempty"`
	CreativeID  string `json:"creative_id,omitempty"`
}

// Action is one ranked corrective recommendation.
type Action struct {
	Type               ActionType   `json:"action_type"`
	Target             ActionTarget `json:"target"`
	EstimatedImpactUSD float64      `json:"estimated_impact_usd"`
	Urgency            Urgency      `json:"urgency"`
	Rationale          string       `json:"rationale"`
	Score              float64      `json:"score"`
}

// RecommendationResult is the Decision Layer's output: at most three ranked
// actions and their summed expected uplift. An empty list means a healthy
// portfolio, not an error.
type RecommendationResult struct {
	Actions                 []Action `json:"actions"`
	TotalPotentialUpliftUSD float64  `json:"total_potential_uplift_usd"`
}

// PipelineResult is the combined output of one attribution -> risk ->
// recommendation run. It is the sole externally visible contract of the
// pipeline.
type PipelineResult struct {
	RunID           string               `json:"run_id"`
	OrganizationID  string               `json:"organization_id"`
	Window          DateRange            `json:"window"`
	Attribution     AttributionResult    `json:"attribution"`
	Risk            RiskResult           `json:"risk"`
	Recommendations RecommendationResult `json:"recommendations"`
	GeneratedAt     time.Time            `json:"generated_at"`
}
