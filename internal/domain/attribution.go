package domain

// ChannelStatus classifies a channel's ROAS relative to the blended portfolio
// ROAS. The ±15% band is a fixed policy constant (see attribution package);
// channels with undefined ROAS are always neutral.
type ChannelStatus string

const (
	StatusWinner  ChannelStatus = "winner"
	StatusNeutral ChannelStatus = "neutral"
	StatusLoser   ChannelStatus = "loser"
)

// ChannelSummary is the truth-layer view of one channel over a window. It is
// recomputed fresh on every pipeline run and never persisted as authoritative
// state.
type ChannelSummary struct {
	ChannelID    string  `json:"channel_id"`
	TotalSpend   float64 `json:"total_spend"`
	TotalRevenue float64 `json:"total_revenue"`
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	Conversions  int64   `json:"conversions"`

	// RawROAS is nil when the channel had zero spend in the window
	// (insufficient data, not a loss).
	RawROAS *float64 `json:"raw_roas"`

	// LTVAdjustedROAS is RawROAS scaled by the cohort LTV factor. Nil
	// whenever RawROAS is nil.
	LTVAdjustedROAS *float64 `json:"ltv_adjusted_roas"`

	// LTVFactor is ltv_90d/ltv_30d averaged over the cohorts overlapping the
	// channel's conversion dates; 1.0 when no cohort data overlaps.
	LTVFactor float64 `json:"ltv_factor"`

	// Unadjusted marks summaries that fell back to LTVFactor 1.0 because no
	// cohort data overlapped the window.
	Unadjusted bool `json:"unadjusted,omitempty"`

	Status ChannelStatus `json:"status"`
}

// BlendedMetrics are the portfolio-level totals across all channels.
type BlendedMetrics struct {
	TotalSpend   float64 `json:"total_spend"`
	TotalRevenue float64 `json:"total_revenue"`

	// BlendedROAS is total revenue / total spend. Nil when nothing was spent.
	BlendedROAS *float64 `json:"blended_roas"`

	// MER is the Marketing Efficiency Ratio, total revenue / total spend
	// across all channels. Nil when nothing was spent.
	MER *float64 `json:"mer"`
}

// AttributionResult is the Attribution Engine's output: per-channel summaries
// (sorted by channel ID for determinism) plus blended portfolio metrics.
type AttributionResult struct {
	Channels []ChannelSummary `json:"channels"`
	Blended  BlendedMetrics   `json:"blended"`
}

// Channel returns the summary for a channel ID, or nil if absent.
func (a AttributionResult) Channel(channelID string) *ChannelSummary {
	for i := range a.Channels {
		if a.Channels[i].ChannelID == channelID {
			return &a.Channels[i]
		}
	}
	return nil
}
