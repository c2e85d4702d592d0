// Package attribution implements the truth layer: reconciled, LTV-adjusted
// channel profitability computed fresh from a window of metric rows.
package attribution

import (
	"sort"

	"github.com/ignite/adpilot/internal/domain"
)

// Classification band around blended ROAS. These are fixed policy constants,
// not tunables; changing them changes classification semantics system-wide.
const (
	WinnerBand = 1.15
	LoserBand  = 0.85
)

// Engine computes per-channel summaries and blended portfolio metrics. It is
// stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates an attribution engine.
func NewEngine() *Engine { return &Engine{} }

// channelTotals accumulates raw sums for one channel before summarization.
type channelTotals struct {
	spend       float64
	revenue     float64
	impressions int64
	clicks      int64
	conversions int64

	// Months (YYYY-MM) in which the channel recorded conversions, used to
	// select the overlapping LTV cohorts.
	conversionMonths map[string]bool
}

// Compute builds the attribution result for a window of records. It is a pure
// function of its inputs: identical windows yield identical results.
func (e *Engine) Compute(records []domain.MetricRecord, cohorts []domain.CohortRecord) domain.AttributionResult {
	totals := make(map[string]*channelTotals)
	for _, rec := range records {
		ct, ok := totals[rec.ChannelID]
		if !ok {
			ct = &channelTotals{conversionMonths: make(map[string]bool)}
			totals[rec.ChannelID] = ct
		}
		ct.spend += rec.Spend
		ct.revenue += rec.Revenue
		ct.impressions += rec.Impressions
		ct.clicks += rec.Clicks
		ct.conversions += rec.Conversions
		if rec.Conversions > 0 {
			ct.conversionMonths[rec.Date.Format("2006-01")] = true
		}
	}

	blended := blendedMetrics(totals)

	channels := make([]domain.ChannelSummary, 0, len(totals))
	for channelID, ct := range totals {
		summary := domain.ChannelSummary{
			ChannelID:    channelID,
			TotalSpend:   ct.spend,
			TotalRevenue: ct.revenue,
			Impressions:  ct.impressions,
			Clicks:       ct.clicks,
			Conversions:  ct.conversions,
			RawROAS:      domain.Ratio(ct.revenue, ct.spend),
		}

		summary.LTVFactor, summary.Unadjusted = ltvFactor(ct.conversionMonths, cohorts)
		if summary.RawROAS != nil {
			adjusted := *summary.RawROAS * summary.LTVFactor
			summary.LTVAdjustedROAS = &adjusted
		}
		summary.Status = classify(summary.LTVAdjustedROAS, blended.BlendedROAS)

		channels = append(channels, summary)
	}

	sort.Slice(channels, func(i, j int) bool { return channels[i].ChannelID < channels[j].ChannelID })

	return domain.AttributionResult{Channels: channels, Blended: blended}
}

func blendedMetrics(totals map[string]*channelTotals) domain.BlendedMetrics {
	// Sum in sorted channel order so float rounding never depends on map
	// iteration order; identical inputs must yield byte-identical output.
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var spend, revenue float64
	for _, id := range ids {
		spend += totals[id].spend
		revenue += totals[id].revenue
	}
	return domain.BlendedMetrics{
		TotalSpend:   spend,
		TotalRevenue: revenue,
		BlendedROAS:  domain.Ratio(revenue, spend),
		MER:          domain.Ratio(revenue, spend),
	}
}

// ltvFactor averages ltv_90d/ltv_30d over the cohorts whose month overlaps
// the channel's conversion months. Returns (1.0, true) when no usable cohort
// overlaps, which marks the summary as unadjusted.
func ltvFactor(conversionMonths map[string]bool, cohorts []domain.CohortRecord) (factor float64, unadjusted bool) {
	var sum float64
	var n int
	for _, c := range cohorts {
		if !conversionMonths[c.CohortMonth] {
			continue
		}
		if c.LTV30 == 0 {
			// Zero-baseline LTV ratio is undefined; skip the cohort rather
			// than poison the factor.
			continue
		}
		sum += c.LTV90 / c.LTV30
		n++
	}
	if n == 0 {
		return 1.0, true
	}
	return sum / float64(n), false
}

// classify places a channel relative to blended ROAS. Undefined channel or
// blended ROAS always classifies as neutral: absence of evidence is never a
// loss.
func classify(channelROAS, blendedROAS *float64) domain.ChannelStatus {
	if channelROAS == nil || blendedROAS == nil {
		return domain.StatusNeutral
	}
	switch {
	case *channelROAS > *blendedROAS*WinnerBand:
		return domain.StatusWinner
	case *channelROAS < *blendedROAS*LoserBand:
		return domain.StatusLoser
	default:
		return domain.StatusNeutral
	}
}
