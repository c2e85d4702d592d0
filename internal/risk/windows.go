package risk

import (
	"time"

	"github.com/ignite/adpilot/internal/domain"
)

// Detection windows: every detector compares the last 7 days of the requested
// range against the 21 days immediately before them.
const (
	recentWindowDays   = 7
	baselineWindowDays = 21
)

// Minimum history before a detector may fire. Below these, the detector emits
// nothing rather than a false positive.
const (
	minBaselinePoints      = 7
	minDriftBaselineMonths = 3
	driftRecentMonths      = 3
	driftMaxBaselineMonths = 6
)

// windowSplit anchors the recent/baseline comparison windows on the end of
// the requested range, so the same request always produces the same split.
type windowSplit struct {
	recent   domain.DateRange
	baseline domain.DateRange
}

func splitWindow(end time.Time) windowSplit {
	recentStart := end.AddDate(0, 0, -(recentWindowDays - 1))
	return windowSplit{
		recent: domain.DateRange{Start: recentStart, End: end},
		baseline: domain.DateRange{
			Start: recentStart.AddDate(0, 0, -baselineWindowDays),
			End:   recentStart.AddDate(0, 0, -1),
		},
	}
}

// entityTotals accumulates one side of a recent/baseline comparison for a
// channel or creative.
type entityTotals struct {
	points      int
	impressions int64
	clicks      int64
	conversions int64
	spend       float64
	revenue     float64
}

func (t *entityTotals) add(rec domain.MetricRecord) {
	t.points++
	t.impressions += rec.Impressions
	t.clicks += rec.Clicks
	t.conversions += rec.Conversions
	t.spend += rec.Spend
	t.revenue += rec.Revenue
}

func (t *entityTotals) cvr() *float64 {
	return domain.Ratio(float64(t.conversions), float64(t.clicks))
}

func (t *entityTotals) cpa() *float64 {
	return domain.Ratio(t.spend, float64(t.conversions))
}

func (t *entityTotals) roas() *float64 {
	return domain.Ratio(t.revenue, t.spend)
}

// accumulate splits records by the comparison windows and groups them by the
// given key. Records outside both windows are ignored.
func accumulate(records []domain.MetricRecord, w windowSplit, key func(domain.MetricRecord) string) (recent, baseline map[string]*entityTotals) {
	recent = make(map[string]*entityTotals)
	baseline = make(map[string]*entityTotals)
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		switch {
		case w.recent.Contains(rec.Date):
			get(recent, k).add(rec)
		case w.baseline.Contains(rec.Date):
			get(baseline, k).add(rec)
		}
	}
	return recent, baseline
}

func get(m map[string]*entityTotals, k string) *entityTotals {
	t, ok := m[k]
	if !ok {
		t = &entityTotals{}
		m[k] = t
	}
	return t
}

// relDrop is (baseline-recent)/baseline, nil when either side is undefined or
// the baseline is zero. A nil drop is absence of evidence and never fires a
// detector.
func relDrop(baseline, recent *float64) *float64 {
	if baseline == nil || recent == nil || *baseline == 0 {
		return nil
	}
	v := (*baseline - *recent) / *baseline
	return &v
}

// relRise is (recent-baseline)/baseline with the same undefined semantics as
// relDrop.
func relRise(baseline, recent *float64) *float64 {
	if baseline == nil || recent == nil || *baseline == 0 {
		return nil
	}
	v := (*recent - *baseline) / *baseline
	return &v
}
