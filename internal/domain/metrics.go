package domain

import (
	"fmt"
	"time"
)

// MetricRecord is one day of performance for a (channel, campaign, creative)
// tuple, as supplied by the metrics store. Records are immutable once
// ingested; every derived entity in the pipeline is a pure function of a
// window of these rows.
type MetricRecord struct {
	Date        time.Time `json:"date"`
	ChannelID   string    `json:"channel_id"`
	CampaignID  string    `json:"campaign_id"`
	CreativeID  string    `json:"creative_id"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Spend       float64   `json:"spend"`
	Conversions int64     `json:"conversions"`
	Revenue     float64   `json:"revenue"`
}

// Validate checks the non-negativity constraints on a raw row.
func (m MetricRecord) Validate() error {
	if m.ChannelID == "" {
		return fmt.Errorf("metric record %s: channel_id is required", m.Date.Format("2006-01-02"))
	}
	if m.Impressions < 0 || m.Clicks < 0 || m.Conversions < 0 {
		return fmt.Errorf("metric record %s/%s: negative counts", m.ChannelID, m.Date.Format("2006-01-02"))
	}
	if m.Spend < 0 || m.Revenue < 0 {
		return fmt.Errorf("metric record %s/%s: negative monetary values", m.ChannelID, m.Date.Format("2006-01-02"))
	}
	return nil
}

// CTR is clicks/impressions. Undefined (nil) when there are no impressions.
func (m MetricRecord) CTR() *float64 { return Ratio(float64(m.Clicks), float64(m.Impressions)) }

// CPC is spend/clicks. Undefined (nil) when there are no clicks.
func (m MetricRecord) CPC() *float64 { return Ratio(m.Spend, float64(m.Clicks)) }

// CVR is conversions/clicks. Undefined (nil) when there are no clicks.
func (m MetricRecord) CVR() *float64 { return Ratio(float64(m.Conversions), float64(m.Clicks)) }

// CPA is spend/conversions. Undefined (nil) when there are no conversions.
func (m MetricRecord) CPA() *float64 { return Ratio(m.Spend, float64(m.Conversions)) }

// CohortRecord is the lifetime value of one acquisition cohort, measured at
// the 30- and 90-day horizons. Month uses the sortable "2006-01" format.
type CohortRecord struct {
	CohortMonth string  `json:"cohort_month"`
	LTV30       float64 `json:"ltv_30d"`
	LTV90       float64 `json:"ltv_90d"`
}

// Validate checks the non-negativity and month-format constraints.
func (c CohortRecord) Validate() error {
	if _, err := time.Parse("2006-01", c.CohortMonth); err != nil {
		return fmt.Errorf("cohort %q: month must be YYYY-MM", c.CohortMonth)
	}
	if c.LTV30 < 0 || c.LTV90 < 0 {
		return fmt.Errorf("cohort %s: negative LTV", c.CohortMonth)
	}
	return nil
}

// DateRange is an inclusive [Start, End] day window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks that the range is non-empty and ordered.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("date range: start and end are required")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("date range: end %s before start %s",
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

// Days returns the inclusive length of the range in days.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether t falls inside the range (by day).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End.Add(24*time.Hour-time.Nanosecond))
}

// String renders the range as "2006-01-02..2006-01-02", the canonical form
// used in cache keys and archive paths.
func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// Ratio returns num/den, or nil when the denominator is zero. Zero-denominator
// ratios are "insufficient data", never 0 and never an error; callers must
// treat a nil ratio as absence of evidence.
func Ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// Float64 is a convenience for building *float64 literals in tests and
// fixtures.
func Float64(v float64) *float64 { return &v }
