package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRatio(t *testing.T) {
	v := Ratio(10, 4)
	require.NotNil(t, v)
	assert.Equal(t, 2.5, *v)

	assert.Nil(t, Ratio(10, 0), "zero denominator is undefined, not zero")
	assert.Nil(t, Ratio(0, 0))

	zero := Ratio(0, 5)
	require.NotNil(t, zero)
	assert.Equal(t, 0.0, *zero, "zero numerator is a real zero")
}

func TestMetricRecord_DerivedMetrics(t *testing.T) {
	m := MetricRecord{Impressions: 10000, Clicks: 200, Conversions: 10, Spend: 100, Revenue: 360}

	assert.Equal(t, 0.02, *m.CTR())
	assert.Equal(t, 0.5, *m.CPC())
	assert.Equal(t, 0.05, *m.CVR())
	assert.Equal(t, 10.0, *m.CPA())
}

func TestMetricRecord_UndefinedMetrics(t *testing.T) {
	m := MetricRecord{Impressions: 0, Clicks: 0, Conversions: 0, Spend: 50}

	assert.Nil(t, m.CTR())
	assert.Nil(t, m.CPC())
	assert.Nil(t, m.CVR())
	assert.Nil(t, m.CPA())
}

func TestMetricRecord_Validate(t *testing.T) {
	valid := MetricRecord{Date: day("2026-03-01"), ChannelID: "meta", Impressions: 100, Spend: 10, Revenue: 20}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		rec  MetricRecord
	}{
		{"missing channel", MetricRecord{Date: day("2026-03-01")}},
		{"negative clicks", MetricRecord{ChannelID: "meta", Clicks: -1}},
		{"negative spend", MetricRecord{ChannelID: "meta", Spend: -0.01}},
		{"negative revenue", MetricRecord{ChannelID: "meta", Revenue: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.rec.Validate())
		})
	}
}

func TestCohortRecord_Validate(t *testing.T) {
	assert.NoError(t, CohortRecord{CohortMonth: "2026-01", LTV30: 40, LTV90: 60}.Validate())
	assert.Error(t, CohortRecord{CohortMonth: "January 2026"}.Validate())
	assert.Error(t, CohortRecord{CohortMonth: "2026-01", LTV30: -1}.Validate())
}

func TestDateRange(t *testing.T) {
	r := DateRange{Start: day("2026-01-01"), End: day("2026-03-31")}

	assert.NoError(t, r.Validate())
	assert.Equal(t, 90, r.Days())
	assert.Equal(t, "2026-01-01..2026-03-31", r.String())

	assert.True(t, r.Contains(day("2026-01-01")))
	assert.True(t, r.Contains(day("2026-03-31")))
	assert.False(t, r.Contains(day("2026-04-01")))
	assert.False(t, r.Contains(day("2025-12-31")))

	single := DateRange{Start: day("2026-03-01"), End: day("2026-03-01")}
	assert.Equal(t, 1, single.Days())

	assert.Error(t, DateRange{}.Validate())
	assert.Error(t, DateRange{Start: day("2026-03-31"), End: day("2026-01-01")}.Validate())
}
