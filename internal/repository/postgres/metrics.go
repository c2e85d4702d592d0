// Package postgres implements repository interfaces against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/adpilot/internal/domain"
	"github.com/ignite/adpilot/internal/metrics"
)

// MetricsRepo implements metrics.Repository against PostgreSQL. Rows live in
// ad_metrics_daily and ltv_cohorts, both written by the ingestion side and
// read-only here.
type MetricsRepo struct{ db *sql.DB }

// NewMetricsRepo creates a Postgres-backed metrics repository.
func NewMetricsRepo(db *sql.DB) *MetricsRepo { return &MetricsRepo{db: db} }

// MetricsForWindow returns the organization's daily rows inside the window.
func (r *MetricsRepo) MetricsForWindow(ctx context.Context, orgID string, window domain.DateRange) ([]domain.MetricRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, channel_id, campaign_id, creative_id,
		       impressions, clicks, spend, conversions, revenue
		FROM ad_metrics_daily
		WHERE organization_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, channel_id, campaign_id, creative_id
	`, orgID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query metrics window: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricRecord
	for rows.Next() {
		var rec domain.MetricRecord
		if err := rows.Scan(&rec.Date, &rec.ChannelID, &rec.CampaignID, &rec.CreativeID,
			&rec.Impressions, &rec.Clicks, &rec.Spend, &rec.Conversions, &rec.Revenue); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CohortsForWindow returns LTV cohorts within the lookback ending at the
// window end, oldest first.
func (r *MetricsRepo) CohortsForWindow(ctx context.Context, orgID string, window domain.DateRange) ([]domain.CohortRecord, error) {
	earliest := window.End.AddDate(0, -metrics.CohortLookbackMonths, 0).Format("2006-01")
	latest := window.End.Format("2006-01")

	rows, err := r.db.QueryContext(ctx, `
		SELECT cohort_month, ltv_30d, ltv_90d
		FROM ltv_cohorts
		WHERE organization_id = $1 AND cohort_month BETWEEN $2 AND $3
		ORDER BY cohort_month
	`, orgID, earliest, latest)
	if err != nil {
		return nil, fmt.Errorf("query ltv cohorts: %w", err)
	}
	defer rows.Close()

	var out []domain.CohortRecord
	for rows.Next() {
		var c domain.CohortRecord
		if err := rows.Scan(&c.CohortMonth, &c.LTV30, &c.LTV90); err != nil {
			return nil, fmt.Errorf("scan cohort row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
