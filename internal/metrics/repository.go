// Package metrics defines the read-only metrics store the pipeline consumes:
// per-day performance rows and per-cohort LTV rows for an organization and
// date range. The pipeline never writes through this interface; rows are
// immutable once ingested.
package metrics

import (
	"context"

	"github.com/ignite/adpilot/internal/domain"
)

// CohortLookbackMonths bounds how far back cohort rows are fetched relative
// to the window end. The drift detector needs at most 3 recent + 6 baseline
// months; a 12-month lookback leaves headroom without unbounded scans.
const CohortLookbackMonths = 12

// Repository supplies the immutable input snapshot for one pipeline run.
// Implementations live in repository/postgres (production) and in this
// package (in-memory, for tests and local development).
type Repository interface {
	// MetricsForWindow returns all daily rows for the organization inside
	// the inclusive window, in no guaranteed order.
	MetricsForWindow(ctx context.Context, orgID string, window domain.DateRange) ([]domain.MetricRecord, error)

	// CohortsForWindow returns the LTV cohorts whose month falls within
	// CohortLookbackMonths of the window end, oldest first.
	CohortsForWindow(ctx context.Context, orgID string, window domain.DateRange) ([]domain.CohortRecord, error)
}
