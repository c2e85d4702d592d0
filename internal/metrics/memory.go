package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ignite/adpilot/internal/domain"
)

// MemoryRepository is an in-memory metrics store for tests and local
// development. Safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string][]domain.MetricRecord // keyed by org ID
	cohorts map[string][]domain.CohortRecord
}

// NewMemoryRepository creates an empty in-memory metrics store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string][]domain.MetricRecord),
		cohorts: make(map[string][]domain.CohortRecord),
	}
}

// AddMetrics appends daily rows for an organization.
func (r *MemoryRepository) AddMetrics(orgID string, records ...domain.MetricRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[orgID] = append(r.records[orgID], records...)
}

// AddCohorts appends cohort rows for an organization.
func (r *MemoryRepository) AddCohorts(orgID string, cohorts ...domain.CohortRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cohorts[orgID] = append(r.cohorts[orgID], cohorts...)
}

// MetricsForWindow implements Repository.
func (r *MemoryRepository) MetricsForWindow(_ context.Context, orgID string, window domain.DateRange) ([]domain.MetricRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.MetricRecord
	for _, rec := range r.records[orgID] {
		if window.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CohortsForWindow implements Repository.
func (r *MemoryRepository) CohortsForWindow(_ context.Context, orgID string, window domain.DateRange) ([]domain.CohortRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	earliest := window.End.AddDate(0, -CohortLookbackMonths, 0).Format("2006-01")
	latest := window.End.Format("2006-01")

	var out []domain.CohortRecord
	for _, c := range r.cohorts[orgID] {
		if c.CohortMonth >= earliest && c.CohortMonth <= latest {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CohortMonth < out[j].CohortMonth })
	return out, nil
}

// Day is a fixture helper returning midnight UTC for a date string
// ("2006-01-02"). Panics on bad input; fixtures only.
func Day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
