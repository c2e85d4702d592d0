// Package pipeline sequences the three insight engines — attribution, risk,
// recommendation — over one immutable input snapshot, with per-(org, window)
// result caching and per-stage latency budgets.
//
// Callers receive either a complete result or a typed error, never a result
// silently missing a stage.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/adpilot/internal/attribution"
	"github.com/ignite/adpilot/internal/domain"
	"github.com/ignite/adpilot/internal/export"
	"github.com/ignite/adpilot/internal/metrics"
	"github.com/ignite/adpilot/internal/pkg/distlock"
	"github.com/ignite/adpilot/internal/pkg/logger"
	"github.com/ignite/adpilot/internal/recommend"
	"github.com/ignite/adpilot/internal/risk"
)

// Config holds orchestrator tuning. Stage budgets bound latency, not
// correctness; the engines themselves are pure.
type Config struct {
	// CacheTTL bounds how long a (org, window) result is served from cache.
	CacheTTL time.Duration

	// RiskBudget bounds the risk detector fan-out.
	RiskBudget time.Duration

	// RecommendBudget bounds the recommendation stage (target <=300ms).
	RecommendBudget time.Duration
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.RiskBudget <= 0 {
		c.RiskBudget = 250 * time.Millisecond
	}
	if c.RecommendBudget <= 0 {
		c.RecommendBudget = 300 * time.Millisecond
	}
	return c
}

// Orchestrator runs the attribution → risk → recommendation chain. Runs for
// different organizations are independent and may execute concurrently; all
// state lives in the supplied snapshot and the immutable result cache.
type Orchestrator struct {
	repo  metrics.Repository
	cache Cache
	cfg   Config

	attribution *attribution.Engine
	risk        *risk.Engine
	recommend   *recommend.Engine

	archiver export.Archiver    // optional
	locks    *distlock.Provider // optional
	now      func() time.Time
}

// runLockTTL bounds how long a crashed replica can hold a run lock. Runs
// finish in well under a second; the margin covers archival and GC pauses.
const runLockTTL = 30 * time.Second

// runLockRecheck is how long a contended run waits before re-checking the
// cache for the other holder's result.
const runLockRecheck = 150 * time.Millisecond

// New creates an orchestrator. cache may be nil to disable result caching.
func New(repo metrics.Repository, cache Cache, cfg Config) *Orchestrator {
	return &Orchestrator{
		repo:        repo,
		cache:       cache,
		cfg:         cfg.withDefaults(),
		attribution: attribution.NewEngine(),
		risk:        risk.NewEngine(),
		recommend:   recommend.NewEngine(),
		now:         time.Now,
	}
}

// SetArchiver enables best-effort result archival after uncached runs.
func (o *Orchestrator) SetArchiver(a export.Archiver) { o.archiver = a }

// SetLockProvider enables advisory run locks so that replicas racing on a
// cold cache do not all recompute the same window.
func (o *Orchestrator) SetLockProvider(p *distlock.Provider) { o.locks = p }

// Run executes the full pipeline for one organization and window.
func (o *Orchestrator) Run(ctx context.Context, orgID string, window domain.DateRange) (*domain.PipelineResult, error) {
	if orgID == "" {
		return nil, ErrMissingOrganization
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	key := cacheKey(orgID, window)
	if cached := o.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	if o.locks != nil {
		lock := o.locks.Lock("run:"+key, runLockTTL)
		acquired, err := lock.Acquire(ctx)
		switch {
		case err != nil:
			// Lock backend trouble never blocks a run.
			logger.Warn("run lock acquire failed", "key", key, "error", err)
		case acquired:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("run lock release failed", "key", key, "error", err)
				}
			}()
		default:
			// Another replica is computing this window. Give it a moment and
			// take its result if it lands; otherwise compute redundantly.
			select {
			case <-time.After(runLockRecheck):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if cached := o.fromCache(ctx, key); cached != nil {
				return cached, nil
			}
		}
	}

	records, err := o.repo.MetricsForWindow(ctx, orgID, window)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &InsufficientDataError{OrgID: orgID, Window: window}
	}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, err
		}
	}

	cohorts, err := o.repo.CohortsForWindow(ctx, orgID, window)
	if err != nil {
		return nil, err
	}

	// Strict downstream order: each stage's output feeds the next.
	attr := o.attribution.Compute(records, cohorts)

	riskResult, err := o.runRisk(ctx, records, cohorts, window)
	if err != nil {
		return nil, err
	}

	recs, err := o.runRecommend(ctx, attr, riskResult)
	if err != nil {
		return nil, err
	}

	result := &domain.PipelineResult{
		RunID:           uuid.New().String(),
		OrganizationID:  orgID,
		Window:          window,
		Attribution:     attr,
		Risk:            riskResult,
		Recommendations: recs,
		GeneratedAt:     o.now().UTC(),
	}

	o.toCache(ctx, key, result)
	o.archive(result)
	return result, nil
}

func (o *Orchestrator) runRisk(ctx context.Context, records []domain.MetricRecord, cohorts []domain.CohortRecord, window domain.DateRange) (domain.RiskResult, error) {
	riskCtx, cancel := context.WithTimeout(ctx, o.cfg.RiskBudget)
	defer cancel()

	result, err := o.risk.Detect(riskCtx, records, cohorts, window)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.RiskResult{}, &StageTimeoutError{Stage: "risk", Budget: o.cfg.RiskBudget}
		}
		return domain.RiskResult{}, err
	}
	return result, nil
}

// runRecommend bounds the pure recommendation computation with the stage
// budget. On timeout the in-flight computation finishes in the background
// and is discarded.
func (o *Orchestrator) runRecommend(ctx context.Context, attr domain.AttributionResult, riskResult domain.RiskResult) (domain.RecommendationResult, error) {
	done := make(chan domain.RecommendationResult, 1)
	go func() { done <- o.recommend.Recommend(attr, riskResult) }()

	timer := time.NewTimer(o.cfg.RecommendBudget)
	defer timer.Stop()

	select {
	case recs := <-done:
		return recs, nil
	case <-timer.C:
		return domain.RecommendationResult{}, &StageTimeoutError{Stage: "recommendation", Budget: o.cfg.RecommendBudget}
	case <-ctx.Done():
		return domain.RecommendationResult{}, ctx.Err()
	}
}

func (o *Orchestrator) fromCache(ctx context.Context, key string) *domain.PipelineResult {
	if o.cache == nil {
		return nil
	}
	payload, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("pipeline cache read failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var result domain.PipelineResult
	if err := json.Unmarshal(payload, &result); err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten.
		logger.Warn("pipeline cache entry corrupt", "key", key, "error", err)
		return nil
	}
	return &result
}

func (o *Orchestrator) toCache(ctx context.Context, key string, result *domain.PipelineResult) {
	if o.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		logger.Warn("pipeline result marshal failed", "key", key, "error", err)
		return
	}
	if err := o.cache.Set(ctx, key, payload, o.cfg.CacheTTL); err != nil {
		logger.Warn("pipeline cache write failed", "key", key, "error", err)
	}
}

func (o *Orchestrator) archive(result *domain.PipelineResult) {
	if o.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := o.archiver.Archive(ctx, result); err != nil {
			logger.Warn("pipeline result archival failed",
				"org", result.OrganizationID, "window", result.Window.String(), "error", err)
		}
	}()
}
