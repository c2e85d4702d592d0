package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adpilot/internal/domain"
	"github.com/ignite/adpilot/internal/metrics"
	"github.com/ignite/adpilot/internal/pkg/distlock"
)

const testOrg = "org-1"

var testWindow = domain.DateRange{Start: metrics.Day("2026-01-01"), End: metrics.Day("2026-03-31")}

// seedScenario loads 90 days of synthetic data for three channels:
//   - meta: stable ROAS 3.6 (winner)
//   - google: stable ROAS 2.35 (neutral)
//   - tiktok: ROAS 2.35 collapsing to 1.9 over the last week (loser + decay)
func seedScenario(repo *metrics.MemoryRepository) {
	dailyRevenue := func(channel string, date string) float64 {
		switch channel {
		case "meta":
			return 360
		case "google":
			return 235
		default:
			if date >= "2026-03-25" {
				return 190
			}
			return 235
		}
	}

	for d := testWindow.Start; !d.After(testWindow.End); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		for _, channel := range []string{"meta", "google", "tiktok"} {
			repo.AddMetrics(testOrg, domain.MetricRecord{
				Date:        d,
				ChannelID:   channel,
				CampaignID:  "camp-" + channel,
				CreativeID:  "cr-" + channel,
				Impressions: 10000,
				Clicks:      200,
				Conversions: 10,
				Spend:       100,
				Revenue:     dailyRevenue(channel, date),
			})
		}
	}
}

func TestRun_ThreeChannelScenario(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)
	o := New(repo, nil, Config{})

	result, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)

	// Truth layer
	assert.Equal(t, domain.StatusWinner, result.Attribution.Channel("meta").Status)
	assert.Equal(t, domain.StatusNeutral, result.Attribution.Channel("google").Status)
	assert.Equal(t, domain.StatusLoser, result.Attribution.Channel("tiktok").Status)

	// Prediction layer: one ROI decay signal on the collapsing channel.
	require.Len(t, result.Risk.Signals, 1)
	decay := result.Risk.Signals[0]
	assert.Equal(t, domain.SignalRoiDecay, decay.Type)
	require.NotNil(t, decay.RoiDecay)
	assert.Equal(t, "tiktok", decay.RoiDecay.ChannelID)
	assert.Equal(t, domain.RiskYellow, result.Risk.Level)

	// Decision layer: exactly one shift_budget, tiktok -> meta.
	var shifts []domain.Action
	for _, a := range result.Recommendations.Actions {
		if a.Type == domain.ActionShiftBudget {
			shifts = append(shifts, a)
		}
	}
	require.Len(t, shifts, 1)
	assert.Equal(t, "tiktok", shifts[0].Target.ChannelID)
	assert.Equal(t, "meta", shifts[0].Target.ToChannelID)

	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestRun_FatiguedCreativeScenario(t *testing.T) {
	repo := metrics.NewMemoryRepository()

	// A single creative with CVR falling 0.08 -> 0.05 between baseline and
	// recent windows, at frequency proxy 3.2.
	for d := metrics.Day("2026-03-04"); !d.After(metrics.Day("2026-03-24")); d = d.AddDate(0, 0, 1) {
		repo.AddMetrics(testOrg, domain.MetricRecord{
			Date: d, ChannelID: "meta", CampaignID: "c1", CreativeID: "cr-tired",
			Impressions: 20000, Clicks: 1000, Conversions: 80, Spend: 500, Revenue: 1250,
		})
	}
	for d := metrics.Day("2026-03-25"); !d.After(metrics.Day("2026-03-31")); d = d.AddDate(0, 0, 1) {
		repo.AddMetrics(testOrg, domain.MetricRecord{
			Date: d, ChannelID: "meta", CampaignID: "c1", CreativeID: "cr-tired",
			Impressions: 32000, Clicks: 1000, Conversions: 50, Spend: 312.5, Revenue: 780,
		})
	}

	o := New(repo, nil, Config{})
	window := domain.DateRange{Start: metrics.Day("2026-03-04"), End: metrics.Day("2026-03-31")}

	result, err := o.Run(context.Background(), testOrg, window)
	require.NoError(t, err)

	require.Len(t, result.Risk.Signals, 1)
	fatigue := result.Risk.Signals[0].CreativeFatigue
	require.NotNil(t, fatigue)
	assert.Equal(t, "cr-tired", fatigue.CreativeID)
	assert.Greater(t, fatigue.Probability7d, 0.6)

	var pause *domain.Action
	for i, a := range result.Recommendations.Actions {
		if a.Type == domain.ActionPauseCreative {
			pause = &result.Recommendations.Actions[i]
		}
	}
	require.NotNil(t, pause, "fatigued creative must surface a pause in the top-3")
	assert.Equal(t, "cr-tired", pause.Target.CreativeID)
}

func TestRun_EmptyWindowInsufficientData(t *testing.T) {
	o := New(metrics.NewMemoryRepository(), nil, Config{})

	_, err := o.Run(context.Background(), testOrg, testWindow)
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, testOrg, insufficient.OrgID)
	assert.False(t, IsRetriable(err), "insufficient data does not retry itself away")
}

func TestRun_RequestValidation(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)
	o := New(repo, nil, Config{})

	_, err := o.Run(context.Background(), "", testWindow)
	assert.ErrorIs(t, err, ErrMissingOrganization)

	_, err = o.Run(context.Background(), testOrg, domain.DateRange{
		Start: metrics.Day("2026-03-31"),
		End:   metrics.Day("2026-01-01"),
	})
	assert.Error(t, err)
}

func TestRun_IdempotentWithoutCache(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)
	o := New(repo, nil, Config{})

	first, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)

	// The pure chain is idempotent; only run metadata differs.
	assert.NotEqual(t, first.RunID, second.RunID)
	for name, pair := range map[string][2]any{
		"attribution":     {first.Attribution, second.Attribution},
		"risk":            {first.Risk, second.Risk},
		"recommendations": {first.Recommendations, second.Recommendations},
	} {
		a, _ := json.Marshal(pair[0])
		b, _ := json.Marshal(pair[1])
		assert.Equal(t, a, b, "stage %s must be byte-identical across runs", name)
	}
}

func TestRun_CachedResultIsServedVerbatim(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	o := New(repo, NewRedisCache(client), Config{})

	first, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)
	second, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)

	// A cache hit returns the stored result, run ID and timestamp included.
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, a, b)

	// Expiry recomputes: a fresh run ID proves the entry aged out.
	mr.FastForward(o.cfg.CacheTTL * 2)
	third, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, third.RunID)
}

func TestRun_DifferentWindowsDoNotShareCache(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)
	o := New(repo, NewMemoryCache(), Config{})

	full, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)

	march := domain.DateRange{Start: metrics.Day("2026-03-01"), End: metrics.Day("2026-03-31")}
	partial, err := o.Run(context.Background(), testOrg, march)
	require.NoError(t, err)

	assert.NotEqual(t, full.RunID, partial.RunID)
	assert.NotEqual(t, full.Window, partial.Window)
}

type recordingArchiver struct {
	archived chan *domain.PipelineResult
}

func (r *recordingArchiver) Archive(_ context.Context, result *domain.PipelineResult) error {
	r.archived <- result
	return nil
}

func TestRun_ArchivesUncachedRuns(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)
	o := New(repo, nil, Config{})

	archiver := &recordingArchiver{archived: make(chan *domain.PipelineResult, 1)}
	o.SetArchiver(archiver)

	result, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)

	archived := <-archiver.archived
	assert.Equal(t, result.RunID, archived.RunID)
}

func TestRun_ContendedLockStillCompletes(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	o := New(repo, NewRedisCache(client), Config{})
	provider := distlock.NewProvider(client, nil)
	o.SetLockProvider(provider)

	// Hold the run lock as if another replica were mid-computation. The lock
	// is advisory: the contended run re-checks the cache, then computes.
	held := provider.Lock("run:"+cacheKey(testOrg, testWindow), time.Minute)
	ok, err := held.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	result, err := o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
}

func TestRun_LockReleasedAfterRun(t *testing.T) {
	repo := metrics.NewMemoryRepository()
	seedScenario(repo)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	o := New(repo, nil, Config{})
	provider := distlock.NewProvider(client, nil)
	o.SetLockProvider(provider)

	_, err = o.Run(context.Background(), testOrg, testWindow)
	require.NoError(t, err)

	// The run lock must be free again once the run returns.
	lock := provider.Lock("run:"+cacheKey(testOrg, testWindow), time.Minute)
	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStageTimeoutErrorIsRetriable(t *testing.T) {
	err := error(&StageTimeoutError{Stage: "risk"})
	assert.True(t, IsRetriable(err))

	var timeout *StageTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.True(t, timeout.Retriable())
}
