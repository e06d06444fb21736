package limiter

import (
	"testing"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type countingProbe struct {
	ready bool
	calls int
}

func (p *countingProbe) IsReady(domain.Category) bool {
	p.calls++
	return p.ready
}

func newTestLimiter(policies map[domain.Category]domain.Policy) (*Limiter, *clock.ManualClock) {
	clk := clock.NewManual(start)
	return NewLimiter(Config{Enabled: true, Policies: policies}, clk), clk
}

func TestLimiter_Status(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name       string
		enabled    bool
		policy     domain.Policy
		records    int
		elapsed    time.Duration
		ready      bool
		wantStatus domain.Status
		wantProbed bool
	}{
		{
			name:       "fresh category",
			enabled:    true,
			policy:     domain.Policy{DailyLimit: 5, SessionLimit: 2, CooldownSeconds: 30},
			ready:      true,
			wantStatus: domain.StatusAvailable,
			wantProbed: true,
		}, {
			name:       "disabled",
			enabled:    false,
			policy:     domain.Policy{DailyLimit: 5},
			ready:      true,
			wantStatus: domain.StatusDisabled,
		}, {
			name:       "daily exhausted",
			enabled:    true,
			policy:     domain.Policy{DailyLimit: 2},
			records:    2,
			ready:      true,
			wantStatus: domain.StatusDailyExhausted,
		}, {
			name:       "session exhausted",
			enabled:    true,
			policy:     domain.Policy{DailyLimit: 10, SessionLimit: 1},
			records:    1,
			ready:      true,
			wantStatus: domain.StatusSessionExhausted,
		}, {
			name:       "no session policy",
			enabled:    true,
			policy:     domain.Policy{DailyLimit: 100},
			records:    50,
			ready:      true,
			wantStatus: domain.StatusAvailable,
			wantProbed: true,
		}, {
			name:       "cooling",
			enabled:    true,
			policy:     domain.Policy{CooldownSeconds: 60},
			records:    1,
			elapsed:    59 * time.Second,
			ready:      true,
			wantStatus: domain.StatusCooling,
		}, {
			name:       "cooldown elapsed",
			enabled:    true,
			policy:     domain.Policy{CooldownSeconds: 60},
			records:    1,
			elapsed:    60 * time.Second,
			ready:      true,
			wantStatus: domain.StatusAvailable,
			wantProbed: true,
		}, {
			name:       "provider not ready",
			enabled:    true,
			policy:     domain.Policy{},
			ready:      false,
			wantStatus: domain.StatusProviderNotReady,
			wantProbed: true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			clk := clock.NewManual(start)
			l := NewLimiter(Config{
				Enabled:  tc.enabled,
				Policies: map[domain.Category]domain.Policy{domain.CategoryRewardedVideo: tc.policy},
			}, clk)
			for range tc.records {
				l.RecordFulfillment(domain.CategoryRewardedVideo)
			}
			clk.Advance(tc.elapsed)

			probe := &countingProbe{ready: tc.ready}
			assert.Equal(t, tc.wantStatus, l.Status(domain.CategoryRewardedVideo, probe))
			assert.Equal(t, tc.wantProbed, probe.calls > 0)
		})
	}
}

func TestLimiter_CooldownBoundary(t *testing.T) {
	t.Parallel()

	l, clk := newTestLimiter(map[domain.Category]domain.Policy{
		domain.CategoryInterstitial: {CooldownSeconds: 120},
	})
	probe := ProbeFunc(func(domain.Category) bool { return true })

	assert.Equal(t, time.Duration(0), l.TimeUntilAvailable(domain.CategoryInterstitial))

	l.RecordFulfillment(domain.CategoryInterstitial)
	assert.Equal(t, 120*time.Second, l.TimeUntilAvailable(domain.CategoryInterstitial))

	clk.Advance(119 * time.Second)
	assert.False(t, l.IsAvailable(domain.CategoryInterstitial, probe))
	assert.Equal(t, time.Second, l.TimeUntilAvailable(domain.CategoryInterstitial))

	clk.Advance(time.Second)
	assert.True(t, l.IsAvailable(domain.CategoryInterstitial, probe))
	assert.Equal(t, time.Duration(0), l.TimeUntilAvailable(domain.CategoryInterstitial))

	clk.Advance(time.Hour)
	assert.Equal(t, time.Duration(0), l.TimeUntilAvailable(domain.CategoryInterstitial))
}

func TestLimiter_Acquire(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(map[domain.Category]domain.Policy{
		domain.CategoryRewardedVideo: {DailyLimit: 3},
	})
	probe := ProbeFunc(func(domain.Category) bool { return true })

	for i := 1; i <= 3; i++ {
		status, ok := l.Acquire(domain.CategoryRewardedVideo, probe)
		require.True(t, ok)
		assert.Equal(t, domain.StatusAvailable, status)

		stats := l.Snapshot()
		assert.Equal(t, i, stats.Count(domain.CategoryRewardedVideo))
		assert.Equal(t, "2026-10-19", stats.Date)
	}

	status, ok := l.Acquire(domain.CategoryRewardedVideo, probe)
	assert.False(t, ok)
	assert.Equal(t, domain.StatusDailyExhausted, status)
	assert.Equal(t, 3, l.UsedToday(domain.CategoryRewardedVideo))
	assert.Equal(t, 0, l.RemainingToday(domain.CategoryRewardedVideo))
}

func TestLimiter_DayRollover(t *testing.T) {
	t.Parallel()

	l, clk := newTestLimiter(map[domain.Category]domain.Policy{
		domain.CategoryRewardedVideo: {DailyLimit: 2, SessionLimit: 5},
	})
	probe := ProbeFunc(func(domain.Category) bool { return true })

	l.RecordFulfillment(domain.CategoryRewardedVideo)
	l.RecordFulfillment(domain.CategoryRewardedVideo)
	assert.Equal(t, domain.StatusDailyExhausted, l.Status(domain.CategoryRewardedVideo, probe))

	clk.Advance(24 * time.Hour)
	assert.Equal(t, domain.StatusAvailable, l.Status(domain.CategoryRewardedVideo, probe))
	assert.Equal(t, 0, l.UsedToday(domain.CategoryRewardedVideo))
	assert.Equal(t, 2, l.Usage(domain.CategoryRewardedVideo).SessionCount)
	assert.Equal(t, "2026-10-20", l.Snapshot().Date)
}

func TestLimiter_Restore(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(map[domain.Category]domain.Policy{
		domain.CategoryRewardedVideo: {DailyLimit: 20},
	})

	l.Restore(domain.DailyStats{
		Date:   "2026-10-18",
		Counts: map[domain.Category]int{domain.CategoryRewardedVideo: 7},
	})
	assert.Equal(t, 0, l.UsedToday(domain.CategoryRewardedVideo))

	l.Restore(domain.DailyStats{
		Date: "2026-10-19",
		Counts: map[domain.Category]int{
			domain.CategoryRewardedVideo: 7,
			domain.Category("unknown"):   3,
		},
	})
	assert.Equal(t, 7, l.UsedToday(domain.CategoryRewardedVideo))
	assert.Equal(t, 13, l.RemainingToday(domain.CategoryRewardedVideo))
	assert.Equal(t, 0, l.Usage(domain.CategoryRewardedVideo).SessionCount)
	assert.NotContains(t, l.Snapshot().Counts, domain.Category("unknown"))
}

func TestLimiter_Unbounded(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(nil)
	probe := ProbeFunc(func(domain.Category) bool { return true })

	for range 100 {
		_, ok := l.Acquire(domain.CategoryBanner, probe)
		require.True(t, ok)
	}
	assert.Equal(t, domain.Unlimited, l.RemainingToday(domain.CategoryBanner))
	assert.Equal(t, 100, l.UsedToday(domain.CategoryBanner))
}
