package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterWaitEnforcesRate(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://test.com"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://test.com/other"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterDifferentHostsIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.com/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.com/1"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterHostOverride(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0, HostRPS: map[string]float64{"Slow.com": 5}})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://slow.com/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://slow.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestLimiterPenalizeDelaysNextWait(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	l.Penalize("https://busy.com/x", 100*time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "https://busy.com/y"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterPenalizeHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	l.Penalize("https://busy.com", time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, l.Wait(ctx, "https://busy.com"), context.DeadlineExceeded)
}

func TestLimiterBlocksAfterThresholdAndExpires(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	l := New(Config{BlockThreshold: 2, BlockTTL: time.Minute})
	l.now = func() time.Time { return now }

	require.False(t, l.MarkRefused("https://wall.com/a"))
	require.False(t, l.IsBlocked("https://wall.com/b"))
	require.True(t, l.MarkRefused("https://wall.com/c"))
	require.True(t, l.IsBlocked("https://WALL.com/d"))
	require.False(t, l.IsBlocked("https://other.com"))

	now = now.Add(2 * time.Minute)
	require.False(t, l.IsBlocked("https://wall.com/d"))
}
