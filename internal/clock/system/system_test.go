package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after), "got %v", got)
}

func TestClockTruncatesToPrecision(t *testing.T) {
	t.Parallel()

	got := WithPrecision(time.Second).Now()
	require.Zero(t, got.Nanosecond())

	require.Zero(t, New().Now().Nanosecond()%int(time.Millisecond))
}

func TestNilClockStillWorks(t *testing.T) {
	t.Parallel()

	var clk *Clock
	require.False(t, clk.Now().IsZero())
}
