package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWait_NilLimiterNeverBlocks(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.Wait(context.Background(), Duffel))
}

func TestWait_SeparateBucketsPerUpstream(t *testing.T) {
	l := New(Limit{PerSecond: 1, Burst: 1}, nil)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, Duffel))
	// a different upstream has its own full bucket
	require.NoError(t, l.Wait(ctx, ExchangeRate))
}

func TestWait_HonoursContextWhenBucketEmpty(t *testing.T) {
	l := New(Limit{PerSecond: 0.1, Burst: 1}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, Amadeus))
	err := l.Wait(ctx, Amadeus)
	require.ErrorContains(t, err, "amadeus rate limit")
}

func TestNew_PerUpstreamLimits(t *testing.T) {
	l := New(Limit{PerSecond: 5, Burst: 8}, map[string]Limit{
		Amadeus:      {PerSecond: 10},
		ExchangeRate: {PerSecond: 1, Burst: 2},
	})

	require.Equal(t, Limit{PerSecond: 10, Burst: 8}, l.Limit(Amadeus))
	require.Equal(t, Limit{PerSecond: 1, Burst: 2}, l.Limit(ExchangeRate))
	require.Equal(t, Limit{PerSecond: 5, Burst: 8}, l.Limit(Duffel))
}

func TestNew_FillsDefaults(t *testing.T) {
	l := New(Limit{}, map[string]Limit{Duffel: {}})
	require.Equal(t, defaultLimit, l.fallback)
	require.Equal(t, defaultLimit, l.Limit(Duffel))
}
