package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Bucket keys for the upstreams the pipeline calls.
const (
	Duffel       = "duffel"
	Amadeus      = "amadeus"
	ExchangeRate = "exchange-rate"
)

// Limit is a sustained request rate plus burst allowance. Zero fields
// inherit from the fallback limit.
type Limit struct {
	PerSecond float64
	Burst     int
}

var defaultLimit = Limit{PerSecond: 10, Burst: 20}

func (l Limit) or(fallback Limit) Limit {
	if l.PerSecond <= 0 {
		l.PerSecond = fallback.PerSecond
	}
	if l.Burst <= 0 {
		l.Burst = fallback.Burst
	}
	return l
}

// Limiter paces each upstream on its own token bucket. Upstreams without a
// configured limit get a bucket with the fallback settings on first use.
type Limiter struct {
	fallback Limit

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func New(fallback Limit, perUpstream map[string]Limit) *Limiter {
	l := &Limiter{
		fallback: fallback.or(defaultLimit),
		buckets:  make(map[string]*rate.Limiter, len(perUpstream)),
	}
	for name, lim := range perUpstream {
		lim = lim.or(l.fallback)
		l.buckets[name] = rate.NewLimiter(rate.Limit(lim.PerSecond), lim.Burst)
	}
	return l
}

func (l *Limiter) bucket(upstream string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[upstream]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.fallback.PerSecond), l.fallback.Burst)
		l.buckets[upstream] = b
	}
	return b
}

// Limit reports the pacing applied to upstream.
func (l *Limiter) Limit(upstream string) Limit {
	b := l.bucket(upstream)
	return Limit{PerSecond: float64(b.Limit()), Burst: b.Burst()}
}

// Wait blocks until upstream may be called. A nil limiter never blocks.
func (l *Limiter) Wait(ctx context.Context, upstream string) error {
	if l == nil {
		return nil
	}
	if err := l.bucket(upstream).Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", upstream, err)
	}
	return nil
}
