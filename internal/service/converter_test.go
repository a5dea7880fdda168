package service

import (
	"context"
	"sync/atomic"
	"time"
)

// rateConverter multiplies by a fixed rate, optionally failing or blocking.
type rateConverter struct {
	rate    float64
	err     error
	delay   time.Duration
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *rateConverter) Convert(ctx context.Context, amount float64) (float64, error) {
	c.calls.Add(1)
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if c.err != nil {
		return 0, c.err
	}
	return amount * c.rate, nil
}
