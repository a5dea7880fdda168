package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type TokenFetcher interface {
	FetchToken(ctx context.Context) (Token, error)
}

// CredentialCache hands out a bearer token and refreshes it shortly before
// it expires. Concurrent callers share a single refresh.
type CredentialCache struct {
	fetcher TokenFetcher
	skew    time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	token Token
	group singleflight.Group
}

func NewCredentialCache(f TokenFetcher, skew time.Duration) *CredentialCache {
	if skew < 0 {
		skew = 0
	}
	return &CredentialCache{fetcher: f, skew: skew, now: time.Now}
}

func (c *CredentialCache) AccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if c.valid(tok) {
		return tok.Value, nil
	}

	// the refresh outlives any one caller; each caller still gives up on its own ctx
	ch := c.group.DoChan("token", func() (any, error) {
		// a caller that queued behind the previous refresh may find it done
		c.mu.RLock()
		cur := c.token
		c.mu.RUnlock()
		if c.valid(cur) {
			return cur.Value, nil
		}

		fresh, err := c.fetcher.FetchToken(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		return fresh.Value, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token, e.g. after the upstream rejected it.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}

func (c *CredentialCache) valid(t Token) bool {
	return t.Value != "" && c.now().Before(t.ExpiresAt.Add(-c.skew))
}
