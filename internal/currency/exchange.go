package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/you/go-flight-offers/internal/ratelimit"
)

const upstreamName = ratelimit.ExchangeRate

// RateStore caches a fetched rate between requests.
type RateStore interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
	SetRate(ctx context.Context, from, to string, rate float64, ttl time.Duration) error
}

type Options struct {
	BaseURL  string
	From     string
	To       string
	Timeout  time.Duration
	Limiter  *ratelimit.Limiter
	Store    RateStore
	StoreTTL time.Duration
	Logger   *zap.Logger
}

// Client converts amounts between one fixed currency pair using the
// exchangerate-api "latest" endpoint.
type Client struct {
	baseURL    string
	from       string
	to         string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	store      RateStore
	storeTTL   time.Duration
	log        *zap.Logger
	group      singleflight.Group
}

func NewClient(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = "https://api.exchangerate-api.com/v4/latest"
	}
	if opts.From == "" {
		opts.From = "EUR"
	}
	if opts.To == "" {
		opts.To = "INR"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		from:       strings.ToUpper(opts.From),
		to:         strings.ToUpper(opts.To),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    opts.Limiter,
		store:      opts.Store,
		storeTTL:   opts.StoreTTL,
		log:        opts.Logger.With(zap.String("upstream", upstreamName)),
	}
}

func (c *Client) From() string { return c.from }
func (c *Client) To() string   { return c.to }

// Convert multiplies amount by the current rate.
func (c *Client) Convert(ctx context.Context, amount float64) (float64, error) {
	rate, err := c.Rate(ctx)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// Rate returns the current rate. Concurrent callers share one upstream fetch.
func (c *Client) Rate(ctx context.Context) (float64, error) {
	if c.store != nil {
		rate, err := c.store.GetRate(ctx, c.from, c.to)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, ErrRateNotFound) {
			c.log.Warn("rate cache read failed", zap.Error(err))
		}
	}

	// one caller hanging up must not fail the others sharing the fetch
	ch := c.group.DoChan(c.from+":"+c.to, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		rate, err := c.fetch(shared)
		if err != nil {
			return 0.0, err
		}
		if c.store != nil {
			if err := c.store.SetRate(shared, c.from, c.to, rate, c.storeTTL); err != nil {
				c.log.Warn("rate cache write failed", zap.Error(err))
			}
		}
		return rate, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	case <-ctx.Done():
		return 0, c.fail(0, ctx.Err())
	}
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	if err := c.limiter.Wait(ctx, upstreamName); err != nil {
		return 0, c.fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+c.from, nil)
	if err != nil {
		return 0, c.fail(0, fmt.Errorf("build request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, c.fail(resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, c.fail(0, fmt.Errorf("decode response: %w", err))
	}
	rate, ok := payload.Rates[c.to]
	if !ok {
		return 0, c.fail(0, fmt.Errorf("no %s rate in response", c.to))
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, c.fail(0, fmt.Errorf("invalid rate %v", rate))
	}

	c.log.Debug("exchange rate fetched", zap.String("from", c.from), zap.String("to", c.to), zap.Float64("rate", rate))
	return rate, nil
}

func (c *Client) fail(status int, err error) error {
	return &ConversionError{From: c.from, To: c.to, StatusCode: status, Err: err}
}
