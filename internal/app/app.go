// Package app wires the search pipeline from configuration. Both the HTTP
// server and the CLI start from here.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/you/go-flight-offers/internal/config"
	"github.com/you/go-flight-offers/internal/currency"
	"github.com/you/go-flight-offers/internal/providers"
	"github.com/you/go-flight-offers/internal/ratelimit"
	"github.com/you/go-flight-offers/internal/service"
	"github.com/you/go-flight-offers/internal/timefmt"
)

func SetupLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLogLevel(level))
	return cfg.Build()
}

func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Pipeline is a ready SearchService plus whatever must be closed with it.
type Pipeline struct {
	Search *service.SearchService
	Source providers.RawOfferSource
	closer func() error
}

func (p *Pipeline) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Build constructs the upstream, the converter and the search service. A
// configured but unreachable Redis only disables the rate cache.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	limiter := ratelimit.New(
		ratelimit.Limit{PerSecond: cfg.UpstreamRPS, Burst: cfg.UpstreamBurst},
		map[string]ratelimit.Limit{
			ratelimit.Duffel:       {PerSecond: cfg.DuffelRPS},
			ratelimit.Amadeus:      {PerSecond: cfg.AmadeusRPS},
			ratelimit.ExchangeRate: {PerSecond: cfg.ExchangeRateRPS},
		},
	)

	source, err := providers.NewSource(cfg, limiter, log)
	if err != nil {
		return nil, err
	}

	clock, err := timefmt.NewFormatter(cfg.DisplayTimezone)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Source: source}
	var store currency.RateStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, exchange rates will not be cached", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = rdb.Close()
		} else {
			store = currency.NewRedisRateStore(rdb)
			p.closer = rdb.Close
		}
	}

	converter := currency.NewClient(currency.Options{
		BaseURL:  cfg.ExchangeRateURL,
		From:     cfg.SourceCurrency,
		To:       cfg.TargetCurrency,
		Timeout:  cfg.HTTPTimeout,
		Limiter:  limiter,
		Store:    store,
		StoreTTL: cfg.RateCacheTTL,
		Logger:   log,
	})

	p.Search = service.NewSearchService(source, service.NewNormalizer(converter, clock), service.Options{
		SearchTimeout: cfg.SearchTimeout,
		Workers:       cfg.NormalizeWorkers,
		DefaultLimit:  cfg.OfferLimit,
	}, log)

	log.Info("search pipeline ready",
		zap.String("provider", source.Name()),
		zap.String("pair", fmt.Sprintf("%s->%s", converter.From(), converter.To())),
		zap.Bool("rate_cache", store != nil),
		zap.Float64("provider_rps", limiter.Limit(source.Name()).PerSecond),
		zap.String("display_zone", clock.Location().String()),
	)
	return p, nil
}
