package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/you/go-flight-offers/internal/providers"
)

type SearchResult struct {
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	TravelDate  string            `json:"travel_date"`
	CabinClass  string            `json:"cabin_class"`
	Offers      []NormalizedOffer `json:"offers"`
}

type Options struct {
	SearchTimeout time.Duration
	Workers       int
	DefaultLimit  int
}

// SearchService runs one search against the configured upstream and
// normalizes every offer it returns.
type SearchService struct {
	source     providers.RawOfferSource
	normalizer *Normalizer
	opts       Options
	log        *zap.Logger
}

func NewSearchService(source providers.RawOfferSource, normalizer *Normalizer, opts Options, log *zap.Logger) *SearchService {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchService{source: source, normalizer: normalizer, opts: opts, log: log}
}

// Run validates req, queries the upstream and normalizes the offers with at
// most opts.Workers conversions in flight. The first failure aborts the
// whole search; no partial result is returned.
func (s *SearchService) Run(ctx context.Context, req SearchRequest) (SearchResult, error) {
	q, err := req.Query(s.opts.DefaultLimit)
	if err != nil {
		return SearchResult{}, err
	}

	if s.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SearchTimeout)
		defer cancel()
	}

	log := s.log.With(
		zap.String("op", "search"),
		zap.String("provider", s.source.Name()),
		zap.String("origin", q.Origin),
		zap.String("destination", q.Destination),
		zap.String("date", q.Date),
		zap.String("cabin", string(q.CabinClass)),
	)
	start := time.Now()

	raw, lookup, err := s.source.Search(ctx, q)
	if err != nil {
		log.Warn("upstream search failed", zap.Error(err))
		return SearchResult{}, err
	}

	offers := make([]NormalizedOffer, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, r := range raw {
		g.Go(func() error {
			o, err := s.normalizer.Normalize(gctx, r, lookup)
			if err != nil {
				return err
			}
			offers[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("normalization failed", zap.Error(err))
		return SearchResult{}, err
	}

	filtered := FilterByAirline(offers, req.Airline)
	log.Info("search done",
		zap.Int("offers", len(raw)),
		zap.Int("returned", len(filtered)),
		zap.Duration("took", time.Since(start)),
	)

	return SearchResult{
		Origin:      q.Origin,
		Destination: q.Destination,
		TravelDate:  q.Date,
		CabinClass:  string(q.CabinClass),
		Offers:      filtered,
	}, nil
}
