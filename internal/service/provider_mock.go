package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/you/go-flight-offers/internal/providers"
)

type ProviderMock struct {
	name            string
	offers          []providers.RawOffer
	lookup          providers.LookupContext
	delay           time.Duration
	errorOutMessage *string
	err             error
	callCount       *int32
	lastQuery       *providers.SearchQuery
}

func (p ProviderMock) Name() string {
	return p.name
}

func (p ProviderMock) Search(ctx context.Context, q providers.SearchQuery) ([]providers.RawOffer, providers.LookupContext, error) {
	if p.callCount != nil {
		atomic.AddInt32(p.callCount, 1)
	}
	if p.lastQuery != nil {
		*p.lastQuery = q
	}
	if p.err != nil {
		return nil, providers.LookupContext{}, p.err
	}
	if p.errorOutMessage != nil {
		return nil, providers.LookupContext{}, errors.New(p.Name() + ": " + *p.errorOutMessage)
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, providers.LookupContext{}, ctx.Err()
		}
	}
	return p.offers, p.lookup, nil
}
