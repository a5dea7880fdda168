package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/config"
	"github.com/you/go-flight-offers/internal/ratelimit"
)

const (
	amadeusAuthPath   = "/v1/security/oauth2/token"
	amadeusSearchPath = "/v2/shopping/flight-offers"
	amadeusMaxResults = 250
)

// AmadeusTokenSource runs the client-credentials grant.
type AmadeusTokenSource struct {
	host   string
	id     string
	secret string
	client *http.Client
	now    func() time.Time
}

func NewAmadeusTokenSource(cfg *config.Config, client *http.Client) *AmadeusTokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &AmadeusTokenSource{
		host:   strings.TrimRight(cfg.AmadeusURL, "/"),
		id:     cfg.AmadeusClientId,
		secret: cfg.AmadeusClientSecret,
		client: client,
		now:    time.Now,
	}
}

func (s *AmadeusTokenSource) FetchToken(ctx context.Context) (Token, error) {
	if s.id == "" || s.secret == "" {
		return Token{}, &AuthError{Provider: "amadeus", Err: errors.New("client credentials missing")}
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", s.id)
	data.Set("client_secret", s.secret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+amadeusAuthPath, strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, &AuthError{Provider: "amadeus", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return Token{}, &AuthError{Provider: "amadeus", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Token{}, &AuthError{
			Provider:   "amadeus",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("%w: %s", errUnexpectedStatus, resp.Status),
		}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, &AuthError{Provider: "amadeus", Err: fmt.Errorf("decode token: %w", err)}
	}
	if tr.AccessToken == "" {
		return Token{}, &AuthError{Provider: "amadeus", Err: errors.New("empty access token")}
	}
	return Token{
		Value:     tr.AccessToken,
		ExpiresAt: s.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

// Amadeus returns whole itineraries with code-only segments; carrier and
// aircraft names come from the response dictionaries.
type Amadeus struct {
	host    string
	client  *http.Client
	creds   *CredentialCache
	limiter *ratelimit.Limiter
	log     *zap.Logger
}

func NewAmadeus(cfg *config.Config, client *http.Client, creds *CredentialCache, limiter *ratelimit.Limiter, log *zap.Logger) *Amadeus {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	if creds == nil {
		creds = NewCredentialCache(NewAmadeusTokenSource(cfg, client), cfg.TokenRefreshSkew)
	}
	return &Amadeus{
		host:    strings.TrimRight(cfg.AmadeusURL, "/"),
		client:  client,
		creds:   creds,
		limiter: limiter,
		log:     log.With(zap.String("provider", "amadeus")),
	}
}

func (a *Amadeus) Name() string { return ratelimit.Amadeus }

type amadeusResponse struct {
	Data         []amadeusOffer `json:"data"`
	Dictionaries struct {
		Aircraft map[string]string `json:"aircraft"`
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

type amadeusOffer struct {
	ID                    string `json:"id"`
	NumberOfBookableSeats *int   `json:"numberOfBookableSeats"`
	Price                 struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
	Itineraries []struct {
		Segments []amadeusSegment `json:"segments"`
	} `json:"itineraries"`
	TravelerPricings []struct {
		FareDetailsBySegment []amadeusFareDetail `json:"fareDetailsBySegment"`
	} `json:"travelerPricings"`
}

type amadeusSegment struct {
	ID        string `json:"id"`
	Departure struct {
		At string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		At string `json:"at"`
	} `json:"arrival"`
	CarrierCode string `json:"carrierCode"`
	Operating   *struct {
		CarrierCode string `json:"carrierCode"`
	} `json:"operating"`
	Aircraft struct {
		Code string `json:"code"`
	} `json:"aircraft"`
}

type amadeusFareDetail struct {
	SegmentID string `json:"segmentId"`
	Cabin     string `json:"cabin"`
	FareBasis string `json:"fareBasis"`
	Class     string `json:"class"`
}

func (a *Amadeus) Search(ctx context.Context, q SearchQuery) ([]RawOffer, LookupContext, error) {
	tok, err := a.creds.AccessToken(ctx)
	if err != nil {
		return nil, LookupContext{}, err
	}

	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.Date)
	params.Set("adults", "1")
	params.Set("travelClass", string(q.CabinClass))
	params.Set("currencyCode", "EUR")
	if q.Limit > 0 {
		params.Set("max", strconv.Itoa(min(q.Limit, amadeusMaxResults)))
	}

	if err := a.limiter.Wait(ctx, a.Name()); err != nil {
		return nil, LookupContext{}, NewProviderError(a.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.host+amadeusSearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, LookupContext{}, NewProviderError(a.Name(), fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	var payload amadeusResponse
	if err := doJSON(a.client, req, a.Name(), &payload); err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusUnauthorized {
			a.log.Warn("token rejected, dropping cached credentials")
			a.creds.Invalidate()
		}
		return nil, LookupContext{}, err
	}

	out := make([]RawOffer, 0, len(payload.Data))
	for _, o := range payload.Data {
		out = append(out, o.toRaw())
	}
	a.log.Debug("offers fetched", zap.Int("offers", len(out)))
	return out, LookupContext{
		Aircraft: payload.Dictionaries.Aircraft,
		Carriers: payload.Dictionaries.Carriers,
	}, nil
}

func (o amadeusOffer) toRaw() RawOffer {
	// fare details of the first traveler, keyed by segment id
	details := map[string]amadeusFareDetail{}
	if len(o.TravelerPricings) > 0 {
		for _, fd := range o.TravelerPricings[0].FareDetailsBySegment {
			details[fd.SegmentID] = fd
		}
	}

	raw := RawOffer{
		ID:            o.ID,
		TotalAmount:   o.Price.Total,
		TotalCurrency: o.Price.Currency,
		BookableSeats: o.NumberOfBookableSeats,
		Slices:        make([]Slice, 0, len(o.Itineraries)),
	}
	for _, it := range o.Itineraries {
		segs := make([]Segment, 0, len(it.Segments))
		for _, s := range it.Segments {
			carrier := s.CarrierCode
			if s.Operating != nil && s.Operating.CarrierCode != "" {
				carrier = s.Operating.CarrierCode
			}
			seg := Segment{
				DepartingAt:  s.Departure.At,
				ArrivingAt:   s.Arrival.At,
				CarrierCode:  carrier,
				AircraftCode: s.Aircraft.Code,
			}
			if fd, ok := details[s.ID]; ok {
				seg.BookingCode = fd.Class
				seg.Passengers = []SegmentPassenger{{
					FareBasisCode: fd.FareBasis,
					Cabin:         &PassengerCabin{Name: fd.Cabin},
				}}
			}
			segs = append(segs, seg)
		}
		raw.Slices = append(raw.Slices, Slice{Segments: segs})
	}
	return raw
}
