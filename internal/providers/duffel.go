package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/config"
	"github.com/you/go-flight-offers/internal/ratelimit"
)

// Duffel searches in two steps: create an offer request, then list the
// offers attached to it. Carrier and aircraft names arrive inline on every
// segment.
type Duffel struct {
	host    string
	token   string
	version string
	client  *http.Client
	limiter *ratelimit.Limiter
	log     *zap.Logger
}

func NewDuffel(cfg *config.Config, client *http.Client, limiter *ratelimit.Limiter, log *zap.Logger) *Duffel {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	version := cfg.DuffelVersion
	if version == "" {
		version = "v2"
	}
	return &Duffel{
		host:    strings.TrimRight(cfg.DuffelHost, "/"),
		token:   cfg.DuffelToken,
		version: version,
		client:  client,
		limiter: limiter,
		log:     log.With(zap.String("provider", "duffel")),
	}
}

func (d *Duffel) Name() string {
	return ratelimit.Duffel
}

type duffelSliceRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type duffelPassengerRequest struct {
	Type string `json:"type"`
}

type duffelOfferRequest struct {
	Slices     []duffelSliceRequest     `json:"slices"`
	Passengers []duffelPassengerRequest `json:"passengers"`
	CabinClass string                   `json:"cabin_class"`
}

type duffelEnvelope[T any] struct {
	Data T `json:"data"`
}

type duffelOfferRequestCreated struct {
	ID string `json:"id"`
}

type duffelOffer struct {
	ID            string `json:"id"`
	TotalAmount   string `json:"total_amount"`
	TotalCurrency string `json:"total_currency"`
	Slices        []struct {
		Segments []duffelSegment `json:"segments"`
	} `json:"slices"`
}

type duffelSegment struct {
	DepartingAt             string                   `json:"departing_at"`
	ArrivingAt              string                   `json:"arriving_at"`
	OperatingCarrier        *duffelNamed             `json:"operating_carrier"`
	MarketingCarrier        *duffelNamed             `json:"marketing_carrier"`
	Aircraft                *duffelNamed             `json:"aircraft"`
	CabinClassMarketingName string                   `json:"cabin_class_marketing_name"`
	CabinClass              string                   `json:"cabin_class"`
	Passengers              []duffelSegmentPassenger `json:"passengers"`
}

type duffelNamed struct {
	IATACode string `json:"iata_code"`
	Name     string `json:"name"`
}

type duffelSegmentPassenger struct {
	FareBasisCode           string `json:"fare_basis_code"`
	CabinClass              string `json:"cabin_class"`
	CabinClassMarketingName string `json:"cabin_class_marketing_name"`
	Cabin                   *struct {
		Name      string `json:"name"`
		Amenities *struct {
			Seat *struct {
				Pitch string `json:"pitch"`
			} `json:"seat"`
		} `json:"amenities"`
	} `json:"cabin"`
}

func (d *Duffel) Search(ctx context.Context, q SearchQuery) ([]RawOffer, LookupContext, error) {
	if d.token == "" {
		return nil, LookupContext{}, &AuthError{Provider: d.Name(), Err: errors.New("access token missing")}
	}

	requestID, err := d.createOfferRequest(ctx, q)
	if err != nil {
		return nil, LookupContext{}, err
	}

	offers, err := d.listOffers(ctx, requestID, q.Limit)
	if err != nil {
		return nil, LookupContext{}, err
	}

	out := make([]RawOffer, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.toRaw())
	}
	d.log.Debug("offers fetched", zap.String("offer_request_id", requestID), zap.Int("offers", len(out)))
	return out, LookupContext{}, nil
}

func (d *Duffel) createOfferRequest(ctx context.Context, q SearchQuery) (string, error) {
	body, err := json.Marshal(duffelEnvelope[duffelOfferRequest]{Data: duffelOfferRequest{
		Slices: []duffelSliceRequest{
			{Origin: q.Origin, Destination: q.Destination, DepartureDate: q.Date},
		},
		Passengers: []duffelPassengerRequest{{Type: "adult"}},
		CabinClass: q.CabinClass.Lower(),
	}})
	if err != nil {
		return "", NewProviderError(d.Name(), fmt.Errorf("marshal offer request: %w", err))
	}

	if err := d.limiter.Wait(ctx, d.Name()); err != nil {
		return "", NewProviderError(d.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.host+"/air/offer_requests?return_offers=false", bytes.NewReader(body))
	if err != nil {
		return "", NewProviderError(d.Name(), fmt.Errorf("build request: %w", err))
	}
	d.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	var created duffelEnvelope[duffelOfferRequestCreated]
	if err := doJSON(d.client, req, d.Name(), &created); err != nil {
		return "", err
	}
	if created.Data.ID == "" {
		return "", NewProviderError(d.Name(), errors.New("offer request id missing from response"))
	}
	return created.Data.ID, nil
}

func (d *Duffel) listOffers(ctx context.Context, requestID string, limit int) ([]duffelOffer, error) {
	q := url.Values{}
	q.Set("offer_request_id", requestID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	if err := d.limiter.Wait(ctx, d.Name()); err != nil {
		return nil, NewProviderError(d.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.host+"/air/offers?"+q.Encode(), nil)
	if err != nil {
		return nil, NewProviderError(d.Name(), fmt.Errorf("build request: %w", err))
	}
	d.setHeaders(req)

	var resp duffelEnvelope[[]duffelOffer]
	if err := doJSON(d.client, req, d.Name(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (d *Duffel) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Duffel-Version", d.version)
	req.Header.Set("Accept", "application/json")
}

func (o duffelOffer) toRaw() RawOffer {
	raw := RawOffer{
		ID:            o.ID,
		TotalAmount:   o.TotalAmount,
		TotalCurrency: o.TotalCurrency,
		Slices:        make([]Slice, 0, len(o.Slices)),
	}
	for _, s := range o.Slices {
		segs := make([]Segment, 0, len(s.Segments))
		for _, seg := range s.Segments {
			segs = append(segs, seg.toRaw())
		}
		raw.Slices = append(raw.Slices, Slice{Segments: segs})
	}
	return raw
}

func (s duffelSegment) toRaw() Segment {
	seg := Segment{
		DepartingAt: s.DepartingAt,
		ArrivingAt:  s.ArrivingAt,
		BookingCode: firstNonEmpty(s.CabinClassMarketingName, s.CabinClass),
	}
	carrier := s.OperatingCarrier
	if carrier == nil {
		carrier = s.MarketingCarrier
	}
	if carrier != nil {
		seg.CarrierCode = carrier.IATACode
		seg.Carrier = &Descriptor{Code: carrier.IATACode, Name: carrier.Name}
	}
	if s.Aircraft != nil {
		seg.AircraftCode = s.Aircraft.IATACode
		seg.Aircraft = &Descriptor{Code: s.Aircraft.IATACode, Name: s.Aircraft.Name}
	}

	for _, p := range s.Passengers {
		sp := SegmentPassenger{FareBasisCode: p.FareBasisCode}
		if p.Cabin != nil {
			sp.Cabin = &PassengerCabin{Name: p.Cabin.Name}
			if p.Cabin.Amenities != nil {
				sp.Cabin.Amenities = &CabinAmenities{}
				if p.Cabin.Amenities.Seat != nil {
					sp.Cabin.Amenities.Seat = &SeatAmenity{Pitch: p.Cabin.Amenities.Seat.Pitch}
				}
			}
		}
		seg.Passengers = append(seg.Passengers, sp)
	}
	// the booking code usually lives on the segment passengers
	if seg.BookingCode == "" && len(s.Passengers) > 0 {
		seg.BookingCode = firstNonEmpty(s.Passengers[0].CabinClassMarketingName, s.Passengers[0].CabinClass)
	}
	return seg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
