package service

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/you/go-flight-offers/internal/fareclass"
	"github.com/you/go-flight-offers/internal/providers"
	"github.com/you/go-flight-offers/internal/timefmt"
)

const (
	Unknown      = "Unknown"
	NotAvailable = timefmt.NotAvailable
)

type SegmentTiming struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
}

// NormalizedOffer is the provider-independent view of one offer.
type NormalizedOffer struct {
	ID                     string          `json:"id"`
	PriceINR               string          `json:"priceINR"`
	AircraftName           string          `json:"aircraftName"`
	AirlineName            string          `json:"airlineName"`
	Stops                  int             `json:"stops"`
	Timings                []SegmentTiming `json:"timings"`
	Layovers               []string        `json:"layovers"`
	FareDescription        string          `json:"fareDescription"`
	FareBasisCode          string          `json:"fareBasisCode"`
	NumberOfSeatsAvailable string          `json:"numberOfSeatsAvailable"`
}

type Converter interface {
	Convert(ctx context.Context, amount float64) (float64, error)
}

// Normalizer turns RawOffers into NormalizedOffers. The only I/O it does
// is the currency conversion.
type Normalizer struct {
	converter Converter
	clock     *timefmt.Formatter
}

func NewNormalizer(converter Converter, clock *timefmt.Formatter) *Normalizer {
	return &Normalizer{converter: converter, clock: clock}
}

func (n *Normalizer) Normalize(ctx context.Context, raw providers.RawOffer, lookup providers.LookupContext) (NormalizedOffer, error) {
	converted, err := n.converter.Convert(ctx, parsePrice(raw.TotalAmount))
	if err != nil {
		return NormalizedOffer{}, err
	}
	if converted < 0 || math.IsNaN(converted) || math.IsInf(converted, 0) {
		converted = 0
	}

	out := NormalizedOffer{
		ID:                     raw.ID,
		PriceINR:               formatPrice(converted),
		AircraftName:           Unknown,
		AirlineName:            Unknown,
		Timings:                []SegmentTiming{},
		Layovers:               []string{},
		FareDescription:        NotAvailable,
		FareBasisCode:          NotAvailable,
		NumberOfSeatsAvailable: NotAvailable,
	}

	// return legs are not rendered
	if len(raw.Slices) == 0 || len(raw.Slices[0].Segments) == 0 {
		out.NumberOfSeatsAvailable = seatsFallback(out.NumberOfSeatsAvailable, raw.BookableSeats)
		return out, nil
	}
	segments := raw.Slices[0].Segments
	first := segments[0]

	out.Stops = len(segments) - 1
	out.AircraftName = aircraftName(first, lookup)
	out.AirlineName = airlineName(first, lookup)

	carrier := first.CarrierCode
	for _, seg := range segments {
		out.Timings = append(out.Timings, SegmentTiming{
			Departure: n.clock.ClockString(seg.DepartingAt),
			Arrival:   n.clock.ClockString(seg.ArrivingAt),
		})
		if seg.BookingCode != "" {
			out.FareDescription = fareclass.Resolve(carrier, seg.BookingCode)
		}
		if len(seg.Passengers) > 0 {
			p := seg.Passengers[0]
			out.FareBasisCode = orDefault(p.FareBasisCode, NotAvailable)
			out.NumberOfSeatsAvailable = orDefault(seatPitch(p), NotAvailable)
		}
	}
	out.NumberOfSeatsAvailable = seatsFallback(out.NumberOfSeatsAvailable, raw.BookableSeats)

	for i := 0; i+1 < len(segments); i++ {
		out.Layovers = append(out.Layovers, timefmt.LayoverBetween(segments[i].ArrivingAt, segments[i+1].DepartingAt))
	}
	return out, nil
}

// parsePrice reads an upstream total; anything that is not a finite,
// non-negative number counts as 0.
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func aircraftName(seg providers.Segment, lookup providers.LookupContext) string {
	if seg.Aircraft != nil && seg.Aircraft.Name != "" {
		return seg.Aircraft.Name
	}
	code := seg.AircraftCode
	if code == "" && seg.Aircraft != nil {
		code = seg.Aircraft.Code
	}
	if name, ok := lookup.AircraftName(code); ok {
		return name
	}
	return Unknown
}

func airlineName(seg providers.Segment, lookup providers.LookupContext) string {
	if seg.Carrier != nil && seg.Carrier.Name != "" {
		return seg.Carrier.Name
	}
	if name, ok := lookup.CarrierName(seg.CarrierCode); ok {
		return name
	}
	return Unknown
}

func seatPitch(p providers.SegmentPassenger) string {
	if p.Cabin == nil || p.Cabin.Amenities == nil || p.Cabin.Amenities.Seat == nil {
		return ""
	}
	return p.Cabin.Amenities.Seat.Pitch
}

func seatsFallback(current string, bookable *int) string {
	if current != NotAvailable || bookable == nil {
		return current
	}
	return strconv.Itoa(*bookable)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// formatPrice renders two decimals, rounding ties away from zero.
func formatPrice(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}
