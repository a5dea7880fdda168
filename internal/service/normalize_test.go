package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/go-flight-offers/internal/providers"
	"github.com/you/go-flight-offers/internal/timefmt"
)

func newTestNormalizer(t *testing.T, conv Converter) *Normalizer {
	t.Helper()
	f, err := timefmt.NewFormatter(timefmt.DefaultZone)
	require.NoError(t, err)
	return NewNormalizer(conv, f)
}

func seg(dep, arr, carrier, booking string) providers.Segment {
	return providers.Segment{DepartingAt: dep, ArrivingAt: arr, CarrierCode: carrier, BookingCode: booking}
}

func offerWith(segs ...providers.Segment) providers.RawOffer {
	return providers.RawOffer{ID: "off", TotalAmount: "100.00", Slices: []providers.Slice{{Segments: segs}}}
}

func TestNormalizeDuffelShape(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 90.5})

	raw := offerWith(
		providers.Segment{
			DepartingAt: "2025-06-01T08:00:00Z",
			ArrivingAt:  "2025-06-01T10:00:00Z",
			CarrierCode: "BA",
			Carrier:     &providers.Descriptor{Code: "BA", Name: "British Airways"},
			Aircraft:    &providers.Descriptor{Code: "320", Name: "Airbus A320"},
			BookingCode: "J",
			Passengers: []providers.SegmentPassenger{{
				FareBasisCode: "JFLEX",
				Cabin: &providers.PassengerCabin{Amenities: &providers.CabinAmenities{
					Seat: &providers.SeatAmenity{Pitch: "31"},
				}},
			}},
		},
		seg("2025-06-01T11:30:00Z", "2025-06-01T20:45:00Z", "AA", ""),
	)

	got, err := n.Normalize(context.Background(), raw, providers.LookupContext{})
	require.NoError(t, err)
	assert.Equal(t, NormalizedOffer{
		ID:           "off",
		PriceINR:     "9050.00",
		AircraftName: "Airbus A320",
		AirlineName:  "British Airways",
		Stops:        1,
		Timings: []SegmentTiming{
			{Departure: "13:30", Arrival: "15:30"},
			{Departure: "17:00", Arrival: "02:15"},
		},
		Layovers:               []string{"1h 30m"},
		FareDescription:        `Business Class Revenue - "J"`,
		FareBasisCode:          "JFLEX",
		NumberOfSeatsAvailable: "31",
	}, got)
}

func TestNormalizeAmadeusShape(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 1})
	seats := 7
	raw := offerWith(providers.Segment{
		DepartingAt:  "2025-06-01T08:05:00",
		ArrivingAt:   "2025-06-01T16:00:00",
		CarrierCode:  "BA",
		AircraftCode: "388",
		BookingCode:  "Z",
		Passengers: []providers.SegmentPassenger{{
			FareBasisCode: "ZNC",
			Cabin:         &providers.PassengerCabin{Name: "FIRST"},
		}},
	})
	raw.BookableSeats = &seats

	got, err := n.Normalize(context.Background(), raw, providers.LookupContext{
		Aircraft: map[string]string{"388": "AIRBUS A380-800"},
		Carriers: map[string]string{"BA": "BRITISH AIRWAYS"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AIRBUS A380-800", got.AircraftName)
	assert.Equal(t, "BRITISH AIRWAYS", got.AirlineName)
	assert.Equal(t, "13:35", got.Timings[0].Departure)
	assert.Equal(t, `First Class Award - "Z"`, got.FareDescription)
	assert.Equal(t, "ZNC", got.FareBasisCode)
	assert.Equal(t, "7", got.NumberOfSeatsAvailable, "falls back to bookable seats")
	assert.Empty(t, got.Layovers)
	assert.Zero(t, got.Stops)
}

func TestNormalizeDefaults(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 90})

	// segment without carrier, aircraft, booking code or passenger data
	got, err := n.Normalize(context.Background(), offerWith(seg("2025-06-01T08:00:00Z", "2025-06-01T09:00:00Z", "", "")), providers.LookupContext{})
	require.NoError(t, err)
	assert.Equal(t, Unknown, got.AircraftName)
	assert.Equal(t, Unknown, got.AirlineName)
	assert.Equal(t, NotAvailable, got.FareDescription)
	assert.Equal(t, NotAvailable, got.FareBasisCode)
	assert.Equal(t, NotAvailable, got.NumberOfSeatsAvailable)

	// passenger without cabin amenities
	raw := offerWith(seg("2025-06-01T08:00:00Z", "2025-06-01T09:00:00Z", "XX", "Q"))
	raw.Slices[0].Segments[0].Passengers = []providers.SegmentPassenger{{Cabin: &providers.PassengerCabin{Name: "economy"}}}
	got, err = n.Normalize(context.Background(), raw, providers.LookupContext{Carriers: map[string]string{"YY": "Other"}})
	require.NoError(t, err)
	assert.Equal(t, NotAvailable, got.FareBasisCode)
	assert.Equal(t, NotAvailable, got.NumberOfSeatsAvailable)
	assert.Equal(t, "Q", got.FareDescription, "unmapped carrier passes the code through")
	assert.Equal(t, Unknown, got.AirlineName)

	// no slices at all
	got, err = n.Normalize(context.Background(), providers.RawOffer{ID: "empty"}, providers.LookupContext{})
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.PriceINR)
	assert.Zero(t, got.Stops)
	assert.NotNil(t, got.Timings)
	assert.NotNil(t, got.Layovers)
}

func TestNormalizePrice(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 89.987})

	cases := map[string]string{
		"":        "0.00",
		"abc":     "0.00",
		"-12.00":  "0.00",
		"NaN":     "0.00",
		"+Inf":    "0.00",
		"10":      "899.87",
		" 2 ":     "179.97",
		"1000.00": "89987.00",
	}
	for in, want := range cases {
		raw := providers.RawOffer{TotalAmount: in}
		got, err := n.Normalize(context.Background(), raw, providers.LookupContext{})
		require.NoError(t, err)
		assert.Equal(t, want, got.PriceINR, "amount %q", in)
	}
}

func TestNormalizePriceRoundsHalfUp(t *testing.T) {
	cases := []struct {
		rate   float64
		amount string
		want   string
	}{
		{90.5, "0.25", "22.63"},
		{1, "0.125", "0.13"},
		{1, "0.625", "0.63"},
		{1, "2.675", "2.67"},
		{1, "0.004", "0.00"},
	}
	for _, c := range cases {
		n := newTestNormalizer(t, &rateConverter{rate: c.rate})
		got, err := n.Normalize(context.Background(), providers.RawOffer{TotalAmount: c.amount}, providers.LookupContext{})
		require.NoError(t, err)
		assert.Equal(t, c.want, got.PriceINR, "%s at %v", c.amount, c.rate)
	}
}

func TestNormalizeLayovers(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 1})

	raw := offerWith(
		seg("2025-06-01T08:00:00Z", "2025-06-01T10:00:00Z", "BA", ""),
		seg("2025-06-01T09:30:00Z", "2025-06-01T11:00:00Z", "BA", ""),
		seg("garbage", "2025-06-01T18:00:00Z", "BA", ""),
		seg("2025-06-02T02:59:30Z", "2025-06-02T05:00:00Z", "BA", ""),
	)
	got, err := n.Normalize(context.Background(), raw, providers.LookupContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stops)
	assert.Len(t, got.Timings, 4)
	assert.Equal(t, NotAvailable, got.Timings[2].Departure)
	assert.Equal(t, []string{"-1h -30m", NotAvailable, "8h 59m"}, got.Layovers)
}

func TestNormalizeStopsAndLayoverCounts(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 1})

	for s := 1; s <= 6; s++ {
		segs := make([]providers.Segment, s)
		for i := range segs {
			segs[i] = seg("2025-06-01T08:00:00Z", "2025-06-01T09:00:00Z", "BA", "")
		}
		got, err := n.Normalize(context.Background(), offerWith(segs...), providers.LookupContext{})
		require.NoError(t, err)
		assert.Equal(t, s-1, got.Stops)
		assert.Len(t, got.Layovers, s-1)
		assert.Len(t, got.Timings, s)
	}
}

func TestNormalizeFirstSliceOnly(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 1})
	raw := offerWith(seg("2025-06-01T08:00:00Z", "2025-06-01T09:00:00Z", "BA", ""))
	raw.Slices = append(raw.Slices, providers.Slice{Segments: []providers.Segment{
		seg("2025-06-08T08:00:00Z", "2025-06-08T09:00:00Z", "AA", ""),
		seg("2025-06-08T10:00:00Z", "2025-06-08T11:00:00Z", "AA", ""),
	}})

	got, err := n.Normalize(context.Background(), raw, providers.LookupContext{})
	require.NoError(t, err)
	assert.Zero(t, got.Stops)
	assert.Len(t, got.Timings, 1)
}

func TestNormalizeLastBookingCodeWins(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 1})
	raw := offerWith(
		seg("2025-06-01T08:00:00Z", "2025-06-01T09:00:00Z", "BA", "J"),
		seg("2025-06-01T10:00:00Z", "2025-06-01T11:00:00Z", "IB", "Y"),
		seg("2025-06-01T12:00:00Z", "2025-06-01T13:00:00Z", "IB", ""),
	)
	got, err := n.Normalize(context.Background(), raw, providers.LookupContext{})
	require.NoError(t, err)
	// resolved against the first segment's carrier
	assert.Equal(t, `Economy Revenue - "Y"`, got.FareDescription)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer(t, &rateConverter{rate: 90.123})
	raw := offerWith(
		seg("2025-06-01T08:00:00Z", "2025-06-01T10:00:00Z", "BA", "W"),
		seg("2025-06-01T12:00:00Z", "2025-06-01T14:00:00Z", "BA", ""),
	)
	lookup := providers.LookupContext{Carriers: map[string]string{"BA": "British Airways"}}

	a, err := n.Normalize(context.Background(), raw, lookup)
	require.NoError(t, err)
	b, err := n.Normalize(context.Background(), raw, lookup)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestNormalizeConversionError(t *testing.T) {
	boom := errors.New("rate down")
	n := newTestNormalizer(t, &rateConverter{err: boom})

	_, err := n.Normalize(context.Background(), offerWith(), providers.LookupContext{})
	require.ErrorIs(t, err, boom)
}
