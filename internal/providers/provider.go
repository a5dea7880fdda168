package providers

import (
	"context"
	"strings"
)

type CabinClass string

const (
	Economy        CabinClass = "ECONOMY"
	PremiumEconomy CabinClass = "PREMIUM_ECONOMY"
	Business       CabinClass = "BUSINESS"
	First          CabinClass = "FIRST"
)

func (c CabinClass) Valid() bool {
	switch c {
	case Economy, PremiumEconomy, Business, First:
		return true
	}
	return false
}

// Lower is the form Duffel expects, e.g. premium_economy.
func (c CabinClass) Lower() string { return strings.ToLower(string(c)) }

type SearchQuery struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD
	CabinClass  CabinClass
	Limit       int
}

// RawOffer is one upstream offer, kept close to the provider payload.
// Optional upstream data stays optional here: nil pointers and empty strings
// mean the provider did not send the field.
type RawOffer struct {
	ID            string
	TotalAmount   string
	TotalCurrency string
	BookableSeats *int
	Slices        []Slice
}

type Slice struct {
	Segments []Segment
}

type Segment struct {
	DepartingAt  string
	ArrivingAt   string
	CarrierCode  string
	Carrier      *Descriptor
	AircraftCode string
	Aircraft     *Descriptor
	BookingCode  string
	Passengers   []SegmentPassenger
}

// Descriptor is an inline code/name pair sent on the segment itself.
type Descriptor struct {
	Code string
	Name string
}

type SegmentPassenger struct {
	FareBasisCode string
	Cabin         *PassengerCabin
}

type PassengerCabin struct {
	Name      string
	Amenities *CabinAmenities
}

type CabinAmenities struct {
	Seat *SeatAmenity
}

type SeatAmenity struct {
	Pitch string
}

// LookupContext holds the code->name dictionaries some providers return
// alongside their offers.
type LookupContext struct {
	Aircraft map[string]string
	Carriers map[string]string
}

func (l LookupContext) AircraftName(code string) (string, bool) {
	name, ok := l.Aircraft[code]
	return name, ok && name != ""
}

func (l LookupContext) CarrierName(code string) (string, bool) {
	name, ok := l.Carriers[code]
	return name, ok && name != ""
}

// RawOfferSource searches one upstream and returns its offers untouched
// apart from decoding.
type RawOfferSource interface {
	Name() string
	Search(ctx context.Context, q SearchQuery) ([]RawOffer, LookupContext, error)
}
