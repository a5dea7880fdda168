package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/you/go-flight-offers/internal/providers"
)

// SearchRequest is a search as the caller typed it: the travel date in
// DD-MM-YYYY and the cabin class as free text.
type SearchRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	TravelDate  string `json:"travel_date"`
	CabinClass  string `json:"cabin_class"`
	Airline     string `json:"airline,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin      ValidationError = "origin is required"
	ErrMissingDestination ValidationError = "destination is required"
	ErrMissingTravelDate  ValidationError = "travel date is required"
	ErrMissingCabinClass  ValidationError = "cabin class is required"
)

var datePattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)

// FormatDate reorders DD-MM-YYYY into YYYY-MM-DD. The parts are moved, not
// reinterpreted, but the result must still be a real calendar date.
func FormatDate(s string) (string, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", ValidationError(fmt.Sprintf("travel date %q must be DD-MM-YYYY", s))
	}
	iso := m[3] + "-" + m[2] + "-" + m[1]
	if _, err := time.Parse(time.DateOnly, iso); err != nil {
		return "", ValidationError(fmt.Sprintf("travel date %q is not a calendar date", s))
	}
	return iso, nil
}

var spaces = regexp.MustCompile(`\s+`)

// ParseCabinClass accepts the labels people type ("Premium Economy",
// "first class", "BUSINESS") and returns the enum value.
func ParseCabinClass(s string) (providers.CabinClass, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return "", ErrMissingCabinClass
	}
	v = spaces.ReplaceAllString(v, "_")
	v = strings.ReplaceAll(v, "-", "_")
	if v != "CLASS" {
		v = strings.TrimSuffix(v, "_CLASS")
	}
	c := providers.CabinClass(v)
	if !c.Valid() {
		return "", ValidationError(fmt.Sprintf("unknown cabin class %q", s))
	}
	return c, nil
}

// Query validates r and turns it into the upstream query. A non-positive
// limit falls back to defaultLimit.
func (r SearchRequest) Query(defaultLimit int) (providers.SearchQuery, error) {
	origin := strings.ToUpper(strings.TrimSpace(r.Origin))
	if origin == "" {
		return providers.SearchQuery{}, ErrMissingOrigin
	}
	destination := strings.ToUpper(strings.TrimSpace(r.Destination))
	if destination == "" {
		return providers.SearchQuery{}, ErrMissingDestination
	}
	if strings.TrimSpace(r.TravelDate) == "" {
		return providers.SearchQuery{}, ErrMissingTravelDate
	}
	date, err := FormatDate(r.TravelDate)
	if err != nil {
		return providers.SearchQuery{}, err
	}
	cabin, err := ParseCabinClass(r.CabinClass)
	if err != nil {
		return providers.SearchQuery{}, err
	}

	limit := r.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return providers.SearchQuery{
		Origin:      origin,
		Destination: destination,
		Date:        date,
		CabinClass:  cabin,
		Limit:       limit,
	}, nil
}
