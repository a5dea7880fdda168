// Package routes loads the sample route dataset offered on the search form.
package routes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
)

type Route struct {
	Origin      string `csv:"origin" json:"origin"`
	Destination string `csv:"destination" json:"destination"`
	TravelDate  string `csv:"travel_date" json:"travel_date"`
	FlightClass string `csv:"flight_class" json:"flight_class"`
}

// Load decodes routes from CSV with an origin,destination,travel_date,flight_class
// header. Rows without origin or destination are skipped.
func Load(r io.Reader) ([]Route, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Route{}, nil
		}
		return nil, fmt.Errorf("create route decoder: %w", err)
	}

	var all []Route
	if err := dec.Decode(&all); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}

	out := make([]Route, 0, len(all))
	for _, rt := range all {
		rt.Origin = strings.ToUpper(strings.TrimSpace(rt.Origin))
		rt.Destination = strings.ToUpper(strings.TrimSpace(rt.Destination))
		rt.TravelDate = strings.TrimSpace(rt.TravelDate)
		rt.FlightClass = strings.TrimSpace(rt.FlightClass)
		if rt.Origin == "" || rt.Destination == "" {
			continue
		}
		out = append(out, rt)
	}
	return out, nil
}

func LoadFile(path string) ([]Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
