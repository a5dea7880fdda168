package service

import "strings"

// airlineNames maps the carrier codes people filter by most to the names
// upstreams return.
var airlineNames = map[string]string{
	"BA": "British Airways",
	"AA": "American Airlines",
	"DL": "Delta Air Lines",
	"UA": "United Airlines",
	"LH": "Lufthansa",
	"AF": "Air France",
	"EK": "Emirates",
	"QR": "Qatar Airways",
	"SQ": "Singapore Airlines",
	"CX": "Cathay Pacific",
}

// FilterByAirline keeps the offers whose airline name contains the name
// behind token, ignoring case. An empty token returns offers as is.
func FilterByAirline(offers []NormalizedOffer, token string) []NormalizedOffer {
	token = strings.TrimSpace(token)
	if token == "" {
		return offers
	}
	name, ok := airlineNames[strings.ToUpper(token)]
	if !ok {
		name = token
	}
	needle := strings.ToLower(name)

	kept := make([]NormalizedOffer, 0, len(offers))
	for _, o := range offers {
		if strings.Contains(strings.ToLower(o.AirlineName), needle) {
			kept = append(kept, o)
		}
	}
	return kept
}
