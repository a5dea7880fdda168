// Package fareclass maps carrier booking codes to readable fare descriptions.
package fareclass

import (
	"fmt"
	"strings"
)

type table struct {
	revenue map[string]string
	award   map[string]string
}

// British Airways is the only carrier with published mappings so far.
var carriers = map[string]table{
	"BA": {
		revenue: map[string]string{
			"F": "First Class Revenue",
			"A": "First Class Revenue",
			"J": "Business Class Revenue",
			"C": "Business Class Revenue",
			"D": "Business Class Revenue",
			"R": "Business Class Revenue",
			"W": "Premium Economy Revenue",
			"E": "Premium Economy Revenue",
			"T": "Premium Economy Revenue",
			"Y": "Economy Revenue",
			"B": "Economy Revenue",
			"H": "Economy Revenue",
			"K": "Economy Revenue",
			"M": "Economy Revenue",
			"L": "Economy Revenue",
			"V": "Economy Revenue",
			"S": "Economy Revenue",
			"N": "Economy Revenue",
			"Q": "Economy Revenue",
			"O": "Economy Revenue",
		},
		award: map[string]string{
			"U": "Economy Award",
			"X": "Premium Economy Award",
			"P": "Business Award",
			"Z": "First Class Award",
		},
	},
}

// Resolve looks bookingCode up in the carrier's revenue table, then its award
// table. Unknown carriers and unknown codes pass the code through unchanged.
func Resolve(carrierCode, bookingCode string) string {
	t, ok := carriers[strings.ToUpper(strings.TrimSpace(carrierCode))]
	if !ok {
		return bookingCode
	}
	if name, ok := t.revenue[bookingCode]; ok {
		return fmt.Sprintf("%s - %q", name, bookingCode)
	}
	if name, ok := t.award[bookingCode]; ok {
		return fmt.Sprintf("%s - %q", name, bookingCode)
	}
	return bookingCode
}
