package currency

import (
	"errors"
	"fmt"
)

var ErrRateNotFound = errors.New("exchange rate not cached")

// ConversionError reports a failed exchange-rate lookup.
type ConversionError struct {
	From       string
	To         string
	StatusCode int
	Err        error
}

func (e *ConversionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("convert %s->%s: upstream status %d: %v", e.From, e.To, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("convert %s->%s: %v", e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
