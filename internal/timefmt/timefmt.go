// Package timefmt renders upstream instants in the display zone and formats
// layover durations.
package timefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultZone  = "Asia/Kolkata"
	NotAvailable = "N/A"
)

// naive layouts carry no offset; upstreams send airport wall time in them
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseInstant accepts RFC 3339 timestamps and offset-less ones, the latter
// read as UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Value: s, Message: ": unsupported timestamp format"}
}

type Formatter struct {
	loc *time.Location
}

func NewFormatter(zone string) (*Formatter, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load display zone %q: %w", zone, err)
	}
	return &Formatter{loc: loc}, nil
}

func (f *Formatter) Location() *time.Location { return f.loc }

// Clock renders t as 24-hour HH:MM in the display zone.
func (f *Formatter) Clock(t time.Time) string {
	return t.In(f.loc).Format("15:04")
}

// ClockString parses an upstream timestamp and renders it with Clock,
// returning "N/A" when the timestamp cannot be parsed.
func (f *Formatter) ClockString(s string) string {
	t, err := ParseInstant(s)
	if err != nil {
		return NotAvailable
	}
	return f.Clock(t)
}

// Layover formats d as "{h}h {m}m". Minutes are floored; negative values go
// through the same arithmetic unguarded.
func Layover(d time.Duration) string {
	total := int64(math.Floor(d.Minutes()))
	hours := int64(math.Floor(float64(total) / 60))
	minutes := total % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// LayoverBetween is the layover from arrivedAt to departsAt, both upstream
// timestamps. Unparseable input yields "N/A".
func LayoverBetween(arrivedAt, departsAt string) string {
	arr, err := ParseInstant(arrivedAt)
	if err != nil {
		return NotAvailable
	}
	dep, err := ParseInstant(departsAt)
	if err != nil {
		return NotAvailable
	}
	return Layover(dep.Sub(arr))
}

// ParseLayover returns the total minutes of a non-negative "{h}h {m}m" string.
func ParseLayover(s string) (int, error) {
	hPart, mPart, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || !strings.HasSuffix(hPart, "h") || !strings.HasSuffix(mPart, "m") {
		return 0, fmt.Errorf("malformed layover %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSuffix(hPart, "h"))
	if err != nil {
		return 0, fmt.Errorf("malformed layover hours %q: %w", s, err)
	}
	m, err := strconv.Atoi(strings.TrimSuffix(mPart, "m"))
	if err != nil {
		return 0, fmt.Errorf("malformed layover minutes %q: %w", s, err)
	}
	return h*60 + m, nil
}
