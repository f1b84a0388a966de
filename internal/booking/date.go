package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. The fixed-width layout makes
// lexical order equal chronological order.
type Date string

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp, which backends
// send for some date fields. A timestamp keeps the calendar day it was
// written with.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err == nil {
		return Date(s), nil
	}

	if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date(s[:len(DateLayout)]), nil
	}

	return "", fmt.Errorf("parse date %q: %w", s, ErrInvalidDate)
}

func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d Date) Time() time.Time {
	t, err := time.ParseInLocation(DateLayout, string(d), time.UTC)
	if err != nil {
		return time.Time{}
	}

	return t
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool { return d < other }

func (d Date) After(other Date) bool { return d > other }

func (d Date) IsZero() bool { return d == "" }

func (d Date) String() string { return string(d) }

func (d *Date) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}

	if s == "" {
		*d = ""

		return nil
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// DateRange is a stay. Start is the check-in day, End the check-out day.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start_date: %w", err)
	}

	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end_date: %w", err)
	}

	return DateRange{Start: s, End: e}, nil
}

// Validate enforces end > start and start >= today.
func (r DateRange) Validate(today Date) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("both dates are required: %w", ErrInvalidRange)
	}

	if !r.End.After(r.Start) {
		return fmt.Errorf("end_date %s must be after start_date %s: %w", r.End, r.Start, ErrInvalidRange)
	}

	if r.Start.Before(today) {
		return fmt.Errorf("start_date %s is in the past: %w", r.Start, ErrInvalidRange)
	}

	return nil
}

// Overlaps uses half-open semantics: a stay ending on D and another starting
// on D do not collide.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Touches reports whether d falls on any calendar day of the range,
// check-out day included.
func (r DateRange) Touches(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) Nights() int {
	return int(r.End.Time().Sub(r.Start.Time()).Hours() / 24) //nolint:gomnd
}

// Shift moves the whole range by n days, keeping its length.
func (r DateRange) Shift(n int) DateRange {
	return DateRange{Start: r.Start.AddDays(n), End: r.End.AddDays(n)}
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}
