// ABOUTME: Lenient date and timestamp types for API payloads
// ABOUTME: Accept RFC 3339, date-only and datetime-local forms; empty means absent
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout          = "2006-01-02"
	DateTimeLocalLayout = "2006-01-02T15:04"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateTimeLocalLayout,
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTime parses any layout the API or a form may produce. Values
// without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// Date is a calendar date; the zero value means no date.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Present reports whether a date is set.
func (d Date) Present() bool {
	return !d.IsZero()
}

// String formats the date for forms, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	t, err := unmarshalTime(data)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Timestamp is an instant; the zero value means unset.
type Timestamp struct {
	time.Time
}

// Present reports whether a timestamp is set.
func (t Timestamp) Present() bool {
	return !t.IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	parsed, err := unmarshalTime(data)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func unmarshalTime(data []byte) (time.Time, error) {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return time.Time{}, err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return time.Time{}, nil
	}
	return ParseTime(*raw)
}
