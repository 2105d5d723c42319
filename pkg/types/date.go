package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date layout used on the wire and in SQLite
const DateLayout = "2006-01-02"

// ErrMalformedDate is returned when a value cannot be read as a calendar date
var ErrMalformedDate = errors.New("malformed date")

// Date is a calendar date with no time component.
// The embedded time is always midnight UTC.
type Date struct {
	time.Time
}

// DateOf drops the clock part of t, keeping t's calendar day in its own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return Date{t}, nil
}

// MustParseDate is ParseDate for constants and tests
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NormalizeDate converts a raw storage value into a Date.
// PostgreSQL drivers return time.Time for DATE columns; SQLite returns text,
// either a bare date or a full timestamp depending on how the row was written.
func NormalizeDate(v any) (Date, error) {
	switch val := v.(type) {
	case time.Time:
		return DateOf(val), nil
	case string:
		return normalizeDateString(val)
	case []byte:
		return normalizeDateString(string(val))
	case nil:
		return Date{}, fmt.Errorf("%w: null", ErrMalformedDate)
	default:
		return Date{}, fmt.Errorf("%w: unsupported type %T", ErrMalformedDate, v)
	}
}

func normalizeDateString(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return DateOf(t), nil
			}
		}
		// Leading calendar part is enough, e.g. "2001-05-04 00:00:00 +0000 UTC"
		return ParseDate(s[:len(DateLayout)])
	}
	return ParseDate(s)
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// MarshalJSON encodes the date as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or an empty string
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
