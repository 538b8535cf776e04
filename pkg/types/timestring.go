package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

const layout = "15:04"

const minutesPerDay = 24 * 60

var (
	// ErrInvalidFormat is returned when a string is not a valid HH:MM wall-clock time
	ErrInvalidFormat = errors.New("invalid time string format")

	// ErrOutOfDay is returned when arithmetic leaves the current day
	ErrOutOfDay = errors.New("time string out of day bounds")
)

// TimeString is a local wall-clock time of day in HH:MM format
type TimeString string

// NewTimeString returns the wall-clock part of t truncated to minutes
func NewTimeString(t time.Time) TimeString {
	return TimeString(t.Format(layout))
}

// NewTimeStringFromString parses and normalizes an HH:MM (or HH:MM:SS) value
func NewTimeStringFromString(s string) (TimeString, error) {
	s = strings.TrimSpace(s)
	// Postgres TIME columns come back as HH:MM:SS
	if len(s) == 8 && strings.Count(s, ":") == 2 {
		s = s[:5]
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", ErrInvalidFormat
	}
	return TimeString(t.Format(layout)), nil
}

// FromMinutes builds a TimeString from minutes since midnight
func FromMinutes(m int) (TimeString, error) {
	if m < 0 || m >= minutesPerDay {
		return "", ErrOutOfDay
	}
	return TimeString(fmt.Sprintf("%02d:%02d", m/60, m%60)), nil
}

// String returns the HH:MM representation
func (t TimeString) String() string {
	return string(t)
}

// IsZero reports whether the value is empty
func (t TimeString) IsZero() bool {
	return t == ""
}

// Validate checks the HH:MM format
func (t TimeString) Validate() error {
	_, err := t.Minutes()
	return err
}

// Minutes returns minutes since midnight
func (t TimeString) Minutes() (int, error) {
	parsed, err := time.Parse(layout, string(t))
	if err != nil {
		return 0, ErrInvalidFormat
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// AddMinutes shifts the time by n minutes; the result must stay within the same day
func (t TimeString) AddMinutes(n int) (TimeString, error) {
	m, err := t.Minutes()
	if err != nil {
		return "", err
	}
	return FromMinutes(m + n)
}

// IsBefore reports whether t is strictly earlier than other
func (t TimeString) IsBefore(other TimeString) bool {
	a, errA := t.Minutes()
	b, errB := other.Minutes()
	if errA != nil || errB != nil {
		return false
	}
	return a < b
}

// IsAfter reports whether t is strictly later than other
func (t TimeString) IsAfter(other TimeString) bool {
	return other.IsBefore(t)
}

// Sub returns t - other in minutes
func (t TimeString) Sub(other TimeString) (int, error) {
	a, err := t.Minutes()
	if err != nil {
		return 0, err
	}
	b, err := other.Minutes()
	if err != nil {
		return 0, err
	}
	return a - b, nil
}

// On combines the time of day with the calendar date of day in day's location
func (t TimeString) On(day time.Time) (time.Time, error) {
	m, err := t.Minutes()
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, m/60, m%60, 0, 0, day.Location()), nil
}

// Scan implements sql.Scanner for TIME and text columns
func (t *TimeString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = ""
		return nil
	case string:
		parsed, err := NewTimeStringFromString(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case []byte:
		parsed, err := NewTimeStringFromString(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case time.Time:
		*t = NewTimeString(v)
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidFormat, src)
	}
}

// Value implements driver.Valuer
func (t TimeString) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return string(t), nil
}
