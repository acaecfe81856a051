// Package calendar provides the timezone-naive calendar day used by the
// feast calculations, and the conversion from astronomical instants to it.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the canonical YYYY-MM-DD form used for comparisons and
// storage.
const ISOLayout = "2006-01-02"

// LongLayout is the human-readable en-US form, e.g. "Sunday, March 10, 2024".
const LongLayout = "Monday, January 2, 2006"

// LocalDate is a civil calendar day with no time of day and no timezone.
// Once created it is never reinterpreted in another zone; all arithmetic
// returns new values.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewLocalDate creates a LocalDate, normalizing out-of-range values the way
// time.Date does (e.g. March 32 becomes April 1).
func NewLocalDate(year int, month time.Month, day int) LocalDate {
	return fromTime(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// ToLocalDate returns the calendar day that instant falls on when viewed in
// loc. The time of day is discarded.
func ToLocalDate(instant time.Time, loc *time.Location) LocalDate {
	return fromTime(instant.In(loc))
}

// ParseLocalDate parses a date string in YYYY-MM-DD format. Years before 1
// carry a leading minus sign, as String writes them (e.g. "-0005-03-10").
func ParseLocalDate(s string) (LocalDate, error) {
	negative := strings.HasPrefix(s, "-")
	t, err := time.Parse(ISOLayout, strings.TrimPrefix(s, "-"))
	if err != nil {
		return LocalDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	d := fromTime(t)
	if negative {
		// Gregorian leap years are symmetric around year 0, so the month
		// and day stay valid.
		d.Year = -d.Year
	}
	return d, nil
}

func fromTime(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// noon anchors the date at midday UTC so arithmetic never crosses a day
// boundary.
func (d LocalDate) noon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// dayNumber counts days since 1970-01-01.
func (d LocalDate) dayNumber() int64 {
	return (d.noon().Unix() - 12*60*60) / (24 * 60 * 60)
}

// AddDays returns the date n days later (earlier for negative n).
func (d LocalDate) AddDays(n int) LocalDate {
	return fromTime(d.noon().AddDate(0, 0, n))
}

// DaysUntil returns the number of days from d to other; negative if other
// is earlier.
func (d LocalDate) DaysUntil(other LocalDate) int {
	return int(other.dayNumber() - d.dayNumber())
}

// Weekday returns the day of the week.
func (d LocalDate) Weekday() time.Weekday {
	return d.noon().Weekday()
}

// Before reports whether d is earlier than other.
func (d LocalDate) Before(other LocalDate) bool {
	return d.Compare(other) < 0
}

// After reports whether d is later than other.
func (d LocalDate) After(other LocalDate) bool {
	return d.Compare(other) > 0
}

// Equal reports whether d and other are the same day.
func (d LocalDate) Equal(other LocalDate) bool {
	return d == other
}

// Compare returns -1, 0 or +1.
func (d LocalDate) Compare(other LocalDate) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether d is the zero LocalDate.
func (d LocalDate) IsZero() bool {
	return d == LocalDate{}
}

// String formats the date as YYYY-MM-DD.
func (d LocalDate) String() string {
	return d.noon().Format(ISOLayout)
}

// Format formats the date as "Sunday, March 10, 2024".
func (d LocalDate) Format() string {
	return d.noon().Format(LongLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d LocalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *LocalDate) UnmarshalText(text []byte) error {
	parsed, err := ParseLocalDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
