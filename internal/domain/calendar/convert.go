// Package calendar converts dates between the Gregorian and the Persian
// (Jalaali) calendars. Dates are exchanged as YYYY-MM-DD strings; the string
// converters return "" when no conversion is possible.
package calendar

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local system clock.
var SystemClock Clock = ClockFunc(time.Now)

// Converter performs string conversions against a Clock. The zero value uses
// the system clock.
type Converter struct {
	Clock Clock
}

// NewConverter creates a Converter reading the given clock.
func NewConverter(clock Clock) *Converter {
	return &Converter{Clock: clock}
}

func (c *Converter) now() time.Time {
	if c == nil || c.Clock == nil {
		return SystemClock.Now()
	}
	return c.Clock.Now()
}

// TodayGregorian returns the current local date as YYYY-MM-DD.
func (c *Converter) TodayGregorian() string {
	now := c.now()
	return Date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}.String()
}

// TodayPersian returns the current local date in the Persian calendar.
func (c *Converter) TodayPersian() string {
	return GregorianToPersian(c.TodayGregorian())
}

// GregorianToPersian converts a Gregorian YYYY-MM-DD date to Persian.
// It returns "" for empty, malformed or invalid input.
func GregorianToPersian(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}
	j, err := ToJalaali(d.Year, d.Month, d.Day)
	if err != nil {
		return ""
	}
	return j.String()
}

// PersianToGregorian converts a Persian YYYY-MM-DD date to Gregorian.
// It returns "" for empty, malformed or invalid input.
func PersianToGregorian(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return ""
	}
	g, err := ToGregorian(d.Year, d.Month, d.Day)
	if err != nil {
		return ""
	}
	return g.String()
}

// TodayGregorian returns today's date from the system clock.
func TodayGregorian() string {
	return (*Converter)(nil).TodayGregorian()
}

// TodayPersian returns today's Persian date from the system clock.
func TodayPersian() string {
	return (*Converter)(nil).TodayPersian()
}

// FromTime returns the Gregorian Date of t in t's location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// PersianOf returns the Persian rendering of t, or "" if t is out of range.
func PersianOf(t time.Time) string {
	g := FromTime(t)
	j, err := ToJalaali(g.Year, g.Month, g.Day)
	if err != nil {
		return ""
	}
	return j.String()
}
