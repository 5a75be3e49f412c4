package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// Date is a calendar-agnostic year/month/day triple. Which calendar it belongs
// to is decided by the caller.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String renders the date as Y-MM-DD. The year is not padded.
func (d Date) String() string {
	return fmt.Sprintf("%d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// ParseDate splits a YYYY-MM-DD string into its integer components. It only
// checks the shape; calendar validity is left to the converters. Persian and
// Arabic-Indic digits are accepted.
func ParseDate(s string) (Date, error) {
	s = ToLatinDigits(strings.TrimSpace(s))
	if s == "" {
		return Date{}, fmt.Errorf("empty date: %w", ErrInvalidDate)
	}

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("date %q must have three parts: %w", s, ErrInvalidDate)
	}

	var nums [3]int
	for i, p := range parts {
		if p == "" || strings.IndexFunc(p, notDigit) >= 0 {
			return Date{}, fmt.Errorf("date %q has non-numeric part %q: %w", s, p, ErrInvalidDate)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("date %q: %w", s, ErrInvalidDate)
		}
		nums[i] = n
	}

	return Date{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}
