package warranty

import (
	"math"
	"time"

	"github.com/marv/gateway/internal/domain/calendar"
)

// CoverageState is the warranty state of a device at a point in time
type CoverageState string

const (
	CoverageActive  CoverageState = "active"
	CoverageExpired CoverageState = "expired"
	CoverageUnknown CoverageState = "unknown"
)

// Coverage is the evaluated warranty of a device
type Coverage struct {
	State         CoverageState `json:"state"`
	DaysRemaining int           `json:"days_remaining,omitempty"`
	EndsAt        *time.Time    `json:"ends_at,omitempty"`
}

// IsActive reports whether the warranty still covers the device
func (c Coverage) IsActive() bool {
	return c.State == CoverageActive
}

// EvaluateCoverage compares a YYYY-MM-DD warranty end date, taken as UTC
// midnight, with now. A missing or unreadable end date yields CoverageUnknown.
// While active, DaysRemaining counts partial days as whole days.
func EvaluateCoverage(warrantyEnd string, now time.Time) Coverage {
	if warrantyEnd == "" {
		return Coverage{State: CoverageUnknown}
	}

	end, err := parseEndDate(warrantyEnd)
	if err != nil {
		return Coverage{State: CoverageUnknown}
	}

	if end.After(now) {
		days := int(math.Ceil(end.Sub(now).Hours() / 24))
		return Coverage{State: CoverageActive, DaysRemaining: days, EndsAt: &end}
	}
	return Coverage{State: CoverageExpired, EndsAt: &end}
}

// DeviceCoverage evaluates the coverage of d.
func DeviceCoverage(d *Device, now time.Time) Coverage {
	if d == nil || d.WarrantyEnd == nil {
		return Coverage{State: CoverageUnknown}
	}
	return EvaluateCoverage(*d.WarrantyEnd, now)
}

func parseEndDate(s string) (time.Time, error) {
	d, err := calendar.ParseDate(s)
	if err != nil {
		// The backend may send full timestamps.
		return time.Parse(time.RFC3339, s)
	}
	if !calendar.IsValidGregorianDate(d.Year, d.Month, d.Day) {
		return time.Time{}, calendar.ErrInvalidDate
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC), nil
}
