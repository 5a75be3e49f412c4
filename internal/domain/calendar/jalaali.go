package calendar

import (
	"fmt"

	"github.com/marv/gateway/internal/domain/shared"
)

// Conversion errors
var (
	ErrInvalidDate    = shared.NewDomainError("CALENDAR_INVALID_DATE", "Date is not valid in its calendar")
	ErrYearOutOfRange = shared.NewDomainError("CALENDAR_YEAR_OUT_OF_RANGE", "Year is outside the supported Jalaali range")
)

// breaks are the Jalaali years starting a 33-year leap cycle segment. The
// table covers Jalaali years -61 through 3177.
var breaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// MinJalaaliYear and MaxJalaaliYear bound the years the algorithm supports.
const (
	MinJalaaliYear = -61
	MaxJalaaliYear = 3177
)

// ToJalaali converts a Gregorian date to the Jalaali calendar.
func ToJalaali(gy, gm, gd int) (Date, error) {
	if !IsValidGregorianDate(gy, gm, gd) {
		return Date{}, fmt.Errorf("gregorian %04d-%02d-%02d: %w", gy, gm, gd, ErrInvalidDate)
	}
	return d2j(g2d(gy, gm, gd))
}

// ToGregorian converts a Jalaali date to the Gregorian calendar.
func ToGregorian(jy, jm, jd int) (Date, error) {
	if jy < MinJalaaliYear || jy > MaxJalaaliYear {
		return Date{}, fmt.Errorf("jalaali year %d: %w", jy, ErrYearOutOfRange)
	}
	if !IsValidJalaaliDate(jy, jm, jd) {
		return Date{}, fmt.Errorf("jalaali %04d-%02d-%02d: %w", jy, jm, jd, ErrInvalidDate)
	}
	jdn, err := j2d(jy, jm, jd)
	if err != nil {
		return Date{}, err
	}
	return d2g(jdn), nil
}

// IsValidJalaaliDate reports whether jy/jm/jd is a real Jalaali date.
func IsValidJalaaliDate(jy, jm, jd int) bool {
	if jy < MinJalaaliYear || jy > MaxJalaaliYear || jm < 1 || jm > 12 || jd < 1 {
		return false
	}
	return jd <= JalaaliMonthLength(jy, jm)
}

// IsLeapJalaaliYear reports whether jy has 366 days. Years outside the
// supported range are reported as common years.
func IsLeapJalaaliYear(jy int) bool {
	leap, err := jalCalLeap(jy)
	return err == nil && leap == 0
}

// JalaaliMonthLength returns the number of days in month jm of year jy.
func JalaaliMonthLength(jy, jm int) int {
	switch {
	case jm <= 6:
		return 31
	case jm <= 11:
		return 30
	case IsLeapJalaaliYear(jy):
		return 30
	default:
		return 29
	}
}

// IsValidGregorianDate reports whether gy/gm/gd is a real proleptic Gregorian
// date whose year maps into the supported Jalaali range.
func IsValidGregorianDate(gy, gm, gd int) bool {
	if gy < MinJalaaliYear+621 || gy > MaxJalaaliYear+621 || gm < 1 || gm > 12 || gd < 1 {
		return false
	}
	return gd <= gregorianMonthLength(gy, gm)
}

func gregorianMonthLength(gy, gm int) int {
	switch gm {
	case 2:
		if (gy%4 == 0 && gy%100 != 0) || gy%400 == 0 {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// jalCalLeap returns the number of years since the last leap year (0 to 4).
func jalCalLeap(jy int) (int, error) {
	bl := len(breaks)
	jp := breaks[0]
	if jy < jp || jy >= breaks[bl-1] {
		return 0, fmt.Errorf("jalaali year %d: %w", jy, ErrYearOutOfRange)
	}

	var jump int
	for i := 1; i < bl; i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		jp = jm
	}

	n := jy - jp
	if jump-n < 6 {
		n = n - jump + div(jump+4, 33)*33
	}
	leap := mod(mod(n+1, 33)-1, 4)
	if leap == -1 {
		leap = 4
	}
	return leap, nil
}

// jalCalResult describes a Jalaali year: leap is the number of years since
// the last leap year, gy is the Gregorian year in which the Jalaali year
// begins, and march is the March day of Farvardin 1st.
type jalCalResult struct {
	leap  int
	gy    int
	march int
}

func jalCal(jy int, withoutLeap bool) (jalCalResult, error) {
	bl := len(breaks)
	gy := jy + 621
	leapJ := -14
	jp := breaks[0]

	if jy < jp || jy >= breaks[bl-1] {
		return jalCalResult{}, fmt.Errorf("jalaali year %d: %w", jy, ErrYearOutOfRange)
	}

	// Find the limiting years for the Jalaali year jy.
	var jump int
	for i := 1; i < bl; i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ = leapJ + div(jump, 33)*8 + div(mod(jump, 33), 4)
		jp = jm
	}
	n := jy - jp

	// Leap years up to the beginning of jy.
	leapJ = leapJ + div(n, 33)*8 + div(mod(n, 33)+3, 4)
	if mod(jump, 33) == 4 && jump-n == 4 {
		leapJ++
	}

	// Gregorian leap years up to the same point.
	leapG := div(gy, 4) - div((div(gy, 100)+1)*3, 4) - 150

	march := 20 + leapJ - leapG
	if withoutLeap {
		return jalCalResult{gy: gy, march: march}, nil
	}

	if jump-n < 6 {
		n = n - jump + div(jump+4, 33)*33
	}
	leap := mod(mod(n+1, 33)-1, 4)
	if leap == -1 {
		leap = 4
	}
	return jalCalResult{leap: leap, gy: gy, march: march}, nil
}

// j2d converts a Jalaali date to its Julian Day number.
func j2d(jy, jm, jd int) (int, error) {
	r, err := jalCal(jy, true)
	if err != nil {
		return 0, err
	}
	return g2d(r.gy, 3, r.march) + (jm-1)*31 - div(jm, 7)*(jm-7) + jd - 1, nil
}

// d2j converts a Julian Day number to a Jalaali date.
func d2j(jdn int) (Date, error) {
	gy := d2g(jdn).Year
	jy := gy - 621
	r, err := jalCal(jy, false)
	if err != nil {
		return Date{}, err
	}
	jdn1f := g2d(gy, 3, r.march)

	k := jdn - jdn1f
	if k >= 0 {
		if k <= 185 {
			// The first 6 months.
			return Date{Year: jy, Month: 1 + div(k, 31), Day: mod(k, 31) + 1}, nil
		}
		// The remaining months.
		k -= 186
	} else {
		// Previous Jalaali year.
		jy--
		k += 179
		if r.leap == 1 {
			k++
		}
	}
	return Date{Year: jy, Month: 7 + div(k, 30), Day: mod(k, 30) + 1}, nil
}

// g2d converts a Gregorian date to its Julian Day number.
func g2d(gy, gm, gd int) int {
	d := div((gy+div(gm-8, 6)+100100)*1461, 4) +
		div(153*mod(gm+9, 12)+2, 5) +
		gd - 34840408
	return d - div(div(gy+100100+div(gm-8, 6), 100)*3, 4) + 752
}

// d2g converts a Julian Day number to a Gregorian date.
func d2g(jdn int) Date {
	j := 4*jdn + 139361631
	j = j + div(div(4*jdn+183187720, 146097)*3, 4)*4 - 3908
	i := div(mod(j, 1461), 4)*5 + 308
	gd := div(mod(i, 153), 5) + 1
	gm := mod(div(i, 153), 12) + 1
	gy := div(j, 1461) - 100100 + div(8-gm, 6)
	return Date{Year: gy, Month: gm, Day: gd}
}

// div and mod truncate toward zero, matching the reference arithmetic.
func div(a, b int) int { return a / b }

func mod(a, b int) int { return a % b }
