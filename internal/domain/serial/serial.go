// Package serial expands a start/end serial pair into the ordered list of
// zero-padded serial numbers used for bulk device and test provisioning.
package serial

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/marv/gateway/internal/domain/shared"
)

// Serial expansion errors. Callers match them with errors.Is.
var (
	ErrInvalidFormat  = shared.NewDomainError("SERIAL_INVALID_FORMAT", "Serial format is invalid; use prefix followed by digits")
	ErrPrefixMismatch = shared.NewDomainError("SERIAL_PREFIX_MISMATCH", "Start and end serials must share the same prefix")
	ErrInvalidRange   = shared.NewDomainError("SERIAL_INVALID_RANGE", "Serial range is invalid")
	ErrRangeTooLarge  = shared.NewDomainError("SERIAL_RANGE_TOO_LARGE", "Serial range exceeds the allowed size")
)

// MaxLen is the largest range Parse accepts, whatever limit the caller applies.
const MaxLen int64 = 1_000_000

var (
	numericPattern  = regexp.MustCompile(`^[0-9]+$`)
	embeddedPattern = regexp.MustCompile(`^(.*?)(\d+)$`)
)

// Range is a validated serial range. PadWidth is the widest digit run of the
// two bounds as typed, so "007" contributes 3 even though its value is 7.
type Range struct {
	Prefix   string `json:"prefix"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	PadWidth int    `json:"pad_width"`
}

// Parse validates the bounds and returns the Range they describe.
//
// With a non-empty explicitPrefix both bounds must be pure digit strings. With
// an empty explicitPrefix each bound is split into a literal prefix and a
// trailing digit run, and the two prefixes must match exactly.
func Parse(startSerial, endSerial, explicitPrefix string) (Range, error) {
	var prefix, startDigits, endDigits string

	if explicitPrefix != "" {
		if !numericPattern.MatchString(startSerial) || !numericPattern.MatchString(endSerial) {
			return Range{}, ErrInvalidFormat
		}
		prefix, startDigits, endDigits = explicitPrefix, startSerial, endSerial
	} else {
		startMatch := embeddedPattern.FindStringSubmatch(startSerial)
		endMatch := embeddedPattern.FindStringSubmatch(endSerial)
		if startMatch == nil || endMatch == nil {
			return Range{}, ErrInvalidFormat
		}
		if startMatch[1] != endMatch[1] {
			return Range{}, ErrPrefixMismatch
		}
		prefix, startDigits, endDigits = startMatch[1], startMatch[2], endMatch[2]
	}

	startNum, err := strconv.ParseInt(startDigits, 10, 64)
	if err != nil {
		return Range{}, fmt.Errorf("start serial %q: %w", startSerial, ErrInvalidRange)
	}
	endNum, err := strconv.ParseInt(endDigits, 10, 64)
	if err != nil {
		return Range{}, fmt.Errorf("end serial %q: %w", endSerial, ErrInvalidRange)
	}
	if endNum < startNum {
		return Range{}, ErrInvalidRange
	}

	r := Range{
		Prefix:   prefix,
		Start:    startNum,
		End:      endNum,
		PadWidth: max(len(startDigits), len(endDigits)),
	}
	if r.Len() > MaxLen {
		return Range{}, fmt.Errorf("%d serials requested, at most %d allowed: %w", r.Len(), MaxLen, ErrRangeTooLarge)
	}
	return r, nil
}

// Len returns the number of serials in the range.
func (r Range) Len() int64 {
	n := r.End - r.Start
	if n == math.MaxInt64 {
		return n
	}
	return n + 1
}

// Format renders n with the range prefix, left-padded with zeros to PadWidth.
// Numbers wider than PadWidth are never truncated.
func (r Range) Format(n int64) string {
	return r.Prefix + fmt.Sprintf("%0*d", r.PadWidth, n)
}

// Each calls fn for every serial in order until fn returns false.
func (r Range) Each(fn func(serial string) bool) {
	for n := r.Start; ; n++ {
		if !fn(r.Format(n)) || n == r.End {
			return
		}
	}
}

// Serials materialises the whole range.
func (r Range) Serials() []string {
	out := make([]string, 0, min(r.Len(), MaxLen))
	r.Each(func(s string) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Limit returns ErrRangeTooLarge when the range holds more than limit serials.
// A non-positive limit, or one above MaxLen, means MaxLen.
func (r Range) Limit(limit int64) error {
	if limit <= 0 || limit > MaxLen {
		limit = MaxLen
	}
	if r.Len() > limit {
		return fmt.Errorf("%d serials requested, at most %d allowed: %w", r.Len(), limit, ErrRangeTooLarge)
	}
	return nil
}

// Expand is Parse followed by Serials.
func Expand(startSerial, endSerial, explicitPrefix string) ([]string, error) {
	r, err := Parse(startSerial, endSerial, explicitPrefix)
	if err != nil {
		return nil, err
	}
	return r.Serials(), nil
}
