package calendar

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	persianZero = '۰' // U+06F0 EXTENDED ARABIC-INDIC DIGIT ZERO
	arabicZero  = '٠' // U+0660 ARABIC-INDIC DIGIT ZERO
)

var (
	toPersian = runes.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return persianZero + (r - '0')
		}
		return r
	})

	toLatin = runes.Map(func(r rune) rune {
		switch {
		case r >= persianZero && r <= persianZero+9:
			return '0' + (r - persianZero)
		case r >= arabicZero && r <= arabicZero+9:
			return '0' + (r - arabicZero)
		}
		return r
	})
)

// ToPersianDigits replaces ASCII digits with Persian digits.
func ToPersianDigits(s string) string {
	out, _, err := transform.String(toPersian, s)
	if err != nil {
		return s
	}
	return out
}

// ToLatinDigits replaces Persian and Arabic-Indic digits with ASCII digits.
func ToLatinDigits(s string) string {
	out, _, err := transform.String(toLatin, s)
	if err != nil {
		return s
	}
	return out
}
