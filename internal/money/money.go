// Package money represents amounts as integer euro cents. The tariff
// source uses decimal strings with either '.' or ',' as the separator,
// so parsing normalizes both before any arithmetic happens.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a monetary amount in euro cents.
type Cents int64

// Parse converts a decimal string into cents. Both "100.50" and "100,50"
// are accepted; fractions beyond two digits are rounded half-up.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	cents := units * 100
	if frac != "" {
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("invalid amount %q", s)
			}
		}
		// Pad to three digits so the third decides half-up rounding.
		padded := frac + strings.Repeat("0", 3-min(len(frac), 3))
		part, err := strconv.ParseInt(padded[:2], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		cents += part
		if padded[2] >= '5' {
			cents++
		}
	}

	if neg {
		cents = -cents
	}
	return Cents(cents), nil
}

// String renders the amount as a fixed-point decimal with exactly two
// fractional digits, e.g. "125.00".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
