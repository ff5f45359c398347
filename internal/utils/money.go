package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Monetary amounts are int64 cents everywhere inside the service; tax
// rates are int64 basis points (1900 = 19.00%). These helpers convert the
// two-decimal strings used on the wire exactly once at the HTTP boundary.

// ParseAmount parses a decimal string like "15.00" or "7.5" into cents.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatAmount renders cents as a two-decimal string: 1500 -> "15.00".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseRate parses a percent string like "19.00" into basis points.
func ParseRate(s string) (int64, error) {
	return ParseAmount(s)
}

// FormatRate renders basis points as a percent string: 1900 -> "19.00".
func FormatRate(bps int64) string {
	return FormatAmount(bps)
}
