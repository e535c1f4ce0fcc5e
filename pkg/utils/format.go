// Package utils provides common utility functions for fincanon.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatThousands renders a raw monetary amount in thousands of native
// currency units: the value is divided by 1000, truncated toward zero
// (not rounded), and grouped with comma separators.
// e.g., 989918318 → "989,918".
func FormatThousands(amount float64) string {
	scaled := math.Trunc(amount / 1000)
	return GroupDigits(int64(scaled))
}

// GroupDigits formats an integer with comma grouping every three digits.
func GroupDigits(n int64) string {
	negative := n < 0
	if negative {
		n = -n
	}

	s := fmt.Sprintf("%d", n)
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)

	out := strings.Join(groups, ",")
	if negative {
		return "-" + out
	}
	return out
}

// FormatEPS renders a per-share value with exactly two decimals in
// native currency units.
func FormatEPS(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatRatioPct renders a ratio already expressed as a percentage with
// two decimals and a % suffix. e.g., 37.5 → "37.50%".
func FormatRatioPct(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}
