// Package format holds the pure display-string helpers used by the
// screens. All functions render "-" for values that cannot be
// formatted (NaN, Inf).
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency renders a USD amount with grouping and exactly two fraction
// digits: Currency(1234.5) == "$1,234.50".
func Currency(v float64) string {
	if !isFinite(v) {
		return "-"
	}
	return printer.Sprintf("$%.2f", v)
}

// Change renders a 24h percentage with an explicit sign:
// Change(-3.456) == "-3.46%", Change(0) == "+0.00%".
func Change(v float64) string {
	if !isFinite(v) {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", v)
}

// Quantity renders an owned amount with grouping and up to eight
// fraction digits, trailing zeros trimmed.
func Quantity(v float64) string {
	if !isFinite(v) {
		return "-"
	}
	s := printer.Sprintf("%.8f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Number renders a magnitude (market cap, volume, supply) with
// grouping and no fraction digits.
func Number(v float64) string {
	if !isFinite(v) {
		return "-"
	}
	return printer.Sprintf("%.0f", v)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
