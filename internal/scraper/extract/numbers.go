package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	dollarRegex  = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d{1,2})?)`)
	oddsLikeCell = regexp.MustCompile(`(?i)\b1\s*(?:in|:)\s*\d`)
	hasDigit     = regexp.MustCompile(`\d`)
)

// ParseDecimal keeps digits and the decimal point and parses the rest.
// Anything unparsable yields 0.
func ParseDecimal(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(strings.Trim(b.String(), "."), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseInt keeps digits only. Anything unparsable yields 0.
func ParseInt(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return v
}

// parsePrice reads a ticket price, falling back to the first "$N" in fallbackText.
func parsePrice(priceText, fallbackText string) float64 {
	price := ParseDecimal(priceText)
	if price <= 0 && fallbackText != "" {
		if m := dollarRegex.FindStringSubmatch(fallbackText); m != nil {
			price = ParseDecimal(m[1])
		}
	}
	return math.Round(price*100) / 100
}

// countCell reports whether a table cell holds a plain count.
func countCell(s string) (int, bool) {
	if strings.Contains(s, "$") || !hasDigit.MatchString(s) || oddsLikeCell.MatchString(s) {
		return 0, false
	}
	return ParseInt(s), true
}
