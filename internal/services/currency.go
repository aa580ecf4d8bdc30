package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var currencySymbols = regexp.MustCompile(`[$€£¥\s]`)

// ParseAmount converts a monetary value in any of the forms extraction
// providers produce ("$1,234.56", "1.234,56", "(50.00)", "45", "") into a
// float. It never fails: empty input and unparseable garbage both come back
// as 0.0, the latter with a warning logged.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0.0
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = currencySymbols.ReplaceAllString(s, "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// Whichever separator occurs last is the decimal point.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// European style: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US style: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		// A lone comma is a thousands separator only when exactly three
		// digits follow the last one ("1,234"), otherwise it is the
		// decimal point ("1234,56", "12,3").
		tail := s[strings.LastIndex(s, ",")+1:]
		if len(tail) == 3 && isDigits(tail) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		zap.L().Warn("could not parse currency value, defaulting to 0",
			zap.String("value", raw))
		return 0.0
	}

	if negative {
		value = -value
	}
	return value
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseQuantity parses a plain numeric quantity. Unlike monetary amounts,
// quantities carry no currency formatting, so a parse failure is an error
// rather than a silent zero.
func parseQuantity(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// round2 rounds to 2 decimal places
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
