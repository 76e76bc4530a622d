package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatLargeNumber compacts a magnitude with one decimal place:
// 999 -> "999.0", 1234 -> "1.2K", 1234567 -> "1.2M". Values past the
// trillions use the P suffix.
func FormatLargeNumber(num float64) string {
	for _, unit := range []string{"", "K", "M", "B", "T"} {
		if math.Abs(num) < 1000 {
			return fmt.Sprintf("%.1f%s", num, unit)
		}
		num /= 1000
	}
	return fmt.Sprintf("%.1fP", num)
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Unit placements.
const (
	PositionPrefix = "prefix"
	PositionSuffix = "suffix"
)

// ParseUnit reads a configured unit. A dash at either end marks a prefix
// unit and is stripped; anything else is a suffix.
func ParseUnit(raw string) (unit, position string) {
	switch {
	case raw == "" || raw == "-":
		return "", ""
	case strings.HasPrefix(raw, "-"):
		return raw[1:], PositionPrefix
	case strings.HasSuffix(raw, "-"):
		return raw[:len(raw)-1], PositionPrefix
	}
	return raw, PositionSuffix
}
