// Package pricing turns CRM list prices and discount bands into the rounded
// discount prices shown to sales reps.
package pricing

import (
	"math"
	"strconv"
	"strings"
)

// bandSeparators are tried in order, the first one present in the band is used.
var bandSeparators = []string{"~", "-"}

// RoundUp rounds a price up for display: to the next multiple of 5 below
// 1000, of 10 below 10000 and of 100 otherwise. The result is never below the
// price, values already on a multiple are unchanged and non-positive prices
// give 0.
func RoundUp(price float64) int {
	if price <= 0 {
		return 0
	}

	p := int(math.Ceil(price))
	step := 100
	switch {
	case p < 1000:
		step = 5
	case p < 10000:
		step = 10
	}

	if p%step == 0 {
		return p
	}
	return (p/step + 1) * step
}

// DeriveDiscounts applies a discount band like "0.5~0.45" (or "0.5-0.45") to
// a price and rounds both results with RoundUp.
//
// The returned pair keeps the order of the band: high is computed from the
// first multiplier and low from the second, even when the first is smaller.
// Any parse failure gives (nil, nil).
func DeriveDiscounts(price float64, band string) (high, low *int) {
	if price == 0 || band == "" {
		return nil, nil
	}

	var parts []string
	for _, sep := range bandSeparators {
		if strings.Contains(band, sep) {
			parts = strings.Split(band, sep)
			break
		}
	}
	if len(parts) != 2 {
		return nil, nil
	}

	first, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, nil
	}
	second, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, nil
	}

	h := RoundUp(price * first)
	l := RoundUp(price * second)
	return &h, &l
}
