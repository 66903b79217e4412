package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundUp(t *testing.T) {
	table := []struct {
		price    float64
		expected int
	}{
		{price: 97, expected: 100},
		{price: 100, expected: 100},
		{price: 1, expected: 5},
		{price: 5, expected: 5},
		{price: 999, expected: 1000},
		{price: 996.7, expected: 1000},
		{price: 1000, expected: 1000},
		{price: 1234, expected: 1240},
		{price: 9999, expected: 10000},
		{price: 12345, expected: 12400},
		{price: 12300, expected: 12300},
		{price: 0, expected: 0},
		{price: -5, expected: 0},
		// fractions are rounded up, never cut off
		{price: 100.9, expected: 105},
		{price: 95.5, expected: 100},
		{price: 995.01, expected: 1000},
		{price: 1000.5, expected: 1010},
		{price: 10000.5, expected: 10100},
	}

	for _, row := range table {
		require.Equal(t, row.expected, RoundUp(row.price), "price %v", row.price)
	}
}

func TestRoundUpProperties(t *testing.T) {
	rndm := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		prices := []float64{
			float64(rndm.Intn(200000) - 1000),
			rndm.Float64()*200000 - 1000,
		}
		for _, p := range prices {
			rounded := RoundUp(p)
			if p <= 0 {
				require.Equal(t, 0, rounded)
				continue
			}
			require.GreaterOrEqual(t, float64(rounded), p)
			require.Equal(t, rounded, RoundUp(float64(rounded)), "idempotent for %v", p)
		}
	}
}

func intPtr(v int) *int {
	return &v
}

func TestDeriveDiscounts(t *testing.T) {
	table := []struct {
		price float64
		band  string
		high  *int
		low   *int
	}{
		{price: 1000, band: "0.5~0.45", high: intPtr(500), low: intPtr(450)},
		{price: 1000, band: "0.5-0.45", high: intPtr(500), low: intPtr(450)},
		{price: 1000, band: " 0.5 ~ 0.45 ", high: intPtr(500), low: intPtr(450)},
		{price: 399, band: "0.62~0.58", high: intPtr(250), low: intPtr(235)},
		// 95.5 and 85.95 round up
		{price: 191, band: "0.5~0.45", high: intPtr(100), low: intPtr(90)},
		// order is preserved, not sorted
		{price: 1000, band: "0.45~0.5", high: intPtr(450), low: intPtr(500)},
		{price: 1000, band: "bad-band"},
		{price: 1000, band: "0.5"},
		{price: 1000, band: "0.5~0.4~0.3"},
		{price: 1000, band: ""},
		{price: 0, band: "0.5~0.45"},
	}

	for _, row := range table {
		high, low := DeriveDiscounts(row.price, row.band)
		require.Equal(t, row.high, high, "band %q", row.band)
		require.Equal(t, row.low, low, "band %q", row.band)
	}
}
