package commands

import (
	"testing"

	"crmlookup/internal/scrapers/crm"

	"github.com/stretchr/testify/require"
)

func TestTier(t *testing.T) {
	require.Equal(t, "1-9", tier(crm.ProductRecord{StartQty: 1, EndQty: 9}))
	require.Equal(t, "100+", tier(crm.ProductRecord{StartQty: 100}))
}

func TestFormatPrice(t *testing.T) {
	price := 940
	require.Equal(t, "940", formatPrice(&price))
	require.Equal(t, "-", formatPrice(nil))
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"login"},
		{"logout"},
		{"search"},
		{"inventory"},
		{"features"},
		{"cache", "info"},
		{"cache", "update"},
		{"cache", "clear"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}
}
