package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPair(t *testing.T) {
	t.Parallel()

	base, quote, err := SplitPair("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, "EUR", base)
	assert.Equal(t, "USD", quote)

	for _, bad := range []string{"", "EUR", "EUR_USD", "eurusd", "EURUS1"} {
		_, _, err := SplitPair(bad)
		var ipe *InvalidPairError
		assert.True(t, errors.As(err, &ipe), bad)
	}
}

func TestInversePair(t *testing.T) {
	t.Parallel()

	inv, err := InversePair("GBPUSD")
	require.NoError(t, err)
	assert.Equal(t, "USDGBP", inv)
}

func TestInstrumentNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EUR_USD", Instrument("EURUSD"))
	assert.Equal(t, "odd", Instrument("odd"))

	assert.Equal(t, "EURUSD", NormalizePair("EUR_USD"))
	assert.Equal(t, "EURUSD", NormalizePair(" eur/usd "))
	assert.Equal(t, "EURUSD", NormalizePair("EURUSD"))
}
