package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestResolveExpiration(t *testing.T) {
	available := []int64{100, 200, 500}

	assert.Equal(t, int64(200), resolveExpiration(available, 210))
	assert.Equal(t, int64(100), resolveExpiration(available, 1))
	assert.Equal(t, int64(500), resolveExpiration(available, 9000))
	assert.Equal(t, int64(200), resolveExpiration(available, 200))
}

func TestATMIVAveragesFirstThreeInResponseOrder(t *testing.T) {
	chain := &OptionsChain{
		UnderlyingPrice: f64(100),
		Calls: []OptionContract{
			{Strike: 98, ImpliedVolatility: f64(0.30)},
			{Strike: 120, ImpliedVolatility: f64(0.90)}, // outside the 5% window
			{Strike: 101, ImpliedVolatility: f64(0.40)},
			{Strike: 100, ImpliedVolatility: f64(0.50)},
			{Strike: 99, ImpliedVolatility: f64(0.99)}, // fourth qualifier, ignored
		},
	}

	iv := atmImpliedVolatility(chain)
	require.NotNil(t, iv)
	assert.InDelta(t, 40.0, *iv, 0.001, "mean of the first three qualifying IVs")
}

func TestATMIVNullWhenNoContractsQualify(t *testing.T) {
	chain := &OptionsChain{
		UnderlyingPrice: f64(100),
		Calls: []OptionContract{
			{Strike: 150, ImpliedVolatility: f64(0.5)},
			{Strike: 50, ImpliedVolatility: f64(0.5)},
		},
	}

	assert.Nil(t, atmImpliedVolatility(chain))
}

func TestATMIVSkipsJunkVolatility(t *testing.T) {
	chain := &OptionsChain{
		UnderlyingPrice: f64(100),
		Calls: []OptionContract{
			{Strike: 100, ImpliedVolatility: f64(0.0001)},
			{Strike: 100, ImpliedVolatility: nil},
			{Strike: 100, ImpliedVolatility: f64(0.25)},
		},
	}

	iv := atmImpliedVolatility(chain)
	require.NotNil(t, iv)
	assert.InDelta(t, 25.0, *iv, 0.001)
}

func TestATMIVNullWithoutUnderlyingPrice(t *testing.T) {
	chain := &OptionsChain{
		Calls: []OptionContract{{Strike: 100, ImpliedVolatility: f64(0.25)}},
	}

	assert.Nil(t, atmImpliedVolatility(chain))
}

func TestSummarizeChainTotalsAndRatios(t *testing.T) {
	chain := &OptionsChain{
		Expiration:      1700000000,
		UnderlyingPrice: f64(100),
		Calls: []OptionContract{
			{Strike: 100, Volume: i64(10), OpenInterest: i64(100)},
			{Strike: 105, Volume: i64(30), OpenInterest: i64(100)},
		},
		Puts: []OptionContract{
			{Strike: 95, Volume: i64(20), OpenInterest: i64(50)},
		},
	}

	summary := summarizeChain("TEST", chain)

	assert.Equal(t, int64(40), summary.TotalCallVolume)
	assert.Equal(t, int64(20), summary.TotalPutVolume)
	assert.Equal(t, int64(200), summary.TotalCallOI)
	assert.Equal(t, int64(50), summary.TotalPutOI)

	require.NotNil(t, summary.PCRatioVolume)
	assert.InDelta(t, 0.5, *summary.PCRatioVolume, 0.001)
	require.NotNil(t, summary.PCRatioOI)
	assert.InDelta(t, 0.25, *summary.PCRatioOI, 0.001)

	require.NotNil(t, summary.Expiration)
	assert.Equal(t, int64(1700000000), *summary.Expiration)
}

func TestSummarizeChainRatioNullOnZeroDenominator(t *testing.T) {
	chain := &OptionsChain{
		UnderlyingPrice: f64(100),
		Puts: []OptionContract{
			{Strike: 95, Volume: i64(20), OpenInterest: i64(50)},
		},
	}

	summary := summarizeChain("TEST", chain)

	assert.Nil(t, summary.PCRatioVolume, "zero call volume must yield a null ratio")
	assert.Nil(t, summary.PCRatioOI, "zero call open interest must yield a null ratio")
}
