package tax_test

import (
	"testing"

	"ms-pos/internal/tax"

	"github.com/stretchr/testify/assert"
)

var rates = tax.RateTable{
	StandardBps:   1900,
	ReducedBps:    700,
	DrinkCategory: "drinks",
}

func TestDecomposeAddsUp(t *testing.T) {
	grosses := []int64{0, 1, 99, 100, 1500, 750, 12345, 9999999}
	for _, rate := range []int64{700, 1900} {
		for _, gross := range grosses {
			b := tax.Decompose(gross, rate)
			assert.Equal(t, gross, b.NetCents+b.TaxCents, "net+tax must equal gross for gross=%d rate=%d", gross, rate)
			assert.Equal(t, gross, b.GrossCents)
			assert.GreaterOrEqual(t, b.TaxCents, int64(0))
		}
	}
}

func TestDecomposeKnownValues(t *testing.T) {
	// 15.00 gross at 19%: net 12.61, tax 2.39 (half-up at the boundary).
	b := tax.Decompose(1500, 1900)
	assert.Equal(t, int64(1261), b.NetCents)
	assert.Equal(t, int64(239), b.TaxCents)

	// 10.00 gross at 7%: net 9.35, tax 0.65.
	b = tax.Decompose(1000, 700)
	assert.Equal(t, int64(935), b.NetCents)
	assert.Equal(t, int64(65), b.TaxCents)

	// Zero rate leaves the amount untouched.
	b = tax.Decompose(1234, 0)
	assert.Equal(t, int64(1234), b.NetCents)
	assert.Equal(t, int64(0), b.TaxCents)
}

func TestEffectiveRate(t *testing.T) {
	// Drinks are standard-rated regardless of consumption place.
	assert.Equal(t, int64(1900), rates.EffectiveRate("drinks", true))
	assert.Equal(t, int64(1900), rates.EffectiveRate("drinks", false))

	// Food is standard indoors, reduced outdoors.
	assert.Equal(t, int64(1900), rates.EffectiveRate("food", true))
	assert.Equal(t, int64(700), rates.EffectiveRate("food", false))
}

func TestSummarizeByRateGroupsAndRoundsOnce(t *testing.T) {
	lines := []tax.Line{
		{GrossCents: 500, Category: "drinks"},
		{GrossCents: 500, Category: "drinks"},
		{GrossCents: 333, Category: "food"},
		{GrossCents: 333, Category: "food"},
		{GrossCents: 334, Category: "food"},
	}

	outdoor := rates.SummarizeByRate(lines, false)
	assert.Len(t, outdoor, 2)

	// Drinks bucket: 10.00 at 19%.
	assert.Equal(t, tax.Decompose(1000, 1900), outdoor[1900])
	// Food bucket: the three lines sum to exactly 10.00 before any
	// rounding happens, so the bucket decomposes the exact total.
	assert.Equal(t, tax.Decompose(1000, 700), outdoor[700])

	indoor := rates.SummarizeByRate(lines, true)
	assert.Len(t, indoor, 1)
	assert.Equal(t, tax.Decompose(2000, 1900), indoor[1900])
}

func TestSummarizeFrozenRates(t *testing.T) {
	lines := []tax.Line{
		{GrossCents: 1500, RateBps: 1900},
		{GrossCents: 700, RateBps: 700},
		{GrossCents: 300, RateBps: 700},
	}
	out := tax.SummarizeFrozenRates(lines)
	assert.Len(t, out, 2)
	assert.Equal(t, tax.Decompose(1500, 1900), out[1900])
	assert.Equal(t, tax.Decompose(1000, 700), out[700])
}
