package tax

// Pure gross-to-net tax decomposition. Amounts are int64 cents, rates are
// int64 basis points (1900 = 19.00%). Callers validate rate >= 0 and
// quantity > 0 before calling.

// Breakdown is the net/tax split of a gross amount.
type Breakdown struct {
	NetCents   int64 `json:"net_cents"`
	TaxCents   int64 `json:"tax_cents"`
	GrossCents int64 `json:"gross_cents"`
}

// Line is a gross amount carrying the rate it was sold under.
type Line struct {
	GrossCents int64
	RateBps    int64
	Category   string
}

// RateTable holds the jurisdiction's food-service rates. Drinks are always
// standard-rated; other categories are standard-rated for on-premises
// consumption and reduced-rated for takeaway.
type RateTable struct {
	StandardBps   int64
	ReducedBps    int64
	DrinkCategory string
}

// Decompose splits a gross amount into net and tax at the given rate:
// net = gross / (1 + rate). Rounding is half-up and applied exactly once,
// here; callers summing many lines must sum gross cents first and
// decompose the total, not accumulate rounded parts.
func Decompose(grossCents, rateBps int64) Breakdown {
	divisor := 10000 + rateBps
	net := divHalfUp(grossCents*10000, divisor)
	return Breakdown{
		NetCents:   net,
		TaxCents:   grossCents - net,
		GrossCents: grossCents,
	}
}

// EffectiveRate returns the rate for a product category given where the
// order is consumed.
func (t RateTable) EffectiveRate(category string, indoor bool) int64 {
	if category == t.DrinkCategory {
		return t.StandardBps
	}
	if indoor {
		return t.StandardBps
	}
	return t.ReducedBps
}

// SummarizeByRate groups lines by their effective rate, sums gross per
// group in exact cents and decomposes each group once. Used for checkout
// receipts and the daily sales report.
func (t RateTable) SummarizeByRate(lines []Line, indoor bool) map[int64]Breakdown {
	grossByRate := make(map[int64]int64)
	for _, l := range lines {
		rate := t.EffectiveRate(l.Category, indoor)
		grossByRate[rate] += l.GrossCents
	}

	out := make(map[int64]Breakdown, len(grossByRate))
	for rate, gross := range grossByRate {
		out[rate] = Decompose(gross, rate)
	}
	return out
}

// SummarizeFrozenRates groups lines by the rate frozen on each line at
// order time, ignoring categories. Used when re-reporting historical
// orders whose rates must not be recomputed.
func SummarizeFrozenRates(lines []Line) map[int64]Breakdown {
	grossByRate := make(map[int64]int64)
	for _, l := range lines {
		grossByRate[l.RateBps] += l.GrossCents
	}

	out := make(map[int64]Breakdown, len(grossByRate))
	for rate, gross := range grossByRate {
		out[rate] = Decompose(gross, rate)
	}
	return out
}

// divHalfUp divides a by b with half-up rounding. b must be positive.
func divHalfUp(a, b int64) int64 {
	if a >= 0 {
		return (2*a + b) / (2 * b)
	}
	return -((-2*a + b) / (2 * b))
}
