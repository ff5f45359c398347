package order

import (
	"context"
	"sort"

	"ms-pos/internal/models"
	"ms-pos/internal/tax"
	"ms-pos/internal/utils"
)

// TaxRateSummary is one rate bucket of an order's tax decomposition, with
// display strings formatted once at the boundary.
type TaxRateSummary struct {
	RateBps    int64  `json:"rate_bps"`
	Rate       string `json:"rate"`
	NetCents   int64  `json:"net_cents"`
	Net        string `json:"net"`
	TaxCents   int64  `json:"tax_cents"`
	Tax        string `json:"tax"`
	GrossCents int64  `json:"gross_cents"`
	Gross      string `json:"gross"`
}

// TaxBreakdownResponse is the receipt-style tax summary for one order.
type TaxBreakdownResponse struct {
	OrderID    int64            `json:"order_id"`
	TotalCents int64            `json:"total_cents"`
	Total      string           `json:"total"`
	Rates      []TaxRateSummary `json:"rates"`
}

// TaxBreakdown decomposes an order's items into per-rate net/tax buckets
// using the rates frozen on each line at sale time. Gross is summed in
// exact cents per bucket and decomposed once, so the buckets add up.
func (s *OrderService) TaxBreakdown(ctx context.Context, orderID int64, actingUser *models.ActingUser) (*TaxBreakdownResponse, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	order, err := s.loadScoped(ctx, orderID, actingUser)
	if err != nil {
		return nil, err
	}

	lines := make([]tax.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, tax.Line{
			GrossCents: item.PriceCents * int64(item.Quantity),
			RateBps:    item.TaxRateBps,
		})
	}

	buckets := tax.SummarizeFrozenRates(lines)

	resp := &TaxBreakdownResponse{
		OrderID:    order.ID,
		TotalCents: order.TotalCents,
		Total:      utils.FormatAmount(order.TotalCents),
		Rates:      make([]TaxRateSummary, 0, len(buckets)),
	}
	for rate, b := range buckets {
		resp.Rates = append(resp.Rates, TaxRateSummary{
			RateBps:    rate,
			Rate:       utils.FormatRate(rate),
			NetCents:   b.NetCents,
			Net:        utils.FormatAmount(b.NetCents),
			TaxCents:   b.TaxCents,
			Tax:        utils.FormatAmount(b.TaxCents),
			GrossCents: b.GrossCents,
			Gross:      utils.FormatAmount(b.GrossCents),
		})
	}
	sort.Slice(resp.Rates, func(i, j int) bool {
		return resp.Rates[i].RateBps < resp.Rates[j].RateBps
	})

	return resp, nil
}
