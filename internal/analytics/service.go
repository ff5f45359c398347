package analytics

import (
	"context"
	"sort"
	"time"

	"ms-pos/internal/models"
	"ms-pos/internal/utils"

	"github.com/uptrace/bun"
)

// Service handles read-only sales reporting over completed orders.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// ProductAggregate folds every sold line of one product into a single row.
type ProductAggregate struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	TotalCents  int64  `json:"total_cents"`
	TaxRateBps  int64  `json:"tax_rate_bps"`
}

// DailySalesReport is the per-day summary for the staff report screen.
type DailySalesReport struct {
	Date       string             `json:"date"`
	TotalCents int64              `json:"total_cents"`
	OrderCount int                `json:"order_count"`
	Items      []ProductAggregate `json:"items"`
}

// DailySales sums the tenant's completed orders whose timestamp falls
// inside the given calendar day, inclusive on both bounds. Amounts are
// summed in exact cents; a day without orders yields a zero-valued report,
// not an error.
func (s *Service) DailySales(ctx context.Context, adminID string, date time.Time) (*DailySalesReport, error) {
	start, end := utils.DayBounds(date)

	report := &DailySalesReport{
		Date:  date.Format("2006-01-02"),
		Items: []ProductAggregate{},
	}

	var orders []models.Order
	err := s.db.NewSelect().
		Model(&orders).
		Relation("Items").
		Where("\"order\".admin_user_id = ?", adminID).
		Where("\"order\".status = ?", models.OrderStatusCompleted).
		Where("\"order\".timestamp >= ?", start).
		Where("\"order\".timestamp <= ?", end).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*ProductAggregate)
	for _, order := range orders {
		report.OrderCount++
		report.TotalCents += order.TotalCents

		for _, item := range order.Items {
			agg, ok := byProduct[item.ProductID]
			if !ok {
				agg = &ProductAggregate{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					TaxRateBps:  item.TaxRateBps,
				}
				byProduct[item.ProductID] = agg
			}
			agg.Quantity += item.Quantity
			agg.TotalCents += item.PriceCents * int64(item.Quantity)
		}
	}

	for _, agg := range byProduct {
		report.Items = append(report.Items, *agg)
	}
	sort.Slice(report.Items, func(i, j int) bool {
		return report.Items[i].ProductID < report.Items[j].ProductID
	})

	return report, nil
}

// RangeSalesReport aggregates product sales over an arbitrary date range.
type RangeSalesReport struct {
	From       string             `json:"from"`
	To         string             `json:"to"`
	TotalCents int64              `json:"total_cents"`
	OrderCount int                `json:"order_count"`
	Items      []ProductAggregate `json:"items"`
}

// ProductSales folds completed orders between the two dates (inclusive)
// into per-product aggregates.
func (s *Service) ProductSales(ctx context.Context, adminID string, from, to time.Time) (*RangeSalesReport, error) {
	start, _ := utils.DayBounds(from)
	_, end := utils.DayBounds(to)

	report := &RangeSalesReport{
		From:  from.Format("2006-01-02"),
		To:    to.Format("2006-01-02"),
		Items: []ProductAggregate{},
	}

	var orders []models.Order
	err := s.db.NewSelect().
		Model(&orders).
		Relation("Items").
		Where("\"order\".admin_user_id = ?", adminID).
		Where("\"order\".status = ?", models.OrderStatusCompleted).
		Where("\"order\".timestamp >= ?", start).
		Where("\"order\".timestamp <= ?", end).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*ProductAggregate)
	for _, order := range orders {
		report.OrderCount++
		report.TotalCents += order.TotalCents
		for _, item := range order.Items {
			agg, ok := byProduct[item.ProductID]
			if !ok {
				agg = &ProductAggregate{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					TaxRateBps:  item.TaxRateBps,
				}
				byProduct[item.ProductID] = agg
			}
			agg.Quantity += item.Quantity
			agg.TotalCents += item.PriceCents * int64(item.Quantity)
		}
	}

	for _, agg := range byProduct {
		report.Items = append(report.Items, *agg)
	}
	sort.Slice(report.Items, func(i, j int) bool {
		return report.Items[i].ProductID < report.Items[j].ProductID
	})

	return report, nil
}
