package analytics_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-pos/internal/analytics"
	"ms-pos/internal/models"
	"ms-pos/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testAdmin = "admin-1"

func setupAnalytics(t *testing.T) (*analytics.Service, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, db.ResetSchema(context.Background(), bunDB))

	t.Cleanup(func() { bunDB.Close() })
	return analytics.NewService(bunDB), bunDB
}

func insertOrderWithItems(t *testing.T, bunDB *bun.DB, status string, ts time.Time, total int64, items []models.OrderItem) {
	t.Helper()
	ctx := context.Background()

	order := &models.Order{
		AdminUserID:   testAdmin,
		UserID:        testAdmin,
		TotalCents:    total,
		Status:        status,
		PaymentMethod: models.PaymentMethodCash,
		Timestamp:     ts,
	}
	_, err := bunDB.NewInsert().Model(order).Exec(ctx)
	require.NoError(t, err)

	for i := range items {
		items[i].OrderID = &order.ID
	}
	if len(items) > 0 {
		_, err = bunDB.NewInsert().Model(&items).Exec(ctx)
		require.NoError(t, err)
	}
}

func TestDailySalesEmptyDayIsZeroValued(t *testing.T) {
	svc, _ := setupAnalytics(t)

	report, err := svc.DailySales(context.Background(), testAdmin, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2026-08-30", report.Date)
	assert.Equal(t, int64(0), report.TotalCents)
	assert.Equal(t, 0, report.OrderCount)
	assert.NotNil(t, report.Items)
	assert.Empty(t, report.Items)
}

func TestDailySalesFoldsItemsPerProduct(t *testing.T) {
	svc, bunDB := setupAnalytics(t)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	insertOrderWithItems(t, bunDB, models.OrderStatusCompleted, day.Add(10*time.Hour), 1000, []models.OrderItem{
		{ProductID: "prod-a", ProductName: "Espresso", Quantity: 2, PriceCents: 250, TaxRateBps: 1900},
		{ProductID: "prod-b", ProductName: "Salad", Quantity: 1, PriceCents: 500, TaxRateBps: 700},
	})
	insertOrderWithItems(t, bunDB, models.OrderStatusCompleted, day.Add(20*time.Hour), 500, []models.OrderItem{
		{ProductID: "prod-a", ProductName: "Espresso", Quantity: 1, PriceCents: 250, TaxRateBps: 1900},
	})
	// Neither cancelled orders nor the next day may leak in.
	insertOrderWithItems(t, bunDB, models.OrderStatusCancelled, day.Add(12*time.Hour), 9999, []models.OrderItem{
		{ProductID: "prod-a", ProductName: "Espresso", Quantity: 9, PriceCents: 250, TaxRateBps: 1900},
	})
	insertOrderWithItems(t, bunDB, models.OrderStatusCompleted, day.Add(25*time.Hour), 9999, []models.OrderItem{
		{ProductID: "prod-a", ProductName: "Espresso", Quantity: 9, PriceCents: 250, TaxRateBps: 1900},
	})

	report, err := svc.DailySales(context.Background(), testAdmin, day)
	require.NoError(t, err)

	assert.Equal(t, int64(1500), report.TotalCents)
	assert.Equal(t, 2, report.OrderCount)
	require.Len(t, report.Items, 2)

	// Deterministic product ordering.
	assert.Equal(t, "prod-a", report.Items[0].ProductID)
	assert.Equal(t, 3, report.Items[0].Quantity)
	assert.Equal(t, int64(750), report.Items[0].TotalCents)
	assert.Equal(t, int64(1900), report.Items[0].TaxRateBps)

	assert.Equal(t, "prod-b", report.Items[1].ProductID)
	assert.Equal(t, 1, report.Items[1].Quantity)
}

func TestDailySalesIncludesWholeDayInclusive(t *testing.T) {
	svc, bunDB := setupAnalytics(t)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	insertOrderWithItems(t, bunDB, models.OrderStatusCompleted, day, 100, nil)
	insertOrderWithItems(t, bunDB, models.OrderStatusCompleted, day.Add(24*time.Hour-time.Second), 200, nil)

	report, err := svc.DailySales(context.Background(), testAdmin, day)
	require.NoError(t, err)
	assert.Equal(t, 2, report.OrderCount)
	assert.Equal(t, int64(300), report.TotalCents)
}

func TestProductSalesRange(t *testing.T) {
	svc, bunDB := setupAnalytics(t)

	day1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2026, 8, 9, 12, 0, 0, 0, time.UTC)

	for _, ts := range []time.Time{day1, day2, outOfRange} {
		insertOrderWithItems(t, bunDB, models.OrderStatusCompleted, ts, 250, []models.OrderItem{
			{ProductID: "prod-a", ProductName: "Espresso", Quantity: 1, PriceCents: 250, TaxRateBps: 1900},
		})
	}

	report, err := svc.ProductSales(context.Background(), testAdmin,
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2026-08-01", report.From)
	assert.Equal(t, "2026-08-03", report.To)
	assert.Equal(t, 2, report.OrderCount)
	require.Len(t, report.Items, 1)
	assert.Equal(t, 2, report.Items[0].Quantity)
	assert.Equal(t, int64(500), report.Items[0].TotalCents)
}
