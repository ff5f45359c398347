package db

import (
	"context"
	"strconv"

	"ms-pos/internal/models"

	"github.com/uptrace/bun"
)

// ResetSchema creates every table the POS core needs, dropping existing
// ones first. Production schemas come from the SQL migrations; this
// bootstrap exists for local development and the in-memory SQLite tests.
func ResetSchema(ctx context.Context, bunDB *bun.DB) error {
	modelsToCreate := []interface{}{
		(*models.Product)(nil),
		(*models.Table)(nil),
		(*models.Order)(nil),
		(*models.ExternalOrder)(nil),
		(*models.OrderItem)(nil),
	}

	for _, m := range modelsToCreate {
		if _, err := bunDB.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SeedTables inserts the fixed table pool for a tenant: numbered tables
// plus the virtual pickup entry. Idempotent only on an empty pool.
func SeedTables(ctx context.Context, bunDB *bun.DB, adminID string, count int) error {
	tabs := make([]models.Table, 0, count+1)
	for i := 1; i <= count; i++ {
		tabs = append(tabs, models.Table{
			AdminUserID: adminID,
			Name:        "Table " + strconv.Itoa(i),
		})
	}
	tabs = append(tabs, models.Table{AdminUserID: adminID, Name: "Pickup"})

	_, err := bunDB.NewInsert().Model(&tabs).Exec(ctx)
	return err
}
