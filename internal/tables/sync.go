package tables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-pos/internal/logger"
	"ms-pos/internal/models"

	"github.com/uptrace/bun"
)

// Synchronizer is the only writer of a table's occupancy columns. Order
// code never flips occupied directly; it hands the synchronizer a bun.IDB
// so the flip joins the caller's transaction and commits or rolls back
// with the order rows.
type Synchronizer struct {
	Bun    *bun.DB
	Logger *logger.Logger
}

func NewSynchronizer(bunDB *bun.DB, log *logger.Logger) *Synchronizer {
	return &Synchronizer{Bun: bunDB, Logger: log}
}

// Occupy marks a table as held by the given order and stores the display
// snapshot (running total, item count). Fails with ErrNotFound if the
// table does not exist in the order's tenant.
func (s *Synchronizer) Occupy(ctx context.Context, idb bun.IDB, tableID int64, order *models.Order, itemCount int) error {
	var table models.Table
	err := idb.NewSelect().
		Model(&table).
		Where("id = ?", tableID).
		Where("admin_user_id = ?", order.AdminUserID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: table %d", models.ErrNotFound, tableID)
	}
	if err != nil {
		return err
	}

	table.Occupied = true
	table.CurrentOrderID = &order.ID
	table.CurrentTotalCents = order.TotalCents
	table.CurrentItemCount = itemCount

	_, err = idb.NewUpdate().
		Model(&table).
		Column("occupied", "current_order_id", "current_total_cents", "current_item_count").
		Where("id = ?", tableID).
		Exec(ctx)
	if err != nil {
		return err
	}

	if s.Logger != nil {
		s.Logger.LogTable("OCCUPY", tableID, fmt.Sprintf("held by order %d", order.ID))
	}
	return nil
}

// Release frees a table and drops the order reference.
func (s *Synchronizer) Release(ctx context.Context, idb bun.IDB, tableID int64) error {
	_, err := idb.NewUpdate().
		Model((*models.Table)(nil)).
		Set("occupied = ?", false).
		Set("current_order_id = NULL").
		Set("current_total_cents = ?", 0).
		Set("current_item_count = ?", 0).
		Where("id = ?", tableID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.LogTable("RELEASE", tableID, "freed")
	}
	return nil
}

// ReleaseForOrder frees the order's table when the order has one. Called
// by the order service whenever a status transition is terminal.
func (s *Synchronizer) ReleaseForOrder(ctx context.Context, idb bun.IDB, order *models.Order) error {
	if order.TableID == nil {
		return nil
	}
	return s.Release(ctx, idb, *order.TableID)
}

// Clear is the explicit staff action: free the table and cancel any
// non-terminal order still holding it, in one transaction.
func (s *Synchronizer) Clear(ctx context.Context, tableID int64, actingUser *models.ActingUser) (*models.Table, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}

	var table models.Table
	err := s.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&table).
			Where("id = ?", tableID).
			Where("admin_user_id = ?", actingUser.TenantID()).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: table %d", models.ErrNotFound, tableID)
		}
		if err != nil {
			return err
		}

		if table.CurrentOrderID != nil {
			_, err = tx.NewUpdate().
				Model((*models.Order)(nil)).
				Set("status = ?", models.OrderStatusCancelled).
				Where("id = ?", *table.CurrentOrderID).
				Where("status NOT IN (?)", bun.In([]string{models.OrderStatusCompleted, models.OrderStatusCancelled})).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		return s.Release(ctx, tx, tableID)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, tableID)
}

// Get returns a single table row.
func (s *Synchronizer) Get(ctx context.Context, tableID int64) (*models.Table, error) {
	var table models.Table
	err := s.Bun.NewSelect().
		Model(&table).
		Where("id = ?", tableID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %d", models.ErrNotFound, tableID)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// List returns the tenant's table board ordered by id.
func (s *Synchronizer) List(ctx context.Context, adminID string) ([]models.Table, error) {
	var tabs []models.Table
	err := s.Bun.NewSelect().
		Model(&tabs).
		Where("admin_user_id = ?", adminID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if tabs == nil {
		tabs = []models.Table{}
	}
	return tabs, nil
}

// CheckInvariant verifies that every table's occupied bit matches the
// existence of a non-terminal order referencing it. Used by tests and by
// the drift log on startup; a false return means some writer bypassed the
// synchronizer.
func (s *Synchronizer) CheckInvariant(ctx context.Context, adminID string) (bool, error) {
	tabs, err := s.List(ctx, adminID)
	if err != nil {
		return false, err
	}

	for _, table := range tabs {
		count, err := s.Bun.NewSelect().
			Model((*models.Order)(nil)).
			Where("table_id = ?", table.ID).
			Where("status NOT IN (?)", bun.In([]string{models.OrderStatusCompleted, models.OrderStatusCancelled})).
			Count(ctx)
		if err != nil {
			return false, err
		}
		if table.Occupied != (count > 0) {
			return false, nil
		}
	}
	return true, nil
}
