package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-pos/internal/models"
	"ms-pos/internal/tables"
	"ms-pos/internal/tax"

	"github.com/uptrace/bun"
)

// DB is the transactional store behind the order service. Every multi-row
// write runs inside one bun transaction; table occupancy writes are
// delegated to the synchronizer so they commit or roll back together with
// the order rows.
type DB struct {
	Bun    *bun.DB
	Tables *tables.Synchronizer
	// Rates decides each line's tax rate at write time. Clients never
	// supply rates; the frozen per-line rate is what reporting reads back.
	Rates tax.RateTable
}

// ---------------- ORDERS ----------------

// GetOrderByID fetches one order with its items and table relation loaded.
func (d *DB) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Relation("Items").
		Relation("Table").
		Where("\"order\".id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	return &order, nil
}

// CreateOrderTx writes the order header, resolves and writes all line
// items and occupies the linked table, all in one transaction. On any
// failure no rows survive. Returns a fresh read-after-write so the caller
// observes server-computed values (ids, resolved product names).
func (d *DB) CreateOrderTx(ctx context.Context, order *models.Order, inputs []models.OrderItemInput) (*models.Order, error) {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Header first so the items can reference the generated id.
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}

		items, err := d.resolveItems(ctx, tx, order.AdminUserID, inputs, &order.ID, "", order.TableID != nil)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}

		if order.TableID != nil {
			if err := d.Tables.Occupy(ctx, tx, *order.TableID, order, len(items)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetOrderByID(ctx, order.ID)
}

// UpdateOrderTx applies a partial update to an existing order. Supplied
// scalar fields change, a supplied item list replaces the old one
// wholesale, and a table change releases the old table and occupies the
// new one, all in the same transaction.
func (d *DB) UpdateOrderTx(ctx context.Context, order *models.Order, req models.UpdateOrderRequest) (*models.Order, error) {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		oldTableID := order.TableID

		if req.TotalCents != nil {
			order.TotalCents = *req.TotalCents
		}
		if req.Status != nil {
			order.Status = *req.Status
		}
		if req.PaymentMethod != nil {
			order.PaymentMethod = *req.PaymentMethod
		}
		if req.CashReceivedCents != nil {
			order.CashReceivedCents = req.CashReceivedCents
		}
		if req.TableID != nil {
			order.TableID = req.TableID
		}

		_, err := tx.NewUpdate().
			Model(order).
			Column("total_cents", "status", "payment_method", "cash_received_cents", "table_id").
			Where("id = ?", order.ID).
			Exec(ctx)
		if err != nil {
			return err
		}

		itemCount := len(order.Items)
		if req.Items != nil {
			// Replace, not patch: the client always sends the full cart.
			if _, err := tx.NewDelete().
				Model((*models.OrderItem)(nil)).
				Where("order_id = ?", order.ID).
				Exec(ctx); err != nil {
				return err
			}

			items, err := d.resolveItems(ctx, tx, order.AdminUserID, *req.Items, &order.ID, "", order.TableID != nil)
			if err != nil {
				return err
			}
			if len(items) > 0 {
				if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
					return err
				}
			}
			itemCount = len(items)
		}

		tableChanged := req.TableID != nil && (oldTableID == nil || *oldTableID != *req.TableID)
		switch {
		case order.Terminal():
			// A terminal status through the general update path frees the
			// held table the same way a status transition does.
			if oldTableID != nil {
				if err := d.Tables.Release(ctx, tx, *oldTableID); err != nil {
					return err
				}
			}
		case tableChanged:
			if oldTableID != nil {
				if err := d.Tables.Release(ctx, tx, *oldTableID); err != nil {
					return err
				}
			}
			if err := d.Tables.Occupy(ctx, tx, *order.TableID, order, itemCount); err != nil {
				return err
			}
		case order.TableID != nil:
			// Refresh the display snapshot on the held table.
			if err := d.Tables.Occupy(ctx, tx, *order.TableID, order, itemCount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetOrderByID(ctx, order.ID)
}

// UpdateOrderStatusTx transitions the status and, when the transition is
// terminal, releases the order's table through the synchronizer in the
// same transaction.
func (d *DB) UpdateOrderStatusTx(ctx context.Context, order *models.Order, newStatus string) (*models.Order, error) {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		order.Status = newStatus
		_, err := tx.NewUpdate().
			Model(order).
			Column("status").
			Where("id = ?", order.ID).
			Exec(ctx)
		if err != nil {
			return err
		}

		if order.Terminal() {
			return d.Tables.ReleaseForOrder(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetOrderByID(ctx, order.ID)
}

// resolveItems turns client line inputs into item rows, freezing the
// catalog name and the effective tax rate at write time. Any unresolvable
// product aborts the whole transaction; no partial order is left behind.
func (d *DB) resolveItems(ctx context.Context, idb bun.IDB, adminID string, inputs []models.OrderItemInput, orderID *int64, externalOrderID string, indoor bool) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		var product models.Product
		err := idb.NewSelect().
			Model(&product).
			Where("id = ?", in.ProductID).
			Where("admin_user_id = ?", adminID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, in.ProductID)
		}
		if err != nil {
			return nil, err
		}

		items = append(items, models.OrderItem{
			OrderID:         orderID,
			ExternalOrderID: externalOrderID,
			ProductID:       in.ProductID,
			ProductName:     product.Name,
			Quantity:        in.Quantity,
			PriceCents:      in.PriceCents,
			TaxRateBps:      d.Rates.EffectiveRate(product.Category, indoor),
		})
	}
	return items, nil
}

// ---------------- EXTERNAL ORDERS ----------------

// CreateExternalOrderTx persists a public submission: the paired Order
// header and its items, then the ExternalOrder shadow record with its own
// copy of the items, all in one transaction.
func (d *DB) CreateExternalOrderTx(ctx context.Context, order *models.Order, ext *models.ExternalOrder, inputs []models.OrderItemInput) (*models.ExternalOrder, error) {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}

		// External submissions are takeaway, so lines carry the reduced
		// rate unless the category forces standard.
		orderItems, err := d.resolveItems(ctx, tx, order.AdminUserID, inputs, &order.ID, "", false)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&orderItems).Exec(ctx); err != nil {
			return err
		}

		ext.OrderID = order.ID
		if _, err := tx.NewInsert().Model(ext).Exec(ctx); err != nil {
			return err
		}

		extItems, err := d.resolveItems(ctx, tx, order.AdminUserID, inputs, nil, ext.ID, false)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&extItems).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetExternalOrderByID(ctx, ext.ID)
}

// GetExternalOrderByID fetches one external order with its item copies.
func (d *DB) GetExternalOrderByID(ctx context.Context, id string) (*models.ExternalOrder, error) {
	var ext models.ExternalOrder
	err := d.Bun.NewSelect().
		Model(&ext).
		Relation("Items").
		Where("external_order.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: external order %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if ext.Items == nil {
		ext.Items = []models.OrderItem{}
	}
	return &ext, nil
}

// UpdateExternalOrderStatusTx writes the new status and mirrors terminal
// transitions onto the paired Order, releasing its table if it holds one.
func (d *DB) UpdateExternalOrderStatusTx(ctx context.Context, ext *models.ExternalOrder, newStatus, pairedOrderStatus string) (*models.ExternalOrder, error) {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ext.Status = newStatus
		_, err := tx.NewUpdate().
			Model(ext).
			Column("status").
			Where("id = ?", ext.ID).
			Exec(ctx)
		if err != nil {
			return err
		}

		if pairedOrderStatus == "" {
			return nil
		}

		var order models.Order
		err = tx.NewSelect().
			Model(&order).
			Where("id = ?", ext.OrderID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			// Shadow record without a paired order is drift, not a reason
			// to fail the staff action.
			return nil
		}
		if err != nil {
			return err
		}

		order.Status = pairedOrderStatus
		if _, err := tx.NewUpdate().
			Model(&order).
			Column("status").
			Where("id = ?", order.ID).
			Exec(ctx); err != nil {
			return err
		}

		if order.Terminal() {
			return d.Tables.ReleaseForOrder(ctx, tx, &order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetExternalOrderByID(ctx, ext.ID)
}

// ListPendingExternalOrders is the polling fallback behind the push
// channel: every PENDING submission for the tenant, oldest first.
func (d *DB) ListPendingExternalOrders(ctx context.Context, adminID string) ([]models.ExternalOrder, error) {
	var exts []models.ExternalOrder
	err := d.Bun.NewSelect().
		Model(&exts).
		Relation("Items").
		Where("external_order.admin_user_id = ?", adminID).
		Where("external_order.status = ?", models.ExternalStatusPending).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if exts == nil {
		exts = []models.ExternalOrder{}
	}
	return exts, nil
}

// ---------------- CATALOG ----------------

// ListActiveProducts returns the tenant's public menu.
func (d *DB) ListActiveProducts(ctx context.Context, adminID string) ([]models.Product, error) {
	var products []models.Product
	err := d.Bun.NewSelect().
		Model(&products).
		Where("admin_user_id = ?", adminID).
		Where("active = ?", true).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// SavePaymentIntentID persists the Stripe payment intent linked to a card
// order.
func (d *DB) SavePaymentIntentID(ctx context.Context, orderID int64, intentID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_intent_id = ?", intentID).
		Where("id = ?", orderID).
		Exec(ctx)
	return err
}
