package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order lifecycle statuses for staff-entered orders.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusParked    = "parked"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodExternal = "external"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	AdminUserID       string    `bun:"admin_user_id,notnull" json:"admin_user_id"`
	UserID            string    `bun:"user_id,notnull" json:"user_id"`
	TotalCents        int64     `bun:"total_cents,notnull" json:"total_cents"`
	Status            string    `bun:"status,notnull" json:"status"`
	PaymentMethod     string    `bun:"payment_method,notnull" json:"payment_method"`
	CashReceivedCents *int64    `bun:"cash_received_cents,nullzero" json:"cash_received_cents,omitempty"`
	TableID           *int64    `bun:"table_id,nullzero" json:"table_id,omitempty"`
	PaymentIntentID   string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	Timestamp         time.Time `bun:"timestamp,notnull" json:"timestamp"`

	Items []OrderItem `bun:"rel:has-many,join:id=order_id" json:"items"`
	Table *Table      `bun:"rel:belongs-to,join:table_id=id" json:"table,omitempty"`
}

// Terminal reports whether the order's status ends its claim on a table.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// OrderItem is one product line. Exactly one of OrderID/ExternalOrderID is
// set: staff orders own their items directly, external orders keep an
// independent copy alongside the paired Order's items.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID              int64  `bun:"id,pk,autoincrement" json:"id"`
	OrderID         *int64 `bun:"order_id,nullzero" json:"order_id,omitempty"`
	ExternalOrderID string `bun:"external_order_id,nullzero" json:"external_order_id,omitempty"`
	ProductID       string `bun:"product_id,notnull" json:"product_id"`
	ProductName     string `bun:"product_name,notnull" json:"product_name"`
	Quantity        int    `bun:"quantity,notnull" json:"quantity"`
	PriceCents      int64  `bun:"price_cents,notnull" json:"price_cents"`
	TaxRateBps      int64  `bun:"tax_rate_bps,notnull" json:"tax_rate_bps"`
}

// OrderItemInput is a line item as submitted by a client. The product name
// and the tax rate are never taken from the client; both are resolved from
// the catalog and the rate table at write time, so historical orders
// survive product renames and rate changes.
type OrderItemInput struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

type CreateOrderRequest struct {
	TotalCents        int64            `json:"total_cents"`
	Status            string           `json:"status"`
	PaymentMethod     string           `json:"payment_method"`
	CashReceivedCents *int64           `json:"cash_received_cents,omitempty"`
	TableID           *int64           `json:"table_id,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
	Items             []OrderItemInput `json:"items"`
}

// UpdateOrderRequest carries a partial field set. Nil pointers mean "keep".
// Items follows the same rule: nil keeps the existing lines, a non-nil
// slice replaces them wholesale.
type UpdateOrderRequest struct {
	TotalCents        *int64            `json:"total_cents,omitempty"`
	Status            *string           `json:"status,omitempty"`
	PaymentMethod     *string           `json:"payment_method,omitempty"`
	CashReceivedCents *int64            `json:"cash_received_cents,omitempty"`
	TableID           *int64            `json:"table_id,omitempty"`
	Items             *[]OrderItemInput `json:"items,omitempty"`
}
