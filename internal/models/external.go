package models

import (
	"time"

	"github.com/uptrace/bun"
)

// External order statuses are staff-driven; PENDING is the only state an
// order can be created in.
const (
	ExternalStatusPending   = "PENDING"
	ExternalStatusConfirmed = "CONFIRMED"
	ExternalStatusCompleted = "COMPLETED"
	ExternalStatusCancelled = "CANCELLED"
)

// ExternalOrder is the public-submission shadow record paired 1:1 with an
// Order. It owns its own copy of the item rows and never updates them
// after creation.
type ExternalOrder struct {
	bun.BaseModel `bun:"table:external_orders"`

	ID            string    `bun:"id,pk" json:"id"`
	OrderID       int64     `bun:"order_id,notnull" json:"order_id"`
	AdminUserID   string    `bun:"admin_user_id,notnull" json:"admin_user_id"`
	TotalCents    int64     `bun:"total_cents,notnull" json:"total_cents"`
	Status        string    `bun:"status,notnull" json:"status"`
	Source        string    `bun:"source,nullzero" json:"source,omitempty"`
	CustomerName  string    `bun:"customer_name,notnull" json:"customer_name"`
	CustomerPhone string    `bun:"customer_phone,notnull" json:"customer_phone"`
	CustomerNote  string    `bun:"customer_note,nullzero" json:"customer_note,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`

	Items []OrderItem `bun:"rel:has-many,join:id=external_order_id" json:"items"`
}

// ValidExternalStatus reports whether s is a recognised external order status.
func ValidExternalStatus(s string) bool {
	switch s {
	case ExternalStatusPending, ExternalStatusConfirmed, ExternalStatusCompleted, ExternalStatusCancelled:
		return true
	}
	return false
}

type SubmitExternalOrderRequest struct {
	AdminUserID   string           `json:"admin_user_id"`
	Source        string           `json:"source,omitempty"`
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	CustomerNote  string           `json:"customer_note,omitempty"`
	Items         []OrderItemInput `json:"items"`
}
