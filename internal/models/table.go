package models

import "github.com/uptrace/bun"

// Table is a physical seating unit. The pool is seeded once by migration
// (12 tables plus the virtual "Pickup" entry) and never deleted; only the
// occupancy columns mutate, and only through the table synchronizer.
type Table struct {
	bun.BaseModel `bun:"table:tables"`

	ID                int64  `bun:"id,pk,autoincrement" json:"id"`
	AdminUserID       string `bun:"admin_user_id,notnull" json:"admin_user_id"`
	Name              string `bun:"name,notnull" json:"name"`
	Occupied          bool   `bun:"occupied,notnull,default:false" json:"occupied"`
	CurrentOrderID    *int64 `bun:"current_order_id,nullzero" json:"current_order_id,omitempty"`
	CurrentTotalCents int64  `bun:"current_total_cents,notnull,default:0" json:"current_total_cents"`
	CurrentItemCount  int    `bun:"current_item_count,notnull,default:0" json:"current_item_count"`
}

// SwitchTableRequest parks an in-progress cart on the previously selected
// table before moving the staff client to a new one.
type SwitchTableRequest struct {
	PrevTableID int64              `json:"prev_table_id"`
	NewTableID  int64              `json:"new_table_id"`
	Cart        *CreateOrderRequest `json:"cart,omitempty"`
}
