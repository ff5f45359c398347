package models

import "github.com/uptrace/bun"

// Product categories relevant to tax treatment. Drinks are always taxed at
// the standard rate regardless of where they are consumed.
const (
	CategoryDrinks = "drinks"
	CategoryFood   = "food"
)

// Product is a catalog entry owned by an admin user (tenant). Orders
// denormalize the name and price at write time, so renames here never
// rewrite history.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          string `bun:"id,pk" json:"id"`
	AdminUserID string `bun:"admin_user_id,notnull" json:"admin_user_id"`
	Name        string `bun:"name,notnull" json:"name"`
	PriceCents  int64  `bun:"price_cents,notnull" json:"price_cents"`
	Category    string `bun:"category,notnull" json:"category"`
	Active      bool   `bun:"active,notnull,default:true" json:"active"`
}
