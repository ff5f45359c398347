package qr

import (
	"fmt"

	"ms-pos/internal/models"

	"github.com/skip2/go-qrcode"
)

// Generator renders the public menu link for a table as a printable QR
// code. Guests scanning it land on the tenant's menu page with the table
// preselected.
type Generator struct {
	publicBaseURL string
}

func NewGenerator(publicBaseURL string) *Generator {
	return &Generator{publicBaseURL: publicBaseURL}
}

// MenuURL builds the public menu link encoded into a table's QR code.
func (g *Generator) MenuURL(table *models.Table) string {
	return fmt.Sprintf("%s/%s?table=%d", g.publicBaseURL, table.AdminUserID, table.ID)
}

// TableQR renders the table's menu link as a PNG.
func (g *Generator) TableQR(table *models.Table) ([]byte, error) {
	return qrcode.Encode(g.MenuURL(table), qrcode.Medium, 256)
}
