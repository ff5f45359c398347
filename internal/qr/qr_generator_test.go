package qr

import (
	"bytes"
	"testing"

	"ms-pos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuURL(t *testing.T) {
	gen := NewGenerator("https://menu.example.com")
	table := &models.Table{ID: 4, AdminUserID: "admin-1", Name: "4"}

	assert.Equal(t, "https://menu.example.com/admin-1?table=4", gen.MenuURL(table))
}

func TestTableQRProducesPNG(t *testing.T) {
	gen := NewGenerator("https://menu.example.com")
	table := &models.Table{ID: 4, AdminUserID: "admin-1", Name: "4"}

	png, err := gen.TableQR(table)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "output should be a PNG image")
}
