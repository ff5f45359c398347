package table_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-pos/internal/auth"
	"ms-pos/internal/logger"
	"ms-pos/internal/models"
	"ms-pos/internal/order"
	"ms-pos/internal/qr"
	"ms-pos/internal/tables"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Sync         *tables.Synchronizer
	OrderService *order.OrderService
	QR           *qr.Generator
	Logger       *logger.Logger
}

func NewHandler(sync *tables.Synchronizer, orderService *order.OrderService, qrGen *qr.Generator, log *logger.Logger) *Handler {
	return &Handler{
		Sync:         sync,
		OrderService: orderService,
		QR:           qrGen,
		Logger:       log,
	}
}

func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "transaction failed"
	}
}

func parseTableID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "tableID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid table id %q", models.ErrValidation, raw)
	}
	return id, nil
}

// ListTables returns the tenant's full table board with occupancy
// snapshots, the view the staff client polls between pushes.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	board, err := h.Sync.List(r.Context(), user.TenantID())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTables: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(board); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTables: failed to encode response: %v", err))
	}
}

// ClearTable frees a table and cancels whatever non-terminal order still
// holds it.
func (h *Handler) ClearTable(w http.ResponseWriter, r *http.Request) {
	id, err := parseTableID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	table, err := h.Sync.Clear(r.Context(), id, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ClearTable: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(table); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ClearTable: failed to encode response: %v", err))
	}
}

// SwitchTableResponse is returned by SwitchTable: the order parked on the
// previous table (nil when the cart was empty) and the freshly selected
// table.
type SwitchTableResponse struct {
	ParkedOrder *models.Order `json:"parked_order,omitempty"`
	NewTable    *models.Table `json:"new_table"`
}

// SwitchTable moves the staff client from one table to another. A
// non-empty cart is first parked as an order on the previous table, so
// nothing entered there is lost; the empty-cart case is just a selection
// change.
func (h *Handler) SwitchTable(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.SwitchTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp := SwitchTableResponse{}

	if req.Cart != nil && len(req.Cart.Items) > 0 {
		cart := *req.Cart
		cart.Status = models.OrderStatusParked
		cart.TableID = &req.PrevTableID

		parked, err := h.OrderService.CreateOrder(r.Context(), cart, user)
		if err != nil {
			h.Logger.Error("API", fmt.Sprintf("SwitchTable: failed to park cart on table %d: %v", req.PrevTableID, err))
			status, msg := errStatus(err)
			http.Error(w, msg, status)
			return
		}
		resp.ParkedOrder = parked
	}

	newTable, err := h.loadScopedTable(r, req.NewTableID, user)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SwitchTable: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}
	resp.NewTable = newTable

	h.Logger.LogTable("SWITCH", req.NewTableID, fmt.Sprintf("switched from table %d", req.PrevTableID))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SwitchTable: failed to encode response: %v", err))
	}
}

// TableQR renders the table's public menu link as a PNG QR code for
// printing.
func (h *Handler) TableQR(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := parseTableID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	table, err := h.loadScopedTable(r, id, user)
	if err != nil {
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	png, err := h.QR.TableQR(table)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TableQR: failed to encode QR for table %d: %v", id, err))
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("TableQR: failed to write response: %v", err))
	}
}

// loadScopedTable fetches a table and hides other tenants' tables as not
// found.
func (h *Handler) loadScopedTable(r *http.Request, tableID int64, user *models.ActingUser) (*models.Table, error) {
	table, err := h.Sync.Get(r.Context(), tableID)
	if err != nil {
		return nil, err
	}
	if table.AdminUserID != user.TenantID() {
		return nil, fmt.Errorf("%w: table %d", models.ErrNotFound, tableID)
	}
	return table, nil
}
