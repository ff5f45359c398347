package order_api

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

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Logger:       log,
	}
}

// errStatus maps the service error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a generic failure; internal detail stays in the
// logs.
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

func parseOrderID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid order id %q", models.ErrValidation, raw)
	}
	return id, nil
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.OrderService.CreateOrder(r.Context(), req, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to encode response: %v", err))
	}
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderData, err := h.OrderService.GetOrder(r.Context(), id, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orderData); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: failed to encode response: %v", err))
	}
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrder: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.OrderService.UpdateOrder(r.Context(), id, req, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrder: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrder: failed to encode response: %v", err))
	}
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.OrderService.UpdateOrderStatus(r.Context(), id, body.Status, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrderStatus: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateOrderStatus: failed to encode response: %v", err))
	}
}

// GetTaxBreakdown returns the per-rate net/tax decomposition of an order,
// computed from the rates frozen on its lines.
func (h *Handler) GetTaxBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	breakdown, err := h.OrderService.TaxBreakdown(r.Context(), id, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTaxBreakdown: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(breakdown); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTaxBreakdown: failed to encode response: %v", err))
	}
}

// CreatePaymentIntent creates or reuses a card payment intent for a
// pending order and returns the client secret the terminal needs.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	intent, err := h.OrderService.CreateCardPaymentIntent(r.Context(), id, auth.UserFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePaymentIntent: %v", err))
		status, msg := errStatus(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"status":            string(intent.Status),
	}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePaymentIntent: failed to encode response: %v", err))
	}
}
