package analytics_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-pos/internal/analytics"
	"ms-pos/internal/auth"
	"ms-pos/internal/logger"
	"ms-pos/internal/utils"
)

// Handler serves the staff reporting endpoints.
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func sendJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// GetDailySales returns the per-product summary for one calendar day.
// Without a ?date= parameter it reports on today.
func (h *Handler) GetDailySales(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		sendJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := utils.ParseDay(raw)
		if err != nil {
			h.Logger.Error("ANALYTICS", fmt.Sprintf("GetDailySales: invalid date %q", raw))
			sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	report, err := h.Service.DailySales(r.Context(), user.TenantID(), date)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("GetDailySales: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "failed to build report"})
		return
	}

	sendJSONResponse(w, http.StatusOK, report)
}

// GetProductSales returns per-product aggregates over an inclusive date
// range. Both ?from= and ?to= are required.
func (h *Handler) GetProductSales(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		sendJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	from, err := utils.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := utils.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "to must be YYYY-MM-DD"})
		return
	}
	if to.Before(from) {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "to must not be before from"})
		return
	}

	report, err := h.Service.ProductSales(r.Context(), user.TenantID(), from, to)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("GetProductSales: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "failed to build report"})
		return
	}

	sendJSONResponse(w, http.StatusOK, report)
}
