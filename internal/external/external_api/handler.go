package external_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-pos/internal/auth"
	"ms-pos/internal/external"
	"ms-pos/internal/logger"
	"ms-pos/internal/models"
	"ms-pos/internal/sse"
	"ms-pos/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service      *external.Service
	EventEmitter *sse.ExternalOrderEmitter
	Logger       *logger.Logger
}

func NewHandler(service *external.Service, emitter *sse.ExternalOrderEmitter, log *logger.Logger) *Handler {
	return &Handler{
		Service:      service,
		EventEmitter: emitter,
		Logger:       log,
	}
}

func sendJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
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

// Submit is the unauthenticated ingestion endpoint for guest orders. The
// response carries the submission id the guest can show at pickup; it
// never echoes internal failure detail.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitExternalOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	created, err := h.Service.Submit(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Submit: %v", err))
		status, msg := errStatus(err)
		sendJSONResponse(w, status, utils.ErrorResponse("submission failed", msg))
		return
	}

	sendJSONResponse(w, http.StatusCreated, utils.SuccessResponse("order submitted", created))
}

// Menu returns an admin account's active catalog, the data behind the
// public menu page a table QR code points at.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "adminUserID")

	products, err := h.Service.Menu(r.Context(), adminID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Menu: %v", err))
		status, msg := errStatus(err)
		sendJSONResponse(w, status, utils.ErrorResponse("failed to load menu", msg))
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("menu", products))
}

// ListPending is the staff polling fallback for submissions missed on the
// push channel.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		sendJSONResponse(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "missing user"))
		return
	}

	pending, err := h.Service.ListPending(r.Context(), user.TenantID())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListPending: %v", err))
		status, msg := errStatus(err)
		sendJSONResponse(w, status, utils.ErrorResponse("failed to list pending orders", msg))
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("pending external orders", pending))
}

// UpdateStatus transitions a submission; re-applying the current status
// succeeds without side effects, so staff clients can retry safely.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		sendJSONResponse(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", "missing user"))
		return
	}

	id := chi.URLParam(r, "externalOrderID")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	updated, err := h.Service.UpdateStatus(r.Context(), id, body.Status, user.TenantID())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateStatus: %v", err))
		status, msg := errStatus(err)
		sendJSONResponse(w, status, utils.ErrorResponse("status update failed", msg))
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("status updated", updated))
}
