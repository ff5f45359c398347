package external_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-pos/internal/auth"
)

// StreamExternalOrders pushes new guest submissions to a connected staff
// client as Server-Sent Events. Every connected client of the tenant sees
// every submission; the stream is advisory and the pending list remains
// the system of record.
func (h *Handler) StreamExternalOrders(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	adminID := user.TenantID()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.Subscribe(ctx, adminID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Staff client connected to external order stream for admin: %s", adminID))

	for {
		select {
		case ext := <-eventChan:
			jsonData, err := json.Marshal(ext)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize external order event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: external-order\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Staff client disconnected from external order stream for admin: %s", adminID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
