package httpapi

import (
	"net/http"
	"strconv"

	"github.com/kasuganosora/tablesync/internal/store"
)

// debugHandler serves the DEBUG-gated introspection endpoints. It is
// only mounted when config.Debug is true.
type debugHandler struct {
	store store.Store
}

func newDebugHandler(s store.Store) *debugHandler {
	return &debugHandler{store: s}
}

func (h *debugHandler) events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: http.StatusMethodNotAllowed})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.store.RecentEvents(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: http.StatusInternalServerError})
		return
	}
	writeJSON(w, http.StatusOK, DebugEventsResponse{Events: events})
}

func (h *debugHandler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: http.StatusMethodNotAllowed})
		return
	}

	if err := h.store.Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: http.StatusInternalServerError})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
