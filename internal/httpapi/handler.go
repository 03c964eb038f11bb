package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/sync"
)

// syncHandler handles POST /api/sync and GET /api/sync.
type syncHandler struct {
	coord            *sync.Coordinator
	maxSyncBatchSize int
}

func newSyncHandler(coord *sync.Coordinator, maxSyncBatchSize int) *syncHandler {
	return &syncHandler{coord: coord, maxSyncBatchSize: maxSyncBatchSize}
}

func (h *syncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.push(w, r)
	case http.MethodGet:
		h.pull(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: http.StatusMethodNotAllowed})
	}
}

func (h *syncHandler) push(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: http.StatusBadRequest})
		return
	}

	if h.maxSyncBatchSize > 0 && len(req.Ops) > h.maxSyncBatchSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "ops batch exceeds MAX_SYNC_BATCH_SIZE",
			Code:  http.StatusRequestEntityTooLarge,
		})
		return
	}

	res, err := h.coord.Push(r.Context(), req.ClientID, req.BaseCursor, req.Ops)
	if err != nil {
		// Internal error: echo the caller's baseCursor so it can retry,
		// per the three-outcome error model.
		writeJSON(w, http.StatusOK, SyncResponse{
			Success:   false,
			Cursor:    req.BaseCursor,
			Deltas:    []domain.Delta{},
			Conflicts: []domain.Conflict{},
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Success:   true,
		Cursor:    res.Cursor,
		Deltas:    res.Deltas,
		Conflicts: res.Conflicts,
	})
}

func (h *syncHandler) pull(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	if since == "" {
		since = domain.ZeroCursor
	}

	res, err := h.coord.GetChangesSince(r.Context(), since)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: http.StatusInternalServerError})
		return
	}

	var tables *[]domain.Table
	if since == domain.ZeroCursor {
		snapshot := res.Tables
		if snapshot == nil {
			snapshot = []domain.Table{}
		}
		tables = &snapshot
	}

	writeJSON(w, http.StatusOK, PullResponse{Cursor: res.Cursor, Deltas: res.Deltas, Tables: tables})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
