package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/store"
)

// tablesHandler handles table lifecycle management: POST creates a
// table (the entry point a client needs before it has anything to
// sync against), GET lists every table for operator/debug use.
type tablesHandler struct {
	store store.Store
}

func newTablesHandler(s store.Store) *tablesHandler {
	return &tablesHandler{store: s}
}

func (h *tablesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: http.StatusMethodNotAllowed})
	}
}

func (h *tablesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: http.StatusBadRequest})
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	table := domain.Table{ID: id, Name: req.Name, Headers: req.Headers}
	if err := h.store.CreateTable(r.Context(), table); err != nil {
		var exists *domain.ErrTableExists
		if errors.As(err, &exists) {
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: http.StatusConflict})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: http.StatusInternalServerError})
		return
	}

	writeJSON(w, http.StatusCreated, table)
}

func (h *tablesHandler) list(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.GetAllTables(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: http.StatusInternalServerError})
		return
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: tables})
}
