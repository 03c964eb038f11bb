package httpapi

import "github.com/kasuganosora/tablesync/internal/domain"

// SyncRequest is the body of POST /api/sync.
type SyncRequest struct {
	ClientID   string             `json:"clientId"`
	BaseCursor string             `json:"baseCursor"`
	Ops        []domain.Operation `json:"ops"`
}

// SyncResponse is the response to POST /api/sync. On an unhandled
// internal error, Success is false, Cursor echoes the caller's
// baseCursor so it can retry, and Deltas/Conflicts are empty.
type SyncResponse struct {
	Success   bool              `json:"success"`
	Cursor    string            `json:"cursor"`
	Deltas    []domain.Delta    `json:"deltas"`
	Conflicts []domain.Conflict `json:"conflicts"`
	Error     string            `json:"error,omitempty"`
}

// PullResponse is the response to GET /api/sync?since=<cursor>. Tables
// is a pointer so encoding/json's omitempty keys off nil-ness, not
// slice length: a bootstrap pull (since="0") against an empty store
// must still emit `"tables":[]`, not omit the key the way a plain
// slice's omitempty would (it treats a zero-length slice as empty
// regardless of nil vs non-nil). A non-bootstrap pull leaves Tables
// nil so the key is omitted entirely, per spec.md §4.4.
type PullResponse struct {
	Cursor string          `json:"cursor"`
	Deltas []domain.Delta  `json:"deltas"`
	Tables *[]domain.Table `json:"tables,omitempty"`
}

// ErrorResponse is the generic JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status string `json:"status"`
}

// DebugEventsResponse is the body of GET /api/debug/events.
type DebugEventsResponse struct {
	Events []domain.Event `json:"events"`
}

// CreateTableRequest is the body of POST /api/tables. ID is optional;
// an empty value generates a server-side id.
type CreateTableRequest struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
}

// TablesResponse is the body of GET /api/tables.
type TablesResponse struct {
	Tables []domain.Table `json:"tables"`
}
