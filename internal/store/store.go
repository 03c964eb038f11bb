// Package store defines the storage contract shared by the embedded
// and networked backends, plus the per-table critical section both
// backends carry (and the Applier locks) to harden concurrent
// read-modify-write sequences.
package store

import (
	"context"
	"sync"

	"github.com/kasuganosora/tablesync/internal/domain"
)

// Store is the durable persistence contract for materialized tables
// and the append-only event log. Both backends (badgerstore, pgstore)
// implement it identically; the only backend type switch is
// cmd/server's lookup of the backend's TableLocker.
type Store interface {
	// Init creates the persistence schema if absent. Idempotent.
	Init(ctx context.Context) error

	// Close flushes and releases resources.
	Close(ctx context.Context) error

	// GetAllTables returns every table, most recently updated first.
	GetAllTables(ctx context.Context) ([]domain.Table, error)

	// GetTable returns the materialized table, or ErrTableNotFound.
	GetTable(ctx context.Context, id string) (domain.Table, error)

	// CreateTable inserts a new table. Fails with ErrTableExists on id
	// collision.
	CreateTable(ctx context.Context, table domain.Table) error

	// UpdateTable overwrites a table, bumping version and updatedAt,
	// and reports whether a row matched.
	UpdateTable(ctx context.Context, id string, table domain.Table) (bool, error)

	// DeleteTable removes a table and reports whether a row matched.
	DeleteTable(ctx context.Context, id string) (bool, error)

	// AppendEvent inserts an event with a server-assigned monotonic id
	// and server-receipt timestamp. Fails with ErrCursorDuplicate if
	// cursor has already been recorded.
	AppendEvent(ctx context.Context, cursor, clientID string, op domain.Operation) (domain.Event, error)

	// EventsSince returns events with id greater than the one cursor
	// resolves to (or the first `limit` events, ascending, if cursor
	// is the zero cursor), up to limit. An unresolvable cursor yields
	// an empty, non-error result.
	EventsSince(ctx context.Context, cursor string, limit int) ([]domain.Event, error)

	// RecentEvents returns events by id descending, for debug surfaces.
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)

	// LatestCursor returns the cursor of the highest-id event, or the
	// zero cursor if the log is empty.
	LatestCursor(ctx context.Context) (string, error)

	// Reset deletes all tables and events and resets id sequences.
	// Debug-only; gated by the caller.
	Reset(ctx context.Context) error
}

// TableLocker serializes a table's read-modify-write sequence
// (GetTable → apply → UpdateTable) against concurrent requests for the
// same tableId, without serializing unrelated tables against each
// other. Both backends embed one.
type TableLocker struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

// NewTableLocker constructs an empty locker.
func NewTableLocker() *TableLocker {
	return &TableLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the caller holds the critical section for
// tableID, then returns an unlock function.
func (l *TableLocker) Lock(tableID string) func() {
	l.mu.RLock()
	m, ok := l.locks[tableID]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		m, ok = l.locks[tableID]
		if !ok {
			m = &sync.Mutex{}
			l.locks[tableID] = m
		}
		l.mu.Unlock()
	}

	m.Lock()
	return m.Unlock
}
