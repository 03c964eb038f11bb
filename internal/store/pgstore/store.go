// Package pgstore is the networked relational Store backend, selected
// when DATABASE_URL carries a postgres(ql):// prefix. It implements
// the reference schema from the storage contract on top of
// database/sql plus lib/pq, grounded on the teacher's
// server/datasource/sql.SQLCommonDataSource connection-pool setup.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq" // postgres driver, registered via database/sql
	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/store"
)

// Store implements store.Store on top of a Postgres connection pool.
type Store struct {
	db     *sql.DB
	locker *store.TableLocker
}

// Options configures the connection pool.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultOptions returns a conservative pool configuration.
func DefaultOptions(dsn string) Options {
	return Options{
		DSN:             dsn,
		MaxOpenConns:    16,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Open opens the Postgres connection pool. Callers must call Init
// before use to create the schema.
func Open(opts Options) (*Store, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return &Store{db: db, locker: store.NewTableLocker()}, nil
}

// Locker exposes the per-table critical section so callers (the
// Applier) can serialize a read-modify-write sequence.
func (s *Store) Locker() *store.TableLocker { return s.locker }

// Init creates the schema if absent and verifies connectivity.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

// tableRow is the JSON payload stored in tables.data: everything
// except id and name, per the reference schema's note.
type tableRow struct {
	Headers []string     `json:"headers"`
	Rows    []domain.Row `json:"rows"`
}

func scanTable(id, name string, data []byte, updatedAt time.Time, version int64) (domain.Table, error) {
	var payload tableRow
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.Table{}, err
	}
	return domain.Table{
		ID:        id,
		Name:      name,
		Headers:   payload.Headers,
		Rows:      payload.Rows,
		UpdatedAt: updatedAt,
		Version:   version,
	}, nil
}

// GetAllTables returns every table, most recently updated first.
func (s *Store) GetAllTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, data, updated_at, version FROM tables ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		var id, name string
		var data []byte
		var updatedAt time.Time
		var version int64
		if err := rows.Scan(&id, &name, &data, &updatedAt, &version); err != nil {
			return nil, err
		}
		t, err := scanTable(id, name, data, updatedAt, version)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTable returns the materialized table, or ErrTableNotFound.
func (s *Store) GetTable(ctx context.Context, id string) (domain.Table, error) {
	var name string
	var data []byte
	var updatedAt time.Time
	var version int64

	row := s.db.QueryRowContext(ctx,
		`SELECT name, data, updated_at, version FROM tables WHERE id = $1`, id)
	if err := row.Scan(&name, &data, &updatedAt, &version); err != nil {
		if err == sql.ErrNoRows {
			return domain.Table{}, domain.NewErrTableNotFound(id)
		}
		return domain.Table{}, err
	}
	return scanTable(id, name, data, updatedAt, version)
}

// CreateTable inserts a new table, failing if the id collides.
func (s *Store) CreateTable(ctx context.Context, t domain.Table) error {
	data, err := json.Marshal(tableRow{Headers: t.Headers, Rows: t.Rows})
	if err != nil {
		return err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tables WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.NewErrTableExists(t.ID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tables (id, name, data, updated_at, version) VALUES ($1, $2, $3, $4, 1)`,
		t.ID, t.Name, data, time.Now().UTC())
	return err
}

// UpdateTable overwrites a table, bumping version and updatedAt, and
// reports whether a row matched.
func (s *Store) UpdateTable(ctx context.Context, id string, t domain.Table) (bool, error) {
	data, err := json.Marshal(tableRow{Headers: t.Headers, Rows: t.Rows})
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tables SET name = $1, data = $2, updated_at = $3, version = version + 1 WHERE id = $4`,
		t.Name, data, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteTable removes a table and reports whether a row matched.
func (s *Store) DeleteTable(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tables WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AppendEvent inserts an event; the SERIAL primary key plus a
// transactional insert gives the monotonic, linearized id the
// contract requires (§5).
func (s *Store) AppendEvent(ctx context.Context, cursor, clientID string, op domain.Operation) (domain.Event, error) {
	opJSON, err := json.Marshal(op)
	if err != nil {
		return domain.Event{}, err
	}
	serverTs := time.Now().UTC()

	var id int64
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO sync_events (cursor, client_id, operation, server_ts, applied)
		 VALUES ($1, $2, $3, $4, TRUE) RETURNING id`,
		cursor, clientID, opJSON, serverTs)
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return domain.Event{}, domain.NewErrCursorDuplicate(cursor)
		}
		return domain.Event{}, err
	}

	return domain.Event{
		ID:        id,
		Cursor:    cursor,
		ClientID:  clientID,
		Operation: op,
		ServerTs:  serverTs,
	}, nil
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		var opJSON []byte
		if err := rows.Scan(&ev.ID, &ev.Cursor, &ev.ClientID, &opJSON, &ev.ServerTs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(opJSON, &ev.Operation); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// EventsSince returns events with id greater than the one cursor
// resolves to, ascending, up to limit. An unresolvable cursor yields
// an empty result, not an error.
func (s *Store) EventsSince(ctx context.Context, cursor string, limit int) ([]domain.Event, error) {
	var afterID int64
	if cursor != domain.ZeroCursor {
		var id int64
		err := s.db.QueryRowContext(ctx, `SELECT id FROM sync_events WHERE cursor = $1`, cursor).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		afterID = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cursor, client_id, operation, server_ts FROM sync_events
		 WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, nullLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// RecentEvents returns events by id descending, for the debug surface.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cursor, client_id, operation, server_ts FROM sync_events
		 ORDER BY id DESC LIMIT $1`, nullLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestCursor returns the cursor of the highest-id event, or the zero
// cursor if the log is empty.
func (s *Store) LatestCursor(ctx context.Context) (string, error) {
	var cursor string
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor FROM sync_events ORDER BY id DESC LIMIT 1`).Scan(&cursor)
	if err == sql.ErrNoRows {
		return domain.ZeroCursor, nil
	}
	if err != nil {
		return "", err
	}
	return cursor, nil
}

// Reset deletes all tables and events and resets identifier sequences.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE tables`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `TRUNCATE sync_events RESTART IDENTITY`); err != nil {
		return err
	}
	return tx.Commit()
}

// nullLimit turns a non-positive limit into "no limit" for Postgres's
// LIMIT clause, which accepts NULL to mean unbounded.
func nullLimit(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}

// isUniqueViolation reports whether err is a Postgres unique
// constraint violation (SQLSTATE 23505), without importing pq's
// error type directly so callers that swap drivers aren't coupled to
// it beyond this one check.
func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	if se, ok := err.(sqlStater); ok {
		return se.SQLState() == "23505"
	}
	return false
}
