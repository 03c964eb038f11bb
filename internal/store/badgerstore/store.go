// Package badgerstore is the embedded single-file Store backend,
// selected when DATABASE_URL has no postgres(ql):// prefix. It keeps
// materialized tables and the event log in a single Badger LSM-tree
// directory, grounded on the teacher's pkg/resource/badger engine.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/store"
)

// Key prefixes for the Badger keyspace.
const (
	prefixTable  = "table:"
	prefixEvent  = "event:"
	prefixCursor = "cursor:"
)

// Store implements store.Store on top of a Badger database.
type Store struct {
	db      *badger.DB
	locker  *store.TableLocker
	eventID atomic.Int64
}

// Options configures the embedded engine.
type Options struct {
	// Dir is the on-disk directory for the Badger LSM tree. Empty
	// means an ephemeral in-memory database, useful for tests.
	Dir string
}

// Open opens (creating if absent) the Badger database at opts.Dir.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db, locker: store.NewTableLocker()}, nil
}

// Locker exposes the per-table critical section so callers (the
// Applier) can serialize a read-modify-write sequence.
func (s *Store) Locker() *store.TableLocker { return s.locker }

func eventKey(id int64) []byte {
	buf := make([]byte, len(prefixEvent)+8)
	copy(buf, prefixEvent)
	binary.BigEndian.PutUint64(buf[len(prefixEvent):], uint64(id))
	return buf
}

func cursorKey(cursor string) []byte {
	return []byte(prefixCursor + cursor)
}

func tableKey(id string) []byte {
	return []byte(prefixTable + id)
}

// Init recovers the event id counter from the highest stored sequence.
// Badger itself needs no schema; this is the idempotent bootstrap.
func (s *Store) Init(ctx context.Context) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append([]byte(prefixEvent), 0xFF)
		it.Seek(seekKey)
		if !it.ValidForPrefix([]byte(prefixEvent)) {
			s.eventID.Store(0)
			return nil
		}
		key := it.Item().KeyCopy(nil)
		id := int64(binary.BigEndian.Uint64(key[len(prefixEvent):]))
		s.eventID.Store(id)
		return nil
	})
}

// Close flushes and releases the Badger database.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

// GetAllTables returns every table, most recently updated first.
func (s *Store) GetAllTables(ctx context.Context) ([]domain.Table, error) {
	var tables []domain.Table
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixTable)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefixTable)); it.ValidForPrefix([]byte(prefixTable)); it.Next() {
			var t domain.Table
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			tables = append(tables, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tables, func(i, j int) bool {
		return tables[i].UpdatedAt.After(tables[j].UpdatedAt)
	})
	return tables, nil
}

// GetTable returns the materialized table, or ErrTableNotFound.
func (s *Store) GetTable(ctx context.Context, id string) (domain.Table, error) {
	var t domain.Table
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(id))
		if err == badger.ErrKeyNotFound {
			return domain.NewErrTableNotFound(id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	return t, err
}

// CreateTable inserts a new table, failing if the id collides.
func (s *Store) CreateTable(ctx context.Context, t domain.Table) error {
	t.UpdatedAt = time.Now().UTC()
	t.Version = 1

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(t.ID)); err == nil {
			return domain.NewErrTableExists(t.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set(tableKey(t.ID), data)
	})
}

// UpdateTable overwrites a table, bumping version and updatedAt.
func (s *Store) UpdateTable(ctx context.Context, id string, t domain.Table) (bool, error) {
	matched := false
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := txn.Get(tableKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var prev domain.Table
		if err := existing.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
			return err
		}

		matched = true
		t.ID = id
		t.Version = prev.Version + 1
		t.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return txn.Set(tableKey(id), data)
	})
	return matched, err
}

// DeleteTable removes a table and reports whether a row matched.
func (s *Store) DeleteTable(ctx context.Context, id string) (bool, error) {
	matched := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(id)); err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		matched = true
		return txn.Delete(tableKey(id))
	})
	return matched, err
}

// AppendEvent inserts an event with a server-assigned monotonic id.
// The id assignment and cursor-uniqueness check happen inside one
// Badger transaction, giving linearized, totally-ordered appends.
func (s *Store) AppendEvent(ctx context.Context, cursor, clientID string, op domain.Operation) (domain.Event, error) {
	ev := domain.Event{
		Cursor:    cursor,
		ClientID:  clientID,
		Operation: op,
		ServerTs:  time.Now().UTC(),
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(cursorKey(cursor)); err == nil {
			return domain.NewErrCursorDuplicate(cursor)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		id := s.eventID.Add(1)
		ev.ID = id

		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err := txn.Set(eventKey(id), data); err != nil {
			return err
		}
		return txn.Set(cursorKey(cursor), []byte(fmt.Sprintf("%d", id)))
	})
	if err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// EventsSince returns events with id greater than the one cursor
// resolves to, ascending, up to limit.
func (s *Store) EventsSince(ctx context.Context, cursor string, limit int) ([]domain.Event, error) {
	var afterID int64
	if cursor != domain.ZeroCursor {
		resolved, err := s.resolveCursor(cursor)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			return nil, nil
		}
		afterID = *resolved
	}

	var events []domain.Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := eventKey(afterID + 1)
		for it.Seek(start); it.ValidForPrefix([]byte(prefixEvent)); it.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var ev domain.Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	return events, err
}

// RecentEvents returns events by id descending, for the debug surface.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	var events []domain.Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(prefixEvent), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixEvent)); it.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var ev domain.Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	return events, err
}

// LatestCursor returns the cursor of the highest-id event, or the zero
// cursor if the log is empty.
func (s *Store) LatestCursor(ctx context.Context) (string, error) {
	events, err := s.RecentEvents(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return domain.ZeroCursor, nil
	}
	return events[0].Cursor, nil
}

// Reset deletes all tables and events and resets the event id counter.
func (s *Store) Reset(ctx context.Context) error {
	prefixes := [][]byte{[]byte(prefixTable), []byte(prefixEvent), []byte(prefixCursor)}
	for _, p := range prefixes {
		if err := s.db.DropPrefix(p); err != nil {
			return err
		}
	}
	s.eventID.Store(0)
	return nil
}

// resolveCursor returns the event id the cursor points to, or nil if
// it does not resolve to any recorded event.
func (s *Store) resolveCursor(cursor string) (*int64, error) {
	var id int64
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey(cursor))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			_, scanErr := fmt.Sscanf(string(val), "%d", &id)
			return scanErr
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &id, nil
}
