package badgerstore

import (
	"context"
	"testing"

	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Dir: ""})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestCreateAndGetTable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tbl := domain.Table{ID: "t1", Name: "Sheet1", Headers: []string{"A"}}
	require.NoError(t, s.CreateTable(ctx, tbl))

	err := s.CreateTable(ctx, tbl)
	var exists *domain.ErrTableExists
	require.ErrorAs(t, err, &exists)

	got, err := s.GetTable(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "Sheet1", got.Name)
}

func TestAppendEventMonotonicAndCursorUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	op := domain.Operation{Op: domain.OpRenameTable, TableID: "t1", Name: "x"}
	ev1, err := s.AppendEvent(ctx, "c1", "client-a", op)
	require.NoError(t, err)
	ev2, err := s.AppendEvent(ctx, "c2", "client-a", op)
	require.NoError(t, err)
	require.Greater(t, ev2.ID, ev1.ID)

	_, err = s.AppendEvent(ctx, "c1", "client-a", op)
	var dup *domain.ErrCursorDuplicate
	require.ErrorAs(t, err, &dup)
}

func TestEventsSinceZeroCursorReturnsAllAscending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	op := domain.Operation{Op: domain.OpRenameTable, TableID: "t1", Name: "x"}
	for i := 0; i < 3; i++ {
		_, err := s.AppendEvent(ctx, string(rune('a'+i)), "client", op)
		require.NoError(t, err)
	}

	events, err := s.EventsSince(ctx, domain.ZeroCursor, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.True(t, events[0].ID < events[1].ID && events[1].ID < events[2].ID)
}

func TestEventsSinceResolvesCursorAndExcludesItself(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	op := domain.Operation{Op: domain.OpRenameTable, TableID: "t1", Name: "x"}

	ev1, err := s.AppendEvent(ctx, "c1", "client", op)
	require.NoError(t, err)
	ev2, err := s.AppendEvent(ctx, "c2", "client", op)
	require.NoError(t, err)

	events, err := s.EventsSince(ctx, ev1.Cursor, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, ev2.ID, events[0].ID)

	latest, err := s.LatestCursor(ctx)
	require.NoError(t, err)
	require.Equal(t, ev2.Cursor, latest)

	empty, err := s.EventsSince(ctx, latest, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEventsSinceUnresolvableCursorIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	events, err := s.EventsSince(ctx, "not-a-real-cursor", 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestResetClearsTablesAndEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateTable(ctx, domain.Table{ID: "t1", Headers: []string{"A"}}))
	_, err := s.AppendEvent(ctx, "c1", "client", domain.Operation{Op: domain.OpRenameTable, TableID: "t1", Name: "x"})
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	tables, err := s.GetAllTables(ctx)
	require.NoError(t, err)
	require.Empty(t, tables)

	latest, err := s.LatestCursor(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ZeroCursor, latest)
}
