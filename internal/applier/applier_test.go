package applier

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/store"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory store.Store used only to exercise
// the Applier in isolation, without pulling in a real backend.
type memStore struct {
	tables map[string]domain.Table
}

func newMemStore() *memStore { return &memStore{tables: map[string]domain.Table{}} }

func (m *memStore) Init(context.Context) error  { return nil }
func (m *memStore) Close(context.Context) error { return nil }

func (m *memStore) GetAllTables(ctx context.Context) ([]domain.Table, error) {
	out := make([]domain.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) GetTable(ctx context.Context, id string) (domain.Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return domain.Table{}, domain.NewErrTableNotFound(id)
	}
	return t, nil
}

func (m *memStore) CreateTable(ctx context.Context, t domain.Table) error {
	if _, ok := m.tables[t.ID]; ok {
		return domain.NewErrTableExists(t.ID)
	}
	m.tables[t.ID] = t
	return nil
}

func (m *memStore) UpdateTable(ctx context.Context, id string, t domain.Table) (bool, error) {
	if _, ok := m.tables[id]; !ok {
		return false, nil
	}
	t.Version++
	t.UpdatedAt = time.Now()
	m.tables[id] = t
	return true, nil
}

func (m *memStore) DeleteTable(ctx context.Context, id string) (bool, error) {
	if _, ok := m.tables[id]; !ok {
		return false, nil
	}
	delete(m.tables, id)
	return true, nil
}

func (m *memStore) AppendEvent(ctx context.Context, cursor, clientID string, op domain.Operation) (domain.Event, error) {
	return domain.Event{}, nil
}
func (m *memStore) EventsSince(ctx context.Context, cursor string, limit int) ([]domain.Event, error) {
	return nil, nil
}
func (m *memStore) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return nil, nil
}
func (m *memStore) LatestCursor(ctx context.Context) (string, error) { return domain.ZeroCursor, nil }
func (m *memStore) Reset(ctx context.Context) error                  { m.tables = map[string]domain.Table{}; return nil }

var _ store.Store = (*memStore)(nil)

func seedTable(t *testing.T, s *memStore, id string, headers []string, rowIDs ...string) {
	tbl := domain.Table{ID: id, Name: "T", Headers: headers}
	for _, rid := range rowIDs {
		tbl.Rows = append(tbl.Rows, domain.Row{
			RowID:    rid,
			Cells:    make([]string, len(headers)),
			CellMeta: make([]*domain.CellMeta, len(headers)),
		})
	}
	require.NoError(t, s.CreateTable(context.Background(), tbl))
}

func col(i int) *int { return &i }

func TestSetCellLWWTiebreakByClientID(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A"}, "R")
	a := New(s, store.NewTableLocker())

	opAlice := domain.Operation{Op: domain.OpSetCell, TableID: "T", RowID: "R", Col: col(0), Value: "x", Ts: 100}
	opBob := domain.Operation{Op: domain.OpSetCell, TableID: "T", RowID: "R", Col: col(0), Value: "y", Ts: 100}

	resA, err := a.Apply(ctx, opAlice, "alice")
	require.NoError(t, err)
	require.True(t, resA.Applied)

	resB, err := a.Apply(ctx, opBob, "bob")
	require.NoError(t, err)
	require.True(t, resB.Applied)

	tbl, err := s.GetTable(ctx, "T")
	require.NoError(t, err)
	require.Equal(t, "y", tbl.Rows[0].Cells[0])

	// Reverse arrival order: bob first, then alice loses.
	s2 := newMemStore()
	seedTable(t, s2, "T", []string{"A"}, "R")
	a2 := New(s2, store.NewTableLocker())

	_, err = a2.Apply(ctx, opBob, "bob")
	require.NoError(t, err)
	resLoser, err := a2.Apply(ctx, opAlice, "alice")
	require.NoError(t, err)
	require.False(t, resLoser.Applied)
	require.False(t, resLoser.Conflict)

	tbl2, err := s2.GetTable(ctx, "T")
	require.NoError(t, err)
	require.Equal(t, "y", tbl2.Rows[0].Cells[0])
}

func TestSetCellLaterTimestampWins(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A"}, "R")
	a := New(s, store.NewTableLocker())

	opAlice := domain.Operation{Op: domain.OpSetCell, TableID: "T", RowID: "R", Col: col(0), Value: "x", Ts: 200}
	opBob := domain.Operation{Op: domain.OpSetCell, TableID: "T", RowID: "R", Col: col(0), Value: "y", Ts: 100}

	_, err := a.Apply(ctx, opBob, "bob")
	require.NoError(t, err)
	res, err := a.Apply(ctx, opAlice, "alice")
	require.NoError(t, err)
	require.True(t, res.Applied)

	tbl, _ := s.GetTable(ctx, "T")
	require.Equal(t, "x", tbl.Rows[0].Cells[0])
}

func TestSetCellRowPadding(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A", "B"}, "R")
	a := New(s, store.NewTableLocker())

	res, err := a.Apply(ctx, domain.Operation{Op: domain.OpSetCell, TableID: "T", RowID: "R", Col: col(5), Value: "v", Ts: 1}, "c")
	require.NoError(t, err)
	require.True(t, res.Applied)

	tbl, _ := s.GetTable(ctx, "T")
	require.Equal(t, []string{"", "", "", "", "", "v"}, tbl.Rows[0].Cells)
}

func TestSetCellMissingRowIsConflictNotError(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A"})
	a := New(s, store.NewTableLocker())

	res, err := a.Apply(ctx, domain.Operation{Op: domain.OpSetCell, TableID: "T", RowID: "missing", Col: col(0), Value: "v", Ts: 1}, "c")
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.True(t, res.Conflict)
	require.Equal(t, "Failed to apply", res.Reason)
}

func TestAddRowIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A"})
	a := New(s, store.NewTableLocker())

	op := domain.Operation{Op: domain.OpAddRow, TableID: "T", RowID: "R"}
	res1, err := a.Apply(ctx, op, "c")
	require.NoError(t, err)
	require.True(t, res1.Applied)

	res2, err := a.Apply(ctx, op, "c")
	require.NoError(t, err)
	require.True(t, res2.Applied)

	tbl, _ := s.GetTable(ctx, "T")
	require.Len(t, tbl.Rows, 1)
}

func TestDeleteRowMissingIsNoOpSuccess(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A"})
	a := New(s, store.NewTableLocker())

	res, err := a.Apply(ctx, domain.Operation{Op: domain.OpDeleteRow, TableID: "T", RowID: "missing"}, "c")
	require.NoError(t, err)
	require.True(t, res.Applied)
}

func TestEveryRowStaysAlignedWithHeaders(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A", "B"}, "R1", "R2")
	a := New(s, store.NewTableLocker())

	_, err := a.Apply(ctx, domain.Operation{Op: domain.OpAddColumn, TableID: "T"}, "c")
	require.NoError(t, err)

	tbl, _ := s.GetTable(ctx, "T")
	require.Len(t, tbl.Headers, 3)
	for _, r := range tbl.Rows {
		require.Len(t, r.Cells, len(tbl.Headers))
	}

	_, err = a.Apply(ctx, domain.Operation{Op: domain.OpDeleteColumn, TableID: "T", ColIndex: col(0)}, "c")
	require.NoError(t, err)

	tbl, _ = s.GetTable(ctx, "T")
	require.Len(t, tbl.Headers, 2)
	for _, r := range tbl.Rows {
		require.Len(t, r.Cells, len(tbl.Headers))
	}
}

func TestRenameTableRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	seedTable(t, s, "T", []string{"A"})
	a := New(s, store.NewTableLocker())

	res, err := a.Apply(ctx, domain.Operation{Op: domain.OpRenameTable, TableID: "T", Name: ""}, "c")
	require.NoError(t, err)
	require.True(t, res.Conflict)
}

func TestDeleteTableBypassesRead(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	a := New(s, store.NewTableLocker())

	res, err := a.Apply(ctx, domain.Operation{Op: domain.OpDeleteTable, TableID: "missing"}, "c")
	require.NoError(t, err)
	require.True(t, res.Applied)
}
