// Package applier implements per-operation mutation semantics against
// a materialized Table, including the last-writer-wins rule for cell
// writes. It is the only place table invariants are enforced.
package applier

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/store"
)

// reasonFailed is the conflict reason surfaced to callers for any
// apply-failed operation, per the wire contract in spec §6/§8.
const reasonFailed = "Failed to apply"

// Result reports the outcome of applying a single operation.
//
//   - Applied=true: the table (or its absence, for deleteTable) now
//     reflects this operation; the caller should mint a cursor and
//     append an event.
//   - Applied=false, Conflict=true: an apply-failure the caller must
//     surface in its conflicts list (missing field, absent target,
//     out-of-range index).
//   - Applied=false, Conflict=false: the operation silently lost a
//     last-writer-wins race. The server's state already reflects the
//     winning write; this is not reported to the caller at all.
type Result struct {
	Applied  bool
	Conflict bool
	Reason   string
}

// Applier applies operations to materialized tables via a Store. All
// methods are safe for concurrent use; each operation's
// read-modify-write sequence is serialized per tableId through the
// store's TableLocker.
type Applier struct {
	store  store.Store
	locker *store.TableLocker
}

// New constructs an Applier over the given store, sharing the table
// locker so the Applier's critical sections compose with any other
// direct table access the caller performs.
func New(s store.Store, locker *store.TableLocker) *Applier {
	return &Applier{store: s, locker: locker}
}

// conflict builds an apply-failed Result.
func conflict(format string, args ...interface{}) Result {
	return Result{Applied: false, Conflict: true, Reason: fmt.Sprintf(format, args...)}
}

// applied builds a success Result.
func applied() Result {
	return Result{Applied: true}
}

// lost builds a silent LWW-loss Result: not applied, not a conflict.
func lost() Result {
	return Result{Applied: false, Conflict: false}
}

// Apply applies op on behalf of clientID. Apply-failures are returned
// as a Result with Conflict=true and a nil error; storage faults are
// returned as a non-nil error with a zero Result.
func (a *Applier) Apply(ctx context.Context, op domain.Operation, clientID string) (Result, error) {
	if !op.Known() {
		return conflict(reasonFailed), nil
	}

	if op.Op == domain.OpDeleteTable {
		return a.applyDeleteTable(ctx, op)
	}

	unlock := a.locker.Lock(op.TableID)
	defer unlock()

	table, err := a.store.GetTable(ctx, op.TableID)
	if err != nil {
		var notFound *domain.ErrTableNotFound
		if errors.As(err, &notFound) {
			return conflict(reasonFailed), nil
		}
		return Result{}, err
	}

	var res Result
	switch op.Op {
	case domain.OpSetCell:
		res = applySetCell(&table, op, clientID)
	case domain.OpAddRow:
		res = applyAddRow(&table, op)
	case domain.OpDeleteRow:
		res = applyDeleteRow(&table, op)
	case domain.OpAddColumn:
		res = applyAddColumn(&table, op)
	case domain.OpDeleteColumn:
		res = applyDeleteColumn(&table, op)
	case domain.OpSetHeader:
		res = applySetHeader(&table, op)
	case domain.OpRenameTable:
		res = applyRenameTable(&table, op)
	default:
		return conflict(reasonFailed), nil
	}

	if !res.Applied {
		return res, nil
	}

	if _, err := a.store.UpdateTable(ctx, op.TableID, table); err != nil {
		return Result{}, err
	}
	return res, nil
}

// applyDeleteTable bypasses the materialization read per the spec's
// resolved open question: deleteTable dispatches straight to the
// store. Deleting an already-absent table is idempotent success,
// consistent with deleteRow's no-op-on-missing-id contract.
func (a *Applier) applyDeleteTable(ctx context.Context, op domain.Operation) (Result, error) {
	unlock := a.locker.Lock(op.TableID)
	defer unlock()

	if _, err := a.store.DeleteTable(ctx, op.TableID); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

func applySetCell(t *domain.Table, op domain.Operation, clientID string) Result {
	if op.RowID == "" || op.Col == nil {
		return conflict(reasonFailed)
	}
	col := *op.Col
	if col < 0 {
		return conflict(reasonFailed)
	}

	idx := t.FindRow(op.RowID)
	if idx == -1 {
		return conflict(reasonFailed)
	}
	row := &t.Rows[idx]

	for len(row.Cells) <= col {
		row.Cells = append(row.Cells, "")
	}
	for len(row.CellMeta) <= col {
		row.CellMeta = append(row.CellMeta, nil)
	}

	existing := row.MetaAt(col)
	if existing == nil || existing.Ts == 0 {
		// unconditional first write
	} else if op.Ts > existing.Ts || (op.Ts == existing.Ts && clientID > existing.By) {
		// incoming write wins the LWW comparison
	} else {
		return lost()
	}

	row.Cells[col] = op.Value
	row.CellMeta[col] = &domain.CellMeta{Value: op.Value, Ts: op.Ts, By: clientID}
	return applied()
}

func applyAddRow(t *domain.Table, op domain.Operation) Result {
	if op.RowID == "" {
		return conflict(reasonFailed)
	}
	if t.FindRow(op.RowID) != -1 {
		return applied() // idempotent: already present
	}

	newRow := domain.Row{
		RowID:    op.RowID,
		Cells:    make([]string, len(t.Headers)),
		CellMeta: make([]*domain.CellMeta, len(t.Headers)),
	}

	insertAt := len(t.Rows)
	if op.AfterRowID != nil {
		if after := t.FindRow(*op.AfterRowID); after != -1 {
			insertAt = after + 1
		}
	}

	t.Rows = append(t.Rows, domain.Row{})
	copy(t.Rows[insertAt+1:], t.Rows[insertAt:])
	t.Rows[insertAt] = newRow
	return applied()
}

func applyDeleteRow(t *domain.Table, op domain.Operation) Result {
	if op.RowID == "" {
		return conflict(reasonFailed)
	}
	idx := t.FindRow(op.RowID)
	if idx == -1 {
		return applied() // idempotent: already absent
	}
	t.Rows = append(t.Rows[:idx], t.Rows[idx+1:]...)
	return applied()
}

func applyAddColumn(t *domain.Table, op domain.Operation) Result {
	n := len(t.Headers)
	idx := n
	if op.ColIndex != nil {
		idx = domain.ClampIndex(*op.ColIndex, n)
	}

	header := fmt.Sprintf("Column %d", idx+1)
	if op.Header != nil {
		header = *op.Header
	}

	headers := make([]string, 0, n+1)
	headers = append(headers, t.Headers[:idx]...)
	headers = append(headers, header)
	headers = append(headers, t.Headers[idx:]...)
	t.Headers = headers

	for i := range t.Rows {
		r := &t.Rows[i]

		cellIdx := domain.ClampIndex(idx, len(r.Cells))
		cells := make([]string, 0, len(r.Cells)+1)
		cells = append(cells, r.Cells[:cellIdx]...)
		cells = append(cells, "")
		cells = append(cells, r.Cells[cellIdx:]...)
		r.Cells = cells

		metaIdx := domain.ClampIndex(idx, len(r.CellMeta))
		meta := make([]*domain.CellMeta, 0, len(r.CellMeta)+1)
		meta = append(meta, r.CellMeta[:metaIdx]...)
		meta = append(meta, nil)
		meta = append(meta, r.CellMeta[metaIdx:]...)
		r.CellMeta = meta
	}
	return applied()
}

func applyDeleteColumn(t *domain.Table, op domain.Operation) Result {
	if op.ColIndex == nil {
		return conflict(reasonFailed)
	}
	idx := *op.ColIndex
	if idx < 0 || idx >= len(t.Headers) {
		return conflict(reasonFailed)
	}

	t.Headers = append(t.Headers[:idx], t.Headers[idx+1:]...)
	for i := range t.Rows {
		r := &t.Rows[i]
		if idx < len(r.Cells) {
			r.Cells = append(r.Cells[:idx], r.Cells[idx+1:]...)
		}
		if idx < len(r.CellMeta) {
			r.CellMeta = append(r.CellMeta[:idx], r.CellMeta[idx+1:]...)
		}
	}
	return applied()
}

func applySetHeader(t *domain.Table, op domain.Operation) Result {
	if op.ColIndex == nil || op.Header == nil {
		return conflict(reasonFailed)
	}
	idx := *op.ColIndex
	if idx < 0 || idx >= len(t.Headers) {
		return conflict(reasonFailed)
	}
	t.Headers[idx] = *op.Header
	return applied()
}

func applyRenameTable(t *domain.Table, op domain.Operation) Result {
	if op.Name == "" {
		return conflict(reasonFailed)
	}
	t.Name = op.Name
	return applied()
}
