// Package domain holds the materialized document model: tables, rows,
// cell metadata, operations, and the event/delta projections derived
// from them.
package domain

import "time"

// CellMeta records who last wrote a cell and when, used solely for
// last-writer-wins tiebreaking. A missing entry (nil) is treated as
// "never written".
type CellMeta struct {
	Value string `json:"value"`
	Ts    int64  `json:"ts"`
	By    string `json:"by"`
}

// Row is an ordered tuple of cell values plus the metadata needed to
// resolve concurrent writes to each cell.
type Row struct {
	RowID    string      `json:"rowId"`
	Cells    []string    `json:"cells"`
	CellMeta []*CellMeta `json:"cellMeta"`
}

// MetaAt returns the CellMeta for column col, or nil if the row's
// cellMeta slice doesn't reach that far (trailing entries are absent).
func (r *Row) MetaAt(col int) *CellMeta {
	if col < 0 || col >= len(r.CellMeta) {
		return nil
	}
	return r.CellMeta[col]
}

// Table is a named two-dimensional tabular document.
type Table struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Headers   []string  `json:"headers"`
	Rows      []Row     `json:"rows"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`
}

// FindRow returns the index of the row with the given id, or -1.
func (t *Table) FindRow(rowID string) int {
	for i := range t.Rows {
		if t.Rows[i].RowID == rowID {
			return i
		}
	}
	return -1
}

// ClampIndex clamps idx into [0, n], used for column insert positions:
// an out-of-range index (including a negative one) means "append".
func ClampIndex(idx, n int) int {
	if idx < 0 || idx > n {
		return n
	}
	return idx
}
