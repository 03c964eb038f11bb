package domain

import "fmt"

// ErrTableNotFound is returned by Store.GetTable and friends when the
// requested table does not exist.
type ErrTableNotFound struct {
	TableID string
}

func (e *ErrTableNotFound) Error() string {
	return fmt.Sprintf("table %s not found", e.TableID)
}

// ErrTableExists is returned by Store.CreateTable when the id collides
// with an existing table.
type ErrTableExists struct {
	TableID string
}

func (e *ErrTableExists) Error() string {
	return fmt.Sprintf("table %s already exists", e.TableID)
}

// ErrCursorDuplicate is returned by Store.AppendEvent when the cursor
// has already been used.
type ErrCursorDuplicate struct {
	Cursor string
}

func (e *ErrCursorDuplicate) Error() string {
	return fmt.Sprintf("cursor %s already recorded", e.Cursor)
}

// NewErrTableNotFound constructs an ErrTableNotFound.
func NewErrTableNotFound(tableID string) *ErrTableNotFound {
	return &ErrTableNotFound{TableID: tableID}
}

// NewErrTableExists constructs an ErrTableExists.
func NewErrTableExists(tableID string) *ErrTableExists {
	return &ErrTableExists{TableID: tableID}
}

// NewErrCursorDuplicate constructs an ErrCursorDuplicate.
func NewErrCursorDuplicate(cursor string) *ErrCursorDuplicate {
	return &ErrCursorDuplicate{Cursor: cursor}
}
