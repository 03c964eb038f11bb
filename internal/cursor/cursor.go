// Package cursor manufactures opaque, disambiguating identifiers for
// accepted events. Ordering is never derived from the cursor string
// itself — the Store's monotonic event id is authoritative — the
// cursor only needs to be unique and, in practice, roughly sortable
// for human inspection of logs.
package cursor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/kasuganosora/tablesync/internal/domain"
)

// Generator mints cursors of the form "{epoch_ms}_{16 hex}", where the
// hex suffix disambiguates same-millisecond collisions via a content
// hash over the timestamp, client id, and operation payload.
type Generator struct{}

// NewGenerator constructs a cursor Generator. Stateless: a single
// instance may be shared across goroutines.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next produces a new cursor for an about-to-be-appended event.
func (g *Generator) Next(clientID string, op domain.Operation) string {
	now := time.Now().UTC()
	opJSON, err := json.Marshal(op)
	if err != nil {
		// Marshaling a well-formed Operation never fails; fall back to
		// the type tag so a cursor is still produced.
		opJSON = []byte(op.Op)
	}

	payload := now.Format(time.RFC3339Nano) + "|" + clientID + "|" + string(opJSON)
	h := xxhash.Sum64String(payload)

	return fmt.Sprintf("%d_%016x", now.UnixMilli(), h)
}
