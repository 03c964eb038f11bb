// Package sync implements the push/pull reconciliation algorithm that
// orchestrates the Applier, Store, and Cursor Generator.
package sync

import (
	"context"
	"fmt"

	"github.com/kasuganosora/tablesync/internal/applier"
	"github.com/kasuganosora/tablesync/internal/domain"
	"github.com/kasuganosora/tablesync/internal/logging"
	"github.com/kasuganosora/tablesync/internal/store"
)

// cursorGenerator is the subset of cursor.Generator the Coordinator
// needs; declared here so sync doesn't import cursor directly and
// tests can supply a deterministic fake.
type cursorGenerator interface {
	Next(clientID string, op domain.Operation) string
}

// Coordinator orchestrates push (apply a batch, append events, compute
// deltas for the caller) and pull (stream events since a cursor,
// optionally seed full state).
type Coordinator struct {
	store   store.Store
	applier *applier.Applier
	cursors cursorGenerator
	log     logging.Logger
}

// New constructs a Coordinator. log may be logging.NoOp{} if the
// caller doesn't want per-request tracing.
func New(s store.Store, a *applier.Applier, cursors cursorGenerator, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.NoOp{}
	}
	return &Coordinator{store: s, applier: a, cursors: cursors, log: log}
}

// PushResult is the response to a push request.
type PushResult struct {
	Cursor    string
	Deltas    []domain.Delta
	Conflicts []domain.Conflict
}

// Push applies ops in input order, recording conflicts for
// apply-failures and silently dropping LWW losses, then reports the
// caller's new baseline cursor plus every other client's delta since
// their baseCursor. Step 1 (apply + append) completes fully before
// step 2 (read latestCursor) so the caller's own writes are reflected
// in the cursor position it receives back.
func (c *Coordinator) Push(ctx context.Context, clientID, baseCursor string, ops []domain.Operation) (PushResult, error) {
	var conflicts []domain.Conflict
	applied := 0

	for _, op := range ops {
		res, err := c.applier.Apply(ctx, op, clientID)
		if err != nil {
			return PushResult{}, fmt.Errorf("sync: apply %s: %w", op, err)
		}
		if !res.Applied {
			if res.Conflict {
				conflicts = append(conflicts, domain.Conflict{Operation: op, Reason: res.Reason})
			}
			continue
		}

		cur := c.cursors.Next(clientID, op)
		if _, err := c.store.AppendEvent(ctx, cur, clientID, op); err != nil {
			return PushResult{}, fmt.Errorf("sync: append event for %s: %w", op, err)
		}
		applied++
	}

	latest, err := c.store.LatestCursor(ctx)
	if err != nil {
		return PushResult{}, fmt.Errorf("sync: latest cursor: %w", err)
	}

	events, err := c.store.EventsSince(ctx, baseCursor, 0)
	if err != nil {
		return PushResult{}, fmt.Errorf("sync: events since %s: %w", baseCursor, err)
	}

	deltas := make([]domain.Delta, 0, len(events))
	for _, ev := range events {
		if ev.ClientID == clientID {
			continue // the caller already has their own mutations
		}
		deltas = append(deltas, ev.ToDelta())
	}

	c.log.Info("push applied",
		"clientId", clientID,
		"ops", len(ops),
		"applied", applied,
		"conflicts", len(conflicts),
		"deltas", len(deltas),
	)

	return PushResult{Cursor: latest, Deltas: deltas, Conflicts: conflicts}, nil
}

// PullResult is the response to a pull request.
type PullResult struct {
	Cursor string
	Deltas []domain.Delta
	Tables []domain.Table // only set for the zero-cursor bootstrap pull
}

// GetChangesSince streams events newer than cursor, projected to
// deltas. A zero-cursor ("0") request also seeds the caller with a
// full table snapshot so it can bootstrap before applying deltas.
func (c *Coordinator) GetChangesSince(ctx context.Context, cursor string) (PullResult, error) {
	events, err := c.store.EventsSince(ctx, cursor, 0)
	if err != nil {
		return PullResult{}, fmt.Errorf("sync: events since %s: %w", cursor, err)
	}

	deltas := make([]domain.Delta, 0, len(events))
	for _, ev := range events {
		deltas = append(deltas, ev.ToDelta())
	}

	latest, err := c.store.LatestCursor(ctx)
	if err != nil {
		return PullResult{}, fmt.Errorf("sync: latest cursor: %w", err)
	}

	result := PullResult{Cursor: latest, Deltas: deltas}
	if cursor == domain.ZeroCursor {
		tables, err := c.store.GetAllTables(ctx)
		if err != nil {
			return PullResult{}, fmt.Errorf("sync: get all tables: %w", err)
		}
		result.Tables = tables
	}
	return result, nil
}
