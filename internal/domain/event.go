package domain

import "time"

// Event is an immutable record written to the log for every operation
// that was successfully applied. Events are create-only.
type Event struct {
	ID        int64     `json:"id"`
	Cursor    string    `json:"cursor"`
	ClientID  string    `json:"clientId"`
	Operation Operation `json:"operation"`
	ServerTs  time.Time `json:"serverTs"`
}

// Delta is the on-the-wire projection of an Event sent to other
// clients: the operation payload plus server receipt time and
// originator. Deltas are derived, never stored.
type Delta struct {
	Operation Operation `json:"operation"`
	ServerTs  time.Time `json:"serverTs"`
	By        string    `json:"by"`
}

// ToDelta projects an Event into its wire form.
func (e Event) ToDelta() Delta {
	return Delta{
		Operation: e.Operation,
		ServerTs:  e.ServerTs,
		By:        e.ClientID,
	}
}

// Conflict records an operation that failed to apply — not an error,
// just a failed precondition (missing field, absent target,
// out-of-range index, unknown op) that the caller should know about.
// An operation that loses a last-writer-wins race is not a Conflict.
type Conflict struct {
	Operation Operation `json:"operation"`
	Reason    string    `json:"reason"`
}

// ZeroCursor is the sentinel meaning "before the first event".
const ZeroCursor = "0"
