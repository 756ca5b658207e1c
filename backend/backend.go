// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// Table names as they exist in the backend schema.
const (
	TableEvents     = "events"
	TableIncidents  = "incidents"
	TableAttendance = "attendance_records"
)

// ChangeKind classifies a row-level change notification.
type ChangeKind string

const (
	// ChangeInsert is a new row.
	ChangeInsert ChangeKind = "insert"
	// ChangeUpdate is a modified row.
	ChangeUpdate ChangeKind = "update"
	// ChangeDelete is a removed row.
	ChangeDelete ChangeKind = "delete"
)

// Change is one row-level change notification from the backend. Row
// carries the new row (old row for deletes) when the transport
// provides it; consumers treat it as advisory and recompute from a
// full snapshot rather than patching state from deltas.
type Change struct {
	Kind  ChangeKind      `json:"kind"`
	Table string          `json:"table"`
	Row   json.RawMessage `json:"row,omitempty"`
}

// Backend is the read surface the dashboard consumes. Both the hosted
// [Client] and the direct [PostgresBackend] implement it.
type Backend interface {
	// CurrentEvent returns the single event flagged current. The
	// false return is the valid "no event selected" state, not an
	// error — the backend enforces at-most-one current event.
	CurrentEvent(ctx context.Context) (event.Event, bool, error)

	// EventByID returns one event by row ID.
	EventByID(ctx context.Context, id string) (event.Event, bool, error)

	// Incidents returns all incidents for an event, newest first.
	Incidents(ctx context.Context, eventID string) ([]event.Incident, error)

	// Attendance returns the attendance records for an event. An
	// event with no readings yet returns an empty slice, not an
	// error.
	Attendance(ctx context.Context, eventID string) ([]event.AttendanceRecord, error)

	// Subscribe opens a change notification channel for one table,
	// filtered to one event. An empty eventID subscribes to the
	// whole table (used for watching the events table itself, where
	// the interesting change is the current flag moving between
	// rows). The subscription lives until Close or transport
	// failure.
	Subscribe(ctx context.Context, table, eventID string) (*Subscription, error)
}

// Subscription is one open change notification channel.
type Subscription struct {
	changes chan Change

	mu     sync.Mutex
	err    error
	closed bool
	cancel context.CancelFunc
}

// NewSubscription wires a subscription around a cancel function that
// tears down the underlying transport. Deliver and Finish are the
// producer side; they are exported so Backend implementations outside
// this package (and tests) can drive a subscription.
func NewSubscription(cancel context.CancelFunc) *Subscription {
	return &Subscription{
		changes: make(chan Change, 16),
		cancel:  cancel,
	}
}

// Changes delivers row-level change notifications. The channel closes
// when the subscription ends, either via Close or transport failure;
// check Err to distinguish.
func (s *Subscription) Changes() <-chan Change {
	return s.changes
}

// Err returns the transport error that ended the subscription, or nil
// after a clean Close. Valid once Changes is closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears down the subscription. Safe to call multiple times and
// concurrently with delivery.
func (s *Subscription) Close() {
	s.cancel()
}

// Deliver pushes a change unless the subscription is finished. A full
// consumer buffer drops the change: the consumer recomputes from a
// full snapshot on the next notification, so dropped changes cost
// latency, not correctness.
func (s *Subscription) Deliver(change Change) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	select {
	case s.changes <- change:
	default:
	}
}

// Finish records the terminal error (nil for clean close) and closes
// the Changes channel exactly once.
func (s *Subscription) Finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()
	close(s.changes)
}
