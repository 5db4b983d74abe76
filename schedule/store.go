/*
store.go - Persistence interface for events and instances

PURPOSE:
  Defines the interface between the engine and the database. Each user
  has an isolated storage namespace; every method takes the user ID
  explicitly. The Store exclusively owns persisted rows: no other
  component touches storage directly.

ATOMICITY CONTRACT:
  Every multi-row write (event+instances creation, cascade delete,
  chunk append) is all-or-nothing. A crash mid-operation must never
  leave an orphan instance without an event or an event with no
  instances when it should have at least one.

CONTINUE MARKER:
  AppendInstances clears any prior FlagContinue on the event in the
  same transaction it inserts the new chunk, so at most one instance
  per event carries the marker and it is always the latest one.

IMPLEMENTATIONS:
  - store/sqlite: production per-user SQLite files
  - schedule/store: in-memory, for tests
*/
package schedule

import (
	"context"
	"time"
)

// Store handles persistence of events and their instances, keyed per user.
type Store interface {
	// CreateEvent persists the event row and all instance rows atomically.
	// Returns ErrEventExists if the event ID is already taken.
	CreateEvent(ctx context.Context, userID string, ev Event, instances []Instance) error

	// GetEvent returns the event, or nil if it does not exist.
	GetEvent(ctx context.Context, userID, eventID string) (*Event, error)

	// InstancesFrom returns up to limit instances whose end is at or after
	// from, joined with their event, ascending by start.
	InstancesFrom(ctx context.Context, userID string, from time.Time, limit int) ([]EventInstance, error)

	// InstancesInRange returns all instances overlapping [from, to),
	// joined with their event. Overlap: start < to AND end >= from.
	InstancesInRange(ctx context.Context, userID string, from, to time.Time) ([]EventInstance, error)

	// LastInstance returns the event's instance with the maximum start,
	// or nil if the event has no instances.
	LastInstance(ctx context.Context, userID, eventID string) (*Instance, error)

	// CountInstances returns the event's total instance count.
	CountInstances(ctx context.Context, userID, eventID string) (int, error)

	// CountInstancesFrom returns how many instances have start >= from.
	CountInstancesFrom(ctx context.Context, userID, eventID string, from time.Time) (int, error)

	// AppendInstances inserts additional rows for an existing event,
	// clearing any prior continue marker, in one transaction.
	AppendInstances(ctx context.Context, userID, eventID string, instances []Instance) error

	// DeleteEvent removes the event and all its instances atomically.
	// A missing event is a no-op.
	DeleteEvent(ctx context.Context, userID, eventID string) error

	// DeleteInstance removes the one instance matching the exact start.
	// A missing row is a no-op.
	DeleteInstance(ctx context.Context, userID, eventID string, start time.Time) error

	// DeleteInstancesFrom removes all instances with start >= from.
	DeleteInstancesFrom(ctx context.Context, userID, eventID string, from time.Time) error

	// SetContinueFlag updates the continue marker on the instance
	// matching the exact start. A missing row is a no-op.
	SetContinueFlag(ctx context.Context, userID, eventID string, start time.Time, flag ContinueFlag) error

	// ExportRaw returns a self-contained snapshot of the user's whole
	// namespace as opaque bytes, or nil if the namespace does not exist.
	ExportRaw(ctx context.Context, userID string) ([]byte, error)
}
