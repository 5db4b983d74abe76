/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All sentinel errors in one place. The storage layer wraps these (or
  returns its own driver errors unmodified); callers test with
  errors.Is().

TAXONOMY:
  - Not-found on deletes/updates is NOT an error: those operations are
    no-ops on missing rows, matching the engine's unguarded-delete
    semantics. ErrEventNotFound exists for the few paths that must
    load an event first (continuation, creation conflicts).
  - Storage failures propagate to the caller untouched; nothing in
    this package retries.
*/
package schedule

import "errors"

var (
	// ErrEventNotFound is returned when a referenced event does not exist
	// and the operation cannot proceed without it.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventExists is returned when creating an event whose ID is
	// already taken within the user's namespace.
	ErrEventExists = errors.New("event already exists")

	// ErrNoSeedInstance is returned when an event is created without
	// exactly one seed instance.
	ErrNoSeedInstance = errors.New("event requires a seed instance")

	// ErrInvalidInstance is returned when an instance's end does not
	// follow its start.
	ErrInvalidInstance = errors.New("instance end must be after start")

	// ErrUnknownFrequency is returned at the boundary for repeat rules
	// whose type is not daily/weekly/monthly/yearly.
	ErrUnknownFrequency = errors.New("unknown repeat frequency")
)
