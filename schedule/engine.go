/*
engine.go - Query and mutation entry points

PURPOSE:
  Scheduler is the single front door to the engine. Queries may write:
  answering an upcoming/month query against an open-ended series can
  trigger chunk generation (see continuation.go) before re-reading.

DELETION SEMANTICS:
  Deleting an instance collapses to deleting the whole event when it
  is the only instance left; deleting "this and future" collapses the
  same way when the cut removes every instance. Counts are taken
  before deciding so an event is never observed with zero instances.
  "Future" is inclusive of the given start: the clicked instance goes
  too.

SEE ALSO:
  - store.go: Persistence contract
  - continuation.go: Chunk extension
*/
package schedule

import (
	"context"
	"time"
)

// DefaultUpcomingLimit is used when a caller asks for upcoming
// instances without a positive limit.
const DefaultUpcomingLimit = 10

// Scheduler answers queries and applies mutations against one Store.
type Scheduler struct {
	store Store
}

// NewScheduler creates a scheduler over the given store.
func NewScheduler(store Store) *Scheduler {
	return &Scheduler{store: store}
}

// CreateEvent persists a new event with its materialized instances.
// For a repeating event the first supplied instance is the seed,
// expanded into the first chunk. A one-off event keeps every supplied
// instance, so callers can pre-materialize an irregular set of
// occurrences up front.
func (s *Scheduler) CreateEvent(ctx context.Context, userID string, ev Event, seeds []Instance) error {
	if len(seeds) == 0 {
		return ErrNoSeedInstance
	}
	for i := range seeds {
		if !seeds[i].End.After(seeds[i].Start) {
			return ErrInvalidInstance
		}
		seeds[i].Start = seeds[i].Start.UTC()
		seeds[i].End = seeds[i].End.UTC()
	}

	instances := seeds
	if ev.Repeat != nil {
		instances = Expand(seeds[0], ev.Repeat, time.Time{})
	}
	return s.store.CreateEvent(ctx, userID, ev, instances)
}

// Upcoming returns up to limit instances ending at or after from,
// ascending by start, extending open-ended series as needed so the
// answer is not cut short by an exhausted chunk.
func (s *Scheduler) Upcoming(ctx context.Context, userID string, from time.Time, limit int) ([]EventInstance, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	from = from.UTC()

	for {
		rows, err := s.store.InstancesFrom(ctx, userID, from, limit)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return rows, nil
		}

		// Only the chronologically-last returned row can be a chunk
		// terminal; anything before it has more rows after it already.
		last := rows[len(rows)-1]
		if last.Repeat == nil || !last.Repeat.OpenEnded() || last.Continue != FlagContinue {
			return rows, nil
		}

		extended, err := s.extend(ctx, userID, last.EventID)
		if err != nil {
			return nil, err
		}
		if !extended {
			return rows, nil
		}
		// Re-read so the fresh chunk is part of the answer.
	}
}

// ForMonth returns all instances overlapping the given month,
// proactively extending any open-ended series whose generated range
// ends within the lookahead window past the month.
func (s *Scheduler) ForMonth(ctx context.Context, userID string, year int, month time.Month) ([]EventInstance, error) {
	from, to := MonthRange(year, month)

	for {
		rows, err := s.store.InstancesInRange(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}

		candidates, err := s.staleSeries(ctx, userID, rows, to)
		if err != nil {
			return nil, err
		}

		anyExtended := false
		for _, eventID := range candidates {
			extended, err := s.extend(ctx, userID, eventID)
			if err != nil {
				return nil, err
			}
			anyExtended = anyExtended || extended
		}
		if !anyExtended {
			return rows, nil
		}
	}
}

// DeleteEvent removes an event and all its instances.
func (s *Scheduler) DeleteEvent(ctx context.Context, userID, eventID string) error {
	return s.store.DeleteEvent(ctx, userID, eventID)
}

// DeleteInstance removes one instance, collapsing to a whole-event
// delete when it is the event's only instance.
func (s *Scheduler) DeleteInstance(ctx context.Context, userID, eventID string, start time.Time) error {
	count, err := s.store.CountInstances(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return s.store.DeleteEvent(ctx, userID, eventID)
	}
	return s.store.DeleteInstance(ctx, userID, eventID, start.UTC())
}

// DeleteFutureInstances removes the instance at start and everything
// after it, collapsing to a whole-event delete when that leaves the
// event empty.
func (s *Scheduler) DeleteFutureInstances(ctx context.Context, userID, eventID string, start time.Time) error {
	start = start.UTC()
	future, err := s.store.CountInstancesFrom(ctx, userID, eventID, start)
	if err != nil {
		return err
	}
	total, err := s.store.CountInstances(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if total > 0 && future == total {
		return s.store.DeleteEvent(ctx, userID, eventID)
	}
	return s.store.DeleteInstancesFrom(ctx, userID, eventID, start)
}

// SetInstanceContinue updates the continuation marker on one instance.
func (s *Scheduler) SetInstanceContinue(ctx context.Context, userID, eventID string, start time.Time, flag ContinueFlag) error {
	return s.store.SetContinueFlag(ctx, userID, eventID, start.UTC(), flag)
}

// ExportRaw returns the opaque snapshot of the user's namespace.
func (s *Scheduler) ExportRaw(ctx context.Context, userID string) ([]byte, error) {
	return s.store.ExportRaw(ctx, userID)
}
