/*
continuation.go - Just-in-time chunk generation

PURPOSE:
  Keeps open-ended series supplied with enough materialized instances
  to answer near-future queries, without ever eagerly materializing an
  infinite series. A series is extended one chunk (one year) at a time,
  seeded one year past its current last instance.

TERMINATION:
  Each extension advances the series' last start monotonically by a
  year, and the query loops in engine.go stop as soon as the candidate
  set is empty, so the evaluate-and-extend / re-read protocol finishes
  in a small bounded number of rounds.
*/
package schedule

import (
	"context"
	"time"
)

// lookaheadMonths is how far past a queried month the generated range
// must reach before a month query stops proactively extending.
const lookaheadMonths = 3

// extend appends the next year-sized chunk to an open-ended event.
// It reports false without error when no extension applies: the event
// is missing, not repeating, bounded by an end date, or its last
// instance does not carry the continue marker.
func (s *Scheduler) extend(ctx context.Context, userID, eventID string) (bool, error) {
	ev, err := s.store.GetEvent(ctx, userID, eventID)
	if err != nil {
		return false, err
	}
	if ev == nil || ev.Repeat == nil || !ev.Repeat.OpenEnded() {
		return false, nil
	}

	last, err := s.store.LastInstance(ctx, userID, eventID)
	if err != nil {
		return false, err
	}
	if last == nil || last.Continue != FlagContinue {
		return false, nil
	}

	// Seed the next chunk one year past the current terminal; Expand
	// pushes the boundary one further year out and re-marks the new
	// terminal. AppendInstances clears the old marker atomically.
	seed := Instance{
		Start:    AddPeriod(last.Start, Yearly, 1),
		End:      AddPeriod(last.End, Yearly, 1),
		Continue: FlagNotApplicable,
	}
	chunk := Expand(seed, ev.Repeat, time.Time{})

	if err := s.store.AppendInstances(ctx, userID, eventID, chunk); err != nil {
		return false, err
	}
	return true, nil
}

// staleSeries returns the distinct open-ended events among rows whose
// generated range ends inside the lookahead window past `to`.
func (s *Scheduler) staleSeries(ctx context.Context, userID string, rows []EventInstance, to time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var candidates []string

	for _, row := range rows {
		if row.Repeat == nil || !row.Repeat.OpenEnded() || seen[row.EventID] {
			continue
		}
		seen[row.EventID] = true

		last, err := s.store.LastInstance(ctx, userID, row.EventID)
		if err != nil {
			return nil, err
		}
		if last == nil || last.Continue != FlagContinue {
			continue
		}
		if last.Start.Before(AddPeriod(to, Monthly, lookaheadMonths)) {
			candidates = append(candidates, row.EventID)
		}
	}
	return candidates, nil
}
