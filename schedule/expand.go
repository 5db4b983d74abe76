/*
expand.go - Recurrence expansion

PURPOSE:
  Turns a seed instance plus a repeat rule into the finite, ordered
  chunk of instances to persist. Open-ended rules expand to one year
  past the seed; bounded rules expand to their end date.

TERMINAL MARKING:
  For open-ended rules only, the last emitted instance is marked
  FlagContinue so queries approaching it know to generate the next
  chunk. Bounded rules never carry a continue marker.

PURITY:
  Expand is a pure function: identical inputs always produce the
  identical sequence, so a chunk can be recomputed at any time. Every
  instance start is computed from the seed (multiple = interval * k),
  never from the previous instance, so a clamped occurrence does not
  shift the rest of the series (Jan 31 monthly yields Feb 28 then
  Mar 31, not Feb 28 then Mar 28).

SEE ALSO:
  - calendar.go: AddPeriod
  - continuation.go: Calls Expand for follow-on chunks
*/
package schedule

import "time"

// DefaultChunk is how far past the seed an open-ended rule expands.
const DefaultChunk = 1 // years

// Expand returns the ordered instance sequence for a seed and rule.
// Element 0 is always the seed, unmodified. The stopping boundary is
// horizon if non-zero, else rule.Until if set, else one year after the
// seed's start. A nil rule or an unknown frequency yields just the seed.
func Expand(seed Instance, rule *RepeatRule, horizon time.Time) []Instance {
	results := []Instance{seed}
	if rule == nil || !rule.Type.Known() {
		return results
	}

	interval := rule.EffectiveInterval()
	duration := seed.Duration()

	boundary := horizon
	if boundary.IsZero() {
		if rule.Until != nil {
			boundary = rule.Until.UTC()
		} else {
			boundary = AddPeriod(seed.Start, Yearly, DefaultChunk)
		}
	}

	for k := 1; ; k++ {
		start := AddPeriod(seed.Start, rule.Type, interval*k)
		if start.After(boundary) {
			break
		}

		flag := FlagNotApplicable
		if rule.OpenEnded() {
			// Look ahead: if the next occurrence would cross the
			// boundary, this instance is the chunk's terminal.
			next := AddPeriod(seed.Start, rule.Type, interval*(k+1))
			if next.After(boundary) {
				flag = FlagContinue
			}
		}

		results = append(results, Instance{
			Start:    start,
			End:      start.Add(duration),
			Continue: flag,
		})
	}

	return results
}
