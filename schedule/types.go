/*
Package schedule provides the event and recurrence engine.

PURPOSE:
  This package contains the domain types and algorithms for user-created
  calendar events: one-off and recurring events, lazy expansion of repeat
  rules into concrete instances, and the deletion semantics for partial
  removal of a recurring series.

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: A recurring or one-off activity definition (one row)
  - RepeatRule: Recurrence policy (frequency, interval, optional end)
  - Instance: One concrete dated occurrence of an Event (many rows)
  - ContinueFlag: Tri-state marker driving just-in-time chunk generation

DESIGN PRINCIPLES:
  1. UTC everywhere: All timestamps are UTC-normalized; no DST surprises
  2. Lazy series: Open-ended rules are never fully materialized; roughly
     one year of instances exists at a time, extended on demand
  3. Explicit namespaces: Every operation takes the owning user ID;
     there is no ambient "current user" state

SEE ALSO:
  - calendar.go: Period arithmetic with overflow/leap clamping
  - expand.go: Rule expansion into instance chunks
  - engine.go: Query and mutation entry points
*/
package schedule

import (
	"encoding/json"
	"time"
)

// =============================================================================
// REPEAT RULE
// =============================================================================

// Frequency is the cadence of a repeat rule.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Known reports whether f is one of the four supported frequencies.
func (f Frequency) Known() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// RepeatRule describes how an event recurs.
// A nil *RepeatRule on an Event means a single-instance event.
type RepeatRule struct {
	Type     Frequency  `json:"type"`
	Interval int        `json:"interval"`        // periods between occurrences, >= 1
	Until    *time.Time `json:"until,omitempty"` // nil = open-ended
}

// EffectiveInterval returns the interval, defaulting to 1.
func (r *RepeatRule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// OpenEnded reports whether the rule has no explicit end date.
func (r *RepeatRule) OpenEnded() bool { return r.Until == nil }

// MarshalRule serializes a rule for the event row. Nil rules serialize to "".
func MarshalRule(r *RepeatRule) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalRule parses a serialized rule. Empty input yields nil.
func UnmarshalRule(s string) (*RepeatRule, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var r RepeatRule
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// EVENT AND INSTANCE
// =============================================================================

// Event is a recurring or one-off activity definition.
type Event struct {
	ID          string
	Title       string
	Description string
	Repeat      *RepeatRule // nil = single-instance event
}

// ContinueFlag is the tri-state continuation marker on an instance.
// Only the chronologically-last instance of an open-ended series carries
// a meaningful FlagContinue; every other instance is FlagNotApplicable.
type ContinueFlag int

const (
	// FlagNotApplicable means no continuation decision applies here.
	// This is the value on every non-terminal instance and on all
	// instances of a bounded (until-dated) series.
	FlagNotApplicable ContinueFlag = iota

	// FlagContinue marks the last generated instance of an open-ended
	// series: approaching it triggers generation of the next chunk.
	FlagContinue

	// FlagTerminal is an explicit "stop generating" marker.
	FlagTerminal
)

// Instance is one concrete occurrence of an Event.
type Instance struct {
	Start    time.Time
	End      time.Time
	Continue ContinueFlag
}

// Duration returns End - Start.
func (i Instance) Duration() time.Duration { return i.End.Sub(i.Start) }

// EventInstance is an instance joined with its owning event, as returned
// by the query operations.
type EventInstance struct {
	EventID     string
	Title       string
	Description string
	Repeat      *RepeatRule
	Start       time.Time
	End         time.Time
	Continue    ContinueFlag
}
