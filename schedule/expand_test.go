package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VJyzCELERY/Intellecta/schedule"
)

func seedAt(start time.Time, duration time.Duration) schedule.Instance {
	return schedule.Instance{Start: start, End: start.Add(duration)}
}

func openRule(freq schedule.Frequency, interval int) *schedule.RepeatRule {
	return &schedule.RepeatRule{Type: freq, Interval: interval}
}

func boundedRule(freq schedule.Frequency, interval int, until time.Time) *schedule.RepeatRule {
	return &schedule.RepeatRule{Type: freq, Interval: interval, Until: &until}
}

func TestExpand_SeedIsFirstAndUnmodified(t *testing.T) {
	seed := schedule.Instance{
		Start:    ts(2025, time.June, 5, 10),
		End:      ts(2025, time.June, 5, 11),
		Continue: schedule.FlagTerminal, // whatever the caller set stays
	}

	out := schedule.Expand(seed, openRule(schedule.Weekly, 1), time.Time{})

	require.NotEmpty(t, out)
	assert.Equal(t, seed, out[0])
}

func TestExpand_NilRule_YieldsOnlySeed(t *testing.T) {
	seed := seedAt(ts(2025, time.June, 5, 10), time.Hour)

	out := schedule.Expand(seed, nil, time.Time{})

	assert.Equal(t, []schedule.Instance{seed}, out)
}

func TestExpand_UnknownFrequency_YieldsOnlySeed(t *testing.T) {
	// Unknown rule types degrade to the seed instead of failing; the
	// API boundary rejects them before they are ever persisted.
	seed := seedAt(ts(2025, time.June, 5, 10), time.Hour)
	rule := &schedule.RepeatRule{Type: schedule.Frequency("fortnightly"), Interval: 1}

	out := schedule.Expand(seed, rule, time.Time{})

	assert.Equal(t, []schedule.Instance{seed}, out)
}

func TestExpand_Idempotent(t *testing.T) {
	seed := seedAt(ts(2025, time.January, 6, 10), time.Hour)
	rule := openRule(schedule.Weekly, 2)

	first := schedule.Expand(seed, rule, time.Time{})
	second := schedule.Expand(seed, rule, time.Time{})

	assert.Equal(t, first, second)
}

func TestExpand_DurationPreserved_AllFrequencies(t *testing.T) {
	duration := 90 * time.Minute
	seed := seedAt(ts(2025, time.January, 31, 10), duration)

	for _, freq := range []schedule.Frequency{schedule.Daily, schedule.Weekly, schedule.Monthly, schedule.Yearly} {
		out := schedule.Expand(seed, openRule(freq, 1), time.Time{})
		require.Greater(t, len(out), 1, "frequency %s should generate instances", freq)
		for _, inst := range out {
			assert.Equal(t, duration, inst.Duration(), "frequency %s", freq)
		}
	}
}

func TestExpand_OpenEnded_ExactlyOneContinueAndItIsLast(t *testing.T) {
	seed := seedAt(ts(2025, time.March, 10, 9), time.Hour)

	out := schedule.Expand(seed, openRule(schedule.Weekly, 1), time.Time{})

	continues := 0
	for i, inst := range out {
		if inst.Continue == schedule.FlagContinue {
			continues++
			assert.Equal(t, len(out)-1, i, "continue marker must sit on the last instance")
		}
	}
	assert.Equal(t, 1, continues)
}

func TestExpand_Bounded_NeverSetsContinue(t *testing.T) {
	seed := seedAt(ts(2025, time.January, 6, 10), time.Hour)
	rule := boundedRule(schedule.Weekly, 1, ts(2025, time.March, 31, 0))

	out := schedule.Expand(seed, rule, time.Time{})

	require.Greater(t, len(out), 1)
	for _, inst := range out {
		assert.Equal(t, schedule.FlagNotApplicable, inst.Continue)
	}
}

func TestExpand_Bounded_StopsAtUntil(t *testing.T) {
	seed := seedAt(ts(2025, time.January, 6, 10), time.Hour)
	until := ts(2025, time.February, 3, 10)
	rule := boundedRule(schedule.Weekly, 1, until)

	out := schedule.Expand(seed, rule, time.Time{})

	// Jan 6, 13, 20, 27, Feb 3 — the boundary itself is included
	require.Len(t, out, 5)
	assert.Equal(t, until, out[4].Start)
}

func TestExpand_OpenEnded_DefaultHorizonIsOneYear(t *testing.T) {
	seed := seedAt(ts(2025, time.March, 10, 9), time.Hour)

	out := schedule.Expand(seed, openRule(schedule.Daily, 1), time.Time{})

	last := out[len(out)-1]
	assert.Equal(t, ts(2026, time.March, 10, 9), last.Start)
	assert.Equal(t, schedule.FlagContinue, last.Continue)
}

func TestExpand_ExplicitHorizon_Wins(t *testing.T) {
	seed := seedAt(ts(2025, time.January, 6, 10), time.Hour)
	horizon := ts(2025, time.February, 1, 0)

	out := schedule.Expand(seed, openRule(schedule.Weekly, 1), horizon)

	// Jan 6, 13, 20, 27
	require.Len(t, out, 4)
	assert.Equal(t, schedule.FlagContinue, out[3].Continue)
}

func TestExpand_IntervalDefaultsToOne(t *testing.T) {
	seed := seedAt(ts(2025, time.January, 6, 10), time.Hour)
	rule := &schedule.RepeatRule{Type: schedule.Weekly} // Interval zero value

	out := schedule.Expand(seed, rule, time.Time{})

	require.Greater(t, len(out), 2)
	assert.Equal(t, ts(2025, time.January, 13, 10), out[1].Start)
	assert.Equal(t, ts(2025, time.January, 20, 10), out[2].Start)
}

func TestExpand_MonthlyOverflow_Sequence(t *testing.T) {
	// GIVEN: monthly rule seeded on Jan 31
	// THEN: February clamps but March returns to the 31st
	seed := seedAt(ts(2025, time.January, 31, 10), time.Hour)

	out := schedule.Expand(seed, openRule(schedule.Monthly, 1), time.Time{})

	require.GreaterOrEqual(t, len(out), 4)
	assert.Equal(t, ts(2025, time.February, 28, 10), out[1].Start)
	assert.Equal(t, ts(2025, time.March, 31, 10), out[2].Start)
	assert.Equal(t, ts(2025, time.April, 30, 10), out[3].Start)
}

func TestExpand_YearlyLeapClamp(t *testing.T) {
	seed := seedAt(ts(2024, time.February, 29, 12), time.Hour)

	out := schedule.Expand(seed, openRule(schedule.Yearly, 1), time.Time{})

	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, ts(2025, time.February, 28, 12), out[1].Start)
}

func TestExpand_BiweeklyScenario(t *testing.T) {
	// Weekly rule, interval 2, open-ended, starting 2025-01-06 10:00-11:00
	seed := seedAt(ts(2025, time.January, 6, 10), time.Hour)

	out := schedule.Expand(seed, openRule(schedule.Weekly, 2), time.Time{})

	require.GreaterOrEqual(t, len(out), 5)
	expected := []time.Time{
		ts(2025, time.January, 6, 10),
		ts(2025, time.January, 20, 10),
		ts(2025, time.February, 3, 10),
		ts(2025, time.February, 17, 10),
		ts(2025, time.March, 3, 10),
	}
	for i, want := range expected {
		assert.Equal(t, want, out[i].Start)
		assert.Equal(t, time.Hour, out[i].Duration())
	}
}
