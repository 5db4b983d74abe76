package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/VJyzCELERY/Intellecta/schedule"
)

func ts(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func TestAddPeriod_Daily(t *testing.T) {
	base := ts(2025, time.March, 10, 9)

	assert.Equal(t, ts(2025, time.March, 11, 9), schedule.AddPeriod(base, schedule.Daily, 1))
	assert.Equal(t, ts(2025, time.March, 20, 9), schedule.AddPeriod(base, schedule.Daily, 10))
	// Month boundary rolls over normally for day arithmetic
	assert.Equal(t, ts(2025, time.April, 9, 9), schedule.AddPeriod(base, schedule.Daily, 30))
}

func TestAddPeriod_Weekly_IsSevenDays(t *testing.T) {
	base := ts(2025, time.January, 6, 10)

	assert.Equal(t, ts(2025, time.January, 13, 10), schedule.AddPeriod(base, schedule.Weekly, 1))
	assert.Equal(t, schedule.AddPeriod(base, schedule.Daily, 28), schedule.AddPeriod(base, schedule.Weekly, 4))
}

func TestAddPeriod_Monthly_ClampsToShortMonth(t *testing.T) {
	// GIVEN: Jan 31
	// THEN: +1 month clamps to the end of February, never rolls to March
	base := ts(2025, time.January, 31, 10)

	assert.Equal(t, ts(2025, time.February, 28, 10), schedule.AddPeriod(base, schedule.Monthly, 1))

	leapBase := ts(2024, time.January, 31, 10)
	assert.Equal(t, ts(2024, time.February, 29, 10), schedule.AddPeriod(leapBase, schedule.Monthly, 1))
}

func TestAddPeriod_Monthly_MultiplesComputedFromBase(t *testing.T) {
	// The clamp applies per target month: Jan 31 + 2 months is Mar 31,
	// not Mar 28 carried over from a clamped February.
	base := ts(2025, time.January, 31, 10)

	assert.Equal(t, ts(2025, time.March, 31, 10), schedule.AddPeriod(base, schedule.Monthly, 2))
	assert.Equal(t, ts(2025, time.April, 30, 10), schedule.AddPeriod(base, schedule.Monthly, 3))
}

func TestAddPeriod_Monthly_YearRollover(t *testing.T) {
	base := ts(2025, time.November, 15, 8)

	assert.Equal(t, ts(2026, time.January, 15, 8), schedule.AddPeriod(base, schedule.Monthly, 2))
	assert.Equal(t, ts(2027, time.May, 15, 8), schedule.AddPeriod(base, schedule.Monthly, 18))
}

func TestAddPeriod_Yearly_LeapClamp(t *testing.T) {
	// GIVEN: Feb 29 on a leap year
	// THEN: non-leap target years clamp to Feb 28, leap targets keep Feb 29
	base := ts(2024, time.February, 29, 12)

	assert.Equal(t, ts(2025, time.February, 28, 12), schedule.AddPeriod(base, schedule.Yearly, 1))
	assert.Equal(t, ts(2028, time.February, 29, 12), schedule.AddPeriod(base, schedule.Yearly, 4))
}

func TestAddPeriod_Yearly_CenturyRule(t *testing.T) {
	base := ts(2096, time.February, 29, 0)

	// 2100 is divisible by 100 but not 400, so it is not a leap year
	assert.Equal(t, ts(2100, time.February, 28, 0), schedule.AddPeriod(base, schedule.Yearly, 4))
}

func TestAddPeriod_UnknownFrequency_ReturnsBase(t *testing.T) {
	base := ts(2025, time.June, 5, 10)

	assert.Equal(t, base, schedule.AddPeriod(base, schedule.Frequency("hourly"), 3))
}

func TestAddPeriod_PreservesTimeOfDay(t *testing.T) {
	base := time.Date(2025, time.January, 31, 23, 45, 30, 0, time.UTC)

	got := schedule.AddPeriod(base, schedule.Monthly, 1)
	assert.Equal(t, time.Date(2025, time.February, 28, 23, 45, 30, 0, time.UTC), got)
}

func TestMonthRange(t *testing.T) {
	from, to := schedule.MonthRange(2025, time.June)
	assert.Equal(t, ts(2025, time.June, 1, 0), from)
	assert.Equal(t, ts(2025, time.July, 1, 0), to)

	// December rolls into the next year
	from, to = schedule.MonthRange(2025, time.December)
	assert.Equal(t, ts(2025, time.December, 1, 0), from)
	assert.Equal(t, ts(2026, time.January, 1, 0), to)
}
