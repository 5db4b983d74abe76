/*
calendar.go - Pure calendar arithmetic

PURPOSE:
  Adds N daily/weekly/monthly/yearly periods to a timestamp with the
  overflow policy the rest of the engine depends on:
  - monthly: day-of-month preserved, clamped to the last day of the
    target month when it is shorter (Jan 31 + 1 month = Feb 28/29,
    never Mar 2)
  - yearly: month/day preserved, Feb 29 clamped to Feb 28 on non-leap
    target years

  time.AddDate cannot be used for the month/year cases: it normalizes
  overflow by carrying into the next month, which is exactly the
  behavior the clamp policy forbids.

  All arithmetic is done in UTC. No error conditions: always returns a
  valid timestamp.

SEE ALSO:
  - expand.go: The only caller with multiples > 1
*/
package schedule

import "time"

// AddPeriod returns base advanced by `multiple` periods of the given
// frequency. An unknown frequency returns base unchanged.
func AddPeriod(base time.Time, freq Frequency, multiple int) time.Time {
	base = base.UTC()
	switch freq {
	case Daily:
		return base.AddDate(0, 0, multiple)
	case Weekly:
		return base.AddDate(0, 0, multiple*7)
	case Monthly:
		return addMonthsClamped(base, multiple)
	case Yearly:
		return addYearsClamped(base, multiple)
	}
	return base
}

func addMonthsClamped(base time.Time, months int) time.Time {
	year, month, day := base.Date()
	hour, min, sec := base.Clock()

	// Build on day 1 so the month offset itself never overflows,
	// then clamp the day to the target month's length.
	first := time.Date(year, month+time.Month(months), 1, hour, min, sec, base.Nanosecond(), time.UTC)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, base.Nanosecond(), time.UTC)
}

func addYearsClamped(base time.Time, years int) time.Time {
	year, month, day := base.Date()
	hour, min, sec := base.Clock()

	target := year + years
	if month == time.February && day == 29 && !isLeap(target) {
		day = 28
	}
	return time.Date(target, month, day, hour, min, sec, base.Nanosecond(), time.UTC)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// MonthRange returns [first day of month, first day of next month) in UTC.
func MonthRange(year int, month time.Month) (from, to time.Time) {
	from = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to = time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return from, to
}
