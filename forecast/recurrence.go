/*
recurrence.go - Does a recurring entry fire on a given date?

PURPOSE:
  Pure predicate over (date, entry). The projection engine sweeps every day
  in the window and asks Matches for each recurring entry; amounts are
  resolved separately (amount.go) so the schedule logic stays independent
  of escalation and step overrides.

RULES:
  once:     date == onDate
  daily:    every day, minus Sat/Sun when skipWeekends is set
  weekly:   date's weekday is in the weekday set
  biweekly: weekday match, and whole days since the first on-or-after
            occurrence of that weekday from startDate is a multiple of 14
  monthly/day: day-of-month clamped to the month's actual length
  monthly/nth: the nth (or last) occurrence of a weekday in the month

EDGE CASES:
  - dayOfMonth 31 fires on April 30 (clamped), not never
  - nthWeek 5 simply doesn't fire in months with only four such weekdays
  - Dates outside the entry's inclusive [startDate, endDate] never match

KNOWN INEFFICIENCY:
  The biweekly anchor is recomputed per date check rather than cached per
  entry. O(days x weekdays) is noise at this data scale.
*/
package forecast

import "time"

// Matches reports whether entry e fires on day d. Dates outside the entry's
// inclusive window never match. An invalid EndDate leaves the window open.
func Matches(d Date, e *Entry) bool {
	if !d.IsValid() {
		return false
	}
	if e.StartDate.IsValid() && d.Before(e.StartDate) {
		return false
	}
	if e.EndDate.IsValid() && d.After(e.EndDate) {
		return false
	}

	switch e.Frequency {
	case FreqOnce:
		return e.OnDate.IsValid() && d.Equal(e.OnDate)

	case FreqDaily:
		return !(e.SkipWeekends && d.IsWeekend())

	case FreqWeekly:
		return hasWeekday(e.Weekdays, int(d.Weekday()))

	case FreqBiweekly:
		wd := int(d.Weekday())
		if !hasWeekday(e.Weekdays, wd) {
			return false
		}
		anchor := firstWeekdayOnOrAfter(e.StartDate, wd)
		if !anchor.IsValid() {
			return false
		}
		diff := anchor.DaysUntil(d)
		return diff >= 0 && diff%14 == 0

	case FreqMonthly:
		if e.MonthlyMode == MonthlyByNthWeekday {
			return matchesNthWeekday(d, e.NthWeek, e.NthWeekday)
		}
		return d.Day() == clampDayOfMonth(e.DayOfMonth, d.Year(), d.Month())
	}
	return false
}

func hasWeekday(set []int, weekday int) bool {
	for _, w := range set {
		if w == weekday {
			return true
		}
	}
	return false
}

// firstWeekdayOnOrAfter finds the first occurrence of weekday on or after
// from; this anchors the 14-day cycle for biweekly entries.
func firstWeekdayOnOrAfter(from Date, weekday int) Date {
	if !from.IsValid() {
		return Date{}
	}
	d := from
	for int(d.Weekday()) != weekday {
		d = d.AddDays(1)
	}
	return d
}

// matchesNthWeekday resolves the nth-weekday-of-month rule. nth is 1-indexed;
// NthWeekLast selects the final occurrence. A missing fifth occurrence means
// no match that month.
func matchesNthWeekday(d Date, nth, weekday int) bool {
	if int(d.Weekday()) != weekday {
		return false
	}
	occurrence := (d.Day()-1)/7 + 1
	if nth == NthWeekLast {
		return d.Day()+7 > daysInMonth(d.Year(), d.Month())
	}
	return occurrence == nth
}

// clampDayOfMonth clamps a 1-31 target to the month's actual length, so a
// "31st of every month" rule fires on April 30.
func clampDayOfMonth(day, year int, month time.Month) int {
	last := daysInMonth(year, month)
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}
