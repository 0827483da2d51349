package forecast_test

import (
	"testing"

	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// ONCE / DAILY / WEEKLY
// =============================================================================

func TestMatchesOnce(t *testing.T) {
	e := &forecast.Entry{
		Frequency: forecast.FreqOnce,
		StartDate: d("2025-01-15"),
		EndDate:   d("2025-01-15"),
		OnDate:    d("2025-01-15"),
	}
	if !forecast.Matches(d("2025-01-15"), e) {
		t.Error("should fire on its own date")
	}
	if forecast.Matches(d("2025-01-16"), e) {
		t.Error("should not fire on any other date")
	}
}

func TestMatchesDailySkipWeekends(t *testing.T) {
	e := &forecast.Entry{
		Frequency:    forecast.FreqDaily,
		StartDate:    d("2025-01-01"),
		SkipWeekends: true,
	}
	if !forecast.Matches(d("2025-01-03"), e) { // Friday
		t.Error("weekday should match")
	}
	if forecast.Matches(d("2025-01-04"), e) { // Saturday
		t.Error("Saturday should be skipped")
	}
	e.SkipWeekends = false
	if !forecast.Matches(d("2025-01-04"), e) {
		t.Error("Saturday should match without skipWeekends")
	}
}

func TestMatchesWeeklySet(t *testing.T) {
	// GIVEN: A weekly entry on Monday and Thursday
	e := &forecast.Entry{
		Frequency: forecast.FreqWeekly,
		StartDate: d("2025-01-01"),
		Weekdays:  []int{1, 4},
	}
	if !forecast.Matches(d("2025-01-06"), e) { // Monday
		t.Error("Monday should match")
	}
	if !forecast.Matches(d("2025-01-09"), e) { // Thursday
		t.Error("Thursday should match")
	}
	if forecast.Matches(d("2025-01-07"), e) { // Tuesday
		t.Error("Tuesday should not match")
	}
}

// =============================================================================
// WINDOW BOUNDS
// =============================================================================

func TestMatchesRespectsWindow(t *testing.T) {
	e := &forecast.Entry{
		Frequency: forecast.FreqDaily,
		StartDate: d("2025-01-10"),
		EndDate:   d("2025-01-20"),
	}
	if forecast.Matches(d("2025-01-09"), e) {
		t.Error("before startDate must not match")
	}
	if !forecast.Matches(d("2025-01-10"), e) || !forecast.Matches(d("2025-01-20"), e) {
		t.Error("window bounds are inclusive")
	}
	if forecast.Matches(d("2025-01-21"), e) {
		t.Error("after endDate must not match")
	}
}

func TestMatchesOpenEndedWindow(t *testing.T) {
	// WHEN: EndDate is the invalid sentinel
	// THEN: The window stays open indefinitely
	e := &forecast.Entry{
		Frequency: forecast.FreqDaily,
		StartDate: d("2025-01-01"),
	}
	if !forecast.Matches(d("2030-06-15"), e) {
		t.Error("open-ended entry should match far-future dates")
	}
}

// =============================================================================
// BIWEEKLY ANCHORING
// =============================================================================

func TestMatchesBiweeklyAnchor(t *testing.T) {
	// GIVEN: A biweekly Monday rule anchored at 2025-01-06 (a Monday)
	e := &forecast.Entry{
		Frequency: forecast.FreqBiweekly,
		StartDate: d("2025-01-06"),
		Weekdays:  []int{1},
	}
	if !forecast.Matches(d("2025-01-06"), e) {
		t.Error("anchor Monday should match")
	}
	if forecast.Matches(d("2025-01-13"), e) {
		t.Error("off-cycle Monday should not match")
	}
	if !forecast.Matches(d("2025-01-20"), e) {
		t.Error("14 days after the anchor should match")
	}
}

func TestMatchesBiweeklyAnchorsPerWeekday(t *testing.T) {
	// GIVEN: StartDate is a Monday but the rule selects Wednesdays
	// THEN: The cycle anchors on the first Wednesday on or after startDate
	e := &forecast.Entry{
		Frequency: forecast.FreqBiweekly,
		StartDate: d("2025-01-06"),
		Weekdays:  []int{3},
	}
	if !forecast.Matches(d("2025-01-08"), e) {
		t.Error("first Wednesday on or after start should match")
	}
	if forecast.Matches(d("2025-01-15"), e) {
		t.Error("the following Wednesday is off-cycle")
	}
	if !forecast.Matches(d("2025-01-22"), e) {
		t.Error("two weeks after the Wednesday anchor should match")
	}
}

// =============================================================================
// MONTHLY BY DAY
// =============================================================================

func TestMatchesMonthlyDayClamped(t *testing.T) {
	// GIVEN: A "31st of every month" rule
	e := &forecast.Entry{
		Frequency:   forecast.FreqMonthly,
		StartDate:   d("2025-01-01"),
		MonthlyMode: forecast.MonthlyByDay,
		DayOfMonth:  31,
	}
	if !forecast.Matches(d("2025-01-31"), e) {
		t.Error("January 31 should match")
	}
	if !forecast.Matches(d("2025-04-30"), e) {
		t.Error("April clamps to the 30th")
	}
	if forecast.Matches(d("2025-04-29"), e) {
		t.Error("April 29 should not match")
	}
	if !forecast.Matches(d("2025-02-28"), e) {
		t.Error("non-leap February clamps to the 28th")
	}
	if !forecast.Matches(d("2024-02-29"), e) {
		t.Error("leap February clamps to the 29th")
	}
}

// =============================================================================
// MONTHLY BY NTH WEEKDAY
// =============================================================================

func TestMatchesMonthlyNthWeekday(t *testing.T) {
	// GIVEN: Second Tuesday of every month
	e := &forecast.Entry{
		Frequency:   forecast.FreqMonthly,
		StartDate:   d("2025-01-01"),
		MonthlyMode: forecast.MonthlyByNthWeekday,
		NthWeek:     2,
		NthWeekday:  2,
	}
	if !forecast.Matches(d("2025-01-14"), e) {
		t.Error("2025-01-14 is the second Tuesday of January")
	}
	if forecast.Matches(d("2025-01-07"), e) {
		t.Error("the first Tuesday should not match")
	}
	if forecast.Matches(d("2025-01-15"), e) {
		t.Error("a Wednesday should not match")
	}
}

func TestMatchesMonthlyLastWeekday(t *testing.T) {
	// GIVEN: Last Friday of every month
	e := &forecast.Entry{
		Frequency:   forecast.FreqMonthly,
		StartDate:   d("2025-01-01"),
		MonthlyMode: forecast.MonthlyByNthWeekday,
		NthWeek:     forecast.NthWeekLast,
		NthWeekday:  5,
	}
	if !forecast.Matches(d("2025-01-31"), e) {
		t.Error("2025-01-31 is the last Friday of January")
	}
	if forecast.Matches(d("2025-01-24"), e) {
		t.Error("the second-to-last Friday should not match")
	}
}

func TestMatchesMonthlyFifthWeekdayMayNotExist(t *testing.T) {
	// GIVEN: Fifth Monday of every month
	// THEN: February 2025 has only four Mondays, so nothing fires
	e := &forecast.Entry{
		Frequency:   forecast.FreqMonthly,
		StartDate:   d("2025-01-01"),
		MonthlyMode: forecast.MonthlyByNthWeekday,
		NthWeek:     5,
		NthWeekday:  1,
	}
	for day := d("2025-02-01"); day.BeforeOrEqual(d("2025-02-28")); day = day.AddDays(1) {
		if forecast.Matches(day, e) {
			t.Fatalf("unexpected match on %s", day)
		}
	}
	// March 2025 does have a fifth Monday.
	if !forecast.Matches(d("2025-03-31"), e) {
		t.Error("2025-03-31 is the fifth Monday of March")
	}
}
