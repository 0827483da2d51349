/*
date.go - Calendar date arithmetic for the forecast engine

PURPOSE:
  All dates in the engine are calendar days with no time-of-day component,
  canonically rendered as YYYY-MM-DD. This file owns parsing, formatting,
  arithmetic, weekend detection, business-day rolling, and the loose parser
  used by imports (Excel serials, M/D/Y variants, free-form strings).

KEY INVARIANTS:
  - ParseDate(d.String()) == d for every valid Date (round-trip identity)
  - The canonical form is zero-padded and fixed-width, so lexicographic
    ordering of canonical strings equals chronological ordering
  - The zero Date is the invalid sentinel; arithmetic on it is a no-op

EXCEL SERIALS:
  Excel inherited Lotus 1-2-3's belief that 1900 was a leap year. Serial 60
  is the nonexistent 1900-02-29, so every serial above 59 is decremented by
  one before being added to the 1899-12-31 epoch.

SEE ALSO:
  - recurrence.go: Consumes weekday/day-of-month properties
  - engine.go: Iterates the projection window day by day
*/
package forecast

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day with no time component
// =============================================================================

// Date is a calendar day. The zero value is the invalid sentinel that every
// parse failure maps to; callers must check IsValid before relying on it.
type Date struct {
	t time.Time
}

const canonicalLayout = "2006-01-02"

// NewDate builds a Date from components. Out-of-range components normalize
// the way time.Date does (month 13 rolls into the next year).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current wall-clock date. Used only when defaulting a
// missing settings block; the engine itself never reads the clock.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses the canonical YYYY-MM-DD form. Anything else, including
// unpadded or out-of-range components, yields the invalid zero Date.
func ParseDate(s string) Date {
	t, err := time.Parse(canonicalLayout, s)
	if err != nil {
		return Date{}
	}
	return Date{t: t}
}

func (d Date) IsValid() bool { return !d.t.IsZero() }

// String renders the canonical form, or "" for the invalid sentinel.
func (d Date) String() string {
	if !d.IsValid() {
		return ""
	}
	return d.t.Format(canonicalLayout)
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddDays steps n calendar days (negative n subtracts), handling month and
// year rollover. Invalid receivers pass through unchanged.
func (d Date) AddDays(n int) Date {
	if !d.IsValid() {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the whole-day distance to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// MarshalJSON renders the canonical string; the invalid sentinel becomes "".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a canonical string or null. Malformed values map to
// the invalid sentinel rather than failing the whole document.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*d = Date{}
		return nil
	}
	*d = ParseDate(s)
	return nil
}

// =============================================================================
// BUSINESS-DAY ROLLING
// =============================================================================

type RollPolicy string

const (
	RollForward RollPolicy = "forward"
	RollBack    RollPolicy = "back"
	RollNone    RollPolicy = "none"
)

// RollToBusinessDay steps one day at a time in the policy's direction until
// the date lands on a weekday. RollNone leaves weekend dates untouched.
func (d Date) RollToBusinessDay(policy RollPolicy) Date {
	if !d.IsValid() || policy == RollNone {
		return d
	}
	step := 1
	if policy == RollBack {
		step = -1
	}
	out := d
	for out.IsWeekend() {
		out = out.AddDays(step)
	}
	return out
}

// =============================================================================
// LOOSE PARSING - Imports and legacy payloads
// =============================================================================

// Oldest and newest serials accepted as Excel dates (1900-03-01 .. 9999-12-31).
const (
	minExcelSerial = 61
	maxExcelSerial = 2958465
)

var looseLayouts = []string{
	canonicalLayout,
	"2006-1-2",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
}

// ParseLooseDate accepts the date shapes that show up in imported data:
// a time.Time, a numeric Excel serial, ISO Y-M-D, M/D/Y or M-D-Y (two-digit
// years pivot at 70), or a handful of free-form layouts. Returns ok=false
// for anything unparseable.
func ParseLooseDate(value any) (Date, bool) {
	switch v := value.(type) {
	case Date:
		return v, v.IsValid()
	case time.Time:
		if v.IsZero() {
			return Date{}, false
		}
		return NewDate(v.Year(), v.Month(), v.Day()), true
	case float64:
		return fromExcelSerial(v)
	case int:
		return fromExcelSerial(float64(v))
	case int64:
		return fromExcelSerial(float64(v))
	case string:
		return parseLooseString(strings.TrimSpace(v))
	default:
		return Date{}, false
	}
}

// fromExcelSerial converts an Excel day serial, compensating for the 1900
// leap-year bug: serials above 59 are off by one because Excel counts the
// nonexistent 1900-02-29.
func fromExcelSerial(serial float64) (Date, bool) {
	days := int(serial)
	if days < 1 || days > maxExcelSerial {
		return Date{}, false
	}
	if days > 59 {
		days--
	}
	return NewDate(1899, time.December, 31).AddDays(days), true
}

func parseLooseString(s string) (Date, bool) {
	if s == "" {
		return Date{}, false
	}

	// Digit-only strings in the Excel serial range come from spreadsheet
	// exports that dump the raw cell value.
	if serial, err := strconv.Atoi(s); err == nil {
		if serial >= minExcelSerial && serial <= maxExcelSerial {
			return fromExcelSerial(float64(serial))
		}
		return Date{}, false
	}

	if d, ok := parseMDY(s); ok {
		return d, true
	}

	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}
	return Date{}, false
}

// parseMDY handles M/D/Y and M-D-Y with one- or two-digit fields. A leading
// four-digit field is ISO order and left for the layout list.
func parseMDY(s string) (Date, bool) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 || len(parts[0]) == 4 {
		return Date{}, false
	}

	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, false
	}
	if year < 100 {
		if year < 70 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > daysInMonth(year, time.Month(month)) {
		return Date{}, false
	}
	return NewDate(year, time.Month(month), day), true
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

// MonthsBetween returns the whole calendar months from a to b (year*12+month
// difference), floored at zero. Invalid inputs yield zero.
func MonthsBetween(a, b Date) int {
	if !a.IsValid() || !b.IsValid() {
		return 0
	}
	months := (b.Year()*12 + int(b.Month())) - (a.Year()*12 + int(a.Month()))
	if months < 0 {
		return 0
	}
	return months
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
