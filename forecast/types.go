/*
Package forecast provides the core cash-flow projection engine.

PURPOSE:
  Given a starting balance, one-off transactions, recurring income streams
  and expenses, manual adjustments, and optional sale-event uplifts, the
  engine produces a day-by-day projected bank balance through a configurable
  end date, plus summary statistics (lowest/peak balance, first negative
  date, projected weekly income).

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: A dated cash movement, single or recurring, income or expense
  - Settings: The projection window and starting balance
  - Adjustment: A signed manual correction on a specific day
  - SaleEntry: A time-boxed scenario income uplift
  - DayRow / ProjectionResult: The engine's output

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money, rounded to cents at every
     boundary
  2. Purity: Project() is a pure function of its inputs; scenario runs own
     deep-cloned state and never alias the live snapshot
  3. Tolerance: Malformed persisted state is repaired by the factory
     package before it reaches the engine

SEE ALSO:
  - recurrence.go: Whether an entry fires on a given date
  - amount.go: What amount a firing entry contributes
  - engine.go: The calendar accumulation algorithm
*/
package forecast

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - Single or recurring cash movement
// =============================================================================

type EntryType string

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

type Frequency string

const (
	FreqOnce     Frequency = "once" // income streams only
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqBiweekly Frequency = "biweekly"
	FreqMonthly  Frequency = "monthly"
)

type MonthlyMode string

const (
	MonthlyByDay        MonthlyMode = "day"
	MonthlyByNthWeekday MonthlyMode = "nth"
)

// NthWeekLast selects the final occurrence of the weekday in the month.
const NthWeekLast = -1

// Step overrides the entry amount from EffectiveFrom forward. Steps are kept
// sorted ascending by EffectiveFrom.
type Step struct {
	EffectiveFrom Date            `json:"effectiveFrom"`
	Amount        decimal.Decimal `json:"amount"`
}

// Entry is the shared shape of one-off transactions and income streams.
// Amount is stored non-negative; the sign is carried by Type. A one-off has
// either a single Date (Recurring false) or a recurrence window; streams are
// always income-typed and additionally support FreqOnce with OnDate.
type Entry struct {
	ID       string    `json:"id,omitempty"`
	Type     EntryType `json:"type"`
	Name     string    `json:"name,omitempty"`
	Category string    `json:"category,omitempty"`
	Note     string    `json:"note,omitempty"`

	Amount    decimal.Decimal `json:"amount"`
	Recurring bool            `json:"recurring"`
	Date      Date            `json:"date,omitempty"`

	Frequency    Frequency   `json:"frequency,omitempty"`
	StartDate    Date        `json:"startDate,omitempty"`
	EndDate      Date        `json:"endDate,omitempty"`
	SkipWeekends bool        `json:"skipWeekends,omitempty"`
	Weekdays     []int       `json:"dayOfWeek,omitempty"` // 0=Sunday, sorted unique
	MonthlyMode  MonthlyMode `json:"monthlyMode,omitempty"`
	DayOfMonth   int         `json:"dayOfMonth,omitempty"`
	NthWeek      int         `json:"nthWeek,omitempty"` // 1..5, or NthWeekLast
	NthWeekday   int         `json:"nthWeekday,omitempty"`
	OnDate       Date        `json:"onDate,omitempty"`

	Steps        []Step  `json:"steps,omitempty"`
	EscalatorPct float64 `json:"escalatorPct,omitempty"`

	// ARStatus tracks entries produced by accounts-receivable import.
	// Archived entries are excluded from projection.
	ARStatus string `json:"arStatus,omitempty"`
}

const ARStatusArchived = "archived"

// Label is the per-day detail line for this entry: "name – category",
// falling back to the note, falling back to a generic tag.
func (e *Entry) Label() string {
	name := strings.TrimSpace(e.Name)
	category := strings.TrimSpace(e.Category)
	switch {
	case name != "" && category != "":
		return name + " - " + category
	case name != "":
		return name
	case category != "":
		return category
	case strings.TrimSpace(e.Note) != "":
		return strings.TrimSpace(e.Note)
	case e.Type == Income:
		return "Income"
	default:
		return "Expense"
	}
}

func (e *Entry) clone() Entry {
	out := *e
	if e.Weekdays != nil {
		out.Weekdays = append([]int(nil), e.Weekdays...)
	}
	if e.Steps != nil {
		out.Steps = append([]Step(nil), e.Steps...)
	}
	return out
}

// =============================================================================
// SETTINGS / ADJUSTMENTS / SALE ENTRIES
// =============================================================================

// Settings defines the projection window and opening balance.
// Invariant: StartDate <= EndDate (the factory clamps violations).
type Settings struct {
	StartDate       Date            `json:"startDate"`
	EndDate         Date            `json:"endDate"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
}

// Adjustment is a signed manual correction folded into income (>= 0) or
// expenses (< 0) on its date.
type Adjustment struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

type SaleEditMode string

const (
	SaleEditPct   SaleEditMode = "pct"
	SaleEditTopup SaleEditMode = "topup"
)

// SaleEntry is a time-boxed income uplift used by What-If scenarios: either
// proportional (Pct of that day's pre-sale income) or additive (flat Topup),
// selected by LastEdited, optionally restricted to Mon-Fri.
type SaleEntry struct {
	StartDate        Date            `json:"startDate"`
	EndDate          Date            `json:"endDate"`
	Pct              float64         `json:"pct,omitempty"`
	Topup            decimal.Decimal `json:"topup,omitempty"`
	BusinessDaysOnly bool            `json:"businessDaysOnly,omitempty"`
	LastEdited       SaleEditMode    `json:"lastEdited,omitempty"`
}

// Contains reports whether the sale window covers day d, honoring the
// business-days-only restriction.
func (s *SaleEntry) Contains(d Date) bool {
	if !s.StartDate.IsValid() || !s.EndDate.IsValid() {
		return false
	}
	if d.Before(s.StartDate) || d.After(s.EndDate) {
		return false
	}
	if s.BusinessDaysOnly && d.IsWeekend() {
		return false
	}
	return true
}

// =============================================================================
// STATE - Canonical persisted snapshot
// =============================================================================

// State is the canonical data model every projection runs against. Raw
// persisted blobs become a State via factory.Normalize; the engine refuses
// to run without Settings.
type State struct {
	Settings    *Settings    `json:"settings"`
	OneOffs     []Entry      `json:"oneOffs"`
	Streams     []Entry      `json:"incomeStreams"`
	Adjustments []Adjustment `json:"adjustments"`
}

// Clone deep-copies the state so scenario sandboxes never alias the live
// snapshot.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{}
	if s.Settings != nil {
		settings := *s.Settings
		out.Settings = &settings
	}
	out.OneOffs = make([]Entry, len(s.OneOffs))
	for i := range s.OneOffs {
		out.OneOffs[i] = s.OneOffs[i].clone()
	}
	out.Streams = make([]Entry, len(s.Streams))
	for i := range s.Streams {
		out.Streams[i] = s.Streams[i].clone()
	}
	out.Adjustments = append([]Adjustment(nil), s.Adjustments...)
	return out
}

// =============================================================================
// PROJECTION OUTPUT
// =============================================================================

// LineItem attributes part of a day's income or expenses to its source.
type LineItem struct {
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
}

// DayRow is one day of the projected calendar. Income, Expenses, Net, and
// Running are rounded to cents.
type DayRow struct {
	Date           Date            `json:"date"`
	Income         decimal.Decimal `json:"income"`
	Expenses       decimal.Decimal `json:"expenses"`
	Net            decimal.Decimal `json:"net"`
	Running        decimal.Decimal `json:"running"`
	IncomeDetails  []LineItem      `json:"incomeDetails,omitempty"`
	ExpenseDetails []LineItem      `json:"expenseDetails,omitempty"`
}

// ProjectionResult is the full calendar plus summary statistics.
// FirstNegativeDate is the invalid sentinel when the balance never dips
// below zero. Tie-breaks on lowest/peak balance go to the earliest day.
type ProjectionResult struct {
	Calendar              []DayRow        `json:"calendar"`
	TotalIncome           decimal.Decimal `json:"totalIncome"`
	TotalExpenses         decimal.Decimal `json:"totalExpenses"`
	EndBalance            decimal.Decimal `json:"endBalance"`
	LowestBalance         decimal.Decimal `json:"lowestBalance"`
	LowestBalanceDate     Date            `json:"lowestBalanceDate"`
	PeakBalance           decimal.Decimal `json:"peakBalance"`
	PeakBalanceDate       Date            `json:"peakBalanceDate"`
	FirstNegativeDate     Date            `json:"firstNegativeDate"`
	NegativeDays          int             `json:"negativeDays"`
	ProjectedWeeklyIncome decimal.Decimal `json:"projectedWeeklyIncome"`
}
