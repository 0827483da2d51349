/*
engine.go - Calendar accumulation: the heart of the forecast

PURPOSE:
  Folds every cash movement into a day-by-day calendar and accumulates a
  running balance with summary statistics. The algorithm:

  1. Build an empty daily calendar for [startDate, endDate]
  2. Apply non-recurring one-offs to their exact dates (archived AR
     entries are skipped)
  3. Sweep every day for each recurring one-off and income stream,
     resolving amounts with per-entry "previous occurrence" cursors so
     escalation compounds between firings
  4. Fold manual adjustments into income (>= 0) or expenses (< 0)
  5. Apply sale uplifts against each day's PRE-sale income total
  6. Accumulate the running balance, rounding to cents per day, tracking
     lowest/peak balance (earliest day wins ties), first negative date,
     and the count of strictly negative days
  7. Derive projected weekly income from total stream income

OVERRIDE HOOKS:
  The What-If evaluator injects a Transform hook that replaces the resolved
  amount for income streams; a Multiplier hook scales it instead. The two
  are mutually exclusive per call and Transform wins when both are set.

PURITY:
  Project reads nothing but its arguments. The occurrence cursors are local
  to a single call, so concurrent projections of independent snapshots need
  no synchronization.

FAILURE SEMANTICS:
  A state without settings is a fatal precondition violation (the caller
  skipped normalization), not recoverable input.
*/
package forecast

import "github.com/shopspring/decimal"

// =============================================================================
// OVERRIDES - Scenario hooks into the stream sweep
// =============================================================================

// Overrides adjusts how income streams contribute during a projection.
// Transform replaces the resolved amount outright; Multiplier scales it.
// Transform takes precedence when both are supplied. Sales are applied
// after all other income for a day, against the pre-sale total.
type Overrides struct {
	Transform  func(stream *Entry, base decimal.Decimal, on Date) decimal.Decimal
	Multiplier func(stream *Entry, base decimal.Decimal, on Date) decimal.Decimal

	Sales        []SaleEntry
	SalesEnabled bool
}

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// =============================================================================
// PROJECTION
// =============================================================================

// Project runs the calendar accumulation over state's window. ov may be nil
// for a plain baseline run.
func Project(state *State, ov *Overrides) (*ProjectionResult, error) {
	if state == nil || state.Settings == nil {
		return nil, ErrMissingSettings
	}
	start, end := state.Settings.StartDate, state.Settings.EndDate
	if !start.IsValid() || !end.IsValid() {
		return nil, ErrInvalidWindow
	}
	if end.Before(start) {
		end = start
	}

	// 1. Empty calendar, one zeroed row per day.
	totalDays := start.DaysUntil(end) + 1
	rows := make([]DayRow, totalDays)
	index := make(map[string]int, totalDays)
	for i, d := 0, start; i < totalDays; i, d = i+1, d.AddDays(1) {
		rows[i] = DayRow{
			Date:     d,
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
		index[d.String()] = i
	}

	// 2. Non-recurring one-offs land on their exact date. Expense amounts
	// are magnitudes; income keeps its sign so credits can reduce income.
	for i := range state.OneOffs {
		e := &state.OneOffs[i]
		if e.Recurring || e.ARStatus == ARStatusArchived {
			continue
		}
		ri, ok := index[e.Date.String()]
		if !ok {
			continue
		}
		row := &rows[ri]
		if e.Type == Expense {
			addExpense(row, e.Label(), e.Amount.Abs())
		} else {
			addIncome(row, e.Label(), e.Amount)
		}
	}

	// 3. Recurring sweeps. One-offs take no hooks; streams honor the
	// scenario overrides and their total feeds weekly income.
	sweepRecurring(rows, start, end, recurringOnly(state.OneOffs), nil)
	streamIncome := sweepRecurring(rows, start, end, state.Streams, ov)

	// 4. Manual adjustments.
	for _, adj := range state.Adjustments {
		ri, ok := index[adj.Date.String()]
		if !ok {
			continue
		}
		row := &rows[ri]
		label := adj.Note
		if label == "" {
			label = "Adjustment"
		}
		if adj.Amount.IsNegative() {
			addExpense(row, label, adj.Amount.Abs())
		} else {
			addIncome(row, label, adj.Amount)
		}
	}

	// 5. Sale uplifts, computed from each day's pre-sale income.
	if ov != nil && ov.SalesEnabled {
		applySales(rows, ov.Sales)
	}

	// 6. Accumulate.
	result := &ProjectionResult{Calendar: rows}
	running := round2(state.Settings.StartingBalance)
	totalIncome, totalExpenses := decimal.Zero, decimal.Zero
	for i := range rows {
		row := &rows[i]
		row.Income = round2(row.Income)
		row.Expenses = round2(row.Expenses)
		row.Net = row.Income.Sub(row.Expenses)
		running = running.Add(row.Net)
		row.Running = running

		totalIncome = totalIncome.Add(row.Income)
		totalExpenses = totalExpenses.Add(row.Expenses)

		if i == 0 || running.LessThan(result.LowestBalance) {
			result.LowestBalance = running
			result.LowestBalanceDate = row.Date
		}
		if i == 0 || running.GreaterThan(result.PeakBalance) {
			result.PeakBalance = running
			result.PeakBalanceDate = row.Date
		}
		if running.IsNegative() {
			result.NegativeDays++
			if !result.FirstNegativeDate.IsValid() {
				result.FirstNegativeDate = row.Date
			}
		}
	}
	result.TotalIncome = totalIncome
	result.TotalExpenses = totalExpenses
	result.EndBalance = running

	// 7. Weekly income from stream contributions only.
	if totalDays > 0 {
		weeks := decimal.NewFromInt(int64(totalDays)).Div(decimal.NewFromInt(7))
		result.ProjectedWeeklyIncome = round2(streamIncome.Div(weeks))
	}

	return result, nil
}

// =============================================================================
// SWEEP HELPERS
// =============================================================================

func recurringOnly(entries []Entry) []Entry {
	var out []Entry
	for i := range entries {
		if entries[i].Recurring && entries[i].ARStatus != ARStatusArchived {
			out = append(out, entries[i])
		}
	}
	return out
}

// sweepRecurring walks every day in [start, end] for each entry, resolving
// amounts with a per-entry last-occurrence cursor. Returns the total income
// contributed (expense-typed entries contribute zero to the total).
func sweepRecurring(rows []DayRow, start, end Date, entries []Entry, ov *Overrides) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if !e.Recurring && e.Frequency != FreqOnce {
			continue
		}

		// Cursor for escalation: the previous date this entry fired,
		// local to this sweep.
		var prev *Date
		for ri, d := 0, start; d.BeforeOrEqual(end); ri, d = ri+1, d.AddDays(1) {
			if !Matches(d, e) {
				continue
			}
			resolved := ResolveAmount(e, d, prev)
			occurred := d
			prev = &occurred
			if resolved.IsZero() {
				continue
			}

			applied := resolved
			if ov != nil {
				if ov.Transform != nil {
					applied = ov.Transform(e, resolved, d)
				} else if ov.Multiplier != nil {
					applied = resolved.Mul(ov.Multiplier(e, resolved, d))
				}
			}
			if applied.IsZero() {
				continue
			}

			row := &rows[ri]
			if e.Type == Expense {
				addExpense(row, e.Label(), applied)
			} else {
				addIncome(row, e.Label(), applied)
				total = total.Add(applied)
			}
		}
	}
	return total
}

// applySales folds sale uplifts into each covered day. The proportional
// form is computed against the day's income BEFORE any sale adjustment, so
// stacked sale windows don't compound each other.
func applySales(rows []DayRow, sales []SaleEntry) {
	for i := range rows {
		row := &rows[i]
		preSale := row.Income
		for s := range sales {
			sale := &sales[s]
			if !sale.Contains(row.Date) {
				continue
			}
			var uplift decimal.Decimal
			if sale.LastEdited == SaleEditTopup {
				uplift = sale.Topup
			} else {
				uplift = preSale.Mul(decimal.NewFromFloat(sale.Pct))
			}
			if uplift.IsZero() {
				continue
			}
			label := "Sale " + sale.StartDate.String() + " to " + sale.EndDate.String()
			addIncome(row, label, uplift)
		}
	}
}

func addIncome(row *DayRow, source string, amount decimal.Decimal) {
	row.Income = row.Income.Add(amount)
	row.IncomeDetails = append(row.IncomeDetails, LineItem{Source: source, Amount: round2(amount)})
}

func addExpense(row *DayRow, source string, amount decimal.Decimal) {
	row.Expenses = row.Expenses.Add(amount)
	row.ExpenseDetails = append(row.ExpenseDetails, LineItem{Source: source, Amount: round2(amount)})
}
