/*
evaluate.go - Parallel projection and diffing

PURPOSE:
  Runs the projection engine once on the actual state and once on the
  scenario sandbox (with the tweak transform and sale entries installed),
  then diffs the two summaries. The first-negative-date comparison is
  classified rather than left as raw dates so callers can render "clears
  your overdraft" vs "goes negative 12 days sooner" directly.

SEE ALSO:
  - types.go: Scenario and tweak shapes
  - forecast/engine.go: Project and Overrides
*/
package whatif

import (
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// FirstNegativeStatus classifies how the scenario moved the first date the
// balance dips below zero.
type FirstNegativeStatus string

const (
	FirstNegativeNone      FirstNegativeStatus = "none"      // neither run goes negative
	FirstNegativeCleared   FirstNegativeStatus = "cleared"   // actual did, scenario doesn't
	FirstNegativeNew       FirstNegativeStatus = "new"       // scenario introduces one
	FirstNegativeUnchanged FirstNegativeStatus = "unchanged" // same day in both
	FirstNegativeLater     FirstNegativeStatus = "later"
	FirstNegativeSooner    FirstNegativeStatus = "sooner"
)

// Comparison holds scenario-minus-actual deltas, rounded to cents.
type Comparison struct {
	EndBalanceDelta    decimal.Decimal `json:"endBalanceDelta"`
	TotalIncomeDelta   decimal.Decimal `json:"totalIncomeDelta"`
	TotalExpensesDelta decimal.Decimal `json:"totalExpensesDelta"`
	LowestBalanceDelta decimal.Decimal `json:"lowestBalanceDelta"`
	PeakBalanceDelta   decimal.Decimal `json:"peakBalanceDelta"`
	NegativeDaysDelta  int             `json:"negativeDaysDelta"`

	FirstNegative          FirstNegativeStatus `json:"firstNegative"`
	FirstNegativeShiftDays int                 `json:"firstNegativeShiftDays"`
}

// Result bundles both projection runs with their diff.
type Result struct {
	Actual     *forecast.ProjectionResult `json:"actual"`
	Sandbox    *forecast.ProjectionResult `json:"sandbox"`
	Comparison Comparison                 `json:"comparison"`
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate sanitizes the scenario against actual as fallback, projects both
// states, and diffs the summaries. The two runs read only their own
// snapshots, so nothing here needs synchronization.
func Evaluate(actual *forecast.State, sc *Scenario) (*Result, error) {
	if actual == nil || actual.Settings == nil {
		return nil, forecast.ErrMissingSettings
	}
	sc = SanitizeScenario(sc, actual)

	sandbox := sc.Base.Clone()
	sandbox.Settings.StartDate = sc.Tweaks.StartDate
	sandbox.Settings.EndDate = sc.Tweaks.EndDate

	actualResult, err := forecast.Project(actual, nil)
	if err != nil {
		return nil, err
	}

	sandboxResult, err := forecast.Project(sandbox, &forecast.Overrides{
		Transform:    transformFor(sc.Tweaks),
		Sales:        sc.Tweaks.Sale.Entries,
		SalesEnabled: sc.Tweaks.Sale.Enabled,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Actual:     actualResult,
		Sandbox:    sandboxResult,
		Comparison: compare(actualResult, sandboxResult),
	}, nil
}

// transformFor builds the stream-amount transform from the tweak set.
// Weekly-target and effective overrides are final amounts and bypass both
// the global tweak and the stream's own pct/delta.
func transformFor(t Tweaks) func(*forecast.Entry, decimal.Decimal, forecast.Date) decimal.Decimal {
	one := decimal.NewFromInt(1)
	globalFactor := one.Add(decimal.NewFromFloat(t.Global.Pct))
	globalDelta := decimal.NewFromFloat(t.Global.Delta)

	return func(stream *forecast.Entry, base decimal.Decimal, _ forecast.Date) decimal.Decimal {
		adjusted := base.Mul(globalFactor).Add(globalDelta)

		st, ok := t.Streams[stream.ID]
		if !ok {
			return adjusted
		}
		switch {
		case st.LastEdited == EditWeekly && st.WeeklyTarget != nil:
			occurrences := WeeklyOccurrences(stream)
			if occurrences <= 0 {
				// A weekly target is meaningless for a one-time stream.
				return adjusted
			}
			return decimal.NewFromFloat(*st.WeeklyTarget).Div(decimal.NewFromFloat(occurrences))

		case st.LastEdited == EditEffective && st.Effective != nil:
			return decimal.NewFromFloat(*st.Effective)

		default:
			return adjusted.Mul(one.Add(decimal.NewFromFloat(st.Pct))).Add(decimal.NewFromFloat(st.Delta))
		}
	}
}

// WeeklyOccurrences estimates how many times a stream fires per week,
// structurally from its frequency. Used to spread a weekly target across
// occurrences.
func WeeklyOccurrences(e *forecast.Entry) float64 {
	switch e.Frequency {
	case forecast.FreqDaily:
		if e.SkipWeekends {
			return 5
		}
		return 7
	case forecast.FreqWeekly:
		return float64(len(e.Weekdays))
	case forecast.FreqBiweekly:
		return float64(len(e.Weekdays)) / 2
	case forecast.FreqMonthly:
		return 12.0 / 52.0
	default: // once
		return 0
	}
}

func compare(actual, sandbox *forecast.ProjectionResult) Comparison {
	c := Comparison{
		EndBalanceDelta:    sandbox.EndBalance.Sub(actual.EndBalance).Round(2),
		TotalIncomeDelta:   sandbox.TotalIncome.Sub(actual.TotalIncome).Round(2),
		TotalExpensesDelta: sandbox.TotalExpenses.Sub(actual.TotalExpenses).Round(2),
		LowestBalanceDelta: sandbox.LowestBalance.Sub(actual.LowestBalance).Round(2),
		PeakBalanceDelta:   sandbox.PeakBalance.Sub(actual.PeakBalance).Round(2),
		NegativeDaysDelta:  sandbox.NegativeDays - actual.NegativeDays,
	}

	actualFN, sandboxFN := actual.FirstNegativeDate, sandbox.FirstNegativeDate
	switch {
	case !actualFN.IsValid() && !sandboxFN.IsValid():
		c.FirstNegative = FirstNegativeNone
	case actualFN.IsValid() && !sandboxFN.IsValid():
		c.FirstNegative = FirstNegativeCleared
	case !actualFN.IsValid():
		c.FirstNegative = FirstNegativeNew
	default:
		shift := actualFN.DaysUntil(sandboxFN)
		c.FirstNegativeShiftDays = shift
		switch {
		case shift == 0:
			c.FirstNegative = FirstNegativeUnchanged
		case shift > 0:
			c.FirstNegative = FirstNegativeLater
		default:
			c.FirstNegative = FirstNegativeSooner
		}
	}
	return c
}
