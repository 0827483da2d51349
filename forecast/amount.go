/*
amount.go - Resolving the amount a firing entry contributes

PURPOSE:
  Two layers sit between an entry's configured amount and the number that
  lands on a calendar row:

  1. Step overrides: an ordered list of {effectiveFrom, amount} pairs.
     The latest step effective on or before the occurrence date wins.
  2. Escalation: a compounding monthly growth rate applied per whole
     elapsed month since the entry's PREVIOUS occurrence, not since its
     start date. Each entry's "previous occurrence" cursor lives in the
     projection sweep (engine.go), keeping these functions stateless.

EXAMPLE:
  amount=1000, escalatorPct=10, monthly from 2025-01-01.
  The 2025-03-01 occurrence, with the cursor at 2025-01-01, resolves to
  1000 * 1.1^2 = 1210.
*/
package forecast

import (
	"math"

	"github.com/shopspring/decimal"
)

// BaseAmountOn returns the entry's amount as of a date: the base amount,
// replaced by each step whose EffectiveFrom is on or before the date,
// walking steps in ascending order.
func BaseAmountOn(e *Entry, on Date) decimal.Decimal {
	amount := e.Amount.Abs()
	for _, step := range e.Steps {
		if step.EffectiveFrom.IsValid() && step.EffectiveFrom.After(on) {
			break
		}
		amount = step.Amount.Abs()
	}
	return amount
}

// ResolveAmount computes the amount entry e contributes on a given
// occurrence date. prev is the entry's previous occurrence in the same
// sweep (nil for the first). A zero base never fires financially, and
// escalation compounds once per whole elapsed month since prev.
func ResolveAmount(e *Entry, on Date, prev *Date) decimal.Decimal {
	base := BaseAmountOn(e, on)
	if base.IsZero() {
		return base
	}
	pct := e.EscalatorPct
	if prev == nil || pct == 0 || math.IsNaN(pct) || math.IsInf(pct, 0) {
		return base
	}
	months := MonthsBetween(*prev, on)
	if months == 0 {
		return base
	}
	factor := decimal.NewFromFloat(1 + pct/100)
	return base.Mul(factor.Pow(decimal.NewFromInt(int64(months))))
}
