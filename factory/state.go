/*
Package factory converts raw persisted state into the canonical model.

PURPOSE:
  The persisted snapshot is untrusted JSON: fields go missing, numbers
  arrive as strings, dates arrive malformed, and legacy shapes linger.
  Normalize repairs all of it into a fully-populated forecast.State that
  the engine can run against.

TWO MODES:
  Non-strict (the default load path): every malformed field is silently
  replaced with a safe default, and list items that cannot be salvaged are
  dropped. Never returns an error - a corrupt snapshot still forecasts.

  Strict (explicit "import and validate" flows): the same conditions are
  collected as field issues and returned as *forecast.ValidationError,
  aborting normalization.

GUARANTEES:
  - Output always has settings, with startDate <= endDate and a finite
    starting balance
  - Every entry in the output has the dates its frequency requires
  - Steps are sorted ascending by effectiveFrom
  - Streams are income-typed and carry IDs (synthesized when absent)
  - Normalizing already-normalized output is the identity

LEGACY MIGRATION:
  The retired "expenseStreams" list is folded into oneOffs as recurring
  expense entries.

SEE ALSO:
  - forecast/types.go: The canonical model this produces
  - forecast/errors.go: ValidationError shape
*/
package factory

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/forecast"
)

// DefaultWindowDays is the projection window length used when the snapshot
// has no usable end date.
const DefaultWindowDays = 90

// NormalizeJSON parses and normalizes a raw snapshot blob.
func NormalizeJSON(data []byte, strict bool) (*forecast.State, error) {
	var raw map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			if strict {
				return nil, &forecast.ValidationError{Issues: []forecast.FieldIssue{
					{Field: "$", Reason: "not a JSON object: " + err.Error()},
				}}
			}
			raw = nil
		}
	}
	return Normalize(raw, strict)
}

// Normalize repairs a decoded snapshot into a canonical State. In strict
// mode any repaired or dropped field aborts with a ValidationError instead.
func Normalize(raw map[string]any, strict bool) (*forecast.State, error) {
	n := &normalizer{}

	state := &forecast.State{
		Settings:    n.settings(asObject(raw["settings"])),
		OneOffs:     []forecast.Entry{},
		Streams:     []forecast.Entry{},
		Adjustments: []forecast.Adjustment{},
	}
	if raw != nil && !present(raw["settings"]) {
		n.flag("settings", "missing, defaulted")
	}

	for i, item := range asArray(raw["oneOffs"]) {
		field := fmt.Sprintf("oneOffs[%d]", i)
		if e := n.entry(asObject(item), field, forecast.Expense, false); e != nil {
			state.OneOffs = append(state.OneOffs, *e)
		}
	}

	// Legacy shape: expenseStreams migrate into oneOffs as recurring
	// expense entries. The legacy records never carried type or recurring
	// flags, so both are forced before the shared sanitizer runs.
	for i, item := range asArray(raw["expenseStreams"]) {
		field := fmt.Sprintf("expenseStreams[%d]", i)
		m := asObject(item)
		if m == nil {
			n.flag(field, "not an object, dropped")
			continue
		}
		migrated := make(map[string]any, len(m)+2)
		for k, v := range m {
			migrated[k] = v
		}
		migrated["type"] = "expense"
		migrated["recurring"] = true
		if e := n.entry(migrated, field, forecast.Expense, false); e != nil {
			state.OneOffs = append(state.OneOffs, *e)
		}
	}

	for i, item := range asArray(raw["incomeStreams"]) {
		field := fmt.Sprintf("incomeStreams[%d]", i)
		if e := n.entry(asObject(item), field, forecast.Income, true); e != nil {
			if e.ID == "" {
				e.ID = fmt.Sprintf("stream-%d", len(state.Streams)+1)
			}
			state.Streams = append(state.Streams, *e)
		}
	}

	for i, item := range asArray(raw["adjustments"]) {
		field := fmt.Sprintf("adjustments[%d]", i)
		if a := n.adjustment(asObject(item), field); a != nil {
			state.Adjustments = append(state.Adjustments, *a)
		}
	}

	if strict && len(n.issues) > 0 {
		return nil, &forecast.ValidationError{Issues: n.issues}
	}
	return state, nil
}

// =============================================================================
// NORMALIZER
// =============================================================================

type normalizer struct {
	issues []forecast.FieldIssue
}

func (n *normalizer) flag(field, reason string) {
	n.issues = append(n.issues, forecast.FieldIssue{Field: field, Reason: reason})
}

func (n *normalizer) settings(m map[string]any) *forecast.Settings {
	s := &forecast.Settings{StartingBalance: decimal.Zero}

	s.StartDate = forecast.ParseDate(asString(m["startDate"]))
	if !s.StartDate.IsValid() {
		if m != nil && present(m["startDate"]) {
			n.flag("settings.startDate", "invalid date, defaulted to today")
		}
		s.StartDate = forecast.Today()
	}

	s.EndDate = forecast.ParseDate(asString(m["endDate"]))
	if !s.EndDate.IsValid() {
		if m != nil && present(m["endDate"]) {
			n.flag("settings.endDate", "invalid date, defaulted")
		}
		s.EndDate = s.StartDate.AddDays(DefaultWindowDays)
	}
	if s.EndDate.Before(s.StartDate) {
		n.flag("settings.endDate", "before startDate, clamped")
		s.EndDate = s.StartDate
	}

	if bal, ok := asDecimal(m["startingBalance"]); ok {
		s.StartingBalance = bal
	} else if m != nil && present(m["startingBalance"]) {
		n.flag("settings.startingBalance", "not a finite number, defaulted to 0")
	}
	return s
}

// entry sanitizes one one-off or stream. Returns nil when the record is
// unsalvageable (no usable date for its shape).
func (n *normalizer) entry(m map[string]any, field string, defaultType forecast.EntryType, stream bool) *forecast.Entry {
	if m == nil {
		n.flag(field, "not an object, dropped")
		return nil
	}

	e := &forecast.Entry{
		ID:       asString(m["id"]),
		Name:     asString(m["name"]),
		Category: asString(m["category"]),
		Note:     asString(m["note"]),
		ARStatus: asString(m["arStatus"]),
		Amount:   decimal.Zero,
	}

	switch forecast.EntryType(asString(m["type"])) {
	case forecast.Income:
		e.Type = forecast.Income
	case forecast.Expense:
		e.Type = forecast.Expense
	default:
		if present(m["type"]) {
			n.flag(field+".type", "unknown type, defaulted")
		}
		e.Type = defaultType
	}
	if stream {
		e.Type = forecast.Income
	}

	if amt, ok := asDecimal(m["amount"]); ok {
		e.Amount = amt.Abs()
	} else if present(m["amount"]) {
		n.flag(field+".amount", "not a finite number, defaulted to 0")
	}

	if esc, ok := asNumber(m["escalatorPct"]); ok {
		e.EscalatorPct = esc
	} else if present(m["escalatorPct"]) {
		n.flag(field+".escalatorPct", "not a finite number, ignored")
	}

	e.Steps = n.steps(asArray(m["steps"]), field)

	e.Recurring = stream || asBool(m["recurring"])
	if !e.Recurring {
		e.Date = forecast.ParseDate(asString(m["date"]))
		if !e.Date.IsValid() {
			n.flag(field+".date", "invalid date, dropped")
			return nil
		}
		return e
	}

	return n.recurrence(m, field, e, stream)
}

func (n *normalizer) recurrence(m map[string]any, field string, e *forecast.Entry, stream bool) *forecast.Entry {
	freq := forecast.Frequency(asString(m["frequency"]))
	switch freq {
	case forecast.FreqDaily, forecast.FreqWeekly, forecast.FreqBiweekly, forecast.FreqMonthly:
	case forecast.FreqOnce:
		if !stream {
			n.flag(field+".frequency", "once is stream-only, defaulted to monthly")
			freq = forecast.FreqMonthly
		}
	default:
		n.flag(field+".frequency", "unknown frequency, defaulted to monthly")
		freq = forecast.FreqMonthly
	}
	e.Frequency = freq

	if freq == forecast.FreqOnce {
		e.OnDate = forecast.ParseDate(asString(m["onDate"]))
		if !e.OnDate.IsValid() {
			n.flag(field+".onDate", "invalid date, dropped")
			return nil
		}
		e.StartDate, e.EndDate = e.OnDate, e.OnDate
		return e
	}

	e.StartDate = forecast.ParseDate(asString(m["startDate"]))
	if !e.StartDate.IsValid() {
		n.flag(field+".startDate", "invalid date, dropped")
		return nil
	}
	e.EndDate = forecast.ParseDate(asString(m["endDate"]))
	if e.EndDate.IsValid() && e.EndDate.Before(e.StartDate) {
		n.flag(field+".endDate", "before startDate, clamped")
		e.EndDate = e.StartDate
	}

	switch freq {
	case forecast.FreqDaily:
		e.SkipWeekends = asBool(m["skipWeekends"])

	case forecast.FreqWeekly, forecast.FreqBiweekly:
		e.Weekdays = n.weekdays(asArray(m["dayOfWeek"]), field)

	case forecast.FreqMonthly:
		if forecast.MonthlyMode(asString(m["monthlyMode"])) == forecast.MonthlyByNthWeekday {
			e.MonthlyMode = forecast.MonthlyByNthWeekday
			e.NthWeek = n.nthWeek(m["nthWeek"], field)
			if wd, ok := asNumber(m["nthWeekday"]); ok && wd >= 0 && wd <= 6 {
				e.NthWeekday = int(wd)
			} else if present(m["nthWeekday"]) {
				n.flag(field+".nthWeekday", "out of range, defaulted to 0")
			}
		} else {
			e.MonthlyMode = forecast.MonthlyByDay
			day := e.StartDate.Day()
			if v, ok := asNumber(m["dayOfMonth"]); ok && v >= 1 && v <= 31 {
				day = int(v)
			} else if present(m["dayOfMonth"]) {
				n.flag(field+".dayOfMonth", "out of range, defaulted to startDate's day")
			}
			e.DayOfMonth = day
		}
	}
	return e
}

func (n *normalizer) weekdays(items []any, field string) []int {
	seen := map[int]bool{}
	var out []int
	for _, item := range items {
		v, ok := asNumber(item)
		if !ok || v < 0 || v > 6 {
			n.flag(field+".dayOfWeek", "weekday out of range, ignored")
			continue
		}
		if wd := int(v); !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	sort.Ints(out)
	return out
}

func (n *normalizer) nthWeek(v any, field string) int {
	if asString(v) == "last" {
		return forecast.NthWeekLast
	}
	if num, ok := asNumber(v); ok {
		if num == forecast.NthWeekLast {
			return forecast.NthWeekLast
		}
		if num >= 1 && num <= 5 {
			return int(num)
		}
	}
	if present(v) {
		n.flag(field+".nthWeek", "out of range, defaulted to 1")
	}
	return 1
}

func (n *normalizer) steps(items []any, field string) []forecast.Step {
	var out []forecast.Step
	for i, item := range items {
		m := asObject(item)
		if m == nil {
			n.flag(fmt.Sprintf("%s.steps[%d]", field, i), "not an object, dropped")
			continue
		}
		from := forecast.ParseDate(asString(m["effectiveFrom"]))
		amount, ok := asDecimal(m["amount"])
		if !from.IsValid() || !ok {
			n.flag(fmt.Sprintf("%s.steps[%d]", field, i), "invalid step, dropped")
			continue
		}
		out = append(out, forecast.Step{EffectiveFrom: from, Amount: amount.Abs()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EffectiveFrom.Before(out[j].EffectiveFrom)
	})
	return out
}

func (n *normalizer) adjustment(m map[string]any, field string) *forecast.Adjustment {
	if m == nil {
		n.flag(field, "not an object, dropped")
		return nil
	}
	date := forecast.ParseDate(asString(m["date"]))
	if !date.IsValid() {
		n.flag(field+".date", "invalid date, dropped")
		return nil
	}
	amount, ok := asDecimal(m["amount"])
	if !ok {
		n.flag(field+".amount", "not a finite number, dropped")
		return nil
	}
	return &forecast.Adjustment{Date: date, Amount: amount, Note: asString(m["note"])}
}

// =============================================================================
// LOOSE FIELD READERS
// =============================================================================

// present distinguishes "field absent or empty" from "field present but
// malformed"; only the latter is worth a strict-mode issue.
func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asArray(v any) []any {
	a, _ := v.([]any)
	return a
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

// asNumber accepts JSON numbers and numeric strings, rejecting NaN and the
// infinities.
func asNumber(v any) (float64, bool) {
	var f float64
	switch num := v.(type) {
	case float64:
		f = num
	case int:
		f = float64(num)
	case json.Number:
		parsed, err := num.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// asDecimal parses money values without a float round-trip when the source
// is already a string (decimal.Decimal marshals as a string).
func asDecimal(v any) (decimal.Decimal, bool) {
	if s, ok := v.(string); ok {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	f, ok := asNumber(v)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
