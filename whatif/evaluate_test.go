package whatif_test

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/whatif"
)

func d(s string) forecast.Date {
	date := forecast.ParseDate(s)
	if !date.IsValid() {
		panic("bad test date: " + s)
	}
	return date
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func fptr(f float64) *float64 { return &f }

// baseState is one calendar week (Mon 2025-01-06 .. Sun 2025-01-12) with a
// single weekly income stream on Monday and Thursday.
func baseState(streamAmount float64) *forecast.State {
	return &forecast.State{
		Settings: &forecast.Settings{
			StartDate:       d("2025-01-06"),
			EndDate:         d("2025-01-12"),
			StartingBalance: decimal.Zero,
		},
		Streams: []forecast.Entry{{
			ID:        "s1",
			Type:      forecast.Income,
			Amount:    dec(streamAmount),
			Recurring: true,
			Frequency: forecast.FreqWeekly,
			StartDate: d("2025-01-06"),
			Weekdays:  []int{1, 4},
		}},
	}
}

func mustEvaluate(t *testing.T, actual *forecast.State, sc *whatif.Scenario) *whatif.Result {
	t.Helper()
	result, err := whatif.Evaluate(actual, sc)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return result
}

// =============================================================================
// TWEAK PRECEDENCE
// =============================================================================

func TestEvaluateWeeklyTargetPrecedence(t *testing.T) {
	// GIVEN: A stream firing twice a week and a tweak carrying a weekly
	// target alongside pct/delta noise
	actual := baseState(999)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		Global: whatif.GlobalTweak{Pct: 0.25, Delta: 50},
		Streams: map[string]whatif.StreamTweak{
			"s1": {
				Pct:          0.5,
				Delta:        100,
				WeeklyTarget: fptr(700),
				LastEdited:   whatif.EditWeekly,
			},
		},
	}}

	result := mustEvaluate(t, actual, sc)

	// THEN: Each occurrence resolves to 700/2, everything else ignored
	if !result.Sandbox.TotalIncome.Equal(dec(700)) {
		t.Errorf("sandbox income: got %s, want 700", result.Sandbox.TotalIncome)
	}
}

func TestEvaluateWeeklyTargetFallsBackForOnceStreams(t *testing.T) {
	// A weekly target on a once stream has zero estimated occurrences, so
	// the globally-adjusted base applies instead.
	actual := baseState(0)
	actual.Streams = []forecast.Entry{{
		ID:        "s1",
		Type:      forecast.Income,
		Amount:    dec(200),
		Recurring: true,
		Frequency: forecast.FreqOnce,
		StartDate: d("2025-01-08"),
		EndDate:   d("2025-01-08"),
		OnDate:    d("2025-01-08"),
	}}
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		Global: whatif.GlobalTweak{Delta: 25},
		Streams: map[string]whatif.StreamTweak{
			"s1": {WeeklyTarget: fptr(700), LastEdited: whatif.EditWeekly},
		},
	}}

	result := mustEvaluate(t, actual, sc)
	if !result.Sandbox.TotalIncome.Equal(dec(225)) {
		t.Errorf("sandbox income: got %s, want 225", result.Sandbox.TotalIncome)
	}
}

func TestEvaluateEffectiveOverride(t *testing.T) {
	actual := baseState(999)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		Global: whatif.GlobalTweak{Pct: 0.25},
		Streams: map[string]whatif.StreamTweak{
			"s1": {Pct: 0.5, Delta: 100, Effective: fptr(123), LastEdited: whatif.EditEffective},
		},
	}}

	result := mustEvaluate(t, actual, sc)
	if !result.Sandbox.TotalIncome.Equal(dec(246)) {
		t.Errorf("sandbox income: got %s, want 2 x 123", result.Sandbox.TotalIncome)
	}
}

func TestEvaluateGlobalThenStreamPctDelta(t *testing.T) {
	// GIVEN: base 100, global (+10%, +5), stream (+10%, +2)
	// THEN: (100*1.1 + 5) * 1.1 + 2 = 128.50 per occurrence
	actual := baseState(0)
	actual.Streams = []forecast.Entry{{
		ID:        "s1",
		Type:      forecast.Income,
		Amount:    dec(100),
		Recurring: true,
		Frequency: forecast.FreqWeekly,
		StartDate: d("2025-01-06"),
		Weekdays:  []int{1},
	}}
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		Global: whatif.GlobalTweak{Pct: 0.1, Delta: 5},
		Streams: map[string]whatif.StreamTweak{
			"s1": {Pct: 0.1, Delta: 2},
		},
	}}

	result := mustEvaluate(t, actual, sc)
	if !result.Sandbox.TotalIncome.Equal(dec(128.5)) {
		t.Errorf("sandbox income: got %s, want 128.50", result.Sandbox.TotalIncome)
	}
}

func TestEvaluateUntweakedScenarioMatchesActual(t *testing.T) {
	actual := baseState(500)
	result := mustEvaluate(t, actual, nil)

	c := result.Comparison
	if !c.EndBalanceDelta.IsZero() || !c.TotalIncomeDelta.IsZero() || c.NegativeDaysDelta != 0 {
		t.Errorf("empty scenario should produce zero deltas: %+v", c)
	}
	if c.FirstNegative != whatif.FirstNegativeNone {
		t.Errorf("expected none, got %s", c.FirstNegative)
	}
}

// =============================================================================
// WEEKLY OCCURRENCE ESTIMATION
// =============================================================================

func TestWeeklyOccurrences(t *testing.T) {
	cases := []struct {
		name string
		e    forecast.Entry
		want float64
	}{
		{"daily", forecast.Entry{Frequency: forecast.FreqDaily}, 7},
		{"daily skip weekends", forecast.Entry{Frequency: forecast.FreqDaily, SkipWeekends: true}, 5},
		{"weekly three days", forecast.Entry{Frequency: forecast.FreqWeekly, Weekdays: []int{1, 3, 5}}, 3},
		{"biweekly two days", forecast.Entry{Frequency: forecast.FreqBiweekly, Weekdays: []int{1, 4}}, 1},
		{"monthly", forecast.Entry{Frequency: forecast.FreqMonthly}, 12.0 / 52.0},
		{"once", forecast.Entry{Frequency: forecast.FreqOnce}, 0},
	}
	for _, tc := range cases {
		if got := whatif.WeeklyOccurrences(&tc.e); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

// =============================================================================
// FIRST-NEGATIVE CLASSIFICATION
// =============================================================================

// drainState runs four days from 2025-01-06 with a recurring daily expense
// of 10, a daily income stream of 1, and the given opening balance. The
// stream is the tweak lever; the expense is untouched by hooks.
func drainState(balance float64) *forecast.State {
	return &forecast.State{
		Settings: &forecast.Settings{
			StartDate:       d("2025-01-06"),
			EndDate:         d("2025-01-09"),
			StartingBalance: dec(balance),
		},
		OneOffs: []forecast.Entry{{
			Type:      forecast.Expense,
			Amount:    dec(10),
			Recurring: true,
			Frequency: forecast.FreqDaily,
			StartDate: d("2025-01-06"),
		}},
		Streams: []forecast.Entry{{
			ID:        "s1",
			Type:      forecast.Income,
			Amount:    dec(1),
			Recurring: true,
			Frequency: forecast.FreqDaily,
			StartDate: d("2025-01-06"),
		}},
	}
}

func TestEvaluateFirstNegativeLater(t *testing.T) {
	// Actual nets -9/day from 15: negative on day 2. Boosting the stream to
	// 5/day nets -5: negative on day 4.
	actual := drainState(15)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{Global: whatif.GlobalTweak{Delta: 4}}}

	result := mustEvaluate(t, actual, sc)
	c := result.Comparison
	if c.FirstNegative != whatif.FirstNegativeLater {
		t.Fatalf("expected later, got %s", c.FirstNegative)
	}
	if c.FirstNegativeShiftDays != 2 {
		t.Errorf("shift: got %d, want 2", c.FirstNegativeShiftDays)
	}
	if c.NegativeDaysDelta != -2 {
		t.Errorf("negative days delta: got %d, want -2", c.NegativeDaysDelta)
	}
}

func TestEvaluateFirstNegativeSooner(t *testing.T) {
	actual := drainState(15)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{Global: whatif.GlobalTweak{Delta: -10}}}

	result := mustEvaluate(t, actual, sc)
	if result.Comparison.FirstNegative != whatif.FirstNegativeSooner {
		t.Fatalf("expected sooner, got %s", result.Comparison.FirstNegative)
	}
	if result.Comparison.FirstNegativeShiftDays != -1 {
		t.Errorf("shift: got %d, want -1", result.Comparison.FirstNegativeShiftDays)
	}
}

func TestEvaluateFirstNegativeCleared(t *testing.T) {
	actual := drainState(15)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{Global: whatif.GlobalTweak{Delta: 9}}}

	result := mustEvaluate(t, actual, sc)
	if result.Comparison.FirstNegative != whatif.FirstNegativeCleared {
		t.Fatalf("expected cleared, got %s", result.Comparison.FirstNegative)
	}
}

func TestEvaluateFirstNegativeNew(t *testing.T) {
	// Actual stays positive; gutting the stream income sinks the sandbox.
	actual := drainState(50)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{Global: whatif.GlobalTweak{Delta: -30}}}

	result := mustEvaluate(t, actual, sc)
	if result.Comparison.FirstNegative != whatif.FirstNegativeNew {
		t.Fatalf("expected new, got %s", result.Comparison.FirstNegative)
	}
}

func TestEvaluateFirstNegativeUnchanged(t *testing.T) {
	actual := drainState(15)
	result := mustEvaluate(t, actual, nil)
	if result.Comparison.FirstNegative != whatif.FirstNegativeUnchanged {
		t.Fatalf("expected unchanged, got %s", result.Comparison.FirstNegative)
	}
	if result.Comparison.FirstNegativeShiftDays != 0 {
		t.Errorf("shift: got %d, want 0", result.Comparison.FirstNegativeShiftDays)
	}
}

// =============================================================================
// SANDBOX WINDOW AND SALES
// =============================================================================

func TestEvaluateSandboxWindowOverride(t *testing.T) {
	actual := baseState(100)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		StartDate: d("2025-01-06"),
		EndDate:   d("2025-01-19"),
	}}

	result := mustEvaluate(t, actual, sc)
	if got := len(result.Actual.Calendar); got != 7 {
		t.Errorf("actual calendar: got %d days, want 7", got)
	}
	if got := len(result.Sandbox.Calendar); got != 14 {
		t.Errorf("sandbox calendar: got %d days, want 14", got)
	}
}

func TestEvaluateAppliesScenarioSales(t *testing.T) {
	actual := baseState(1000)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		Sale: whatif.SaleTweaks{
			Enabled: true,
			Entries: []forecast.SaleEntry{{
				StartDate:  d("2025-01-01"),
				EndDate:    d("2025-01-31"),
				Pct:        0.1,
				LastEdited: forecast.SaleEditPct,
			}},
		},
	}}

	result := mustEvaluate(t, actual, sc)
	// Two firings of 1000, each uplifted by 100.
	if !result.Comparison.TotalIncomeDelta.Equal(dec(200)) {
		t.Errorf("income delta: got %s, want 200", result.Comparison.TotalIncomeDelta)
	}
}

// =============================================================================
// SANITIZATION AND RECOVERY
// =============================================================================

func TestEvaluateMissingSettingsIsFatal(t *testing.T) {
	if _, err := whatif.Evaluate(nil, nil); !errors.Is(err, forecast.ErrMissingSettings) {
		t.Fatalf("expected ErrMissingSettings, got %v", err)
	}
	if _, err := whatif.Evaluate(&forecast.State{}, nil); !errors.Is(err, forecast.ErrMissingSettings) {
		t.Fatalf("settings-less state: expected ErrMissingSettings, got %v", err)
	}
}

func TestParseScenarioRecoversFromGarbage(t *testing.T) {
	fallback := baseState(100)
	sc := whatif.ParseScenario([]byte("{definitely not json"), fallback)

	if sc.Base == nil || sc.Base.Settings == nil {
		t.Fatal("base should fall back to a clone of the live state")
	}
	if sc.Base == fallback {
		t.Error("base must be a clone, not the fallback itself")
	}
	if !sc.Tweaks.StartDate.Equal(fallback.Settings.StartDate) ||
		!sc.Tweaks.EndDate.Equal(fallback.Settings.EndDate) {
		t.Errorf("window should default to the fallback's: %s..%s",
			sc.Tweaks.StartDate, sc.Tweaks.EndDate)
	}
	if sc.Tweaks.Streams == nil {
		t.Error("streams map should be initialized")
	}
}

func TestSanitizeScenarioRepairs(t *testing.T) {
	fallback := baseState(100)
	sc := &whatif.Scenario{Tweaks: whatif.Tweaks{
		Global:    whatif.GlobalTweak{Pct: math.NaN(), Delta: math.Inf(1)},
		Streams:   map[string]whatif.StreamTweak{"s1": {Pct: math.Inf(-1)}},
		StartDate: d("2025-03-10"),
		EndDate:   d("2025-03-01"), // inverted
	}}

	sc = whatif.SanitizeScenario(sc, fallback)
	if sc.Tweaks.Global.Pct != 0 || sc.Tweaks.Global.Delta != 0 {
		t.Errorf("non-finite global tweaks should zero: %+v", sc.Tweaks.Global)
	}
	if sc.Tweaks.Streams["s1"].Pct != 0 {
		t.Errorf("non-finite stream pct should zero: %+v", sc.Tweaks.Streams["s1"])
	}
	if !sc.Tweaks.EndDate.Equal(sc.Tweaks.StartDate) {
		t.Errorf("inverted window should clamp, got %s..%s", sc.Tweaks.StartDate, sc.Tweaks.EndDate)
	}
}
