/*
Package whatif evaluates hypothetical scenarios against the live forecast.

PURPOSE:
  A What-If scenario owns a deep-cloned snapshot of state plus a tweak set:
  a global income adjustment, per-stream overrides, optional sale entries,
  and its own projection window. Evaluation runs the projection engine
  twice (actual vs sandbox) and diffs the summaries.

TWEAK PRECEDENCE (per stream, selected by lastEdited):
  weekly:    weeklyTarget / estimated weekly occurrences is the final
             per-occurrence amount; pct/delta and the global tweak are
             ignored entirely
  effective: the absolute override is the final amount, same exclusions
  otherwise: (base * (1+globalPct) + globalDelta) * (1+pct) + delta

KEY CONCEPTS IN THIS FILE (types.go):
  - Tweaks/Scenario: The persisted What-If payload
  - ParseScenario/SanitizeScenario: Load-time recovery against a fallback
    base state

SEE ALSO:
  - evaluate.go: Transform hook construction, evaluation, diffing
  - forecast/engine.go: The Overrides the evaluator feeds it
*/
package whatif

import (
	"encoding/json"
	"math"

	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// TWEAKS
// =============================================================================

// EditMode selects which of a tweak's mutually exclusive inputs determines
// the resolved amount.
type EditMode string

const (
	EditPct       EditMode = "pct"
	EditDelta     EditMode = "delta"
	EditEffective EditMode = "effective"
	EditWeekly    EditMode = "weekly"
)

// GlobalTweak scales every income stream: amount*(1+Pct)+Delta.
type GlobalTweak struct {
	Pct        float64  `json:"pct"`
	Delta      float64  `json:"delta"`
	LastEdited EditMode `json:"lastEdited,omitempty"`
}

// StreamTweak overrides one stream, keyed by stream ID. Effective and
// WeeklyTarget are pointers so "unset" and "zero" stay distinguishable.
type StreamTweak struct {
	Pct          float64  `json:"pct"`
	Delta        float64  `json:"delta"`
	Effective    *float64 `json:"effective,omitempty"`
	WeeklyTarget *float64 `json:"weeklyTarget,omitempty"`
	LastEdited   EditMode `json:"lastEdited,omitempty"`
}

// SaleTweaks carries the scenario's sale-event uplifts.
type SaleTweaks struct {
	Enabled bool                 `json:"enabled"`
	Entries []forecast.SaleEntry `json:"entries,omitempty"`
}

// Tweaks is the full scenario tweak set, including the sandbox window.
type Tweaks struct {
	Global    GlobalTweak            `json:"global"`
	Streams   map[string]StreamTweak `json:"streams"`
	Sale      SaleTweaks             `json:"sale"`
	StartDate forecast.Date          `json:"startDate"`
	EndDate   forecast.Date          `json:"endDate"`
}

// Scenario is the persisted What-If payload. Base is a deep-cloned snapshot;
// mutations to the live state never alias into it.
type Scenario struct {
	Base   *forecast.State `json:"base"`
	Tweaks Tweaks          `json:"tweaks"`
}

// =============================================================================
// LOAD-TIME RECOVERY
// =============================================================================

type scenarioJSON struct {
	Base   json.RawMessage `json:"base"`
	Tweaks Tweaks          `json:"tweaks"`
}

// ParseScenario decodes a persisted What-If blob, recovering from any
// malformation by falling back to a default scenario over fallback. The
// embedded base state goes through the usual non-strict normalization.
func ParseScenario(data []byte, fallback *forecast.State) *Scenario {
	var raw scenarioJSON
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil {
		return SanitizeScenario(nil, fallback)
	}

	sc := &Scenario{Tweaks: raw.Tweaks}
	if len(raw.Base) > 0 {
		// Normalize never errors in non-strict mode.
		sc.Base, _ = factory.NormalizeJSON(raw.Base, false)
	}
	return SanitizeScenario(sc, fallback)
}

// SanitizeScenario repairs a scenario in place against a fallback base
// state: a missing base is replaced by a clone of the fallback, the sandbox
// window defaults to the base's window (clamped if inverted), and non-finite
// tweak numbers are zeroed.
func SanitizeScenario(sc *Scenario, fallback *forecast.State) *Scenario {
	if sc == nil {
		sc = &Scenario{}
	}
	if sc.Base == nil || sc.Base.Settings == nil {
		sc.Base = fallback.Clone()
	}
	if sc.Tweaks.Streams == nil {
		sc.Tweaks.Streams = map[string]StreamTweak{}
	}

	if !sc.Tweaks.StartDate.IsValid() {
		sc.Tweaks.StartDate = sc.Base.Settings.StartDate
	}
	if !sc.Tweaks.EndDate.IsValid() {
		sc.Tweaks.EndDate = sc.Base.Settings.EndDate
	}
	if sc.Tweaks.EndDate.Before(sc.Tweaks.StartDate) {
		sc.Tweaks.EndDate = sc.Tweaks.StartDate
	}

	sc.Tweaks.Global.Pct = finiteOrZero(sc.Tweaks.Global.Pct)
	sc.Tweaks.Global.Delta = finiteOrZero(sc.Tweaks.Global.Delta)
	for id, st := range sc.Tweaks.Streams {
		st.Pct = finiteOrZero(st.Pct)
		st.Delta = finiteOrZero(st.Delta)
		sc.Tweaks.Streams[id] = st
	}
	return sc
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
