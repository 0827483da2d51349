/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario writes a complete state
	snapshot that demonstrates specific engine features.

AVAILABLE SCENARIOS:

	starter-budget: Salary, rent, groceries - the simple steady case
	freelancer:     Irregular income with escalation and a step raise
	tight-month:    A low balance running through a negative stretch

HOW SCENARIOS WORK:
 1. Reset store (clear all snapshots and run history)
 2. Build a forecast.State in code
 3. Save it as the live state snapshot

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "freelancer"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create builder function: xxxScenarioState()
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - forecast/types.go: The state shape being built
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "starter-budget",
		Name:        "Starter Budget",
		Description: "Monthly salary, rent, and weekly groceries on a steady balance",
		Category:    "basics",
	},
	{
		ID:          "freelancer",
		Name:        "Freelancer",
		Description: "Biweekly invoicing with escalation, a retainer step raise, and a one-off tax bill",
		Category:    "income",
	},
	{
		ID:          "tight-month",
		Name:        "Tight Month",
		Description: "Low starting balance running through a negative stretch before payday",
		Category:    "stress",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario, replacing all persisted data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var state *forecast.State
	switch req.ScenarioID {
	case "starter-budget":
		state = starterBudgetState()
	case "freelancer":
		state = freelancerState()
	case "tight-month":
		state = tightMonthState()
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Reset first
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	if err := h.saveState(r, state); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save scenario state", err)
		return
	}
	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, state)
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// Scenario windows anchor on today so demos stay current.

func starterBudgetState() *forecast.State {
	today := forecast.Today()
	return &forecast.State{
		Settings: &forecast.Settings{
			StartDate:       today,
			EndDate:         today.AddDays(90),
			StartingBalance: decimal.NewFromInt(800),
		},
		OneOffs: []forecast.Entry{
			{
				Type: forecast.Expense, Name: "Rent", Category: "Housing",
				Amount: decimal.NewFromInt(1400), Recurring: true,
				Frequency: forecast.FreqMonthly, StartDate: today,
				MonthlyMode: forecast.MonthlyByDay, DayOfMonth: 1,
			},
			{
				Type: forecast.Expense, Name: "Groceries", Category: "Food",
				Amount: decimal.NewFromInt(120), Recurring: true,
				Frequency: forecast.FreqWeekly, StartDate: today,
				Weekdays: []int{6},
			},
			{
				Type: forecast.Expense, Name: "Streaming", Category: "Subscriptions",
				Amount: decimal.NewFromInt(15), Recurring: true,
				Frequency: forecast.FreqMonthly, StartDate: today,
				MonthlyMode: forecast.MonthlyByDay, DayOfMonth: 12,
			},
		},
		Streams: []forecast.Entry{
			{
				ID: "salary", Type: forecast.Income, Name: "Salary",
				Amount: decimal.NewFromInt(3200), Recurring: true,
				Frequency: forecast.FreqMonthly, StartDate: today,
				MonthlyMode: forecast.MonthlyByDay, DayOfMonth: 25,
			},
		},
	}
}

func freelancerState() *forecast.State {
	today := forecast.Today()
	return &forecast.State{
		Settings: &forecast.Settings{
			StartDate:       today,
			EndDate:         today.AddDays(120),
			StartingBalance: decimal.NewFromInt(1200),
		},
		OneOffs: []forecast.Entry{
			{
				Type: forecast.Expense, Name: "Quarterly tax bill", Category: "Taxes",
				Amount: decimal.NewFromInt(2100), Date: today.AddDays(45),
			},
			{
				Type: forecast.Expense, Name: "Coworking desk", Category: "Office",
				Amount: decimal.NewFromInt(250), Recurring: true,
				Frequency: forecast.FreqMonthly, StartDate: today,
				MonthlyMode: forecast.MonthlyByDay, DayOfMonth: 1,
			},
		},
		Streams: []forecast.Entry{
			{
				ID: "invoices", Type: forecast.Income, Name: "Client invoicing",
				Amount: decimal.NewFromInt(900), Recurring: true,
				Frequency: forecast.FreqBiweekly, StartDate: today,
				Weekdays:     []int{1},
				EscalatorPct: 1,
			},
			{
				ID: "retainer", Type: forecast.Income, Name: "Retainer",
				Amount: decimal.NewFromInt(1500), Recurring: true,
				Frequency: forecast.FreqMonthly, StartDate: today,
				MonthlyMode: forecast.MonthlyByDay, DayOfMonth: 1,
				Steps: []forecast.Step{
					{EffectiveFrom: today.AddDays(60), Amount: decimal.NewFromInt(1800)},
				},
			},
			{
				ID: "refund", Type: forecast.Income, Name: "Tax refund",
				Amount: decimal.NewFromInt(650), Recurring: true,
				Frequency: forecast.FreqOnce,
				StartDate: today.AddDays(30), EndDate: today.AddDays(30),
				OnDate: today.AddDays(30),
			},
		},
	}
}

func tightMonthState() *forecast.State {
	today := forecast.Today()
	return &forecast.State{
		Settings: &forecast.Settings{
			StartDate:       today,
			EndDate:         today.AddDays(60),
			StartingBalance: decimal.NewFromInt(150),
		},
		OneOffs: []forecast.Entry{
			{
				Type: forecast.Expense, Name: "Rent", Category: "Housing",
				Amount: decimal.NewFromInt(950), Recurring: true,
				Frequency: forecast.FreqMonthly, StartDate: today,
				MonthlyMode: forecast.MonthlyByDay, DayOfMonth: 3,
			},
			{
				Type: forecast.Expense, Name: "Commute", Category: "Transport",
				Amount: decimal.NewFromInt(6), Recurring: true,
				Frequency: forecast.FreqDaily, StartDate: today,
				SkipWeekends: true,
			},
		},
		Streams: []forecast.Entry{
			{
				ID: "paycheck", Type: forecast.Income, Name: "Paycheck",
				Amount: decimal.NewFromInt(1050), Recurring: true,
				Frequency: forecast.FreqBiweekly, StartDate: today,
				Weekdays: []int{5},
			},
		},
		Adjustments: []forecast.Adjustment{
			{Date: today.AddDays(2), Amount: decimal.NewFromInt(-75), Note: "Overdraft fee"},
		},
	}
}
