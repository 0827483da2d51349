/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

MONEY AT THE BOUNDARY:
  The domain carries decimal.Decimal end to end; the API emits plain
  float64 rounded to cents so frontends get numbers, not strings. The
  inbound direction never parses floats - raw state blobs go through
  factory.Normalize, which reads money as strings where possible.

TYPES:
  Projection:
    ProjectionDTO, SummaryDTO, DayRowDTO, LineItemDTO

  What-If:
    WhatIfResultDTO, ComparisonDTO

  Import:
    ImportResultDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - forecast/types.go: The domain model these project
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/whatif"
)

// =============================================================================
// ERROR RESPONSES
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ValidationErrorResponse carries strict-mode field issues.
type ValidationErrorResponse struct {
	Error  string                `json:"error"`
	Issues []forecast.FieldIssue `json:"issues"`
}

// =============================================================================
// PROJECTION
// =============================================================================

// LineItemDTO attributes part of a day's total to its source.
type LineItemDTO struct {
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

// DayRowDTO is one projected calendar day.
type DayRowDTO struct {
	Date           string        `json:"date"`
	Income         float64       `json:"income"`
	Expenses       float64       `json:"expenses"`
	Net            float64       `json:"net"`
	Running        float64       `json:"running"`
	IncomeDetails  []LineItemDTO `json:"income_details,omitempty"`
	ExpenseDetails []LineItemDTO `json:"expense_details,omitempty"`
}

// SummaryDTO is the projection's headline numbers.
type SummaryDTO struct {
	TotalIncome           float64 `json:"total_income"`
	TotalExpenses         float64 `json:"total_expenses"`
	EndBalance            float64 `json:"end_balance"`
	LowestBalance         float64 `json:"lowest_balance"`
	LowestBalanceDate     string  `json:"lowest_balance_date"`
	PeakBalance           float64 `json:"peak_balance"`
	PeakBalanceDate       string  `json:"peak_balance_date"`
	FirstNegativeDate     string  `json:"first_negative_date,omitempty"`
	NegativeDays          int     `json:"negative_days"`
	ProjectedWeeklyIncome float64 `json:"projected_weekly_income"`
}

// ProjectionDTO is the full projection response.
type ProjectionDTO struct {
	Summary  SummaryDTO  `json:"summary"`
	Calendar []DayRowDTO `json:"calendar"`
}

// =============================================================================
// WHAT-IF
// =============================================================================

// ComparisonDTO diffs a scenario run against the actual run.
type ComparisonDTO struct {
	EndBalanceDelta        float64 `json:"end_balance_delta"`
	TotalIncomeDelta       float64 `json:"total_income_delta"`
	TotalExpensesDelta     float64 `json:"total_expenses_delta"`
	LowestBalanceDelta     float64 `json:"lowest_balance_delta"`
	PeakBalanceDelta       float64 `json:"peak_balance_delta"`
	NegativeDaysDelta      int     `json:"negative_days_delta"`
	FirstNegative          string  `json:"first_negative"`
	FirstNegativeShiftDays int     `json:"first_negative_shift_days"`
}

// WhatIfResultDTO bundles both runs with their diff.
type WhatIfResultDTO struct {
	Actual     ProjectionDTO `json:"actual"`
	Sandbox    ProjectionDTO `json:"sandbox"`
	Comparison ComparisonDTO `json:"comparison"`
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportResultDTO summarizes a CSV transaction import.
type ImportResultDTO struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Issues   []string `json:"issues,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func toLineItemDTOs(items []forecast.LineItem) []LineItemDTO {
	if len(items) == 0 {
		return nil
	}
	out := make([]LineItemDTO, len(items))
	for i, item := range items {
		out[i] = LineItemDTO{Source: item.Source, Amount: money(item.Amount)}
	}
	return out
}

func toSummaryDTO(r *forecast.ProjectionResult) SummaryDTO {
	return SummaryDTO{
		TotalIncome:           money(r.TotalIncome),
		TotalExpenses:         money(r.TotalExpenses),
		EndBalance:            money(r.EndBalance),
		LowestBalance:         money(r.LowestBalance),
		LowestBalanceDate:     r.LowestBalanceDate.String(),
		PeakBalance:           money(r.PeakBalance),
		PeakBalanceDate:       r.PeakBalanceDate.String(),
		FirstNegativeDate:     r.FirstNegativeDate.String(),
		NegativeDays:          r.NegativeDays,
		ProjectedWeeklyIncome: money(r.ProjectedWeeklyIncome),
	}
}

func toProjectionDTO(r *forecast.ProjectionResult) ProjectionDTO {
	dto := ProjectionDTO{
		Summary:  toSummaryDTO(r),
		Calendar: make([]DayRowDTO, len(r.Calendar)),
	}
	for i, row := range r.Calendar {
		dto.Calendar[i] = DayRowDTO{
			Date:           row.Date.String(),
			Income:         money(row.Income),
			Expenses:       money(row.Expenses),
			Net:            money(row.Net),
			Running:        money(row.Running),
			IncomeDetails:  toLineItemDTOs(row.IncomeDetails),
			ExpenseDetails: toLineItemDTOs(row.ExpenseDetails),
		}
	}
	return dto
}

func toWhatIfResultDTO(r *whatif.Result) WhatIfResultDTO {
	return WhatIfResultDTO{
		Actual:  toProjectionDTO(r.Actual),
		Sandbox: toProjectionDTO(r.Sandbox),
		Comparison: ComparisonDTO{
			EndBalanceDelta:        money(r.Comparison.EndBalanceDelta),
			TotalIncomeDelta:       money(r.Comparison.TotalIncomeDelta),
			TotalExpensesDelta:     money(r.Comparison.TotalExpensesDelta),
			LowestBalanceDelta:     money(r.Comparison.LowestBalanceDelta),
			PeakBalanceDelta:       money(r.Comparison.PeakBalanceDelta),
			NegativeDaysDelta:      r.Comparison.NegativeDaysDelta,
			FirstNegative:          string(r.Comparison.FirstNegative),
			FirstNegativeShiftDays: r.Comparison.FirstNegativeShiftDays,
		},
	}
}
