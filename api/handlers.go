/*
handlers.go - HTTP handler implementations

PURPOSE:
  Exposes the forecast engine via REST API: state load/save, projections,
  What-If scenarios, CSV transaction import, the forecast run log, and the
  demo reset flow.

ENDPOINTS:
  State:
    GET    /api/state                  Normalized persisted state
    PUT    /api/state[?strict=1]       Replace state (422 on strict failure)

  Projection:
    GET    /api/projection             Project the persisted state
    POST   /api/projection             Project an ad-hoc state payload

  What-If:
    GET    /api/whatif                 Persisted scenario, sanitized
    PUT    /api/whatif                 Replace scenario
    POST   /api/whatif/evaluate        Actual vs scenario diff

  Import:
    POST   /api/import/transactions    Append one-offs from CSV

  Operations:
    GET    /api/runs                   Scheduled-forecast audit log
    POST   /api/reset                  Clear snapshots and run history

STATE MODEL:
  Persistence is a single JSON blob per kind (state, whatif). Every load
  path runs the blob through factory.Normalize, so a hand-edited or stale
  snapshot still produces a forecast. PUT /api/state?strict=1 switches to
  strict validation and returns 422 with field issues instead of repairing.

CONCURRENCY:
  A handler-level mutex serializes read-modify-write cycles on the state
  blob (imports append to the loaded state before saving it back).
  Projections themselves are pure and run outside any lock.

SEE ALSO:
  - server.go: Route wiring
  - dto.go: Response shapes
  - factory/state.go: Normalization semantics
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/store/sqlite"
	"github.com/warp/cashflow-engine/whatif"
)

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// Serializes read-modify-write cycles on the persisted state blob.
	mu sync.Mutex

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// loadState loads and normalizes the persisted state. A missing or corrupt
// blob yields a default state, never an error, matching the non-strict
// normalization contract.
func (h *Handler) loadState(r *http.Request) *forecast.State {
	blob, err := h.Store.LoadState(r.Context())
	if err != nil {
		blob = nil
	}
	state, _ := factory.NormalizeJSON(blob, false)
	return state
}

func (h *Handler) saveState(r *http.Request, state *forecast.State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return h.Store.SaveState(r.Context(), blob)
}

// =============================================================================
// STATE ENDPOINTS
// =============================================================================

// GetState returns the normalized persisted state.
// GET /api/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loadState(r))
}

// PutState replaces the persisted state. With ?strict=1, malformed fields
// abort with 422 and a field-issue list instead of being silently repaired.
// PUT /api/state[?strict=1]
func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	strict := r.URL.Query().Get("strict") == "1"
	state, err := factory.NormalizeJSON(body, strict)
	if err != nil {
		var verr *forecast.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:  "State validation failed",
				Issues: verr.Issues,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid state payload", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.saveState(r, state); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save state", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// =============================================================================
// PROJECTION ENDPOINTS
// =============================================================================

// GetProjection projects the persisted state. Optional ?start= and ?end=
// (canonical dates) override the stored window for this call only.
// GET /api/projection
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	state := h.loadState(r)

	if start := forecast.ParseDate(r.URL.Query().Get("start")); start.IsValid() {
		state.Settings.StartDate = start
	}
	if end := forecast.ParseDate(r.URL.Query().Get("end")); end.IsValid() {
		state.Settings.EndDate = end
	}

	result, err := forecast.Project(state, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Projection failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectionDTO(result))
}

// PostProjection projects an ad-hoc state payload without persisting it.
// POST /api/projection
func (h *Handler) PostProjection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	state, _ := factory.NormalizeJSON(body, false)

	result, err := forecast.Project(state, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Projection failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectionDTO(result))
}

// =============================================================================
// WHAT-IF ENDPOINTS
// =============================================================================

// GetWhatIf returns the persisted What-If scenario, sanitized against the
// live state.
// GET /api/whatif
func (h *Handler) GetWhatIf(w http.ResponseWriter, r *http.Request) {
	state := h.loadState(r)
	blob, err := h.Store.LoadWhatIf(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, whatif.ParseScenario(blob, state))
}

// PutWhatIf replaces the persisted What-If scenario. The payload is
// sanitized before saving, so what comes back from GET is always runnable.
// PUT /api/whatif
func (h *Handler) PutWhatIf(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	state := h.loadState(r)
	sc := whatif.ParseScenario(body, state)

	blob, err := json.Marshal(sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode scenario", err)
		return
	}
	if err := h.Store.SaveWhatIf(r.Context(), blob); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// EvaluateWhatIf runs actual-vs-scenario projections and diffs them. The
// body may carry a scenario to evaluate ad hoc; an empty body evaluates
// the persisted one.
// POST /api/whatif/evaluate
func (h *Handler) EvaluateWhatIf(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	state := h.loadState(r)
	if len(strings.TrimSpace(string(body))) == 0 {
		body, err = h.Store.LoadWhatIf(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
			return
		}
	}
	sc := whatif.ParseScenario(body, state)

	result, err := whatif.Evaluate(state, sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Evaluation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toWhatIfResultDTO(result))
}

// =============================================================================
// CSV IMPORT
// =============================================================================

// ImportTransactions appends one-off transactions from a CSV body with
// columns: date, type, amount, name, category. Dates go through the loose
// parser, so Excel serials and M/D/Y forms import cleanly. A header row is
// detected and skipped.
// POST /api/import/transactions
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	reader := csv.NewReader(r.Body)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed CSV", err)
		return
	}

	result := ImportResultDTO{}
	var entries []forecast.Entry
	for i, record := range records {
		entry, reason := parseImportRow(record)
		if entry == nil {
			// A failed first row is almost always the header.
			if i == 0 {
				continue
			}
			result.Skipped++
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: %s", i+1, reason))
			continue
		}
		entries = append(entries, *entry)
	}
	result.Imported = len(entries)

	if len(entries) > 0 {
		h.mu.Lock()
		defer h.mu.Unlock()
		state := h.loadState(r)
		state.OneOffs = append(state.OneOffs, entries...)
		if err := h.saveState(r, state); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save imported transactions", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// parseImportRow converts one CSV record to a one-off entry, or returns a
// reason it cannot.
func parseImportRow(record []string) (*forecast.Entry, string) {
	if len(record) < 3 {
		return nil, "expected at least date, type, amount"
	}

	date, ok := forecast.ParseLooseDate(strings.TrimSpace(record[0]))
	if !ok {
		return nil, "unparseable date " + strconv.Quote(record[0])
	}

	entryType := forecast.Expense
	if strings.EqualFold(strings.TrimSpace(record[1]), string(forecast.Income)) {
		entryType = forecast.Income
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return nil, "unparseable amount " + strconv.Quote(record[2])
	}

	e := &forecast.Entry{
		Type:   entryType,
		Amount: amount.Abs(),
		Date:   date,
	}
	if len(record) > 3 {
		e.Name = strings.TrimSpace(record[3])
	}
	if len(record) > 4 {
		e.Category = strings.TrimSpace(record[4])
	}
	return e, ""
}

// =============================================================================
// RUN LOG / RESET
// =============================================================================

// ListRuns returns the scheduled-forecast audit log, newest first.
// GET /api/runs[?limit=N]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []sqlite.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// ResetDatabase clears all snapshots and run history.
// POST /api/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
