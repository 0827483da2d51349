/*
scheduler.go - Automated forecast refresh scheduler

PURPOSE:
  Periodically re-projects the persisted state and appends a row to the
  forecast_runs audit table, so end-balance drift between runs is visible
  without anyone opening the app.

DESIGN:
  - robfig/cron drives the schedule (default: daily at 06:00)
  - Each run loads the latest state blob, normalizes, projects, and
    records the summary numbers
  - Failures are logged and skipped; the next tick retries

USAGE:
  scheduler := NewForecastScheduler(store, "0 6 * * *")
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - store/sqlite/sqlite.go: forecast_runs table
  - handlers.go: ListRuns endpoint exposing the log
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/store/sqlite"
)

// DefaultCronSpec refreshes the forecast every morning.
const DefaultCronSpec = "0 6 * * *"

// ForecastScheduler re-projects the persisted state on a cron schedule.
type ForecastScheduler struct {
	Store    *sqlite.Store
	CronSpec string

	cron *cron.Cron
}

// NewForecastScheduler creates a scheduler. An empty spec uses the default.
func NewForecastScheduler(store *sqlite.Store, spec string) *ForecastScheduler {
	if spec == "" {
		spec = DefaultCronSpec
	}
	return &ForecastScheduler{Store: store, CronSpec: spec}
}

// Start registers the cron job and begins scheduling.
func (fs *ForecastScheduler) Start() error {
	fs.cron = cron.New()
	if _, err := fs.cron.AddFunc(fs.CronSpec, fs.RunNow); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", fs.CronSpec, err)
	}
	fs.cron.Start()
	log.Printf("[Scheduler] Started with spec %q", fs.CronSpec)
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (fs *ForecastScheduler) Stop() {
	if fs.cron != nil {
		ctx := fs.cron.Stop()
		<-ctx.Done()
		log.Println("[Scheduler] Stopped")
	}
}

// RunNow projects the persisted state once and records the result.
// Exposed for tests and manual triggering.
func (fs *ForecastScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	blob, err := fs.Store.LoadState(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error loading state: %v", err)
		return
	}
	state, _ := factory.NormalizeJSON(blob, false)

	result, err := forecast.Project(state, nil)
	if err != nil {
		log.Printf("[Scheduler] Projection failed: %v", err)
		return
	}

	run := sqlite.RunRecord{
		RunAt:         time.Now().UTC(),
		WindowStart:   state.Settings.StartDate.String(),
		WindowEnd:     state.Settings.EndDate.String(),
		EndBalance:    result.EndBalance.StringFixed(2),
		LowestBalance: result.LowestBalance.StringFixed(2),
		FirstNegative: result.FirstNegativeDate.String(),
		NegativeDays:  result.NegativeDays,
	}
	if err := fs.Store.RecordRun(ctx, run); err != nil {
		log.Printf("[Scheduler] Error recording run: %v", err)
		return
	}

	log.Printf("[Scheduler] Recorded run: end=%s lowest=%s negativeDays=%d",
		run.EndBalance, run.LowestBalance, run.NegativeDays)
}
