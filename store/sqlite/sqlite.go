/*
Package sqlite persists forecast snapshots and run history in SQLite.

PURPOSE:
  The engine's persistence model is deliberately flat: one JSON blob for the
  live state, one for the What-If scenario, both normalized on the way back
  out by the factory package. SQLite gives us durable storage and an audit
  table for scheduled forecast runs without any server dependency.

KEY TABLES:
  snapshots:     Latest state/whatif JSON blobs, keyed by kind
  forecast_runs: Append-only log of scheduled forecast refreshes

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The snapshot model is single-writer
  by design (one household, one forecast); the mutex keeps concurrent API
  calls from interleaving writes.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/cashflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - factory/state.go: Normalization applied to loaded blobs
  - api/scheduler.go: Writes forecast_runs rows
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// Snapshot kinds. The snapshots table holds exactly one row per kind.
	KindState  = "state"
	KindWhatIf = "whatif"
)

// RunRecord is one row of the scheduled-forecast audit log.
type RunRecord struct {
	ID            int64     `json:"id"`
	RunAt         time.Time `json:"runAt"`
	WindowStart   string    `json:"windowStart"`
	WindowEnd     string    `json:"windowEnd"`
	EndBalance    string    `json:"endBalance"`
	LowestBalance string    `json:"lowestBalance"`
	FirstNegative string    `json:"firstNegative,omitempty"`
	NegativeDays  int       `json:"negativeDays"`
}

// Store persists snapshots and run history in a single SQLite file.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Latest snapshot per kind (state, whatif)
	CREATE TABLE IF NOT EXISTS snapshots (
		kind TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);

	-- Append-only log of scheduled forecast refreshes
	CREATE TABLE IF NOT EXISTS forecast_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		end_balance TEXT NOT NULL,
		lowest_balance TEXT NOT NULL,
		first_negative TEXT,
		negative_days INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_forecast_runs_run_at
		ON forecast_runs(run_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveState stores the live state blob.
func (s *Store) SaveState(ctx context.Context, payload []byte) error {
	return s.saveSnapshot(ctx, KindState, payload)
}

// LoadState returns the live state blob, or nil when none has been saved.
func (s *Store) LoadState(ctx context.Context) ([]byte, error) {
	return s.loadSnapshot(ctx, KindState)
}

// SaveWhatIf stores the What-If scenario blob.
func (s *Store) SaveWhatIf(ctx context.Context, payload []byte) error {
	return s.saveSnapshot(ctx, KindWhatIf, payload)
}

// LoadWhatIf returns the What-If scenario blob, or nil when none exists.
func (s *Store) LoadWhatIf(ctx context.Context) ([]byte, error) {
	return s.loadSnapshot(ctx, KindWhatIf)
}

func (s *Store) saveSnapshot(ctx context.Context, kind string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (kind, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at
	`, kind, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *Store) loadSnapshot(ctx context.Context, kind string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE kind = ?`, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s snapshot: %w", kind, err)
	}
	return []byte(payload), nil
}

// =============================================================================
// FORECAST RUNS
// =============================================================================

// RecordRun appends one row to the forecast audit log.
func (s *Store) RecordRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runAt := run.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecast_runs
			(run_at, window_start, window_end, end_balance, lowest_balance, first_negative, negative_days)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runAt.UTC().Format(time.RFC3339),
		run.WindowStart,
		run.WindowEnd,
		run.EndBalance,
		run.LowestBalance,
		nullable(run.FirstNegative),
		run.NegativeDays,
	)
	if err != nil {
		return fmt.Errorf("failed to record forecast run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent forecast runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_at, window_start, window_end, end_balance, lowest_balance, first_negative, negative_days
		FROM forecast_runs
		ORDER BY run_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var runAt string
		var firstNegative sql.NullString
		if err := rows.Scan(
			&run.ID, &runAt, &run.WindowStart, &run.WindowEnd,
			&run.EndBalance, &run.LowestBalance, &firstNegative, &run.NegativeDays,
		); err != nil {
			return nil, fmt.Errorf("failed to scan forecast run: %w", err)
		}
		run.RunAt, _ = time.Parse(time.RFC3339, runAt)
		run.FirstNegative = firstNegative.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// RESET
// =============================================================================

// Reset drops all snapshots and run history. Used by the demo reset flow.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to reset snapshots: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM forecast_runs`); err != nil {
		return fmt.Errorf("failed to reset forecast runs: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
