// Package state persists finished runs to SQLite for audit and
// restore. The engine does not depend on it; persistence is an
// optional consumer of a terminal Run.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devcrew-io/devcrew/internal/role"
	"github.com/devcrew-io/devcrew/internal/workflow"
	"github.com/devcrew-io/devcrew/internal/workspace"
)

// DB wraps an SQLite connection with run audit operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens an SQLite database at the given path, creating parent
// directories and the schema as needed. WAL mode is enabled for
// concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		task        TEXT NOT NULL,
		status      TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS steps (
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		role        TEXT NOT NULL,
		status      TEXT NOT NULL,
		attempts    INTEGER NOT NULL DEFAULT 0,
		verdict     TEXT NOT NULL DEFAULT '',
		fallback    INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, idx)
	);
	CREATE TABLE IF NOT EXISTS artifacts (
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		revision    INTEGER NOT NULL,
		content     TEXT NOT NULL,
		produced_by TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, name, revision)
	);`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveRun persists a run: its state, per-step records, and the full
// artifact history so revisions restore exactly. Saving the same run
// twice replaces the previous record.
func (db *DB) SaveRun(run *workflow.Run) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("clear previous run: %w", err)
	}

	var finished interface{}
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt
	}
	if _, err := tx.Exec(
		`INSERT INTO runs (id, task, status, reason, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, string(run.Status), run.Reason, run.StartedAt, finished,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, step := range run.Steps {
		if _, err := tx.Exec(
			`INSERT INTO steps (run_id, idx, role, status, attempts, verdict, fallback, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, step.Role, string(step.Status), step.Attempts, string(step.Verdict), boolToInt(step.Fallback), step.Error,
		); err != nil {
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	for _, art := range run.Workspace.History() {
		if _, err := tx.Exec(
			`INSERT INTO artifacts (run_id, name, revision, content, produced_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, art.Name, art.Revision, art.Content, art.ProducedBy, art.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert artifact %s rev %d: %w", art.Name, art.Revision, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadRun restores a persisted run, including its workspace with exact
// artifact revisions. The restored run is for inspection and export,
// not for resuming execution.
func (db *DB) LoadRun(id string) (*workflow.Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	run := &workflow.Run{ID: id, Workspace: workspace.New()}

	var status string
	var finished sql.NullTime
	err := db.conn.QueryRow(
		`SELECT task, status, reason, started_at, finished_at FROM runs WHERE id = ?`, id,
	).Scan(&run.Task, &status, &run.Reason, &run.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	run.Status = workflow.RunStatus(status)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}

	rows, err := db.conn.Query(
		`SELECT role, status, attempts, verdict, fallback, error FROM steps WHERE run_id = ? ORDER BY idx`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var step workflow.StepState
		var stepStatus, verdict string
		var fallback int
		if err := rows.Scan(&step.Role, &stepStatus, &step.Attempts, &verdict, &fallback, &step.Error); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Status = workflow.StepStatus(stepStatus)
		step.Verdict = workflow.Verdict(verdict)
		step.Fallback = fallback != 0
		run.Steps = append(run.Steps, step)
		run.Roles = append(run.Roles, role.Role{Name: step.Role})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}

	artRows, err := db.conn.Query(
		`SELECT name, revision, content, produced_by, created_at FROM artifacts WHERE run_id = ? ORDER BY created_at, revision`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	defer artRows.Close()
	for artRows.Next() {
		var art workspace.Artifact
		if err := artRows.Scan(&art.Name, &art.Revision, &art.Content, &art.ProducedBy, &art.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		run.Workspace.Restore(art)
	}
	if err := artRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}

	return run, nil
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID        string
	Task      string
	Status    workflow.RunStatus
	StartedAt time.Time
}

// ListRuns returns persisted runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, task, status, started_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var status string
		if err := rows.Scan(&s.ID, &s.Task, &status, &s.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Status = workflow.RunStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
