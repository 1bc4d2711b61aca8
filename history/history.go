// Package history provides SQLite-based persistence for generation runs.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nathoo/dungeonrules/report"
)

var ErrNotFound = errors.New("run not found")

// History wraps the SQLite connection holding recorded runs.
type History struct {
	db *sql.DB
}

// Summary is one line of the run history.
type Summary struct {
	RunID     string
	Dungeon   string
	Seed      int64
	Status    string
	Rooms     int
	CreatedAt time.Time
}

// ClassCount aggregates one room class over the recorded runs of a dungeon.
type ClassCount struct {
	Class string
	Rooms int // rooms of the class over all runs
	Runs  int // runs with at least one room of the class
}

// Open opens or creates the history database at the given path.
func Open(path string) (*History, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	// PRAGMAs are per connection; one connection keeps them applied and
	// serializes writers from concurrent batch runs.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", pragma, err)
		}
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// migrate creates the schema if it doesn't exist.
func (h *History) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			dungeon TEXT NOT NULL,
			seed INTEGER NOT NULL,
			attempt INTEGER NOT NULL DEFAULT 1,
			max_rooms INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			rng_position INTEGER NOT NULL DEFAULT 0,
			room_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			parent INTEGER NOT NULL,
			door INTEGER NOT NULL,
			entry INTEGER NOT NULL,
			rule TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_dungeon ON runs(dungeon)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, m := range migrations {
		if _, err := h.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a report and its rooms.
func (h *History) Record(r *report.Report) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, dungeon, seed, attempt, max_rooms, status, rng_position, room_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Dungeon, r.Seed, r.Attempt, r.MaxRooms, r.Status, r.RNGPosition, len(r.Rooms),
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}

	for _, room := range r.Rooms {
		_, err = tx.Exec(`
			INSERT INTO rooms (run_id, idx, name, class, parent, door, entry, rule)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, room.Index, room.Name, room.Class, room.Parent, room.Door, room.Entry, room.Rule)
		if err != nil {
			return fmt.Errorf("failed to insert room %d: %w", room.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.Query(`
		SELECT run_id, dungeon, seed, status, room_count, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		var createdAt string
		if err := rows.Scan(&s.RunID, &s.Dungeon, &s.Seed, &s.Status, &s.Rooms, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Get rebuilds the report of a recorded run.
func (h *History) Get(runID string) (*report.Report, error) {
	r := report.Report{Version: report.Version, RunID: runID}
	var createdAt string

	err := h.db.QueryRow(`
		SELECT dungeon, seed, attempt, max_rooms, status, rng_position, created_at
		FROM runs
		WHERE run_id = ?`,
		runID).Scan(&r.Dungeon, &r.Seed, &r.Attempt, &r.MaxRooms, &r.Status, &r.RNGPosition, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	rows, err := h.db.Query(`
		SELECT idx, name, class, parent, door, entry, rule
		FROM rooms
		WHERE run_id = ?
		ORDER BY idx`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	r.Rooms = []report.Room{}
	for rows.Next() {
		var room report.Room
		if err := rows.Scan(&room.Index, &room.Name, &room.Class, &room.Parent, &room.Door, &room.Entry, &room.Rule); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		r.Rooms = append(r.Rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ClassCounts aggregates the room classes of every recorded run of dungeon,
// most frequent first.
func (h *History) ClassCounts(dungeon string) ([]ClassCount, error) {
	rows, err := h.db.Query(`
		SELECT rm.class, COUNT(*), COUNT(DISTINCT rm.run_id)
		FROM rooms rm
		JOIN runs r ON r.run_id = rm.run_id
		WHERE r.dungeon = ?
		GROUP BY rm.class
		ORDER BY COUNT(*) DESC, rm.class`,
		dungeon)
	if err != nil {
		return nil, fmt.Errorf("failed to query class counts: %w", err)
	}
	defer rows.Close()

	var counts []ClassCount
	for rows.Next() {
		var c ClassCount
		if err := rows.Scan(&c.Class, &c.Rooms, &c.Runs); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Delete removes a run and its rooms.
func (h *History) Delete(runID string) error {
	res, err := h.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}
