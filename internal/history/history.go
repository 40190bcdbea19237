// Package history keeps a local SQLite record of resolution batches, test
// runs, and healing sessions, so `journeykit stats` can answer "what happened
// to this journey lately" without re-reading logs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"journeykit/internal/logging"
)

// Kind discriminates history entries.
type Kind string

const (
	KindResolve Kind = "resolve"
	KindRun     Kind = "run"
	KindHeal    Kind = "heal"
)

// Entry is one recorded event.
type Entry struct {
	ID        int64
	JourneyID string
	Kind      Kind
	Status    string
	Steps     int
	Blocked   int
	Attempts  int
	Detail    string
	CreatedAt time.Time
}

// JourneySummary aggregates a journey's history for the stats command.
type JourneySummary struct {
	JourneyID  string
	Events     int
	HealedRuns int
	LastStatus string
	LastSeen   time.Time
}

// Store is the run-history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database and its schema.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryHistory, "Open")
	defer timer.Stop()

	if path == "" {
		return nil, fmt.Errorf("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify history database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		journey_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		steps INTEGER DEFAULT 0,
		blocked INTEGER DEFAULT 0,
		attempts INTEGER DEFAULT 0,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_journey ON events(journey_id);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.History("history store open at %s", path)
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordResolution logs one resolve batch: how many steps, how many ended
// blocked, and a short provenance breakdown.
func (s *Store) RecordResolution(journeyID string, steps, blocked int, detail string) error {
	status := "resolved"
	if blocked > 0 {
		status = "partially-blocked"
	}
	return s.insert(Entry{
		JourneyID: journeyID, Kind: KindResolve, Status: status,
		Steps: steps, Blocked: blocked, Detail: detail,
	})
}

// RecordRun logs one external test run.
func (s *Store) RecordRun(journeyID, status string, errors int, duration time.Duration) error {
	return s.insert(Entry{
		JourneyID: journeyID, Kind: KindRun, Status: status,
		Blocked: errors, Detail: fmt.Sprintf("duration=%v", duration),
	})
}

// RecordHealing logs one healing session terminal state.
func (s *Store) RecordHealing(journeyID, status string, attempts int, logPath string) error {
	return s.insert(Entry{
		JourneyID: journeyID, Kind: KindHeal, Status: status,
		Attempts: attempts, Detail: logPath,
	})
}

func (s *Store) insert(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO events (journey_id, kind, status, steps, blocked, attempts, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.JourneyID, string(e.Kind), e.Status, e.Steps, e.Blocked, e.Attempts, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Kind, err)
	}
	logging.HistoryDebug("recorded %s/%s for %s", e.Kind, e.Status, e.JourneyID)
	return nil
}

// Recent returns the latest events, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, journey_id, kind, status, steps, blocked, attempts, COALESCE(detail, ''), created_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.JourneyID, &kind, &e.Status,
			&e.Steps, &e.Blocked, &e.Attempts, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summaries aggregates per-journey history, most recently active first.
// The last-seen timestamp comes from a per-journey lookup rather than
// MAX(created_at): an aggregate result column loses the DATETIME decltype,
// so the driver hands back a string instead of a time.Time.
func (s *Store) Summaries() ([]JourneySummary, error) {
	rows, err := s.db.Query(`
		SELECT journey_id,
		       COUNT(*),
		       SUM(CASE WHEN kind = 'heal' AND status = 'healed' THEN 1 ELSE 0 END)
		FROM events
		GROUP BY journey_id
		ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []JourneySummary
	for rows.Next() {
		var js JourneySummary
		if err := rows.Scan(&js.JourneyID, &js.Events, &js.HealedRuns); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		js.LastStatus, js.LastSeen, err = s.lastEvent(js.JourneyID)
		if err != nil {
			return nil, err
		}
		out = append(out, js)
	}
	return out, rows.Err()
}

func (s *Store) lastEvent(journeyID string) (string, time.Time, error) {
	var status string
	var seen time.Time
	err := s.db.QueryRow(
		`SELECT status, created_at FROM events WHERE journey_id = ? ORDER BY id DESC LIMIT 1`,
		journeyID).Scan(&status, &seen)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read last event: %w", err)
	}
	return status, seen, nil
}
