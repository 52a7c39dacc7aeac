package trace

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ksched/internal/sched"
)

// schema uses IF NOT EXISTS so several runs can append to one database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		run_id     TEXT NOT NULL,
		tick       INTEGER NOT NULL,
		event      TEXT NOT NULL,
		task_id    INTEGER NOT NULL,
		priority   INTEGER NOT NULL,
		detail     INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id)`,
}

// eventStore is the SQLite sink behind WithSQLite.
type eventStore struct {
	db *sql.DB
}

func openEventStore(path string) (*eventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace: open sqlite %s: %w", path, err)
	}

	// WAL keeps readers out of the writer's way while a run is recording.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: pragma wal: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("trace: migrate: %w", err)
		}
	}
	return &eventStore{db: db}, nil
}

func (s *eventStore) insert(runID string, ev sched.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, tick, event, task_id, priority, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, ev.Tick, ev.Kind.String(), int64(ev.Task), ev.Priority, ev.Detail,
		time.Now().Format(time.RFC3339Nano),
	)
	return err
}

// count returns the number of recorded events for a run.
func (s *eventStore) count(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (s *eventStore) close() error {
	return s.db.Close()
}
