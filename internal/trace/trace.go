// Package trace records scheduler events for offline inspection, either as
// a CSV file, a SQLite database, or both. Every event row carries the run
// ID so several simulation runs can share one database.
package trace

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ksched/internal/sched"
)

// Recorder sinks scheduler events. Tick events are skipped; they would
// swamp the trace without saying anything the other events don't.
type Recorder struct {
	runID  string
	logger *slog.Logger

	csvFile   *os.File
	csvWriter *csv.Writer

	db *eventStore
}

// Option configures a Recorder.
type Option func(*Recorder) error

// WithCSV writes events to a CSV file at path.
func WithCSV(path string) Option {
	return func(r *Recorder) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("trace: create csv %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		w.Write([]string{"run_id", "timestamp", "tick", "event", "task_id", "priority", "detail"})
		w.Flush()
		r.csvFile = f
		r.csvWriter = w
		return nil
	}
}

// WithSQLite writes events to a SQLite database at path. Use ":memory:"
// for an in-memory database (useful in tests).
func WithSQLite(path string) Option {
	return func(r *Recorder) error {
		db, err := openEventStore(path)
		if err != nil {
			return err
		}
		r.db = db
		return nil
	}
}

// NewRecorder creates a recorder with a fresh run ID.
func NewRecorder(logger *slog.Logger, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		runID:  uuid.NewString(),
		logger: logger.With("component", "trace"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// RunID returns this recorder's run identifier.
func (r *Recorder) RunID() string { return r.runID }

// Record sinks one event into every configured output.
func (r *Recorder) Record(ev sched.Event) {
	if ev.Kind == sched.EventTick {
		return
	}

	if r.csvWriter != nil {
		rec := []string{
			r.runID,
			time.Now().Format(time.RFC3339Nano),
			strconv.FormatInt(ev.Tick, 10),
			ev.Kind.String(),
			strconv.FormatInt(int64(ev.Task), 10),
			strconv.Itoa(ev.Priority),
			strconv.FormatInt(ev.Detail, 10),
		}
		r.csvWriter.Write(rec)
		r.csvWriter.Flush()
	}

	if r.db != nil {
		if err := r.db.insert(r.runID, ev); err != nil {
			r.logger.Warn("event insert failed", "err", err)
		}
	}
}

// Close flushes and closes every output.
func (r *Recorder) Close() error {
	if r.csvWriter != nil {
		r.csvWriter.Flush()
		r.csvFile.Close()
		r.csvWriter = nil
		r.csvFile = nil
	}
	if r.db != nil {
		err := r.db.close()
		r.db = nil
		return err
	}
	return nil
}
