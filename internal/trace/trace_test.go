package trace

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ksched/internal/sched"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvents() []sched.Event {
	return []sched.Event{
		{Tick: 1, Kind: sched.EventDispatch, Task: 1, Priority: 0},
		{Tick: 3, Kind: sched.EventTick, Task: 1}, // must be skipped
		{Tick: 5, Kind: sched.EventSleep, Task: 1, Priority: 0, Detail: 15},
		{Tick: 15, Kind: sched.EventWake, Task: 1, Priority: 0},
		{Tick: 20, Kind: sched.EventExit, Task: 1, Priority: 0, Detail: 7},
	}
}

func TestRecorderCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	r, err := NewRecorder(discard(), WithCSV(path))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	for _, ev := range sampleEvents() {
		r.Record(ev)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header plus four non-tick events
	if len(lines) != 5 {
		t.Fatalf("csv has %d lines, want 5:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "run_id") {
		t.Errorf("missing header: %s", lines[0])
	}
	if !strings.Contains(lines[4], "Exit") {
		t.Errorf("last row should be the exit event: %s", lines[4])
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, r.RunID()) {
			t.Errorf("row missing run id: %s", line)
		}
	}
}

func TestRecorderSQLite(t *testing.T) {
	r, err := NewRecorder(discard(), WithSQLite(":memory:"))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer r.Close()

	for _, ev := range sampleEvents() {
		r.Record(ev)
	}

	n, err := r.db.count(r.RunID())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Errorf("stored %d events, want 4 (ticks are skipped)", n)
	}
	if other, _ := r.db.count("no-such-run"); other != 0 {
		t.Errorf("foreign run id matched %d events, want 0", other)
	}
}

func TestRecorderNoOutputs(t *testing.T) {
	r, err := NewRecorder(discard())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	// recording into the void must not fail
	for _, ev := range sampleEvents() {
		r.Record(ev)
	}
	if err := r.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestRecorderBadCSVPath(t *testing.T) {
	if _, err := NewRecorder(discard(), WithCSV("/no/such/dir/trace.csv")); err == nil {
		t.Error("unwritable csv path should fail recorder construction")
	}
}
