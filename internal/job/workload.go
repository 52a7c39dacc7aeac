// Package job provides canned workload behaviours for the simulator. A
// workload is stepped once per tick while its task is running and drives
// the task's lifecycle through scheduler primitives: burning the tick,
// yielding, sleeping, or exiting.
package job

import (
	"fmt"

	"ksched/internal/sched"
)

// Workload drives one simulated task.
type Workload interface {
	// Step performs one tick of work on behalf of the current task. It may
	// call back into the scheduler (sleep, yield, exit); after such a call
	// the task is no longer running and Step must not touch the scheduler
	// again until its next dispatch.
	Step(s *sched.Scheduler)
}

// Busy burns a fixed number of ticks and exits.
type Busy struct {
	Remaining int
	Status    int
}

func (b *Busy) Step(s *sched.Scheduler) {
	b.Remaining--
	if b.Remaining <= 0 {
		s.Exit(b.Status)
	}
}

// Sleepy alternates bursts of work with timed sleeps for a number of
// cycles, then exits. It is the workload that exercises the sleep queue.
type Sleepy struct {
	BusyTicks  int
	SleepTicks int
	Cycles     int

	burned int
}

func (w *Sleepy) Step(s *sched.Scheduler) {
	w.burned++
	if w.burned < w.BusyTicks {
		return
	}
	w.burned = 0
	w.Cycles--
	if w.Cycles <= 0 {
		s.Exit(0)
		return
	}
	s.SleepCurrent(int64(w.SleepTicks))
}

// Yielder gives up the CPU on every step until its tick budget is spent.
type Yielder struct {
	Remaining int
}

func (y *Yielder) Step(s *sched.Scheduler) {
	y.Remaining--
	if y.Remaining <= 0 {
		s.Exit(0)
		return
	}
	s.Yield()
}

// FromConfig builds a workload from its YAML description.
func FromConfig(wc sched.WorkloadConfig) (Workload, error) {
	switch wc.Kind {
	case "busy":
		if wc.BusyTicks < 1 {
			return nil, fmt.Errorf("job: workload %q: busy_ticks must be positive", wc.Name)
		}
		return &Busy{Remaining: wc.BusyTicks}, nil
	case "sleepy":
		if wc.BusyTicks < 1 || wc.SleepTicks < 1 || wc.Cycles < 1 {
			return nil, fmt.Errorf("job: workload %q: busy_ticks, sleep_ticks and cycles must be positive", wc.Name)
		}
		return &Sleepy{BusyTicks: wc.BusyTicks, SleepTicks: wc.SleepTicks, Cycles: wc.Cycles}, nil
	case "yielder":
		if wc.BusyTicks < 1 {
			return nil, fmt.Errorf("job: workload %q: busy_ticks must be positive", wc.Name)
		}
		return &Yielder{Remaining: wc.BusyTicks}, nil
	default:
		return nil, fmt.Errorf("job: workload %q: unknown kind %q", wc.Name, wc.Kind)
	}
}
