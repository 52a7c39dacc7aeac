package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ksched/internal/job"
	"ksched/internal/sched"
	"ksched/internal/trace"
)

// demoWorkloads is the task mix used when the config lists none: a
// high-priority sleeper, a mid-priority CPU hog, and a polite yielder.
func demoWorkloads() []sched.WorkloadConfig {
	return []sched.WorkloadConfig{
		{Name: "sleeper", Kind: "sleepy", Priority: 0, BusyTicks: 3, SleepTicks: 10, Cycles: 5},
		{Name: "hog", Kind: "busy", Priority: 1, BusyTicks: 60},
		{Name: "polite", Kind: "yielder", Priority: 1, BusyTicks: 25},
	}
}

func runSimulation(cfg sched.Config, logger *slog.Logger) error {
	engine := sched.NewSimEngine()
	s := sched.New(cfg, engine, logger)

	var opts []trace.Option
	if cfg.TraceCSV != "" {
		opts = append(opts, trace.WithCSV(cfg.TraceCSV))
	}
	if cfg.TraceDB != "" {
		opts = append(opts, trace.WithSQLite(cfg.TraceDB))
	}
	recorder, err := trace.NewRecorder(logger, opts...)
	if err != nil {
		return err
	}
	defer recorder.Close()
	logger.Info("simulation starting", "run_id", recorder.RunID(), "tick_ms", cfg.TickMS)

	specs := cfg.Workloads
	if len(specs) == 0 {
		specs = demoWorkloads()
	}
	workloads := make(map[sched.TaskID]job.Workload, len(specs))
	names := make(map[sched.TaskID]string, len(specs))
	for i, wc := range specs {
		w, err := job.FromConfig(wc)
		if err != nil {
			return err
		}
		proc := sched.NewProcess(i+1, uint64(i+1)<<12)
		id, err := s.Create(proc, wc.Priority)
		if err != nil {
			return fmt.Errorf("create %q: %w", wc.Name, err)
		}
		workloads[id] = w
		names[id] = wc.Name
	}

	// consume and print the event stream while the clock drives the core
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for ev := range s.Events() {
			recorder.Record(ev)
			printEvent(ev, names)
		}
	}()

	clock := sched.NewTickClock(256)
	clock.Start(time.Duration(cfg.TickMS) * time.Millisecond)
	for now := range clock.Ch {
		// safe point for whatever the previous tick decided
		s.Reschedule()

		if cur := s.Current(); cur != s.IdleTask() {
			if w := workloads[cur]; w != nil {
				w.Step(s)
			}
		}
		s.Tick()

		if now%cfg.ReapEvery == 0 {
			s.CleanupZombies()
		}
		if cfg.RunTicks > 0 && now >= cfg.RunTicks {
			break
		}
		if cfg.RunTicks == 0 && s.Stats().Live == 1 {
			// every workload has exited and been reclaimed
			break
		}
	}
	clock.Stop()

	// a retiring task needs one extra pass before it is reclaimable
	for i := 0; i < 3 && s.Stats().Zombies > 0; i++ {
		s.CleanupZombies()
	}
	st := s.Stats()
	s.Shutdown()
	<-consumed

	logger.Info("simulation finished",
		"ticks", st.Tick,
		"switches", st.Switches,
		"ready", st.Ready,
		"sleeping", st.Sleeping,
		"live", st.Live,
	)
	return nil
}

// printEvent renders one non-tick event the way the trace reads best on a
// terminal: fixed-width centered kind, then the task and its detail.
func printEvent(ev sched.Event, names map[sched.TaskID]string) {
	if ev.Kind == sched.EventTick {
		return
	}
	name := names[ev.Task]
	if name == "" {
		name = "-"
	}
	fmt.Printf("tick %07d [%s] task %3d %-10s prio=%d detail=%d\n",
		ev.Tick, center(ev.Kind.String(), 10), ev.Task, name, ev.Priority, ev.Detail)
}

func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	left := (width - len(str)) / 2
	return strings.Repeat(" ", left) + str + strings.Repeat(" ", width-left-len(str))
}
