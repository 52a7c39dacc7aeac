// internal/sched/scheduler.go

package sched

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Scheduler is one preemptive scheduler instance: the run queues, the sleep
// queue, the zombie list, and the task slab, all behind a single
// irq-disabling lock. There are no package-level singletons; independent
// instances can coexist, which is also what keeps the data structures ready
// for a per-CPU split.
type Scheduler struct {
	lock    *schedLock
	store   *taskStore
	ready   *runQueueSet
	asleep  *sleepQueue
	zombies *zombieList
	engine  ContextEngine
	logger  *slog.Logger

	sliceTicks  int64
	tick        int64
	current     TaskID
	idle        TaskID
	needResched bool
	switches    int64

	events chan Event
	closed atomic.Bool
}

// Stats is a point-in-time snapshot for diagnostics.
type Stats struct {
	Tick     int64
	Ready    int
	Sleeping int
	Zombies  int
	Live     int
	Switches int64
}

// New builds a scheduler from cfg, creates the idle task, and performs the
// boot dispatch onto it (the one switch with no "from" side).
func New(cfg Config, engine ContextEngine, logger *slog.Logger) *Scheduler {
	store := newTaskStore(cfg.MaxTasks)
	lock := newSchedLock()
	s := &Scheduler{
		lock:       lock,
		store:      store,
		ready:      newRunQueueSet(cfg.PriorityLevels, store, lock),
		asleep:     newSleepQueue(store, lock),
		zombies:    newZombieList(store, lock),
		engine:     engine,
		logger:     logger.With("component", "sched"),
		sliceTicks: int64(cfg.SliceTicks),
		current:    noTask,
		events:     make(chan Event, 256),
	}

	// The idle task belongs to the kernel address space and never enters a
	// run queue; selection falls back to it when every level is empty.
	idle, err := store.alloc()
	if err != nil {
		panic("sched: cannot allocate idle task")
	}
	idle.priority = cfg.PriorityLevels - 1
	idle.proc = NewProcess(0, 0)
	idle.state = StateRunning
	idle.sliceLeft = s.sliceTicks
	s.idle = idle.ID()
	s.current = idle.ID()

	// boot dispatch: no from side, so no save phase
	engine.SwitchAddressSpace(idle.proc.PageRoot)
	engine.RestoreContext(&idle.ctx)
	return s
}

// Events exposes the scheduler's event stream. Sends never block the
// scheduler; events are dropped if the consumer falls behind.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Shutdown closes the event stream. Call only after the tick source has
// stopped driving the scheduler.
func (s *Scheduler) Shutdown() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.events)
	}
}

func (s *Scheduler) emit(ev Event) {
	if s.closed.Load() {
		return
	}
	select {
	case s.events <- ev:
	default:
		// never stall the tick path for a slow consumer
	}
}

// Create allocates a TCB owned by proc at the given priority and enqueues
// it READY. On slab exhaustion it returns ErrTooManyTasks and leaves no
// partial state behind.
func (s *Scheduler) Create(proc *Process, priority int) (TaskID, error) {
	if proc == nil {
		panic("sched: Create with nil process")
	}
	tok := s.lock.Acquire()
	if priority < 0 || priority >= len(s.ready.levels) {
		s.lock.Release(tok)
		return noTask, fmt.Errorf("sched: priority %d out of range", priority)
	}
	t, err := s.store.alloc()
	if err != nil {
		s.lock.Release(tok)
		return noTask, err
	}
	t.priority = priority
	t.proc = proc
	t.state = StateReady
	t.sliceLeft = s.sliceTicks
	s.ready.enqueue(t)

	// a fresh task at a better level preempts the current one
	if cur := s.store.get(s.current); s.current == s.idle || priority < cur.priority {
		s.needResched = true
	}
	id := t.ID()
	s.lock.Release(tok)

	s.logger.Debug("task created", "task", id, "pid", proc.PID, "priority", priority)
	return id, nil
}

// Tick is the timer-interrupt entry point. It burns one tick of the
// current task's slice, wakes expired sleepers, and decides whether a
// reschedule is due, but never switches here. The actual switch happens at
// the next Reschedule call, the marked safe point, which bounds the work
// done with interrupts off.
func (s *Scheduler) Tick() {
	tok := s.lock.Acquire()
	s.tick++
	now := s.tick

	cur := s.store.get(s.current)
	if s.current != s.idle && cur.sliceLeft > 0 {
		cur.sliceLeft--
	}

	woken := s.asleep.checkExpired(now, s.ready)

	if level, ok := s.ready.highestLevel(); ok {
		switch {
		case s.current == s.idle:
			s.needResched = true
		case cur.sliceLeft <= 0:
			s.needResched = true
		case level < cur.priority:
			s.needResched = true
		}
	}
	s.lock.Release(tok)

	s.emit(Event{Tick: now, Kind: EventTick, Task: cur.ID(), Detail: int64(woken)})
}

// Now returns the current tick count.
func (s *Scheduler) Now() int64 {
	tok := s.lock.Acquire()
	defer s.lock.Release(tok)
	return s.tick
}

// Current returns the ID of the running task (the idle task counts).
func (s *Scheduler) Current() TaskID {
	tok := s.lock.Acquire()
	defer s.lock.Release(tok)
	return s.current
}

// IdleTask returns the designated idle task's ID.
func (s *Scheduler) IdleTask() TaskID { return s.idle }

// TaskState reports the scheduling state of id. Looking up a destroyed
// task halts, like every other use of a dead handle.
func (s *Scheduler) TaskState(id TaskID) State {
	tok := s.lock.Acquire()
	defer s.lock.Release(tok)
	return s.store.get(id).state
}

// Reschedule is the safe point: if a reschedule is pending it dispatches
// the next task and performs the context switch. Returns whether a switch
// happened. Never call this from the tick handler itself.
func (s *Scheduler) Reschedule() bool {
	tok := s.lock.Acquire()
	if !s.needResched {
		s.lock.Release(tok)
		return false
	}
	s.needResched = false

	from := s.store.get(s.current)
	if from.state == StateRunning {
		// still eligible: back of its own level (idle never enters a queue)
		from.state = StateReady
		if from.id != s.idle {
			s.ready.enqueue(from)
		}
	}

	next := s.pickNext()
	if next.id == from.id {
		// only runnable task; cancel the queue round-trip
		from.state = StateRunning
		from.sliceLeft = s.sliceTicks
		s.lock.Release(tok)
		return false
	}
	now := s.tick
	s.switchTo(from, next, tok)
	if from.id != s.idle {
		s.emit(Event{Tick: now, Kind: EventPreempt, Task: from.ID(), Priority: from.priority})
	}
	s.emit(Event{Tick: now, Kind: EventDispatch, Task: next.ID(), Priority: next.priority})
	return true
}

// Yield voluntarily gives up the CPU: the current task goes to the tail of
// its level and the best ready task runs. With no other runnable task it
// keeps running.
func (s *Scheduler) Yield() {
	tok := s.lock.Acquire()
	cur := s.mustCurrent("Yield")
	cur.state = StateReady
	s.ready.enqueue(cur)

	next := s.pickNext()
	if next.id == cur.id {
		cur.state = StateRunning
		cur.sliceLeft = s.sliceTicks
		s.lock.Release(tok)
		return
	}
	now := s.tick
	s.switchTo(cur, next, tok)
	s.emit(Event{Tick: now, Kind: EventYield, Task: cur.ID(), Priority: cur.priority})
	s.emit(Event{Tick: now, Kind: EventDispatch, Task: next.ID(), Priority: next.priority})
}

// BlockCurrent parks the current task with no deadline. It stays BLOCKED
// until some explicit Wake; mutex and I/O wait paths build on this.
func (s *Scheduler) BlockCurrent() {
	tok := s.lock.Acquire()
	cur := s.mustCurrent("BlockCurrent")
	cur.state = StateBlocked

	next := s.pickNext()
	now := s.tick
	s.switchTo(cur, next, tok)
	s.emit(Event{Tick: now, Kind: EventBlock, Task: cur.ID(), Priority: cur.priority})
	s.emit(Event{Tick: now, Kind: EventDispatch, Task: next.ID(), Priority: next.priority})
}

// SleepCurrent blocks the current task until the given number of ticks has
// elapsed. Insertion into the sleep queue happens in the same lock section
// that decided to block, so a tick can never slip between the two and lose
// the wakeup.
func (s *Scheduler) SleepCurrent(ticks int64) {
	if ticks < 1 {
		ticks = 1
	}
	tok := s.lock.Acquire()
	cur := s.mustCurrent("SleepCurrent")
	cur.state = StateBlocked
	deadline := s.tick + ticks
	s.asleep.add(cur, deadline)

	next := s.pickNext()
	now := s.tick
	s.switchTo(cur, next, tok)
	s.emit(Event{Tick: now, Kind: EventSleep, Task: cur.ID(), Priority: cur.priority, Detail: deadline})
	s.emit(Event{Tick: now, Kind: EventDispatch, Task: next.ID(), Priority: next.priority})
}

// Wake transitions a BLOCKED task to READY, unlinking it from the sleep
// queue if a deadline was pending. Waking a task that is already READY or
// RUNNING is a harmless no-op and returns false.
func (s *Scheduler) Wake(id TaskID) bool {
	tok := s.lock.Acquire()
	woke := s.wakeLocked(id)
	prio := 0
	if woke {
		prio = s.store.get(id).priority
	}
	now := s.tick
	s.lock.Release(tok)
	if woke {
		s.emit(Event{Tick: now, Kind: EventWake, Task: id, Priority: prio})
	}
	return woke
}

func (s *Scheduler) wakeLocked(id TaskID) bool {
	t := s.store.get(id)
	if t.state != StateBlocked {
		return false
	}
	s.asleep.remove(t)
	// A waiter woken from outside stops waiting: drop the handle on both
	// sides so a later exit cannot reach a slot that was since reclaimed.
	if t.waitingOn != nil {
		t.waitingOn.waiter = noTask
		t.waitingOn = nil
	}
	t.state = StateReady
	s.ready.enqueue(t)

	if cur := s.store.get(s.current); s.current == s.idle || t.priority < cur.priority {
		s.needResched = true
	}
	return true
}

// Exit terminates the current task: the status is recorded on the owning
// process, any waiter is woken, and the task turns zombie and is switched
// away from immediately; it can never be selected again. The switch marks
// it RETIRING so the reclaimer leaves its context save area alone until the
// switch has fully retired.
func (s *Scheduler) Exit(status int) {
	tok := s.lock.Acquire()
	cur := s.mustCurrent("Exit")

	cur.proc.exitStatus = status
	cur.proc.exited = true
	if w := cur.proc.waiter; w != noTask {
		// wakeLocked clears the waiter handle and its back reference
		s.wakeLocked(w)
	}
	s.zombies.markZombie(cur, s.ready)

	next := s.pickNext()
	now := s.tick
	s.switchTo(cur, next, tok)
	s.emit(Event{Tick: now, Kind: EventExit, Task: cur.ID(), Priority: cur.priority, Detail: int64(status)})
	s.emit(Event{Tick: now, Kind: EventDispatch, Task: next.ID(), Priority: next.priority})

	s.logger.Debug("task exited", "task", cur.ID(), "status", status)
}

// WaitOn blocks the current task until p's owning task has exited; the
// waiter reads the status off the process once it runs again. If p already
// exited the current task does not block. One waiter per process.
func (s *Scheduler) WaitOn(p *Process) {
	tok := s.lock.Acquire()
	if p.exited {
		s.lock.Release(tok)
		return
	}
	if p.waiter != noTask {
		panic(fmt.Sprintf("sched: process %d already has a waiter", p.PID))
	}
	cur := s.mustCurrent("WaitOn")
	p.waiter = cur.id
	cur.waitingOn = p
	cur.state = StateBlocked

	next := s.pickNext()
	now := s.tick
	s.switchTo(cur, next, tok)
	s.emit(Event{Tick: now, Kind: EventBlock, Task: cur.ID(), Priority: cur.priority})
	s.emit(Event{Tick: now, Kind: EventDispatch, Task: next.ID(), Priority: next.priority})
}

// CleanupZombies reclaims every zombie whose destruction is safe. The list
// is drained and then the slab slots are freed, each in its own lock
// section; only the teardown reporting runs with the lock dropped, so the
// critical section never spans external work. Returns the number of tasks
// destroyed.
func (s *Scheduler) CleanupZombies() int {
	tok := s.lock.Acquire()
	reap := s.zombies.collect(s.current)
	now := s.tick
	s.lock.Release(tok)
	if len(reap) == 0 {
		return 0
	}

	// The slab and its free list are scheduler state like any other, so
	// destruction goes back under the lock.
	tok = s.lock.Acquire()
	procs := make([]*Process, 0, len(reap))
	for _, id := range reap {
		t := s.store.get(id)
		procs = append(procs, t.proc)
		t.ctx = Context{} // release the context save area
		s.store.release(id)
	}
	s.lock.Release(tok)

	for i, id := range reap {
		s.logger.Info("task reclaimed", "task", id, "pid", procs[i].PID, "status", procs[i].exitStatus)
	}
	s.emit(Event{Tick: now, Kind: EventReap, Detail: int64(len(reap))})
	return len(reap)
}

// Stats returns a consistent snapshot of queue depths and counters.
func (s *Scheduler) Stats() Stats {
	tok := s.lock.Acquire()
	defer s.lock.Release(tok)
	return Stats{
		Tick:     s.tick,
		Ready:    s.ready.readyCount(),
		Sleeping: s.asleep.size(),
		Zombies:  s.zombies.size(),
		Live:     s.store.liveCount(),
		Switches: s.switches,
	}
}

// pickNext pops the best ready task, falling back to idle. Lock held.
func (s *Scheduler) pickNext() *TCB {
	s.lock.assertHeld("pickNext")
	if t := s.ready.selectNext(); t != nil {
		return t
	}
	return s.store.get(s.idle)
}

// switchTo hands the CPU from one task to the next. The lock is released
// before the engine runs: it guards queue manipulation only, never the
// switch itself. A zombie on the from side becomes RETIRING here, which is
// the reclaimer's signal to defer it one pass.
func (s *Scheduler) switchTo(from, to *TCB, tok irqToken) {
	to.state = StateRunning
	to.sliceLeft = s.sliceTicks
	s.current = to.id
	if from.state == StateZombie {
		from.state = StateRetiring
	}
	// any switch satisfies a pending reschedule: the dispatched task is
	// the best ready one as of this moment
	s.needResched = false
	s.switches++
	s.lock.Release(tok)

	s.engine.SaveContext(&from.ctx)
	if from.proc != to.proc {
		s.engine.SwitchAddressSpace(to.proc.PageRoot)
	}
	s.engine.RestoreContext(&to.ctx)
}

// mustCurrent fetches the running task for an operation that cannot apply
// to idle. Lock held.
func (s *Scheduler) mustCurrent(op string) *TCB {
	s.lock.assertHeld(op)
	if s.current == s.idle {
		panic("sched: " + op + " on the idle task")
	}
	cur := s.store.get(s.current)
	if cur.state != StateRunning {
		panic(fmt.Sprintf("sched: %s: current task %d in state %s", op, cur.id, cur.state))
	}
	return cur
}
