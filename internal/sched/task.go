package sched

import (
	"errors"
	"fmt"
)

// TaskID uniquely identifies a task in the scheduler. It doubles as the
// task's slot index in the backing slab, so queues can link tasks by ID
// without holding raw pointers into each other.
type TaskID int32

// noTask marks an empty link or "no task selected".
const noTask TaskID = -1

// State is the scheduling state of a task.
type State int

const (
	StateReady    State = iota // runnable, sitting in a run queue
	StateRunning               // the one task currently on the CPU
	StateBlocked               // waiting on a wake or a sleep deadline
	StateZombie                // exited, awaiting reclamation
	StateRetiring              // exited, but still the task most recently switched away from
)

func (st State) String() string {
	switch st {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateZombie:
		return "ZOMBIE"
	case StateRetiring:
		return "RETIRING"
	default:
		return "UNKNOWN"
	}
}

// TCB is the task control block: per-task scheduling metadata. It is owned
// by the scheduler until the task turns zombie, then by the reclaimer.
//
// Queue membership invariant: a TCB is in at most one of a run queue, the
// sleep queue, or the zombie list at any time, and the RUNNING task is in
// none of them. All fields are mutated only under the scheduler lock.
type TCB struct {
	id        TaskID
	state     State
	priority  int   // 0 is highest, bounded by Config.PriorityLevels
	sliceLeft int64 // remaining ticks before preemption is considered
	wakeTick  int64 // valid only while blocked in the sleep queue
	enqueued  bool  // guards against double insertion into a run queue
	next      TaskID
	ctx       Context
	proc      *Process
	waitingOn *Process // process this task is blocked waiting on, nil otherwise
	allocated bool
}

// ID returns the task's identifier.
func (t *TCB) ID() TaskID { return t.id }

// State returns the task's current scheduling state.
func (t *TCB) State() State { return t.state }

// Priority returns the task's priority level (0 is highest).
func (t *TCB) Priority() int { return t.priority }

// Process returns the owning process record.
func (t *TCB) Process() *Process { return t.proc }

// ErrTooManyTasks is returned by Create when the task slab is exhausted.
// This is the one recoverable failure in the scheduler: task creation
// fails cleanly and no partial state is left behind.
var ErrTooManyTasks = errors.New("sched: task slab exhausted")

// taskStore is a fixed-capacity slab of TCBs with a free list. Slots are
// never reallocated, so *TCB pointers handed out by get stay valid for the
// life of the store.
type taskStore struct {
	slab []TCB
	free []TaskID
	live int
}

func newTaskStore(capacity int) *taskStore {
	s := &taskStore{
		slab: make([]TCB, capacity),
		free: make([]TaskID, 0, capacity),
	}
	// hand out low IDs first
	for i := capacity - 1; i >= 0; i-- {
		s.free = append(s.free, TaskID(i))
	}
	return s
}

func (s *taskStore) alloc() (*TCB, error) {
	if len(s.free) == 0 {
		return nil, ErrTooManyTasks
	}
	id := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	t := &s.slab[id]
	*t = TCB{id: id, next: noTask, allocated: true}
	s.live++
	return t, nil
}

// get resolves an ID to its TCB. An out-of-range or destroyed ID is a
// programming error; the scheduler cannot run degraded, so we halt.
func (s *taskStore) get(id TaskID) *TCB {
	if id < 0 || int(id) >= len(s.slab) {
		panic(fmt.Sprintf("sched: invalid task id %d", id))
	}
	t := &s.slab[id]
	if !t.allocated {
		panic(fmt.Sprintf("sched: task %d used after destruction", id))
	}
	return t
}

func (s *taskStore) release(id TaskID) {
	t := s.get(id)
	*t = TCB{id: id, next: noTask}
	s.free = append(s.free, id)
	s.live--
}

func (s *taskStore) liveCount() int { return s.live }
