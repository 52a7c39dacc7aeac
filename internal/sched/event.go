// internal/sched/event.go

package sched

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventTick EventKind = iota
	EventDispatch
	EventPreempt
	EventYield
	EventBlock
	EventSleep
	EventWake
	EventExit
	EventReap
)

// Event is emitted on every tick and on lifecycle transitions. Detail
// carries the kind-specific number: tasks woken for a tick, the exit status
// for an exit, the wake deadline for a sleep, tasks reaped for a reap.
type Event struct {
	Tick     int64
	Kind     EventKind
	Task     TaskID
	Priority int
	Detail   int64
}

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "Tick"
	case EventDispatch:
		return "Dispatch"
	case EventPreempt:
		return "Preempt"
	case EventYield:
		return "Yield"
	case EventBlock:
		return "Block"
	case EventSleep:
		return "Sleep"
	case EventWake:
		return "Wake"
	case EventExit:
		return "Exit"
	case EventReap:
		return "Reap"
	default:
		return "Unknown"
	}
}
