package sched

// Process is the minimal owner record the scheduler needs from the process
// layer: an identity, the address-space root for context switches, and a
// place to park the exit status until a waiter collects it. The heavier
// process machinery (memory maps, descriptors) lives elsewhere and owns
// this struct 1:1 with its TCB.
type Process struct {
	PID      int
	PageRoot uint64 // page-table root handle fed to the context engine

	exitStatus int
	exited     bool
	waiter     TaskID // task blocked in WaitOn, noTask if none
}

// NewProcess returns a process record with no waiter.
func NewProcess(pid int, pageRoot uint64) *Process {
	return &Process{PID: pid, PageRoot: pageRoot, waiter: noTask}
}

// ExitStatus reports the recorded exit status. The second return is false
// until the owning task has called Exit.
func (p *Process) ExitStatus() (int, bool) {
	return p.exitStatus, p.exited
}
