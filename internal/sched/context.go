package sched

// Context is the save area for one task's CPU-visible state: instruction
// and stack pointers plus the general-purpose register file. It is opaque
// to everything but the context engine.
type Context struct {
	PC  uint64
	SP  uint64
	GPR [16]uint64
}

// ContextEngine is the platform capability the scheduler core depends on
// instead of raw register manipulation. Implementations are synchronous and
// non-reentrant; the scheduler invokes them with interrupts (virtually)
// disabled and the scheduler lock released.
type ContextEngine interface {
	// SaveContext captures the running task's state into c.
	SaveContext(c *Context)
	// RestoreContext resumes execution from c.
	RestoreContext(c *Context)
	// SwitchAddressSpace installs the page-table root for the incoming
	// task's process.
	SwitchAddressSpace(pageRoot uint64)
}

// SimEngine is the in-memory context engine. It models a register file and
// the current address space and counts save/restore pairs so tests can
// assert how often control actually moved. A real port would back the
// interface with the architecture's save/restore assembly.
type SimEngine struct {
	cpu           Context // the "hardware" register file
	pageRoot      uint64
	saves         int
	restores      int
	spaceSwitches int
}

// NewSimEngine returns an engine with a zeroed register file.
func NewSimEngine() *SimEngine {
	return &SimEngine{}
}

func (e *SimEngine) SaveContext(c *Context) {
	*c = e.cpu
	e.saves++
}

func (e *SimEngine) RestoreContext(c *Context) {
	e.cpu = *c
	e.restores++
}

func (e *SimEngine) SwitchAddressSpace(pageRoot uint64) {
	e.pageRoot = pageRoot
	e.spaceSwitches++
}

// PageRoot reports the currently installed address-space root.
func (e *SimEngine) PageRoot() uint64 { return e.pageRoot }

// Saves returns the number of context save operations performed.
func (e *SimEngine) Saves() int { return e.saves }

// Switches returns the number of completed context restores.
func (e *SimEngine) Switches() int { return e.restores }

// SpaceSwitches returns the number of address-space installs.
func (e *SimEngine) SpaceSwitches() int { return e.spaceSwitches }
