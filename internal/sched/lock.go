package sched

import "sync"

// irqToken captures the interrupt-enable state that held before a lock
// acquisition, so nested acquire/release pairs restore it correctly.
type irqToken struct {
	wasEnabled bool
}

// schedLock is the single lock guarding all queue and TCB mutation. It
// models a spinlock that disables local interrupts for its duration:
// Acquire returns a token recording the prior interrupt-enable state and
// Release restores it. The lock is never held across the blocking phase of
// a context switch; it protects queue manipulation only.
type schedLock struct {
	mu         sync.Mutex
	held       bool
	irqEnabled bool
}

func newSchedLock() *schedLock {
	return &schedLock{irqEnabled: true}
}

func (l *schedLock) Acquire() irqToken {
	l.mu.Lock()
	tok := irqToken{wasEnabled: l.irqEnabled}
	l.irqEnabled = false
	l.held = true
	return tok
}

func (l *schedLock) Release(tok irqToken) {
	l.held = false
	l.irqEnabled = tok.wasEnabled
	l.mu.Unlock()
}

// assertHeld halts on queue operations attempted outside the lock. There
// is no safe unwind path from corrupted scheduler state.
func (l *schedLock) assertHeld(op string) {
	if !l.held {
		panic("sched: " + op + " called without the scheduler lock")
	}
}
