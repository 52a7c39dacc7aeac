// internal/sched/sleepqueue.go

package sched

import (
	"fmt"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// sleepKey orders the sleep queue by ascending wake deadline, with the task
// ID breaking ties so two tasks sharing a deadline get distinct keys.
type sleepKey struct {
	wakeTick int64
	id       TaskID
}

func sleepCmp(a, b any) int {
	ka, kb := a.(sleepKey), b.(sleepKey)
	switch {
	case ka.wakeTick < kb.wakeTick:
		return -1
	case ka.wakeTick > kb.wakeTick:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

// sleepQueue holds BLOCKED tasks awaiting a tick deadline. A red-black tree
// keyed by (wakeTick, id) keeps expiry a prefix pop off the left edge.
type sleepQueue struct {
	tree  *redblacktree.Tree
	store *taskStore
	lock  *schedLock
}

func newSleepQueue(store *taskStore, lock *schedLock) *sleepQueue {
	return &sleepQueue{
		tree:  redblacktree.NewWith(sleepCmp),
		store: store,
		lock:  lock,
	}
}

// add inserts t with the given absolute wake tick. t must already be
// BLOCKED; a sleeping task in any other state means the caller skipped the
// block transition.
func (q *sleepQueue) add(t *TCB, wakeTick int64) {
	q.lock.assertHeld("sleep add")
	if t.state != StateBlocked {
		panic(fmt.Sprintf("sched: sleep add on task %d in state %s", t.id, t.state))
	}
	t.wakeTick = wakeTick
	q.tree.Put(sleepKey{wakeTick, t.id}, t.id)
}

// remove unlinks t regardless of its position, for explicit early wakes.
// Returns false if t is not in the queue. Physical unlinking is what makes
// a later checkExpired pass unable to double-wake the task.
func (q *sleepQueue) remove(t *TCB) bool {
	q.lock.assertHeld("sleep remove")
	key := sleepKey{t.wakeTick, t.id}
	if _, found := q.tree.Get(key); !found {
		return false
	}
	q.tree.Remove(key)
	t.wakeTick = 0
	return true
}

// checkExpired pops every entry with wakeTick <= now, marks it READY, and
// hands it to the run queues. Returns the number of tasks woken. The tick
// handler must call this exactly once per tick; the scheduler lock
// serializes it against explicit wakes.
func (q *sleepQueue) checkExpired(now int64, ready *runQueueSet) int {
	q.lock.assertHeld("checkExpired")
	woken := 0
	for {
		node := q.tree.Left()
		if node == nil {
			break
		}
		key := node.Key.(sleepKey)
		if key.wakeTick > now {
			break
		}
		q.tree.Remove(key)

		t := q.store.get(key.id)
		t.wakeTick = 0
		t.state = StateReady
		ready.enqueue(t)
		woken++
	}
	return woken
}

func (q *sleepQueue) size() int { return q.tree.Size() }
