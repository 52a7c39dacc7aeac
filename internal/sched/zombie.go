package sched

import (
	"fmt"

	"github.com/emirpasic/gods/lists/singlylinkedlist"
)

// zombieList tracks tasks whose process has exited but whose TCB storage is
// still live. Reclamation is deferred: a task we just switched away from
// holds RETIRING and survives exactly one collection pass, so its context
// save area is never freed while the switch that used it is retiring.
type zombieList struct {
	list  *singlylinkedlist.List
	store *taskStore
	lock  *schedLock
}

func newZombieList(store *taskStore, lock *schedLock) *zombieList {
	return &zombieList{
		list:  singlylinkedlist.New(),
		store: store,
		lock:  lock,
	}
}

// markZombie moves t out of the run queues and onto the zombie list. Must
// never be called on the in-flight "from" side of a context switch; the
// switch path handles that ordering itself.
func (z *zombieList) markZombie(t *TCB, ready *runQueueSet) {
	z.lock.assertHeld("markZombie")
	if t.state == StateZombie || t.state == StateRetiring {
		panic(fmt.Sprintf("sched: task %d marked zombie twice", t.id))
	}
	ready.dequeue(t)
	t.state = StateZombie
	z.list.Add(t.id)
}

// collect runs the lock-held phase of reclamation: it drains every zombie
// that is safe to destroy and returns their IDs. RETIRING entries stay on
// the list but are demoted to ZOMBIE, which is what defers their
// destruction by one pass. The current task is never collected.
func (z *zombieList) collect(current TaskID) []TaskID {
	z.lock.assertHeld("collect")
	if z.list.Size() == 0 {
		return nil
	}
	var reap []TaskID
	kept := z.list.Values()
	z.list.Clear()
	for _, v := range kept {
		id := v.(TaskID)
		t := z.store.get(id)
		switch {
		case id == current:
			z.list.Add(id)
		case t.state == StateRetiring:
			// The switch away from this task has now retired; it becomes
			// reclaimable on the next pass.
			t.state = StateZombie
			z.list.Add(id)
		default:
			reap = append(reap, id)
		}
	}
	return reap
}

func (z *zombieList) size() int { return z.list.Size() }
