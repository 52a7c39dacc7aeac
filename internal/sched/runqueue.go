package sched

import "math/bits"

// runQueue is one FIFO of READY tasks at a single priority level, linked
// through the TCB next field by task ID.
type runQueue struct {
	head  TaskID
	tail  TaskID
	count int
}

// runQueueSet holds one FIFO per priority level plus a bitmap of non-empty
// levels, so the highest non-empty level is a single trailing-zeros scan.
// Within a level ordering is strict FIFO; there is no starvation protection
// beyond the levels themselves.
type runQueueSet struct {
	levels []runQueue
	bitmap uint64
	store  *taskStore
	lock   *schedLock
}

func newRunQueueSet(levels int, store *taskStore, lock *schedLock) *runQueueSet {
	q := &runQueueSet{
		levels: make([]runQueue, levels),
		store:  store,
		lock:   lock,
	}
	for i := range q.levels {
		q.levels[i] = runQueue{head: noTask, tail: noTask}
	}
	return q
}

// enqueue appends t to the queue matching its priority. Returns false
// without touching anything if t is already enqueued somewhere.
func (q *runQueueSet) enqueue(t *TCB) bool {
	q.lock.assertHeld("enqueue")
	if t.enqueued {
		return false
	}
	rq := &q.levels[t.priority]
	t.next = noTask
	if rq.tail == noTask {
		rq.head = t.id
	} else {
		q.store.get(rq.tail).next = t.id
	}
	rq.tail = t.id
	rq.count++
	t.enqueued = true
	q.bitmap |= 1 << uint(t.priority)
	return true
}

// dequeue unlinks t from the queue at its priority level. Returns false if
// t is not enqueued there.
func (q *runQueueSet) dequeue(t *TCB) bool {
	q.lock.assertHeld("dequeue")
	if !t.enqueued {
		return false
	}
	rq := &q.levels[t.priority]
	prev := noTask
	for id := rq.head; id != noTask; {
		cur := q.store.get(id)
		if id == t.id {
			if prev == noTask {
				rq.head = cur.next
			} else {
				q.store.get(prev).next = cur.next
			}
			if rq.tail == id {
				rq.tail = prev
			}
			rq.count--
			cur.next = noTask
			cur.enqueued = false
			if rq.count == 0 {
				q.bitmap &^= 1 << uint(t.priority)
			}
			return true
		}
		prev = id
		id = cur.next
	}
	// enqueued flag set but not linked anywhere: corrupted membership
	panic("sched: dequeue: task flagged enqueued but not linked")
}

// selectNext pops and returns the head of the highest-priority non-empty
// queue, or nil when every level is empty (the caller substitutes the idle
// task). Level 0 wins; ties within a level go to the earliest enqueued.
func (q *runQueueSet) selectNext() *TCB {
	q.lock.assertHeld("selectNext")
	if q.bitmap == 0 {
		return nil
	}
	level := bits.TrailingZeros64(q.bitmap)
	rq := &q.levels[level]
	t := q.store.get(rq.head)
	rq.head = t.next
	if rq.head == noTask {
		rq.tail = noTask
	}
	rq.count--
	t.next = noTask
	t.enqueued = false
	if rq.count == 0 {
		q.bitmap &^= 1 << uint(level)
	}
	return t
}

// highestLevel reports the best non-empty priority level, false if all
// levels are empty.
func (q *runQueueSet) highestLevel() (int, bool) {
	if q.bitmap == 0 {
		return 0, false
	}
	return bits.TrailingZeros64(q.bitmap), true
}

// readyCount sums the per-level counts. Diagnostics only.
func (q *runQueueSet) readyCount() int {
	n := 0
	for i := range q.levels {
		n += q.levels[i].count
	}
	return n
}
