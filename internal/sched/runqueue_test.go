package sched

import "testing"

// newRunQueueFixture builds a store and a four-level queue set with the
// scheduler lock held, released when the test ends.
func newRunQueueFixture(t *testing.T, capacity int) (*taskStore, *runQueueSet) {
	t.Helper()
	store := newTaskStore(capacity)
	lk := newSchedLock()
	tok := lk.Acquire()
	t.Cleanup(func() { lk.Release(tok) })
	return store, newRunQueueSet(4, store, lk)
}

// mkReady allocates one READY task per priority in order.
func mkReady(t *testing.T, store *taskStore, priorities ...int) []*TCB {
	t.Helper()
	tasks := make([]*TCB, 0, len(priorities))
	for _, p := range priorities {
		tcb, err := store.alloc()
		if err != nil {
			t.Fatalf("alloc: %v", err)
		}
		tcb.priority = p
		tcb.state = StateReady
		tasks = append(tasks, tcb)
	}
	return tasks
}

func TestRunQueuePriorityAndFIFOOrder(t *testing.T) {
	store, q := newRunQueueFixture(t, 8)

	// priorities [2,0,1,0] enqueued in that order must select as:
	// first prio-0 in, second prio-0 in, prio-1, prio-2
	tasks := mkReady(t, store, 2, 0, 1, 0)
	for _, tcb := range tasks {
		if !q.enqueue(tcb) {
			t.Fatalf("enqueue task %d failed", tcb.ID())
		}
	}

	want := []TaskID{tasks[1].ID(), tasks[3].ID(), tasks[2].ID(), tasks[0].ID()}
	for i, w := range want {
		got := q.selectNext()
		if got == nil {
			t.Fatalf("selectNext %d = nil, want task %d", i, w)
		}
		if got.ID() != w {
			t.Errorf("selectNext %d = task %d, want task %d", i, got.ID(), w)
		}
	}
	if q.selectNext() != nil {
		t.Error("selectNext on empty set should be nil")
	}
}

func TestRunQueueDoubleEnqueue(t *testing.T) {
	store, q := newRunQueueFixture(t, 4)
	tasks := mkReady(t, store, 1)

	if !q.enqueue(tasks[0]) {
		t.Fatal("first enqueue failed")
	}
	if q.enqueue(tasks[0]) {
		t.Error("second enqueue of the same task should fail silently")
	}
	if q.readyCount() != 1 {
		t.Errorf("readyCount = %d, want 1", q.readyCount())
	}
}

func TestRunQueueDequeue(t *testing.T) {
	store, q := newRunQueueFixture(t, 8)
	tasks := mkReady(t, store, 1, 1, 1)
	for _, tcb := range tasks {
		q.enqueue(tcb)
	}

	// middle removal keeps FIFO order of the rest
	if !q.dequeue(tasks[1]) {
		t.Fatal("dequeue of an enqueued task failed")
	}
	if q.dequeue(tasks[1]) {
		t.Error("dequeue of an absent task should return false")
	}
	if q.readyCount() != 2 {
		t.Errorf("readyCount = %d, want 2", q.readyCount())
	}

	if got := q.selectNext(); got.ID() != tasks[0].ID() {
		t.Errorf("selectNext = task %d, want task %d", got.ID(), tasks[0].ID())
	}
	if got := q.selectNext(); got.ID() != tasks[2].ID() {
		t.Errorf("selectNext = task %d, want task %d", got.ID(), tasks[2].ID())
	}
}

func TestRunQueueDequeueHeadAndTail(t *testing.T) {
	store, q := newRunQueueFixture(t, 8)
	tasks := mkReady(t, store, 0, 0, 0)
	for _, tcb := range tasks {
		q.enqueue(tcb)
	}

	q.dequeue(tasks[0]) // head
	q.dequeue(tasks[2]) // tail
	if got := q.selectNext(); got.ID() != tasks[1].ID() {
		t.Errorf("selectNext = task %d, want task %d", got.ID(), tasks[1].ID())
	}

	// tail must be reset so a fresh enqueue links correctly
	q.enqueue(tasks[0])
	q.enqueue(tasks[2])
	if got := q.selectNext(); got.ID() != tasks[0].ID() {
		t.Errorf("after relink selectNext = task %d, want task %d", got.ID(), tasks[0].ID())
	}
}

func TestRunQueueHighestLevel(t *testing.T) {
	store, q := newRunQueueFixture(t, 8)

	if _, ok := q.highestLevel(); ok {
		t.Error("highestLevel on empty set should report false")
	}

	tasks := mkReady(t, store, 3, 2)
	q.enqueue(tasks[0])
	if level, ok := q.highestLevel(); !ok || level != 3 {
		t.Errorf("highestLevel = %d,%v, want 3,true", level, ok)
	}
	q.enqueue(tasks[1])
	if level, ok := q.highestLevel(); !ok || level != 2 {
		t.Errorf("highestLevel = %d,%v, want 2,true", level, ok)
	}

	q.dequeue(tasks[1])
	if level, ok := q.highestLevel(); !ok || level != 3 {
		t.Errorf("highestLevel after dequeue = %d,%v, want 3,true", level, ok)
	}
}

func TestRunQueueMembershipExclusive(t *testing.T) {
	store, q := newRunQueueFixture(t, 8)
	tasks := mkReady(t, store, 0, 1, 2, 3)

	for _, tcb := range tasks {
		q.enqueue(tcb)
	}
	if q.readyCount() != 4 {
		t.Fatalf("readyCount = %d, want 4", q.readyCount())
	}
	for range tasks {
		tcb := q.selectNext()
		if tcb.enqueued {
			t.Errorf("task %d still flagged enqueued after selection", tcb.ID())
		}
	}
	if q.readyCount() != 0 {
		t.Errorf("readyCount = %d, want 0", q.readyCount())
	}
}

func TestRunQueueRequiresLock(t *testing.T) {
	store := newTaskStore(4)
	q := newRunQueueSet(4, store, newSchedLock())
	tasks := mkReady(t, store, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("enqueue without the scheduler lock did not halt")
		}
	}()
	q.enqueue(tasks[0])
}
