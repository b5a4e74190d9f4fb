package coop

import "github.com/gammazero/deque"

// waitQueue is a FIFO of tasks parked on a synchronization primitive.
type waitQueue struct {
	noCopy noCopy
	w      deque.Deque[*Task]
}

// park queues t and suspends it until another task pops and unparks
// it.
func (q *waitQueue) park(t *Task) {
	q.w.PushBack(t)
	t.park()
}

// pop removes the longest waiting task.
func (q *waitQueue) pop() (*Task, bool) {
	if q.w.Len() == 0 {
		return nil, false
	}
	return q.w.PopFront(), true
}

func (q *waitQueue) len() int {
	return q.w.Len()
}
