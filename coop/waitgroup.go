package coop

// WaitGroup waits for a collection of tasks to finish. Tasks call
// Add(1) when they start and Done when they finish. Other tasks call
// Wait to park until the counter drops to zero.
type WaitGroup struct {
	noCopy  noCopy
	v       int
	waiters waitQueue
}

// Add adds delta to the counter. When it reaches zero every waiting
// task is resumed. Add panics if the counter goes negative.
func (wg *WaitGroup) Add(delta int) {
	wg.v += delta

	if wg.v < 0 {
		panic("coop: negative WaitGroup counter")
	}

	if wg.v > 0 {
		return
	}

	// Pop the waiters first: a resumed task may Add and Wait again.
	var ready []*Task
	for {
		t, ok := wg.waiters.pop()
		if !ok {
			break
		}
		ready = append(ready, t)
	}
	for _, t := range ready {
		t.unpark()
	}
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait parks task until the counter is zero.
func (wg *WaitGroup) Wait(task *Task) {
	if wg.v == 0 {
		return
	}

	wg.waiters.park(task)
}
