package coop

// Mutex provides mutual exclusion between tasks of one schedule. A
// task that finds it locked is parked; Unlock hands the lock directly
// to the longest waiting task.
//
// A database connection runs one operation at a time, so tasks that
// share a connection hold its Mutex around each query.
type Mutex struct {
	noCopy  noCopy
	owner   *Task
	waiters waitQueue
}

// Lock acquires the mutex for task, parking it while another task
// holds it.
func (m *Mutex) Lock(task *Task) {
	if m.owner == nil {
		m.owner = task
		return
	}

	task.Log("LOCK WAIT")
	m.waiters.park(task)
}

// Unlock releases the mutex. The next waiter, if any, becomes the
// owner and runs before Unlock returns.
func (m *Mutex) Unlock() {
	if m.owner == nil {
		panic("coop: unlock of unlocked mutex")
	}

	next, ok := m.waiters.pop()
	m.owner = next
	if ok {
		next.unpark()
	}
}

// WaitCount returns the number of tasks waiting to acquire the mutex.
func (m *Mutex) WaitCount() int {
	return m.waiters.len()
}
