package coop

// flight is a call in progress whose result is shared with duplicate
// callers.
type flight struct {
	wg   WaitGroup
	val  any
	err  error
	dups int
}

// flightGroup deduplicates concurrent calls with the same key across
// the tasks of one schedule.
type flightGroup struct {
	m map[any]*flight
}

// Do runs fn once for all tasks calling it with key at the same time.
// Tasks arriving while the first call is in progress park and receive
// its result. shared reports whether the result went to more than one
// task.
func (t *Task) Do(key any, fn func() (any, error)) (v any, err error, shared bool) {
	t.Logf("DO %v", key)
	return t.flights.do(t, key, fn)
}

func (g *flightGroup) do(task *Task, key any, fn func() (any, error)) (any, error, bool) {
	if g.m == nil {
		g.m = make(map[any]*flight)
	}

	if f, ok := g.m[key]; ok {
		f.dups++
		f.wg.Wait(task)
		return f.val, f.err, true
	}

	f := new(flight)
	f.wg.Add(1)
	g.m[key] = f

	defer func() {
		if g.m[key] == f {
			delete(g.m, key)
		}
		f.wg.Done()
	}()

	f.val, f.err = fn()
	return f.val, f.err, f.dups > 0
}
