package coop

import (
	"context"
	"fmt"
	"runtime/trace"
	"strings"

	"github.com/webriots/coro"
)

const (
	taskTraceTaskType   = "coop-task"
	taskTraceRegionType = "coop-region"
	taskTraceCategory   = "coop"
)

// Task is a coroutine scheduled by a Schedule. Only one task of a
// schedule runs at a time; a task gives up control when it parks in
// Await, Wait or one of the synchronization primitives.
type Task struct {
	ctx      context.Context
	suspend  func() Readiness
	resume   func(Readiness) (struct{}, bool)
	cancel   func()
	queue    *requestQueue
	flights  *flightGroup
	parent   *Task
	children int
	waiting  bool
}

func loop(
	ctx context.Context,
	fn func(context.Context, *Task),
	sched *Schedule,
) {
	var tracer *trace.Task

	ctx, tracer = trace.NewTask(ctx, taskTraceTaskType)
	defer tracer.End()

	program := func(ctx context.Context, task *Task) {
		fn(ctx, task)
		task.Wait()
	}

	t := newTask(ctx, program, nil)
	defer t.cancel()

	trace.Log(ctx, taskTraceCategory, "LOOP")

	for t.start() {
		for pending := 0; t.queue.len() > 0 || pending > 0; {
			trace.Logf(ctx, taskTraceCategory, "LOOP WAITS %v PENDING %v", t.queue.len(), pending)

			if t.queue.len() > 0 {
				sched.reactor.Dispatch(t.ctx, sched.sema, t.queue.requests, sched.responses)
			}

			pending += t.queue.len()
			t.queue.reset()
			batch := <-sched.responses

		again:
			batch.Validate()
			pending -= batch.Len()
			t.queue.add(batch.retries...)

			for _, resp := range batch.responses {
				task := resp.req.task
				task.Log("READY")
				task.run(resp.out)
			}

			select {
			case batch = <-sched.responses:
				goto again
			default:
			}
		}
	}

	if t.children > 0 {
		panic("coop: root task finished with running children")
	}

	trace.Log(ctx, taskTraceCategory, "LOOP DONE")
}

func newTask(
	ctx context.Context,
	fn func(context.Context, *Task),
	parent *Task,
) *Task {
	task := &Task{parent: parent}

	if parent == nil {
		task.queue = new(requestQueue)
		task.flights = new(flightGroup)
	} else {
		task.queue = parent.queue
		task.flights = parent.flights
		parent.children++
	}

	task.ctx = withTaskContext(ctx, task)

	resume, cancel := coro.New(
		func(_ func(struct{}) Readiness, suspend func() Readiness) (z struct{}) {
			region := trace.StartRegion(task.ctx, taskTraceRegionType)

			defer func() {
				if task.parent != nil {
					task.parent.children--
				}
				region.End()
			}()

			task.suspend = suspend
			fn(task.ctx, task)
			return
		},
	)

	task.resume = resume
	task.cancel = cancel
	return task
}

// Context returns the task's context.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Go starts fn as a child task using the task's context. The child
// runs until it first parks before Go returns.
func (t *Task) Go(fn func(context.Context, *Task)) {
	t.spawn(t.ctx, fn)
}

func (t *Task) spawn(ctx context.Context, fn func(context.Context, *Task)) {
	child := newTask(ctx, fn, t)
	child.Log("GO")
	child.start()
}

// Await parks the task until fd shows one of the conditions in
// interest, or the wait fails. The wait fails with the task context's
// error once it is done.
func (t *Task) Await(fd int, interest Interest) Readiness {
	return t.AwaitContext(t.ctx, fd, interest)
}

// AwaitContext is Await bounded by ctx instead of the task's context.
func (t *Task) AwaitContext(ctx context.Context, fd int, interest Interest) Readiness {
	t.Logf("AWAIT fd=%d %v", fd, interest)

	if err := ctx.Err(); err != nil {
		return Readiness{Err: err}
	}

	t.queue.add(&Request{ctx: ctx, task: t, fd: fd, interest: interest})
	return t.suspend()
}

// Group returns a new ErrGroup whose tasks are children of t.
func (t *Task) Group() *ErrGroup {
	return newErrGroup(t)
}

// Wait parks the task until all of its children have finished.
func (t *Task) Wait() {
	t.Log("WAIT")

	if t.children > 0 {
		t.waiting = true
		t.suspend()
		t.waiting = false
	}
}

// run resumes the task with r. When this finishes the task and its
// parent is parked in Wait for its last child, the parent is resumed
// too.
func (t *Task) run(r Readiness) {
	t.Log("RUN")

	if _, ok := t.resume(r); ok {
		return
	}

	if p := t.parent; p != nil && p.waiting && p.children == 0 {
		p.wake()
	}
}

// start resumes the task for the first time and reports whether it is
// still running.
func (t *Task) start() bool {
	_, ok := t.resume(Readiness{})
	return ok
}

func (t *Task) wake() {
	t.run(Readiness{})
}

// park suspends a task queued by one of the synchronization
// primitives until unpark.
func (t *Task) park() {
	t.suspend()
}

func (t *Task) unpark() {
	t.wake()
}

// Log writes msg to the execution trace, prefixed with the task path.
func (t *Task) Log(msg string) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		sb.WriteString(msg)
		trace.Log(t.ctx, taskTraceCategory, sb.String())
	}
}

// Logf is Log with formatting.
func (t *Task) Logf(format string, args ...any) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		fmt.Fprintf(&sb, format, args...)
		trace.Log(t.ctx, taskTraceCategory, sb.String())
	}
}

func taskpath(sb *strings.Builder, t *Task) {
	if t == nil {
		return
	}
	taskpath(sb, t.parent)
	fmt.Fprintf(sb, "%p|", t)
}
