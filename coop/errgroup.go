package coop

import "context"

// ErrGroup runs child tasks and collects the first error among them.
// The first failure cancels the context shared by the group.
type ErrGroup struct {
	task   *Task
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     WaitGroup
	err    error
}

func newErrGroup(task *Task) *ErrGroup {
	ctx, cancel := context.WithCancelCause(task.ctx)
	return &ErrGroup{task: task, ctx: ctx, cancel: cancel}
}

// Go starts f as a child task running with the group's context. The
// child's Task is available through TaskFromContext.
func (g *ErrGroup) Go(f func(context.Context) error) {
	g.wg.Add(1)
	g.task.spawn(g.ctx, func(ctx context.Context, _ *Task) {
		defer g.wg.Done()
		if err := f(ctx); err != nil && g.err == nil {
			g.err = err
			g.cancel(err)
		}
	})
}

// Wait parks task until every function started with Go has returned,
// then returns the first error.
func (g *ErrGroup) Wait(task *Task) error {
	g.wg.Wait(task)
	g.cancel(g.err)
	return g.err
}
