package coop

import (
	"context"
)

// taskContextKey is the key a Task is stored under in a context.
type taskContextKey struct{}

func withTaskContext(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskFromContext returns the task running with ctx.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	val, ok := ctx.Value(taskContextKey{}).(*Task)
	return val, ok
}

// MustTaskFromContext is TaskFromContext that panics when ctx does
// not belong to a task.
func MustTaskFromContext(ctx context.Context) *Task {
	val, ok := TaskFromContext(ctx)
	if !ok {
		panic("coop: task not found in context")
	}
	return val
}
