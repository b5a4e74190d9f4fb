package coop

import (
	"context"
)

const (
	// DefaultConcurrency is the default number of readiness batches
	// that may be polled at once.
	DefaultConcurrency = 128
)

// Schedule runs tasks against a reactor.
type Schedule struct {
	reactor   Reactor
	responses chan *Batch
	sema      chan struct{}
}

// Option configures a Schedule.
type Option func(*scheduleConfig)

type scheduleConfig struct {
	concurrency int
}

// WithConcurrency limits the number of readiness batches polled at
// once. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(c *scheduleConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New returns a Schedule that resolves readiness through reactor.
func New(reactor Reactor, opts ...Option) *Schedule {
	cfg := scheduleConfig{concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(&cfg)
	}
	return &Schedule{
		reactor:   reactor,
		responses: make(chan *Batch, cfg.concurrency),
		sema:      make(chan struct{}, cfg.concurrency),
	}
}

// Resumable is a root task waiting to be run.
type Resumable struct {
	fn    func(context.Context, *Task)
	sched *Schedule
}

// Run prepares fn as the root task of the schedule.
func (s *Schedule) Run(fn func(context.Context, *Task)) *Resumable {
	return &Resumable{fn: fn, sched: s}
}

// Go prepares a root task that does not need its Task handle. The
// task is still reachable through TaskFromContext.
func (s *Schedule) Go(fn func(context.Context)) *Resumable {
	return s.Run(contextOnly(fn))
}

// Resume runs the root task and every task it spawns to completion,
// blocking the calling goroutine. Cancelling ctx fails pending
// readiness waits; tasks observe it through Await.
func (r *Resumable) Resume(ctx context.Context) {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop(rctx, r.fn, r.sched)
}

func contextOnly(fn func(context.Context)) func(context.Context, *Task) {
	return func(ctx context.Context, _ *Task) { fn(ctx) }
}
