// Package coop is a cooperative scheduler that multiplexes many
// database operations onto one flow of execution. It plugs into the
// green package as a wait handler: when a connection is not ready, the
// calling task is parked and the scheduler runs other tasks until a
// reactor reports the socket ready.
//
// Key components:
//
//   - Task: a coroutine-backed unit of work. Tasks spawn child tasks,
//     park on socket readiness with Await and wait for their children.
//
//   - Schedule: owns the reactor and the concurrency limit for
//     readiness polling, and runs a root task to completion.
//
//   - Reactor: resolves batches of readiness requests. PollReactor
//     does it with poll(2).
//
//   - Handler: the green.Handler that bridges a registry to the task
//     found in the wait's context.
//
//   - Synchronization primitives: Mutex, WaitGroup, ErrGroup and
//     Task.Do for coordinating tasks without blocking the thread.
package coop
