package coop

import (
	"context"
	"errors"

	"github.com/webriots/green"
)

// ErrNoTask is returned by Handler when the wait's context does not
// belong to a task of a running schedule.
var ErrNoTask = errors.New("coop: wait outside of a task")

// Handler returns a green.Handler that parks the task found in the
// wait's context until the connection's socket is ready, letting the
// schedule run other tasks meanwhile. It returns after one readiness
// event; the caller polls the connection again.
//
// When the wait's context is done and the connection implements
// green.Canceler, the operation is cancelled and the task stays parked,
// uncancelled, until the connection settles. Without a Canceler the
// context error is returned.
func Handler() green.Handler {
	return green.WaitFunc(wait)
}

func wait(ctx context.Context, conn green.Conn, cur green.Cursor) error {
	task, ok := TaskFromContext(ctx)
	if !ok {
		return ErrNoTask
	}

	if cur != nil {
		task.Logf("WAIT %s", cur.Operation())
	}

	canceled := false
	for {
		state, err := conn.Poll()
		if err != nil {
			return err
		}

		var interest Interest
		switch state {
		case green.PollOK:
			return nil
		case green.PollRead:
			interest = Readable
		case green.PollWrite:
			interest = Writable
		case green.PollError:
			return green.ErrPollFailed
		default:
			return &green.BadPollStateError{State: state}
		}

		if !canceled {
			if err := ctx.Err(); err != nil {
				if err := cancelOp(conn, err); err != nil {
					return err
				}
				canceled = true
				continue
			}
		}

		fd, err := conn.Fileno()
		if err != nil {
			return err
		}

		actx := ctx
		if canceled {
			actx = context.WithoutCancel(ctx)
		}

		ready := task.AwaitContext(actx, fd, interest)
		switch {
		case ready.Err == nil:
			if !canceled {
				return nil
			}
		case canceled || !errors.Is(ready.Err, ctx.Err()):
			return ready.Err
		}
	}
}

// cancelOp asks conn to abort its operation after the wait's context
// ended with cause. It returns cause when conn cannot be cancelled.
func cancelOp(conn green.Conn, cause error) error {
	c, ok := conn.(green.Canceler)
	if !ok {
		return cause
	}
	return c.Cancel()
}
