package green

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Wait hands the wait for conn to the registered handler and returns
// whatever error it returns, unchanged. The handler is called on the
// calling goroutine and no lock is held while it runs, so waits on
// unrelated connections proceed in parallel.
//
// Callers are expected to check Green first. Without a handler Wait
// fails immediately with ErrNoWaitHandler.
func (r *Registry) Wait(ctx context.Context, conn Conn, cur Cursor) error {
	s := r.cur.Load()
	if s == nil {
		r.metrics.waitDone(waitNoHandler, 0)
		r.logger().Debug("wait without handler", zap.String("operation", operation(cur)))
		return ErrNoWaitHandler
	}

	start := time.Now()
	err := s.h.Wait(ctx, conn, cur)
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.waitDone(waitFailed, elapsed)
		r.logger().Debug("wait handler failed",
			zap.String("operation", operation(cur)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return err
	}

	r.metrics.waitDone(waitOK, elapsed)
	return nil
}

// Drive runs the asynchronous operation in progress on conn to
// completion. Every time Poll reports the socket is not ready the wait
// is dispatched through r, then Poll is called again. Drive returns
// nil once Poll reports PollOK, and the first error otherwise.
func (r *Registry) Drive(ctx context.Context, conn Conn, cur Cursor) error {
	for {
		state, err := conn.Poll()
		if err != nil {
			return err
		}

		switch state {
		case PollOK:
			return nil
		case PollRead, PollWrite:
			if err := r.Wait(ctx, conn, cur); err != nil {
				return err
			}
		case PollError:
			return ErrPollFailed
		default:
			return &BadPollStateError{State: state}
		}
	}
}
