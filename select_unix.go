//go:build unix

package green

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultSelectInterval bounds a single poll(2) call made by
// WaitSelect, and so how late a context cancellation is noticed.
const DefaultSelectInterval = 100 * time.Millisecond

// SelectWaiter is a Handler that blocks the calling goroutine in
// poll(2) until the connection's socket is ready. It drives the
// operation to completion before returning, so the caller's next Poll
// reports PollOK.
//
// When ctx is cancelled and the connection implements Canceler, the
// server is asked to abort the operation and the waiter keeps polling
// until the connection reports the outcome. Without a Canceler the
// context error is returned.
type SelectWaiter struct {
	// Interval bounds a single poll(2) call. Zero means
	// DefaultSelectInterval.
	Interval time.Duration
}

// WaitSelect is a SelectWaiter with the default interval.
var WaitSelect WaitFunc = SelectWaiter{}.Wait

// Wait implements Handler.
func (w SelectWaiter) Wait(ctx context.Context, conn Conn, _ Cursor) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultSelectInterval
	}

	pollCtx := ctx
	for {
		state, err := conn.Poll()
		if err != nil {
			return err
		}

		var events int16
		switch state {
		case PollOK:
			return nil
		case PollRead:
			events = unix.POLLIN
		case PollWrite:
			events = unix.POLLOUT
		case PollError:
			return ErrPollFailed
		default:
			return &BadPollStateError{State: state}
		}

		fd, err := conn.Fileno()
		if err != nil {
			return err
		}

		err = pollFD(pollCtx, fd, events, interval)
		if err == nil {
			continue
		}
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			return err
		}
		c, ok := conn.(Canceler)
		if !ok {
			return err
		}
		if err := c.Cancel(); err != nil {
			return err
		}
		// Keep waiting, uncancelled, for the server to settle.
		pollCtx = context.WithoutCancel(ctx)
	}
}

// pollFD waits until fd reports one of events. It returns ctx.Err()
// once the context is done, checking it every interval.
func pollFD(ctx context.Context, fd int, events int16, interval time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	timeout := int(interval / time.Millisecond)
	if timeout <= 0 {
		timeout = 1
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fds[0].Revents = 0
		n, err := unix.Poll(fds, timeout)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return err
		case n > 0 && fds[0].Revents&unix.POLLNVAL != 0:
			return unix.EBADF
		case n > 0:
			// POLLERR and POLLHUP count as ready: the next Poll surfaces
			// the failure.
			return nil
		}
	}
}
