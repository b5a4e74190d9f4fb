//go:build unix

package coop

import (
	"context"
	"errors"
	"slices"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultBatchSize is the number of descriptors polled by a single
	// poll(2) call.
	DefaultBatchSize = 64
	// DefaultPollTimeout bounds a single poll(2) call. Requests still
	// not ready afterwards are retried with the next round.
	DefaultPollTimeout = 50 * time.Millisecond
)

// PollReactor resolves readiness requests with poll(2). Requests are
// split into batches of BatchSize, each polled on its own goroutine.
type PollReactor struct {
	BatchSize int
	Timeout   time.Duration
}

// Dispatch implements Reactor.
func (p *PollReactor) Dispatch(
	ctx context.Context,
	sema chan struct{},
	reqs []*Request,
	resp chan<- *Batch,
) {
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for chunk := range slices.Chunk(reqs, size) {
		batch := NewBatch(chunk...)
		go func() {
			sema <- struct{}{}
			defer func() { <-sema }()
			p.poll(ctx, batch)
			resp <- batch.Validate()
		}()
	}
}

func (p *PollReactor) poll(ctx context.Context, batch *Batch) {
	// idx maps a polled descriptor back to its request.
	fds := make([]unix.PollFd, 0, len(batch.requests))
	idx := make([]int, 0, len(batch.requests))
	for i, req := range batch.requests {
		rctx := req.ctx
		if rctx == nil {
			rctx = ctx
		}
		if err := rctx.Err(); err != nil {
			batch.SetFailed(i, err)
			continue
		}
		fds = append(fds, unix.PollFd{Fd: int32(req.fd), Events: pollEvents(req.interest)})
		idx = append(idx, i)
	}
	if len(fds) == 0 {
		return
	}

	_, err := unix.Poll(fds, pollTimeout(p.Timeout, DefaultPollTimeout))
	if err != nil {
		for _, i := range idx {
			if errors.Is(err, unix.EINTR) {
				batch.SetRetry(i)
			} else {
				batch.SetFailed(i, err)
			}
		}
		return
	}

	for j, fd := range fds {
		i := idx[j]
		switch {
		case fd.Revents&unix.POLLNVAL != 0:
			batch.SetFailed(i, unix.EBADF)
		case fd.Revents != 0:
			batch.SetReady(i, readyFrom(fd.Revents, batch.requests[i].interest))
		default:
			batch.SetRetry(i)
		}
	}
}

// pollTimeout converts d to poll(2) milliseconds. Zero or negative d
// means def; anything shorter than a millisecond rounds up to one so
// the call still blocks.
func pollTimeout(d, def time.Duration) int {
	if d <= 0 {
		d = def
	}
	return max(int(d/time.Millisecond), 1)
}

func pollEvents(i Interest) int16 {
	var ev int16
	if i&Readable != 0 {
		ev |= unix.POLLIN
	}
	if i&Writable != 0 {
		ev |= unix.POLLOUT
	}
	return ev
}

// readyFrom maps revents back to an Interest. Errors and hangups wake
// every interest so the next operation on the socket reports them.
func readyFrom(revents int16, want Interest) Interest {
	if revents&(unix.POLLERR|unix.POLLHUP) != 0 {
		return want
	}
	var ready Interest
	if revents&unix.POLLIN != 0 {
		ready |= Readable
	}
	if revents&unix.POLLOUT != 0 {
		ready |= Writable
	}
	return ready
}
