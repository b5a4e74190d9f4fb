//go:build unix

package coop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) [2]int {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds
}

func TestPollReactorReady(t *testing.T) {
	r := require.New(t)

	fds := socketpair(t)
	reactor := &PollReactor{BatchSize: 1, Timeout: 5 * time.Millisecond}

	var readable, writable Readiness
	New(reactor).Run(func(_ context.Context, task *Task) {
		task.Go(func(_ context.Context, task *Task) {
			readable = task.Await(fds[0], Readable)
		})
		task.Go(func(_ context.Context, task *Task) {
			writable = task.Await(fds[1], Writable)
			// Wake the reader only after it has been polled a few times.
			time.Sleep(20 * time.Millisecond)
			_, err := unix.Write(fds[1], []byte{1})
			r.NoError(err)
		})
	}).Resume(context.Background())

	r.NoError(writable.Err)
	r.Equal(Writable, writable.Ready)
	r.NoError(readable.Err)
	r.Equal(Readable, readable.Ready)
}

func TestPollReactorDeadline(t *testing.T) {
	r := require.New(t)

	fds := socketpair(t)
	reactor := &PollReactor{Timeout: 5 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var got Readiness
	New(reactor).Run(func(_ context.Context, task *Task) {
		got = task.Await(fds[0], Readable)
	}).Resume(ctx)

	r.ErrorIs(got.Err, context.DeadlineExceeded)
}

func TestPollReactorBadDescriptor(t *testing.T) {
	r := require.New(t)

	var got Readiness
	New(new(PollReactor)).Run(func(_ context.Context, task *Task) {
		got = task.Await(1<<20, Readable)
	}).Resume(context.Background())

	r.ErrorIs(got.Err, unix.EBADF)
}

func TestPollReactorHangup(t *testing.T) {
	r := require.New(t)

	fds := socketpair(t)
	r.NoError(unix.Shutdown(fds[1], unix.SHUT_WR))

	var got Readiness
	New(new(PollReactor)).Run(func(_ context.Context, task *Task) {
		got = task.Await(fds[0], Readable)
	}).Resume(context.Background())

	r.NoError(got.Err)
	r.Equal(Readable, got.Ready)
}

func TestPollReactorRequestContext(t *testing.T) {
	r := require.New(t)

	fds := socketpair(t)
	reactor := &PollReactor{Timeout: 5 * time.Millisecond}

	// The schedule's deadline passes before the reader is woken.
	root, cancelRoot := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelRoot()
	wctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var canceled, detached Readiness
	start := time.Now()
	New(reactor).Run(func(_ context.Context, task *Task) {
		task.Go(func(_ context.Context, task *Task) {
			canceled = task.AwaitContext(wctx, fds[0], Readable)
			_, err := unix.Write(fds[0], []byte{1})
			r.NoError(err)
		})
		task.Go(func(ctx context.Context, task *Task) {
			detached = task.AwaitContext(context.WithoutCancel(ctx), fds[1], Readable)
		})
	}).Resume(root)

	r.ErrorIs(canceled.Err, context.DeadlineExceeded)
	r.NoError(detached.Err)
	r.Equal(Readable, detached.Ready)
	r.Less(time.Since(start), 500*time.Millisecond)
}

func TestPollReactorDoneBeforeAwait(t *testing.T) {
	r := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got Readiness
	New(new(PollReactor)).Run(func(_ context.Context, task *Task) {
		got = task.AwaitContext(ctx, 1<<20, Readable)
	}).Resume(context.Background())

	r.ErrorIs(got.Err, context.Canceled)
}

func TestPollTimeout(t *testing.T) {
	r := require.New(t)

	r.Equal(50, pollTimeout(0, DefaultPollTimeout))
	r.Equal(1, pollTimeout(100*time.Microsecond, DefaultPollTimeout))
	r.Equal(5, pollTimeout(5*time.Millisecond, DefaultPollTimeout))
}
