package green

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeConn struct {
	fd     int
	states []PollState
	err    error
	polls  int
}

func (c *fakeConn) Fileno() (int, error) {
	return c.fd, nil
}

func (c *fakeConn) Poll() (PollState, error) {
	c.polls++
	if c.err != nil {
		return PollError, c.err
	}
	if len(c.states) == 0 {
		return PollOK, nil
	}
	s := c.states[0]
	c.states = c.states[1:]
	return s, nil
}

type fakeCursor struct {
	op string
}

func (c *fakeCursor) Operation() string {
	return c.op
}

type call struct {
	conn Conn
	cur  Cursor
}

// recorder is a handler that remembers its calls and returns err.
type recorder struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (h *recorder) Wait(_ context.Context, conn Conn, cur Cursor) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call{conn: conn, cur: cur})
	return h.err
}

func TestRegistryGreenFollowsLastSet(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	r.False(reg.Green())
	r.Nil(reg.WaitHandler())

	h1, h2 := new(recorder), new(recorder)

	reg.SetWaitHandler(h1)
	r.True(reg.Green())
	r.Same(h1, reg.WaitHandler())

	reg.SetWaitHandler(h2)
	r.True(reg.Green())
	r.Same(h2, reg.WaitHandler())

	reg.SetWaitHandler(nil)
	r.False(reg.Green())
	r.Nil(reg.WaitHandler())

	reg.SetWaitHandler(nil)
	r.False(reg.Green())

	reg.SetWaitHandler(h1)
	r.True(reg.Green())
}

func TestRegistryNilWaitFuncClears(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	reg.SetWaitHandler(new(recorder))
	r.True(reg.Green())

	var f WaitFunc
	reg.SetWaitHandler(f)
	r.False(reg.Green())
	r.ErrorIs(reg.Wait(context.Background(), new(fakeConn), nil), ErrNoWaitHandler)
}

func TestRegistryNilPointerClears(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	reg.SetWaitHandler(new(recorder))
	r.True(reg.Green())

	var h *recorder
	reg.SetWaitHandler(h)
	r.False(reg.Green())
	r.Nil(reg.WaitHandler())
	r.ErrorIs(reg.Wait(context.Background(), new(fakeConn), nil), ErrNoWaitHandler)
}

func TestRegistryZeroValue(t *testing.T) {
	r := require.New(t)

	var reg Registry
	r.False(reg.Green())
	r.ErrorIs(reg.Wait(context.Background(), new(fakeConn), nil), ErrNoWaitHandler)

	h := new(recorder)
	reg.SetWaitHandler(h)
	r.NoError(reg.Wait(context.Background(), new(fakeConn), nil))
	r.Len(h.calls, 1)
}

func TestRegistryLogsHandlerChanges(t *testing.T) {
	r := require.New(t)

	core, logs := observer.New(zapcore.InfoLevel)
	reg := NewRegistry(WithLogger(zap.New(core)))

	reg.SetWaitHandler(nil)
	r.Equal(0, logs.Len())

	reg.SetWaitHandler(new(recorder))
	reg.SetWaitHandler(new(recorder))
	reg.SetWaitHandler(nil)

	entries := logs.AllUntimed()
	r.Len(entries, 3)
	r.Equal("wait handler installed", entries[0].Message)
	r.Equal(false, entries[0].ContextMap()["replaced"])
	r.Equal("wait handler installed", entries[1].Message)
	r.Equal(true, entries[1].ContextMap()["replaced"])
	r.Equal("wait handler cleared", entries[2].Message)
}

func TestRegistryConcurrentSwap(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	errA, errB := errors.New("a"), errors.New("b")
	ha := WaitFunc(func(context.Context, Conn, Cursor) error { return errA })
	hb := WaitFunc(func(context.Context, Conn, Cursor) error { return errB })
	reg.SetWaitHandler(ha)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if j%2 == 0 {
					reg.SetWaitHandler(hb)
				} else {
					reg.SetWaitHandler(ha)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				err := reg.Wait(context.Background(), new(fakeConn), nil)
				if err != errA && err != errB {
					t.Errorf("unexpected wait result %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	r.True(reg.Green())
}
