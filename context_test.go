package green

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryFromContext(t *testing.T) {
	r := require.New(t)

	r.Same(Default(), RegistryFromContext(context.Background()))

	reg := NewRegistry()
	ctx := WithRegistry(context.Background(), reg)
	r.Same(reg, RegistryFromContext(ctx))

	ctx = WithRegistry(ctx, nil)
	r.Same(Default(), RegistryFromContext(ctx))
}

func TestScopedRegistryIsolated(t *testing.T) {
	r := require.New(t)

	reg := NewRegistry()
	reg.SetWaitHandler(new(recorder))

	r.True(RegistryFromContext(WithRegistry(context.Background(), reg)).Green())
	r.False(Green())
}

func TestDefaultRegistry(t *testing.T) {
	r := require.New(t)
	t.Cleanup(func() { SetWaitHandler(nil) })

	r.False(Green())
	r.ErrorIs(Wait(context.Background(), new(fakeConn), nil), ErrNoWaitHandler)

	h := new(recorder)
	SetWaitHandler(h)
	r.True(Green())
	r.True(Default().Green())

	conn := new(fakeConn)
	r.NoError(Wait(context.Background(), conn, nil))
	r.Len(h.calls, 1)
	r.Same(conn, h.calls[0].conn)

	SetWaitHandler(nil)
	r.False(Green())
	r.ErrorIs(Wait(context.Background(), conn, nil), ErrNoWaitHandler)
}
