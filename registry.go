package green

import (
	"context"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler performs a cooperative wait on behalf of the client. Wait
// must return once the operation on conn should be retried, or fail
// with an error that aborts it. How the caller is parked meanwhile is
// up to the implementation.
type Handler interface {
	Wait(ctx context.Context, conn Conn, cur Cursor) error
}

// WaitFunc adapts an ordinary function to the Handler interface.
type WaitFunc func(ctx context.Context, conn Conn, cur Cursor) error

// Wait calls f(ctx, conn, cur).
func (f WaitFunc) Wait(ctx context.Context, conn Conn, cur Cursor) error {
	return f(ctx, conn, cur)
}

// slot owns the registered handler. A new slot is allocated on every
// change so a Wait that loaded the previous one keeps using it.
type slot struct {
	h Handler
}

// Registry holds at most one wait handler. All methods are safe for
// concurrent use. The zero value is an empty registry that does not
// log or record metrics.
type Registry struct {
	noCopy  noCopy
	cur     atomic.Pointer[slot]
	log     *zap.Logger
	metrics *Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger handler changes and failed waits are
// reported to.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics records dispatcher activity into m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetWaitHandler replaces the registered handler. A nil handler,
// including a nil WaitFunc or nil pointer wrapped in the interface,
// clears the registration and turns cooperative mode off. The change
// is seen by every Wait that starts afterwards; waits already in
// flight finish with the handler they started with.
func (r *Registry) SetWaitHandler(h Handler) {
	if isNil(h) {
		h = nil
	}

	var next *slot
	if h != nil {
		next = &slot{h: h}
	}
	prev := r.cur.Swap(next)

	r.metrics.handlerChanged(next != nil)
	switch {
	case next != nil:
		r.logger().Info("wait handler installed", zap.Bool("replaced", prev != nil))
	case prev != nil:
		r.logger().Info("wait handler cleared")
	}
}

// WaitHandler returns the registered handler, or nil.
func (r *Registry) WaitHandler() Handler {
	if s := r.cur.Load(); s != nil {
		return s.h
	}
	return nil
}

// Green reports whether a wait handler is registered.
func (r *Registry) Green() bool {
	return r.cur.Load() != nil
}

func isNil(h Handler) bool {
	if h == nil {
		return true
	}
	switch v := reflect.ValueOf(h); v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func (r *Registry) logger() *zap.Logger {
	if r.log == nil {
		return zap.NewNop()
	}
	return r.log
}
