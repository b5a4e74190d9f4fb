package green

import "context"

// registryContextKey is the key a Registry is stored under in a
// context.
type registryContextKey struct{}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package-level
// functions.
func Default() *Registry {
	return defaultRegistry
}

// SetWaitHandler replaces the handler of the default registry.
func SetWaitHandler(h Handler) {
	defaultRegistry.SetWaitHandler(h)
}

// Green reports whether the default registry has a handler.
func Green() bool {
	return defaultRegistry.Green()
}

// Wait dispatches a wait through the default registry.
func Wait(ctx context.Context, conn Conn, cur Cursor) error {
	return defaultRegistry.Wait(ctx, conn, cur)
}

// WithRegistry returns a context carrying r. Networking code that
// looks its registry up with RegistryFromContext uses r instead of
// the default one.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryContextKey{}, r)
}

// RegistryFromContext returns the registry stored in ctx, or the
// default registry when there is none.
func RegistryFromContext(ctx context.Context) *Registry {
	if r, ok := ctx.Value(registryContextKey{}).(*Registry); ok && r != nil {
		return r
	}
	return defaultRegistry
}
