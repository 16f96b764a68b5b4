package ripple

// Option configures a container at construction time.
type Option[T any] func(*config[T])

// config collects construction-time settings shared by Observable,
// Reactive, and Derived.
type config[T any] struct {
	equal        func(T, T) bool
	guard        func(current, next T) T
	onActivate   func()
	onDeactivate func()
	name         string
	outBuffer    int
}

// WithEquals sets a custom equality function. Equality decides whether a
// proposed value is a change worth storing and notifying; the default is
// Equals.
func WithEquals[T any](fn func(a, b T) bool) Option[T] {
	return func(c *config[T]) {
		c.equal = fn
	}
}

// WithGuard sets a pre-store transform applied to every proposed value
// before the equality check. The guard receives the current and proposed
// values and returns the candidate to store, e.g. clamping to a range.
//
// Guards are assumed pure. A guard with side effects is a caller bug; the
// engine does not detect it. A panicking guard is absorbed, reported to the
// fault handler, and leaves the container unchanged.
func WithGuard[T any](fn func(current, next T) T) Option[T] {
	return func(c *config[T]) {
		c.guard = fn
	}
}

// OnActivate registers a hook that fires when the listener count goes from
// zero to one. Used for lazy resource acquisition.
func OnActivate[T any](fn func()) Option[T] {
	return func(c *config[T]) {
		c.onActivate = fn
	}
}

// OnDeactivate registers a hook that fires when the listener count returns
// to zero and when an active container is disposed.
func OnDeactivate[T any](fn func()) Option[T] {
	return func(c *config[T]) {
		c.onDeactivate = fn
	}
}

// WithName labels the container for cycle chains and fault reports.
// Unnamed containers get a generated "kind#id" label.
func WithName[T any](name string) Option[T] {
	return func(c *config[T]) {
		c.name = name
	}
}

// WithOutBuffer sets the buffer size of a Reactive's output channel
// (default 16). Ignored by other containers.
func WithOutBuffer[T any](n int) Option[T] {
	return func(c *config[T]) {
		if n > 0 {
			c.outBuffer = n
		}
	}
}

// applyOptions applies opts and returns the resulting config.
func applyOptions[T any](opts []Option[T]) config[T] {
	var c config[T]
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
