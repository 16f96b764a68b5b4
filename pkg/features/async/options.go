package async

import "time"

// Option configures an async value at construction time.
type Option[T any] func(*options[T])

type options[T any] struct {
	name       string
	retryCount int
	retryDelay time.Duration
	onSuccess  func(T)
	onError    func(error)
}

// WithName labels the underlying signal for cycle chains and fault reports.
func WithName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// WithRetry retries a failing operation up to count extra times, waiting
// delay between attempts. Retries stop early when the operation's context
// is done or a newer operation supersedes this one.
func WithRetry[T any](count int, delay time.Duration) Option[T] {
	return func(o *options[T]) {
		if count > 0 {
			o.retryCount = count
		}
		o.retryDelay = delay
	}
}

// OnSuccess registers a callback invoked after a Ready transition from a
// completed operation. Manual EmitData does not invoke it.
func OnSuccess[T any](fn func(T)) Option[T] {
	return func(o *options[T]) {
		o.onSuccess = fn
	}
}

// OnError registers a callback invoked after a Failed transition from a
// completed operation. Manual EmitError does not invoke it.
func OnError[T any](fn func(error)) Option[T] {
	return func(o *options[T]) {
		o.onError = fn
	}
}

func applyOptions[T any](opts []Option[T]) options[T] {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
