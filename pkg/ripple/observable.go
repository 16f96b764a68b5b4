package ripple

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Readable is the read side shared by every container kind. Reading through
// it participates in dependency tracking.
type Readable[T any] interface {
	Get() T
}

// Observable is the base reactive value container. Every stored value has
// passed the guard-then-equality pipeline, and a disposed container never
// notifies again.
type Observable[T any] struct {
	base observableBase

	mu      sync.RWMutex
	value   T
	initial T
	prev    T
	hasPrev bool

	equal func(T, T) bool
	guard func(current, next T) T
}

// NewObservable creates an observable container holding initial.
func NewObservable[T any](initial T, opts ...Option[T]) *Observable[T] {
	o := &Observable[T]{}
	o.init(initial, "observable", applyOptions(opts))
	if obs := getObserver(); obs != nil {
		obs.ContainerCreated("observable")
	}
	return o
}

func (o *Observable[T]) init(initial T, kind string, cfg config[T]) {
	o.base.id = nextID()
	o.base.label = cfg.name
	if o.base.label == "" {
		o.base.label = fmt.Sprintf("%s#%d", kind, o.base.id)
	}
	o.base.onActivate = cfg.onActivate
	o.base.onDeactivate = cfg.onDeactivate
	o.value = initial
	o.initial = initial
	o.equal = cfg.equal
	o.guard = cfg.guard
}

// Get returns the current value. If a derived computation is collecting
// dependencies on this goroutine, the read registers this container with it.
func (o *Observable[T]) Get() T {
	track(&o.base)
	return o.Peek()
}

// Peek returns the current value without registering a dependency.
func (o *Observable[T]) Peek() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set runs the guard/equality pipeline and notifies listeners when the
// stored value actually changed. No-op after dispose.
func (o *Observable[T]) Set(v T) {
	if _, changed := o.set(v); changed {
		o.base.notify()
	}
}

// Update applies fn to the current value and sets the result.
func (o *Observable[T]) Update(fn func(T) T) {
	o.Set(fn(o.Peek()))
}

// set runs guard -> equality -> store. Returns the stored value and whether
// it changed. A panicking guard or equality function is absorbed, reported,
// and leaves the container on its pre-fault state.
func (o *Observable[T]) set(next T) (T, bool) {
	if o.base.isDisposed() {
		return o.Peek(), false
	}

	cur := o.Peek()
	candidate, ok := o.applyGuard(cur, next)
	if !ok {
		return cur, false
	}
	equal, ok := o.compare(cur, candidate)
	if !ok || equal {
		return cur, false
	}

	o.mu.Lock()
	o.prev = cur
	o.hasPrev = true
	o.value = candidate
	o.mu.Unlock()
	return candidate, true
}

func (o *Observable[T]) applyGuard(cur, next T) (out T, ok bool) {
	if o.guard == nil {
		return next, true
	}
	defer func() {
		if r := recover(); r != nil {
			reportFault(o.base.label+": guard panicked", asError(r), debug.Stack())
		}
	}()
	return o.guard(cur, next), true
}

func (o *Observable[T]) compare(a, b T) (equal bool, ok bool) {
	if o.equal == nil {
		return Equals(a, b), true
	}
	defer func() {
		if r := recover(); r != nil {
			reportFault(o.base.label+": equality panicked", asError(r), debug.Stack())
		}
	}()
	return o.equal(a, b), true
}

// Subscribe registers a listener invoked with the current value on every
// notification. The returned handle is required for Unsubscribe.
func (o *Observable[T]) Subscribe(l func(T)) *Subscription {
	return o.base.subscribe(func() {
		l(o.Peek())
	})
}

// Unsubscribe removes a previously subscribed listener. Unsubscribing the
// same handle twice is a no-op. Safe to call during a notification pass;
// the removed listener will not fire again.
func (o *Observable[T]) Unsubscribe(s *Subscription) {
	o.base.unsubscribe(s)
}

// Notify fires all listeners with the current value, regardless of whether
// it changed. Useful after in-place mutation of a referenced value.
func (o *Observable[T]) Notify() {
	o.base.notify()
}

// Reset routes the initial value back through the Set pipeline, so it
// notifies if the value actually changed.
func (o *Observable[T]) Reset() {
	o.Set(o.initial)
}

// Dispose clears the listener set and makes the container inert. Idempotent.
func (o *Observable[T]) Dispose() {
	if o.base.dispose() {
		if obs := getObserver(); obs != nil {
			obs.ContainerDisposed("observable")
		}
	}
}

// Disposed reports whether Dispose has been called.
func (o *Observable[T]) Disposed() bool {
	return o.base.isDisposed()
}

// Active reports whether the container currently has listeners.
func (o *Observable[T]) Active() bool {
	return o.base.isActive()
}

// Previous returns the value before the most recent change, and whether a
// change has happened at all.
func (o *Observable[T]) Previous() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.prev, o.hasPrev
}

// Initial returns the construction-time value.
func (o *Observable[T]) Initial() T {
	return o.initial
}

// ID returns the unique identifier for this container.
func (o *Observable[T]) ID() uint64 {
	return o.base.id
}

// Label returns the container's label as used in cycle chains and fault
// reports.
func (o *Observable[T]) Label() string {
	return o.base.label
}
