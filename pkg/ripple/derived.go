package ripple

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Derived is a computed value over other observables. Its dependency set is
// discovered by tracking reads during the computation, never declared.
//
// While it has no listeners a Derived is cold: it holds no dependency
// subscriptions and recomputes on every read. The first listener flips it
// hot: it recomputes, subscribes to every discovered dependency, and from
// then on recomputes eagerly whenever a dependency changes, notifying its
// own listeners only when the visible result changed. The last unsubscribe
// flips it back to cold and releases every dependency subscription.
type Derived[T any] struct {
	base observableBase

	compute func() T
	equal   func(T, T) bool

	mu       sync.RWMutex
	value    T
	hasValue bool
	errVal   any
	err      error
	trace    []byte
	stale    bool

	// depMu guards the live subscription set while hot.
	depMu   sync.Mutex
	deps    []*observableBase
	depSubs map[uint64]*Subscription
}

// NewDerived creates a derived value and computes it once eagerly, without
// taking any dependency subscriptions.
func NewDerived[T any](compute func() T, opts ...Option[T]) *Derived[T] {
	cfg := applyOptions(opts)
	d := &Derived[T]{
		compute: compute,
		equal:   cfg.equal,
	}
	d.base.id = nextID()
	d.base.label = cfg.name
	if d.base.label == "" {
		d.base.label = fmt.Sprintf("derived#%d", d.base.id)
	}

	userActivate := cfg.onActivate
	userDeactivate := cfg.onDeactivate
	d.base.onActivate = func() {
		d.goHot()
		if userActivate != nil {
			userActivate()
		}
	}
	d.base.onDeactivate = func() {
		d.goCold()
		if userDeactivate != nil {
			userDeactivate()
		}
	}

	if obs := getObserver(); obs != nil {
		obs.ContainerCreated("derived")
	}
	d.refresh(false)
	return d
}

// Select returns a read-only derived view computing fn over the parent's
// value. While cold it recomputes on every read; the cold-to-hot transition
// recomputes against the parent first (covering updates missed while cold)
// and only then subscribes.
func Select[T, U any](parent Readable[T], fn func(T) U, opts ...Option[U]) *Derived[U] {
	return NewDerived(func() U {
		return fn(parent.Get())
	}, opts...)
}

// Get returns the derived value, registering it as a dependency of any
// in-progress collection. Cold reads always recompute. If the last
// computation faulted and no prior good value exists, Get re-panics the
// fault; with a prior good value, that value is served and the fault stays
// reachable through HasErr and Err.
func (d *Derived[T]) Get() T {
	track(&d.base)
	return d.Peek()
}

// Peek is Get without the dependency registration.
func (d *Derived[T]) Peek() T {
	if !d.base.isDisposed() {
		if !d.base.isActive() {
			d.refresh(false)
		} else if d.isStale() {
			d.refresh(true)
		}
	}
	return d.result()
}

// Set always panics: derived values are pure functions of their
// dependencies.
func (d *Derived[T]) Set(T) {
	panic(ErrReadOnly)
}

// Subscribe registers a listener. The first listener flips the value hot.
func (d *Derived[T]) Subscribe(l func(T)) *Subscription {
	return d.base.subscribe(func() {
		l(d.Peek())
	})
}

// Unsubscribe removes a listener. The last removal flips the value cold.
func (d *Derived[T]) Unsubscribe(s *Subscription) {
	d.base.unsubscribe(s)
}

// HasErr reports whether the most recent computation faulted.
func (d *Derived[T]) HasErr() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.errVal != nil
}

// Err returns the most recent computation fault, or nil.
func (d *Derived[T]) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Dispose releases all dependency subscriptions and clears listeners.
// Idempotent.
func (d *Derived[T]) Dispose() {
	if d.base.dispose() {
		if obs := getObserver(); obs != nil {
			obs.ContainerDisposed("derived")
		}
	}
}

// Disposed reports whether Dispose has been called.
func (d *Derived[T]) Disposed() bool {
	return d.base.isDisposed()
}

// Active reports whether the derived value is hot.
func (d *Derived[T]) Active() bool {
	return d.base.isActive()
}

// ID returns the unique identifier for this container.
func (d *Derived[T]) ID() uint64 {
	return d.base.id
}

// Label returns the container's label.
func (d *Derived[T]) Label() string {
	return d.base.label
}

func (d *Derived[T]) isStale() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stale
}

// invalidate is the callback subscribed to every dependency while hot.
func (d *Derived[T]) invalidate() {
	d.mu.Lock()
	d.stale = true
	d.mu.Unlock()

	if !d.base.isActive() || d.base.isDisposed() {
		return
	}
	if d.refresh(true) {
		d.base.notify()
	}
}

// goHot recomputes and takes a subscription on every discovered dependency.
// Runs on the 0->1 listener transition.
func (d *Derived[T]) goHot() {
	d.refresh(true)
}

// goCold releases every dependency subscription and marks the cache stale
// so the next cold read is guaranteed fresh. Runs on the 1->0 listener
// transition and on dispose.
func (d *Derived[T]) goCold() {
	d.depMu.Lock()
	for _, dep := range d.deps {
		if sub := d.depSubs[dep.id]; sub != nil {
			dep.unsubscribe(sub)
		}
	}
	d.deps = nil
	d.depSubs = nil
	d.depMu.Unlock()

	d.mu.Lock()
	d.stale = true
	d.mu.Unlock()
}

// refresh recomputes through the tracker and stores the result. When live,
// it also re-diffs the dependency subscriptions, since the discovered set
// can change between computations. Returns whether the visible result
// (value per equality, or fault presence) changed.
//
// A panicking computation is cached as the error state; a *CycleError is
// re-panicked, never cached.
func (d *Derived[T]) refresh(live bool) bool {
	obs := getObserver()
	var start time.Time
	if obs != nil {
		start = time.Now()
	}

	var newValue T
	var recovered any
	var tr []byte
	deps := collect(d.base.id, d.base.label, func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*CycleError); ok {
					panic(r)
				}
				recovered = r
				tr = debug.Stack()
			}
		}()
		newValue = d.compute()
	})

	d.mu.Lock()
	hadErr := d.errVal != nil
	var changed bool
	if recovered != nil {
		d.errVal = recovered
		d.err = asError(recovered)
		d.trace = tr
		changed = !hadErr
	} else {
		changed = hadErr || !d.hasValue || !d.sameValue(d.value, newValue)
		d.value = newValue
		d.hasValue = true
		d.errVal = nil
		d.err = nil
		d.trace = nil
	}
	d.stale = false
	d.mu.Unlock()

	if live {
		d.rewire(deps)
	}
	if obs != nil {
		obs.Recompute(time.Since(start), len(deps), recovered != nil)
	}
	return changed
}

// rewire diffs the discovered dependency set against the live
// subscriptions: removed dependencies are unsubscribed, new ones
// subscribed.
func (d *Derived[T]) rewire(deps []*observableBase) {
	d.depMu.Lock()
	defer d.depMu.Unlock()

	if d.depSubs == nil {
		d.depSubs = make(map[uint64]*Subscription, len(deps))
	}
	next := make(map[uint64]struct{}, len(deps))
	for _, dep := range deps {
		next[dep.id] = struct{}{}
	}
	for _, old := range d.deps {
		if _, keep := next[old.id]; !keep {
			if sub := d.depSubs[old.id]; sub != nil {
				old.unsubscribe(sub)
				delete(d.depSubs, old.id)
			}
		}
	}
	for _, dep := range deps {
		if _, ok := d.depSubs[dep.id]; !ok {
			d.depSubs[dep.id] = dep.subscribeAs(d.base.id, d.invalidate)
		}
	}
	d.deps = deps
}

// result serves the cached state: a fault with no prior good value
// re-panics, otherwise the (possibly stale-but-good) value is returned.
func (d *Derived[T]) result() T {
	d.mu.RLock()
	errVal := d.errVal
	hasValue := d.hasValue
	v := d.value
	d.mu.RUnlock()

	if errVal != nil && !hasValue {
		panic(errVal)
	}
	return v
}

// sameValue compares with the configured equality, absorbing a panicking
// equality function: the fault is reported and the change suppressed.
func (d *Derived[T]) sameValue(a, b T) (equal bool) {
	defer func() {
		if r := recover(); r != nil {
			reportFault(d.base.label+": equality panicked", asError(r), debug.Stack())
			equal = true
		}
	}()
	if d.equal != nil {
		return d.equal(a, b)
	}
	return Equals(a, b)
}
