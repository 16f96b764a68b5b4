package ripple

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Cleanup is returned by a watcher body to release resources before the
// body re-runs and when the watcher stops.
type Cleanup func()

// Effect is a reactive side effect: its body runs immediately and re-runs
// whenever an observable it read changes. Unlike a Derived it produces no
// value; it exists for the side effects and holds its dependency
// subscriptions for as long as it is running.
type Effect struct {
	id    uint64
	label string

	fn      func() Cleanup
	cleanup Cleanup

	depMu   sync.Mutex
	deps    []*observableBase
	depSubs map[uint64]*Subscription

	stopped atomic.Bool
}

// EffectOption configures a watcher.
type EffectOption func(*Effect)

// WithEffectName labels the watcher for cycle chains and fault reports.
func WithEffectName(name string) EffectOption {
	return func(e *Effect) {
		e.label = name
	}
}

// Watch creates a watcher and runs its body immediately. The body's reads
// are collected the same way a derived computation's are, and the watcher
// re-runs when any of them changes. A returned Cleanup runs before each
// re-run and on Stop.
//
//	eff := ripple.Watch(func() ripple.Cleanup {
//	    fmt.Println("count:", count.Get())
//	    return nil
//	})
//	defer eff.Stop()
func Watch(fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		id: nextID(),
		fn: fn,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.label == "" {
		e.label = fmt.Sprintf("watch#%d", e.id)
	}
	e.run()
	return e
}

// run executes the body, re-collecting and re-diffing dependencies.
// A panicking body is absorbed and reported; the watcher stays subscribed
// to whatever it managed to read.
func (e *Effect) run() {
	if e.stopped.Load() {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	obs := getObserver()
	var start time.Time
	if obs != nil {
		start = time.Now()
	}

	var faulted bool
	deps := collect(e.id, e.label, func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*CycleError); ok {
					panic(r)
				}
				faulted = true
				reportFault(e.label+": body panicked", asError(r), debug.Stack())
			}
		}()
		e.cleanup = e.fn()
	})
	e.rewire(deps)

	if obs != nil {
		obs.EffectRun(time.Since(start), faulted)
	}
}

// rewire diffs the collected dependency set against the live
// subscriptions, mirroring the derived-value re-diff.
func (e *Effect) rewire(deps []*observableBase) {
	e.depMu.Lock()
	defer e.depMu.Unlock()

	if e.depSubs == nil {
		e.depSubs = make(map[uint64]*Subscription, len(deps))
	}
	next := make(map[uint64]struct{}, len(deps))
	for _, dep := range deps {
		next[dep.id] = struct{}{}
	}
	for _, old := range e.deps {
		if _, keep := next[old.id]; !keep {
			if sub := e.depSubs[old.id]; sub != nil {
				old.unsubscribe(sub)
				delete(e.depSubs, old.id)
			}
		}
	}
	for _, dep := range deps {
		if _, ok := e.depSubs[dep.id]; !ok {
			e.depSubs[dep.id] = dep.subscribeAs(e.id, e.run)
		}
	}
	e.deps = deps
}

// Stop runs the pending cleanup and releases every dependency
// subscription. Idempotent.
func (e *Effect) Stop() {
	if e.stopped.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.depMu.Lock()
	for _, dep := range e.deps {
		if sub := e.depSubs[dep.id]; sub != nil {
			dep.unsubscribe(sub)
		}
	}
	e.deps = nil
	e.depSubs = nil
	e.depMu.Unlock()
}

// Stopped reports whether Stop has been called.
func (e *Effect) Stopped() bool {
	return e.stopped.Load()
}

// ID returns the unique identifier for this watcher.
func (e *Effect) ID() uint64 {
	return e.id
}
