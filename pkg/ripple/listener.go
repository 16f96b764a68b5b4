package ripple

import (
	"runtime/debug"
	"sync"
	"time"
)

// Subscription is the opaque handle returned by Subscribe. It is required
// for Unsubscribe. Unsubscribing the same handle twice is a no-op, and a
// handle returned by a disposed container is dead: it was never registered
// and unsubscribing it does nothing.
type Subscription struct {
	id uint64
	fn func()

	// key identifies the logical listener for batch deduplication. The
	// per-dependency subscriptions of one derived value or watcher share
	// its key, so a batch re-fires it once, not once per dependency.
	key uint64

	mu      sync.Mutex
	removed bool
}

// markRemoved flags the subscription so an in-progress notification pass
// does not fire it after removal.
func (s *Subscription) markRemoved() {
	s.mu.Lock()
	s.removed = true
	s.mu.Unlock()
}

func (s *Subscription) isRemoved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// fire invokes the listener unless it was removed since the notification
// snapshot was taken. A panicking listener is absorbed and reported so the
// remaining listeners in the pass still run. A *CycleError is re-panicked,
// never absorbed: a hot recomputation that closes a cycle must unwind out
// of the emit that triggered it.
func (s *Subscription) fire() {
	if s.fn == nil || s.isRemoved() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*CycleError); ok {
				panic(r)
			}
			reportFault("ripple: listener panicked", asError(r), debug.Stack())
		}
	}()
	s.fn()
}

// observableBase provides type-erased listener management. It is embedded
// in Observable[T] and Derived[T] and is the unit the dependency tracker
// records: a derived value's discovered dependency set is a set of bases.
type observableBase struct {
	id    uint64
	label string

	mu   sync.Mutex
	subs []*Subscription

	active   bool
	disposed bool

	// onActivate fires on the 0->1 listener transition, onDeactivate on
	// 1->0 and on dispose while active. Derived values use the pair to
	// acquire and release their dependency subscriptions.
	onActivate   func()
	onDeactivate func()
}

// subscribe registers a listener and returns its handle. The first
// subscriber flips the container active and runs the activation hook.
func (b *observableBase) subscribe(fn func()) *Subscription {
	return b.subscribeAs(0, fn)
}

// subscribeAs registers a listener under a caller-chosen dedup key. Zero
// means the subscription is its own dedup unit.
func (b *observableBase) subscribeAs(key uint64, fn func()) *Subscription {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return &Subscription{}
	}
	s := &Subscription{id: nextID(), fn: fn, key: key}
	if s.key == 0 {
		s.key = s.id
	}
	b.subs = append(b.subs, s)
	first := !b.active
	if first {
		b.active = true
	}
	hook := b.onActivate
	b.mu.Unlock()

	if first && hook != nil {
		hook()
	}
	return s
}

// unsubscribe removes a listener. When the last listener leaves, the
// container goes inactive and the deactivation hook runs. Safe to call
// while a notification pass is in progress.
func (b *observableBase) unsubscribe(s *Subscription) {
	if s == nil || s.id == 0 {
		return
	}
	b.mu.Lock()
	idx := -1
	for i, existing := range b.subs {
		if existing == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return
	}
	// Preserve insertion order for the remaining listeners.
	b.subs = append(b.subs[:idx], b.subs[idx+1:]...)
	last := b.active && len(b.subs) == 0
	if last {
		b.active = false
	}
	hook := b.onDeactivate
	b.mu.Unlock()

	s.markRemoved()
	if last && hook != nil {
		hook()
	}
}

// notify fires every listener in insertion order over a snapshot taken at
// the start of the pass. Listeners added mid-pass wait for the next change;
// listeners removed mid-pass do not fire. Inside a batch the snapshot is
// queued instead and flushed, deduplicated, when the outermost batch ends.
func (b *observableBase) notify() {
	b.mu.Lock()
	if b.disposed || len(b.subs) == 0 {
		b.mu.Unlock()
		return
	}
	snapshot := make([]*Subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	if batchDepth() > 0 {
		for _, s := range snapshot {
			queuePending(s)
		}
		return
	}

	obs := getObserver()
	start := time.Time{}
	if obs != nil {
		start = time.Now()
	}
	for _, s := range snapshot {
		s.fire()
	}
	if obs != nil {
		obs.Notify(len(snapshot), time.Since(start))
	}
}

// dispose is idempotent and terminal: it clears the listener set and, if
// the container was active, runs the deactivation hook one final time.
// Returns true on the first call.
func (b *observableBase) dispose() bool {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return false
	}
	b.disposed = true
	subs := b.subs
	b.subs = nil
	wasActive := b.active
	b.active = false
	hook := b.onDeactivate
	b.mu.Unlock()

	for _, s := range subs {
		s.markRemoved()
	}
	if wasActive && hook != nil {
		hook()
	}
	return true
}

func (b *observableBase) isDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

func (b *observableBase) isActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *observableBase) listenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
