package ripple

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive bookkeeping for one goroutine. The
// dependency tracker is process-wide in the sense that every container
// consults it, but its state is confined per goroutine so computations on
// different goroutines never observe each other's collection state.
type trackingContext struct {
	// collecting is the active dependency collection set, nil when no
	// derived computation (or watcher run) is in progress. Observable
	// reads append their base to it.
	collecting *depSet

	// stack holds the evaluations currently in progress, outermost first.
	// Used for cycle detection.
	stack []collectFrame

	// batchDepth tracks nested Batch calls. While > 0, notifications are
	// queued in pending instead of firing.
	batchDepth int

	// pending accumulates subscriptions to fire when the outermost batch
	// completes. Deduplicated by subscription ID before firing.
	pending []*Subscription
}

// collectFrame identifies one in-progress evaluation on the stack.
type collectFrame struct {
	id    uint64
	label string
}

// depSet is an ordered, deduplicated set of dependency bases. Order is the
// order of first read, which keeps cycle chains and re-diff behavior stable.
type depSet struct {
	order []*observableBase
	seen  map[uint64]struct{}
}

func newDepSet() *depSet {
	return &depSet{seen: make(map[uint64]struct{})}
}

func (d *depSet) add(b *observableBase) {
	if _, ok := d.seen[b.id]; ok {
		return
	}
	d.seen[b.id] = struct{}{}
	d.order = append(d.order, b)
}

// trackingContexts stores per-goroutine contexts, keyed by goroutine ID.
var trackingContexts sync.Map

// getGoroutineID extracts the current goroutine's ID from the runtime
// stack header ("goroutine <id> ..."). Implementation detail; never exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current
// goroutine, creating one on first use.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// track records a read of b in the active collection set. No-op when no
// collection is in progress, which makes plain reads free of bookkeeping.
func track(b *observableBase) {
	ctx := getTrackingContext()
	if ctx.collecting != nil {
		ctx.collecting.add(b)
	}
}

// collect runs body with a fresh collection set and returns the
// dependencies it read, in first-read order. Collections nest: the previous
// set is saved and restored, so a derived value read inside body collects
// its own dependencies without polluting the outer set.
//
// If the node identified by id is already evaluating on this goroutine the
// graph contains a cycle; collect panics with a *CycleError carrying the
// ordered chain of in-progress labels. The panic is raised before body runs
// and is never absorbed by the engine.
func collect(id uint64, label string, body func()) []*observableBase {
	ctx := getTrackingContext()

	for _, frame := range ctx.stack {
		if frame.id == id {
			chain := make([]string, 0, len(ctx.stack)+1)
			for _, f := range ctx.stack {
				chain = append(chain, f.label)
			}
			chain = append(chain, label)
			panic(&CycleError{Chain: chain})
		}
	}

	ctx.stack = append(ctx.stack, collectFrame{id: id, label: label})
	prev := ctx.collecting
	set := newDepSet()
	ctx.collecting = set

	defer func() {
		ctx.collecting = prev
		ctx.stack = ctx.stack[:len(ctx.stack)-1]
	}()

	body()
	return set.order
}

// batchDepth reports the current batch nesting level for this goroutine.
func batchDepth() int {
	return getTrackingContext().batchDepth
}

func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth returns true when the outermost batch completed.
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

// queuePending defers a subscription until the outermost batch completes.
func queuePending(s *Subscription) {
	ctx := getTrackingContext()
	ctx.pending = append(ctx.pending, s)
}

// drainPending returns and clears the queued subscriptions.
func drainPending() []*Subscription {
	ctx := getTrackingContext()
	pending := ctx.pending
	ctx.pending = nil
	return pending
}
