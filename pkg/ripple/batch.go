package ripple

// DebugMode enables assertions for misuse that is otherwise absorbed, such
// as emitting on a disposed signal. Set at startup; not meant to change at
// runtime.
var DebugMode bool

// Batch groups multiple emits into a single notification phase. Listener
// notifications raised inside the batch are queued, deduplicated, and fired
// once when the outermost batch completes. Values are stored immediately;
// only notification is deferred, so a batch is not a transaction.
//
// Batches nest: notifications fire only when the outermost batch returns.
//
//	Batch(func() {
//	    first.Emit("John")
//	    last.Emit("Doe")
//	})
//	// full-name listeners fired once
func Batch(fn func()) {
	incrementBatchDepth()
	defer func() {
		if decrementBatchDepth() {
			flushPending()
		}
	}()
	fn()
}

// flushPending deduplicates and fires the queued subscriptions.
func flushPending() {
	pending := drainPending()
	if len(pending) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(pending))
	for _, s := range pending {
		if seen[s.key] {
			continue
		}
		seen[s.key] = true
		s.fire()
	}
}

// Untracked runs fn with dependency collection suspended: observable reads
// inside do not register with an in-progress derived computation. For a
// single read, Peek is clearer.
func Untracked(fn func()) {
	ctx := getTrackingContext()
	prev := ctx.collecting
	ctx.collecting = nil
	defer func() {
		ctx.collecting = prev
	}()
	fn()
}
