// Package ripple provides the reactive core for the Ripple toolkit.
//
// The engine implements fine-grained value propagation: values live in
// observable containers, and derived values recompute automatically when
// the observables they read change. Dependencies are discovered at runtime
// by tracking reads, never declared up front.
//
// # Core Types
//
// Observable[T] is the base value container:
//
//	temp := NewObservable(50, WithGuard(clamp(0, 100)))
//	value := temp.Get()   // Read (registers with an active dependency collection)
//	temp.Set(72)          // Write through the guard/equality pipeline
//	sub := temp.Subscribe(func(v int) { ... })
//	temp.Unsubscribe(sub)
//
// Reactive[T] is a mutable signal with a push-style output channel:
//
//	count := NewReactive(0)
//	count.Emit(1)          // No-op if the value did not change
//	for v := range count.Out() { ... }
//
// Derived[T] is a computed value over other observables:
//
//	doubled := NewDerived(func() int { return count.Get() * 2 })
//	doubled.Get()  // Recomputes lazily while unobserved
//
// While a derived value has no listeners it is "cold" and recomputes on
// every read. The first listener flips it "hot": it subscribes to every
// discovered dependency and recomputes eagerly on invalidation. The last
// unsubscribe flips it back.
//
// # Batching
//
// Multiple emits can be grouped into a single notification phase:
//
//	Batch(func() {
//	    first.Emit("John")
//	    last.Emit("Doe")
//	})  // Downstream listeners fire once after both updates
//
// # Execution Model
//
// The graph is designed for a single cooperative execution context.
// Tracking state is confined per goroutine, so reads and computations on
// different goroutines never observe each other's collection state, but
// mutating the same container from concurrent goroutines requires external
// coordination.
package ripple
