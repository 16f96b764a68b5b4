package ripple

import (
	"sync/atomic"
	"time"
)

// Observer receives runtime signals from the engine: container churn, emit
// outcomes, and timing for notification passes, recomputations, and watcher
// runs. Implementations must be cheap and must not touch the graph.
//
// The Prometheus and OpenTelemetry implementations live in pkg/instrument.
type Observer interface {
	// ContainerCreated is called once per container with its kind
	// ("observable", "reactive", "derived").
	ContainerCreated(kind string)

	// ContainerDisposed is called on the first Dispose of a container.
	ContainerDisposed(kind string)

	// Emit is called for every Emit, including suppressed ones.
	Emit(changed bool)

	// Notify is called after a non-batched notification pass.
	Notify(listeners int, d time.Duration)

	// Recompute is called after every derived recomputation.
	Recompute(d time.Duration, deps int, faulted bool)

	// EffectRun is called after every watcher run.
	EffectRun(d time.Duration, faulted bool)
}

// observer holds the installed Observer, nil when none.
var observer atomic.Pointer[Observer]

// SetObserver installs a process-wide runtime observer and returns the
// previous one. Passing nil removes it.
func SetObserver(o Observer) Observer {
	var prev *Observer
	if o == nil {
		prev = observer.Swap(nil)
	} else {
		prev = observer.Swap(&o)
	}
	if prev == nil {
		return nil
	}
	return *prev
}

func getObserver() Observer {
	if p := observer.Load(); p != nil {
		return *p
	}
	return nil
}
