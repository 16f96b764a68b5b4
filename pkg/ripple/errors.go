package ripple

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// ErrReadOnly is the panic value used when code assigns to a derived value.
// Derived values are pure functions of their dependencies: update a
// dependency instead.
var ErrReadOnly = errors.New("ripple: derived value is read-only; update a dependency instead")

// ErrDisposed is reported when a disposed container is used on a path that
// asserts in debug mode.
var ErrDisposed = errors.New("ripple: container used after dispose")

// CycleError is raised when a derived computation ends up reading itself,
// directly or through other derived values. It carries the ordered chain of
// evaluations that were in progress when the cycle closed.
//
// CycleError signals a structural bug in the computation graph and is never
// absorbed by the engine: it propagates to the caller that triggered the
// evaluation.
type CycleError struct {
	// Chain lists the labels of in-progress evaluations, outermost first,
	// ending with the node that closed the cycle.
	Chain []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "ripple: circular dependency: " + strings.Join(e.Chain, " -> ")
}

// FaultHandler receives faults the engine absorbs instead of unwinding the
// caller: panicking listeners, guard and equality predicates, effect bodies.
// trace holds the goroutine stack captured at the fault site and may be nil.
type FaultHandler func(msg string, err error, trace []byte)

// faultHandler holds the process-wide handler. Stored atomically so handler
// swaps and fault reports never race.
var faultHandler atomic.Pointer[FaultHandler]

// SetFaultHandler installs a process-wide fault handler and returns the
// previous one. Passing nil restores the default slog-based handler.
func SetFaultHandler(h FaultHandler) FaultHandler {
	var prev *FaultHandler
	if h == nil {
		prev = faultHandler.Swap(nil)
	} else {
		prev = faultHandler.Swap(&h)
	}
	if prev == nil {
		return nil
	}
	return *prev
}

// reportFault routes an absorbed fault to the installed handler.
func reportFault(msg string, err error, trace []byte) {
	if h := faultHandler.Load(); h != nil {
		(*h)(msg, err, trace)
		return
	}
	slog.Error(msg, "err", err, "trace", string(trace))
}

// asError normalizes a recovered panic value into an error.
func asError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", recovered)
}
