// Package async wraps an observable tri-state (loading, data, error) around
// an externally supplied asynchronous operation.
//
// A Value starts Idle, moves to Loading when an operation begins, and
// settles Ready or Failed when it completes. Completions are generation
// guarded: if a newer operation (or a manual transition) started after an
// operation was launched, the stale completion is discarded instead of
// overwriting the newer state.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ripple-ui/ripple/pkg/ripple"
)

// ErrNoOperation is returned by Refresh when Execute has never been called.
var ErrNoOperation = errors.New("async: no prior operation to refresh")

// Phase is the lifecycle position of an async value.
type Phase int

const (
	// Idle is the pre-first-operation state.
	Idle Phase = iota
	// Loading means an operation is in flight.
	Loading
	// Ready means the last operation completed with data.
	Ready
	// Failed means the last operation completed with an error.
	Failed
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is one observed state of an async value. Value is meaningful
// only in Ready, Err only in Failed.
type Snapshot[T any] struct {
	Phase Phase
	Value T
	Err   error
}

// Op is the externally supplied asynchronous operation.
type Op[T any] func(ctx context.Context) (T, error)

// Value is an observable async result. Subscribe through State, or use the
// direct accessors for tracked reads inside derived computations.
type Value[T any] struct {
	state *ripple.Reactive[Snapshot[T]]

	mu     sync.Mutex
	lastOp Op[T]
	gen    uint64

	retryCount int
	retryDelay time.Duration
	onSuccess  func(T)
	onError    func(error)
}

// New creates an async value in the Idle phase.
func New[T any](opts ...Option[T]) *Value[T] {
	v := &Value[T]{}
	cfg := applyOptions(opts)
	v.retryCount = cfg.retryCount
	v.retryDelay = cfg.retryDelay
	v.onSuccess = cfg.onSuccess
	v.onError = cfg.onError

	stateOpts := []ripple.Option[Snapshot[T]]{
		ripple.WithEquals(snapshotEquals[T]),
	}
	if cfg.name != "" {
		stateOpts = append(stateOpts, ripple.WithName[Snapshot[T]](cfg.name))
	}
	v.state = ripple.NewReactive(Snapshot[T]{Phase: Idle}, stateOpts...)
	return v
}

// State exposes the underlying signal for Subscribe, Select, and the
// output channel.
func (v *Value[T]) State() *ripple.Reactive[Snapshot[T]] {
	return v.state
}

// Subscribe registers a listener on the underlying signal.
func (v *Value[T]) Subscribe(l func(Snapshot[T])) *ripple.Subscription {
	return v.state.Subscribe(l)
}

// Snapshot returns the current state. Tracked read.
func (v *Value[T]) Snapshot() Snapshot[T] {
	return v.state.Get()
}

// Phase returns the current phase. Tracked read.
func (v *Value[T]) Phase() Phase {
	return v.state.Get().Phase
}

// Data returns the last loaded value (zero value unless Ready). Tracked read.
func (v *Value[T]) Data() T {
	return v.state.Get().Value
}

// Err returns the last failure, or nil. Tracked read.
func (v *Value[T]) Err() error {
	return v.state.Get().Err
}

// IsLoading reports whether an operation is in flight. Tracked read.
func (v *Value[T]) IsLoading() bool {
	return v.Phase() == Loading
}

// IsReady reports whether data is available. Tracked read.
func (v *Value[T]) IsReady() bool {
	return v.Phase() == Ready
}

// IsFailed reports whether the last operation failed. Tracked read.
func (v *Value[T]) IsFailed() bool {
	return v.Phase() == Failed
}

// EmitLoading transitions to Loading directly. Any in-flight operation's
// completion is discarded.
func (v *Value[T]) EmitLoading() {
	v.bumpGen()
	v.state.Emit(Snapshot[T]{Phase: Loading})
}

// EmitData transitions to Ready directly. Any in-flight operation's
// completion is discarded.
func (v *Value[T]) EmitData(val T) {
	v.bumpGen()
	v.state.Emit(Snapshot[T]{Phase: Ready, Value: val})
}

// EmitError transitions to Failed directly. Any in-flight operation's
// completion is discarded.
func (v *Value[T]) EmitError(err error) {
	v.bumpGen()
	v.state.Emit(Snapshot[T]{Phase: Failed, Err: err})
}

// Execute records op for Refresh, transitions to Loading, and runs op on
// its own goroutine. A successful completion transitions to Ready, a
// returned error or panic to Failed. A completion that lost to a newer
// Execute, Refresh, or manual transition is discarded.
func (v *Value[T]) Execute(ctx context.Context, op Op[T]) {
	v.mu.Lock()
	v.lastOp = op
	v.gen++
	gen := v.gen
	retries := v.retryCount
	delay := v.retryDelay
	v.mu.Unlock()

	v.state.Emit(Snapshot[T]{Phase: Loading})
	go v.runOp(ctx, op, gen, retries, delay)
}

// Refresh re-invokes the last operation given to Execute. Returns
// ErrNoOperation if Execute was never called.
func (v *Value[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	op := v.lastOp
	v.mu.Unlock()
	if op == nil {
		return ErrNoOperation
	}
	v.Execute(ctx, op)
	return nil
}

// Dispose discards any in-flight completion and disposes the underlying
// signal. Idempotent.
func (v *Value[T]) Dispose() {
	v.bumpGen()
	v.state.Dispose()
}

func (v *Value[T]) bumpGen() {
	v.mu.Lock()
	v.gen++
	v.mu.Unlock()
}

func (v *Value[T]) currentGen() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen
}

// runOp drives one operation through the retry loop and publishes its
// outcome unless a newer generation superseded it.
func (v *Value[T]) runOp(ctx context.Context, op Op[T], gen uint64, retries int, delay time.Duration) {
	var result T
	var err error

	for attempt := 0; ; attempt++ {
		if v.currentGen() != gen {
			return
		}
		result, err = invoke(ctx, op)
		if err == nil || attempt >= retries {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(delay):
			continue
		}
		break
	}

	if v.currentGen() != gen {
		return
	}
	if err != nil {
		v.state.Emit(Snapshot[T]{Phase: Failed, Err: err})
		if v.onError != nil {
			v.onError(err)
		}
		return
	}
	v.state.Emit(Snapshot[T]{Phase: Ready, Value: result})
	if v.onSuccess != nil {
		v.onSuccess(result)
	}
}

// invoke calls op, converting a panic into a returned error so a faulty
// operation can never leave the value stuck in Loading.
func invoke[T any](ctx context.Context, op Op[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("async: operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// snapshotEquals suppresses notifications for indistinguishable states.
func snapshotEquals[T any](a, b Snapshot[T]) bool {
	if a.Phase != b.Phase {
		return false
	}
	if (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if a.Err != nil && b.Err != nil && a.Err.Error() != b.Err.Error() {
		return false
	}
	return ripple.Equals(a.Value, b.Value)
}
