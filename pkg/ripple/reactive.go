package ripple

import "sync"

// defaultOutBuffer is the capacity of a Reactive's output channel when
// WithOutBuffer is not given.
const defaultOutBuffer = 16

// Reactive is a mutable signal: an Observable with an explicit Emit and a
// push-style output channel for consumers that want values delivered
// instead of pulled.
type Reactive[T any] struct {
	*Observable[T]

	outMu     sync.Mutex
	out       chan T
	outBuffer int
	outClosed bool
}

// NewReactive creates a mutable signal holding initial.
func NewReactive[T any](initial T, opts ...Option[T]) *Reactive[T] {
	cfg := applyOptions(opts)
	r := &Reactive[T]{
		Observable: &Observable[T]{},
		outBuffer:  cfg.outBuffer,
	}
	if r.outBuffer == 0 {
		r.outBuffer = defaultOutBuffer
	}
	r.Observable.init(initial, "reactive", cfg)
	if obs := getObserver(); obs != nil {
		obs.ContainerCreated("reactive")
	}
	return r
}

// Emit runs the Set pipeline and, when the stored value changed, publishes
// it to the output channel as well. When the post-guard value equals the
// current value, Emit is a complete no-op: no notification, no publication.
//
// Emitting on a disposed signal panics when DebugMode is set and is a
// silent no-op otherwise.
func (r *Reactive[T]) Emit(v T) {
	if r.Disposed() {
		if DebugMode {
			panic(ErrDisposed)
		}
		return
	}
	stored, changed := r.set(v)
	if obs := getObserver(); obs != nil {
		obs.Emit(changed)
	}
	if !changed {
		return
	}
	r.base.notify()
	r.push(stored)
}

// Set aliases Emit so the promoted Observable pipeline cannot bypass the
// output channel.
func (r *Reactive[T]) Set(v T) {
	r.Emit(v)
}

// Update applies fn to the current value and emits the result.
func (r *Reactive[T]) Update(fn func(T) T) {
	r.Emit(fn(r.Peek()))
}

// Reset routes the initial value back through Emit, so a stored change
// reaches the output channel like any other.
func (r *Reactive[T]) Reset() {
	r.Emit(r.Initial())
}

// Out returns the output channel. The channel is created on first call,
// carries every stored change, and is closed by Dispose. Delivery is
// sliding: when the buffer is full the oldest value is dropped so Emit
// never blocks the mutation pipeline on a slow consumer.
func (r *Reactive[T]) Out() <-chan T {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if r.out == nil {
		r.out = make(chan T, r.outBuffer)
		if r.outClosed {
			close(r.out)
		}
	}
	return r.out
}

// push publishes a stored value to the output channel, if one exists.
func (r *Reactive[T]) push(v T) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if r.out == nil || r.outClosed {
		return
	}
	for {
		select {
		case r.out <- v:
			return
		default:
			// Buffer full: drop the oldest value to keep the latest.
			select {
			case <-r.out:
			default:
			}
		}
	}
}

// Dispose closes the output channel and disposes the underlying container.
// Idempotent.
func (r *Reactive[T]) Dispose() {
	r.outMu.Lock()
	if !r.outClosed {
		r.outClosed = true
		if r.out != nil {
			close(r.out)
		}
	}
	r.outMu.Unlock()

	if r.base.dispose() {
		if obs := getObserver(); obs != nil {
			obs.ContainerDisposed("reactive")
		}
	}
}
