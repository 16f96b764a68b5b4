package ripple

import (
	"errors"
	"testing"
)

func TestReactiveEmitEqualitySuppression(t *testing.T) {
	sig := NewReactive(0)
	rec := &recorder[int]{}
	sig.Subscribe(rec.listener)

	sig.Emit(5)
	sig.Emit(5)

	if rec.count() != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", rec.count())
	}
	if rec.last() != 5 {
		t.Errorf("expected listener to see 5, got %d", rec.last())
	}
}

func TestReactiveOutChannel(t *testing.T) {
	sig := NewReactive(0)
	out := sig.Out()

	sig.Emit(1)
	sig.Emit(2)
	sig.Emit(2) // suppressed: must not publish

	if v := <-out; v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
	if v := <-out; v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
	select {
	case v := <-out:
		t.Errorf("unexpected extra value %d", v)
	default:
	}
}

func TestReactiveOutSlidesWhenFull(t *testing.T) {
	sig := NewReactive(0, WithOutBuffer[int](2))
	out := sig.Out()

	sig.Emit(1)
	sig.Emit(2)
	sig.Emit(3) // overflows: oldest dropped, latest kept

	if v := <-out; v != 2 {
		t.Errorf("expected oldest value dropped, got %d", v)
	}
	if v := <-out; v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
}

func TestReactiveDisposeClosesOut(t *testing.T) {
	sig := NewReactive(0)
	out := sig.Out()

	sig.Emit(1)
	sig.Dispose()
	sig.Dispose()

	if v, ok := <-out; !ok || v != 1 {
		t.Errorf("expected buffered value 1 before close, got %d (ok=%v)", v, ok)
	}
	if _, ok := <-out; ok {
		t.Error("expected closed channel")
	}
}

func TestReactiveOutAfterDisposeIsClosed(t *testing.T) {
	sig := NewReactive(0)
	sig.Dispose()

	if _, ok := <-sig.Out(); ok {
		t.Error("expected Out after dispose to return a closed channel")
	}
}

func TestReactivePostDisposeEmit(t *testing.T) {
	sig := NewReactive(1)
	rec := &recorder[int]{}
	sig.Subscribe(rec.listener)
	sig.Dispose()

	sig.Emit(2)

	if sig.Peek() != 1 {
		t.Errorf("post-dispose emit stored a value: %d", sig.Peek())
	}
	if rec.count() != 0 {
		t.Errorf("post-dispose emit notified %d times", rec.count())
	}
}

func TestReactivePostDisposeEmitPanicsInDebug(t *testing.T) {
	sig := NewReactive(1)
	sig.Dispose()

	DebugMode = true
	defer func() {
		DebugMode = false
		if r := recover(); !errors.Is(asError(r), ErrDisposed) {
			t.Fatalf("expected ErrDisposed, got %v", r)
		}
	}()
	sig.Emit(2)
}

func TestReactiveSetAliasesEmit(t *testing.T) {
	sig := NewReactive(0)
	out := sig.Out()

	// Set must go through the Emit pipeline, including publication.
	sig.Set(7)

	if v := <-out; v != 7 {
		t.Errorf("expected Set to publish, got %d", v)
	}
}

func TestReactiveResetPublishes(t *testing.T) {
	sig := NewReactive(0)
	out := sig.Out()

	sig.Emit(5)
	if v := <-out; v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}

	// Reset must go through the Emit pipeline, including publication.
	sig.Reset()
	select {
	case v := <-out:
		if v != 0 {
			t.Errorf("expected initial value 0, got %d", v)
		}
	default:
		t.Error("expected Reset to publish the initial value")
	}

	// Already at the initial value: suppressed, no publication.
	sig.Reset()
	select {
	case v := <-out:
		t.Errorf("unexpected publication %d for no-op Reset", v)
	default:
	}
}

func TestReactiveGuardedEmit(t *testing.T) {
	sig := NewReactive(50, WithGuard(clamp(0, 100)))
	rec := &recorder[int]{}
	sig.Subscribe(rec.listener)

	sig.Emit(150)
	if sig.Get() != 100 {
		t.Errorf("expected clamped 100, got %d", sig.Get())
	}

	// Clamps to the current value: complete no-op.
	sig.Emit(250)
	if rec.count() != 1 {
		t.Errorf("expected 1 notification, got %d", rec.count())
	}
}

func TestTypedWrappers(t *testing.T) {
	n := NewInt(1)
	n.Inc()
	n.Add(3)
	n.Dec()
	n.Sub(1)
	if n.Get() != 3 {
		t.Errorf("expected 3, got %d", n.Get())
	}

	b := NewBool(false)
	b.Toggle()
	if !b.Get() {
		t.Error("expected true after toggle")
	}
	b.SetFalse()
	b.SetTrue()
	if !b.Get() {
		t.Error("expected true")
	}

	s := NewString("a")
	s.Append("b")
	if s.Get() != "ab" {
		t.Errorf("expected ab, got %s", s.Get())
	}
	s.Clear()
	if !s.IsEmpty() {
		t.Error("expected empty after clear")
	}
}
