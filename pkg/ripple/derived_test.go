package ripple

import (
	"errors"
	"testing"
)

func TestDerivedColdReadsRecompute(t *testing.T) {
	a := NewReactive(2)
	computes := 0
	d := NewDerived(func() int {
		computes++
		return a.Get() * 10
	})

	// Construction computed once eagerly.
	if computes != 1 {
		t.Fatalf("expected 1 eager compute, got %d", computes)
	}

	// No listeners: mutation does not recompute...
	a.Emit(3)
	if computes != 1 {
		t.Errorf("cold derived recomputed on emit, computes=%d", computes)
	}

	// ...but a cold read always recomputes fresh.
	if got := d.Get(); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
	if computes != 2 {
		t.Errorf("expected 2 computes after cold read, got %d", computes)
	}

	if got := d.Get(); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
	if computes != 3 {
		t.Errorf("cold reads must always recompute, got %d computes", computes)
	}
}

func TestDerivedHotPropagation(t *testing.T) {
	a := NewReactive(2)
	d := NewDerived(func() int { return a.Get() * 10 })

	rec := &recorder[int]{}
	d.Subscribe(rec.listener)

	if !d.Active() {
		t.Fatal("expected derived to be hot after first subscribe")
	}
	if !a.Active() {
		t.Fatal("expected dependency to hold a subscription while hot")
	}

	a.Emit(4)

	// Listener fired synchronously, before Emit returned.
	if rec.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", rec.count())
	}
	if rec.last() != 40 {
		t.Errorf("expected listener to see 40, got %d", rec.last())
	}
	if d.Get() != 40 {
		t.Errorf("expected value 40, got %d", d.Get())
	}
}

func TestDerivedHotDoesNotRecomputePerRead(t *testing.T) {
	a := NewReactive(1)
	computes := 0
	d := NewDerived(func() int {
		computes++
		return a.Get()
	})

	d.Subscribe(func(int) {})
	base := computes

	_ = d.Get()
	_ = d.Get()
	if computes != base {
		t.Errorf("hot reads recomputed: %d -> %d", base, computes)
	}
}

func TestDerivedChained(t *testing.T) {
	a := NewReactive(2)
	d := NewDerived(func() int { return a.Get() * 10 })
	b := NewDerived(func() int { return d.Get() + 1 })

	rec := &recorder[int]{}
	b.Subscribe(rec.listener)

	a.Emit(4)

	if rec.count() != 1 {
		t.Fatalf("expected 1 notification through the chain, got %d", rec.count())
	}
	if rec.last() != 41 {
		t.Errorf("expected 41, got %d", rec.last())
	}
	if b.Get() != 41 {
		t.Errorf("expected b == 41, got %d", b.Get())
	}
}

func TestDerivedEqualitySuppression(t *testing.T) {
	a := NewReactive(1)
	d := NewDerived(func() int { return a.Get() % 2 })

	rec := &recorder[int]{}
	d.Subscribe(rec.listener)

	a.Emit(3) // parity unchanged: derived recomputes but must not notify
	if rec.count() != 0 {
		t.Errorf("expected suppressed notification, got %d", rec.count())
	}

	a.Emit(4) // parity changed
	if rec.count() != 1 {
		t.Errorf("expected 1 notification, got %d", rec.count())
	}
}

func TestDerivedDynamicDependencies(t *testing.T) {
	flag := NewReactive(true)
	a := NewReactive(10)
	b := NewReactive(20)
	d := NewDerived(func() int {
		if flag.Get() {
			return a.Get()
		}
		return b.Get()
	})

	rec := &recorder[int]{}
	d.Subscribe(rec.listener)

	if !a.Active() || b.Active() {
		t.Fatal("expected subscriptions on {flag, a} only")
	}

	flag.Emit(false)

	if a.Active() {
		t.Error("expected a to be unsubscribed after re-diff")
	}
	if !b.Active() {
		t.Error("expected b to be subscribed after re-diff")
	}

	// Changes to the dropped dependency are invisible now.
	before := rec.count()
	a.Emit(11)
	if rec.count() != before {
		t.Errorf("dropped dependency still notifying")
	}

	b.Emit(21)
	if rec.last() != 21 {
		t.Errorf("expected 21, got %d", rec.last())
	}
}

func TestDerivedHotToColdReleasesSubscriptions(t *testing.T) {
	a := NewReactive(1)
	d := NewDerived(func() int { return a.Get() })

	sub := d.Subscribe(func(int) {})
	if !a.Active() {
		t.Fatal("expected dependency subscription while hot")
	}

	d.Unsubscribe(sub)
	if a.Active() {
		t.Error("expected dependency released on hot->cold")
	}
	if !d.isStale() {
		t.Error("expected stale mark on hot->cold")
	}

	// Cold again: reads reflect the latest state.
	a.Emit(7)
	if d.Get() != 7 {
		t.Errorf("expected fresh cold read 7, got %d", d.Get())
	}
}

func TestDerivedColdHotResync(t *testing.T) {
	a := NewReactive(1)
	d := NewDerived(func() int { return a.Get() * 2 })

	// Mutate while cold; the cached value is out of date.
	a.Emit(5)

	d.Subscribe(func(int) {})

	// The cold->hot transition recomputed before subscribing.
	if d.Get() != 10 {
		t.Errorf("expected resynchronized value 10, got %d", d.Get())
	}
}

func TestDerivedCycleDetection(t *testing.T) {
	var x *Derived[int]
	x = NewDerived(func() int { return x.Get() + 1 })

	defer func() {
		r := recover()
		if _, ok := r.(*CycleError); !ok {
			t.Fatalf("expected *CycleError, got %v", r)
		}
	}()
	_ = x.Get()
}

func TestDerivedIndirectCycleDetection(t *testing.T) {
	var d1, d2 *Derived[int]
	d1 = NewDerived(func() int { return d2.Get() + 1 }, WithName[int]("d1"))
	d2 = NewDerived(func() int { return d1.Get() + 1 }, WithName[int]("d2"))

	defer func() {
		r := recover()
		cycleErr, ok := r.(*CycleError)
		if !ok {
			t.Fatalf("expected *CycleError, got %v", r)
		}
		if len(cycleErr.Chain) < 3 {
			t.Errorf("expected chain through both nodes, got %v", cycleErr.Chain)
		}
	}()
	_ = d1.Get()
}

func TestDerivedCycleFormedWhileHot(t *testing.T) {
	flag := NewReactive(false)
	base := NewReactive(1)

	var d1, d2 *Derived[int]
	d1 = NewDerived(func() int {
		if flag.Get() {
			return d2.Get()
		}
		return base.Get()
	}, WithName[int]("d1"))
	d2 = NewDerived(func() int { return d1.Get() + 1 }, WithName[int]("d2"))

	sub := d1.Subscribe(func(int) {})
	defer d1.Unsubscribe(sub)

	if got := d1.Get(); got != 1 {
		t.Fatalf("expected 1 before the cycle closes, got %d", got)
	}

	// Flipping the flag closes the cycle during the hot recomputation. The
	// failure must unwind out of the triggering Emit, not be absorbed as a
	// listener fault.
	defer func() {
		r := recover()
		cycleErr, ok := r.(*CycleError)
		if !ok {
			t.Fatalf("expected *CycleError from Emit, got %v", r)
		}
		if len(cycleErr.Chain) < 3 {
			t.Errorf("expected chain through both nodes, got %v", cycleErr.Chain)
		}
	}()
	flag.Emit(true)
}

func TestDerivedErrorCaching(t *testing.T) {
	boom := errors.New("compute failed")
	fail := NewReactive(false)
	a := NewReactive(1)
	d := NewDerived(func() int {
		if fail.Get() {
			panic(boom)
		}
		return a.Get()
	})

	// Good value first.
	if d.Get() != 1 {
		t.Fatalf("expected 1, got %d", d.Get())
	}

	fail.Emit(true)

	// Prior good value is served, fault exposed through the side channel.
	if got := d.Get(); got != 1 {
		t.Errorf("expected stale-but-good 1, got %d", got)
	}
	if !d.HasErr() {
		t.Error("expected HasErr after faulting compute")
	}
	if !errors.Is(d.Err(), boom) {
		t.Errorf("expected cached error, got %v", d.Err())
	}

	// Recovery clears the fault.
	fail.Emit(false)
	if d.Get() != 1 || d.HasErr() {
		t.Errorf("expected recovery, value=%d hasErr=%v", d.Get(), d.HasErr())
	}
}

func TestDerivedErrorWithoutPriorValuePanics(t *testing.T) {
	boom := errors.New("no value ever")
	d := NewDerived(func() int { panic(boom) })

	if !d.HasErr() {
		t.Fatal("expected fault from eager construction compute")
	}

	defer func() {
		if r := recover(); !errors.Is(asError(r), boom) {
			t.Fatalf("expected compute fault re-panicked, got %v", r)
		}
	}()
	_ = d.Get()
}

func TestDerivedErrorPresenceNotifies(t *testing.T) {
	fail := NewReactive(false)
	d := NewDerived(func() int {
		if fail.Get() {
			panic("broken")
		}
		return 1
	})

	rec := &recorder[int]{}
	d.Subscribe(rec.listener)

	// Value is unchanged (still 1 served) but error presence changed.
	fail.Emit(true)
	if rec.count() != 1 {
		t.Errorf("expected error-presence change to notify, got %d", rec.count())
	}

	fail.Emit(false)
	if rec.count() != 2 {
		t.Errorf("expected recovery to notify, got %d", rec.count())
	}
}

func TestDerivedSetRejected(t *testing.T) {
	d := NewDerived(func() int { return 1 })

	defer func() {
		r := recover()
		if !errors.Is(asError(r), ErrReadOnly) {
			t.Fatalf("expected ErrReadOnly, got %v", r)
		}
	}()
	d.Set(2)
}

func TestDerivedDispose(t *testing.T) {
	a := NewReactive(1)
	d := NewDerived(func() int { return a.Get() })

	rec := &recorder[int]{}
	d.Subscribe(rec.listener)

	d.Dispose()
	d.Dispose()

	if a.Active() {
		t.Error("expected dependency subscriptions released on dispose")
	}

	a.Emit(2)
	if rec.count() != 0 {
		t.Errorf("disposed derived notified %d times", rec.count())
	}
}

func TestSelectColdHotConsistency(t *testing.T) {
	parent := NewReactive(1)
	sel := Select(parent, func(v int) int { return v * 100 })

	// Parent changes while the selection has zero listeners.
	parent.Emit(3)

	// A cold read reflects the parent's latest value.
	if sel.Get() != 300 {
		t.Errorf("expected cold select to see 300, got %d", sel.Get())
	}

	// Change again while cold, then go hot: the transition resyncs first.
	parent.Emit(4)
	rec := &recorder[int]{}
	sel.Subscribe(rec.listener)

	if sel.Get() != 400 {
		t.Errorf("expected resync to 400 at cold->hot, got %d", sel.Get())
	}

	parent.Emit(5)
	if rec.last() != 500 {
		t.Errorf("expected hot propagation to 500, got %d", rec.last())
	}
}
