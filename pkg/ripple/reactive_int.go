package ripple

// Int wraps Reactive[int] with convenience methods for counters.
type Int struct {
	*Reactive[int]
}

// NewInt creates a new Int with the given initial value.
func NewInt(initial int, opts ...Option[int]) *Int {
	return &Int{NewReactive(initial, opts...)}
}

// Inc increments the value by 1.
func (s *Int) Inc() {
	s.Update(func(n int) int { return n + 1 })
}

// Dec decrements the value by 1.
func (s *Int) Dec() {
	s.Update(func(n int) int { return n - 1 })
}

// Add adds n to the value.
func (s *Int) Add(n int) {
	s.Update(func(v int) int { return v + n })
}

// Sub subtracts n from the value.
func (s *Int) Sub(n int) {
	s.Update(func(v int) int { return v - n })
}
