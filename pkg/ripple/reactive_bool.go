package ripple

// Bool wraps Reactive[bool] with convenience methods for flags.
type Bool struct {
	*Reactive[bool]
}

// NewBool creates a new Bool with the given initial value.
func NewBool(initial bool, opts ...Option[bool]) *Bool {
	return &Bool{NewReactive(initial, opts...)}
}

// Toggle flips the value.
func (s *Bool) Toggle() {
	s.Update(func(v bool) bool { return !v })
}

// SetTrue sets the value to true.
func (s *Bool) SetTrue() {
	s.Emit(true)
}

// SetFalse sets the value to false.
func (s *Bool) SetFalse() {
	s.Emit(false)
}
