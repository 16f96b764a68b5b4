package ripple

// String wraps Reactive[string] with convenience methods for text values.
type String struct {
	*Reactive[string]
}

// NewString creates a new String with the given initial value.
func NewString(initial string, opts ...Option[string]) *String {
	return &String{NewReactive(initial, opts...)}
}

// Append concatenates suffix onto the value.
func (s *String) Append(suffix string) {
	s.Update(func(v string) string { return v + suffix })
}

// Clear sets the value to the empty string.
func (s *String) Clear() {
	s.Emit("")
}

// IsEmpty reports whether the current value is empty. Tracked read.
func (s *String) IsEmpty() bool {
	return s.Get() == ""
}
