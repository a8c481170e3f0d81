package dispatch

// Outcome is the result of a handler that may legitimately produce no value.
// A NotApplicable outcome is a business rejection (duplicate, bad credentials, not found),
// never an infrastructure failure.
type Outcome[T any] struct {
	value T
	found bool
}

func Found[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, found: true}
}

func NotApplicable[T any]() Outcome[T] {
	return Outcome[T]{}
}

// Get returns the value and true for Found, or the zero value and false for NotApplicable.
func (o Outcome[T]) Get() (T, bool) {
	return o.value, o.found
}

func (o Outcome[T]) IsFound() bool { return o.found }
