package clock

import "time"

// Clock supplies the current time. Implementations hold no mutable state.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to a Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// System returns the UTC wall clock.
func System() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}

// Fixed always reports t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}

// OrSystem returns c, or the system clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System()
	}
	return c
}
