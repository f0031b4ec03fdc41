// Package enum implements Enumerator on top of internal/fiber, exactly as
// spec.md §4.6 describes: a fiber whose body drives a receiver's method
// with a pseudo-block that yields each element to the fiber's parent;
// `next` resumes the fiber; exhaustion signals StopIteration.
package enum

import (
	"j5.nz/rbvm/internal/fiber"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// Driver is the body an Enumerator wraps: it calls yield once per produced
// element and returns when the underlying sequence is exhausted.
type Driver func(yield func(value.Value) error) error

// Enumerator is a fiber-backed lazy sequence.
type Enumerator struct {
	fiber *fiber.Fiber
}

// New spawns (but does not yet start) a fiber running driver.
func New(sched *fiber.Scheduler, driver Driver) *Enumerator {
	f := sched.Spawn(func(self *fiber.Fiber, first value.Value) (value.Value, error) {
		err := driver(func(v value.Value) error {
			_, yerr := self.Yield(v)
			return yerr
		})
		return value.Nil(), err
	})
	return &Enumerator{fiber: f}
}

// Next resumes the underlying fiber and returns the next yielded element,
// or a StopIteration RuntimeErr once the driver runs to completion
// (spec.md §4.6's "Exhaustion signals StopIteration").
func (e *Enumerator) Next() (value.Value, error) {
	if e.fiber.State() == fiber.Dead {
		return value.Nil(), rerrors.New(rerrors.Stop, "iteration reached an end")
	}
	v, err := e.fiber.Resume(value.Nil())
	if err != nil {
		return value.Nil(), err
	}
	if e.fiber.State() == fiber.Dead {
		return value.Nil(), rerrors.New(rerrors.Stop, "iteration reached an end")
	}
	return v, nil
}

// Done reports whether the enumerator has been exhausted.
func (e *Enumerator) Done() bool { return e.fiber.State() == fiber.Dead }
