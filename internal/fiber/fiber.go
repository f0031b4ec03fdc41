// Package fiber implements the cooperative fiber scheduler of spec.md §4.6
// and §5.
//
// spec.md describes fibers built on raw stack switching with a hand-written
// trampoline — the natural implementation in the Rust original this spec
// distills from. That mechanism is not idiomatic Go: a goroutine's stack is
// already owned and grown by the Go scheduler, and hand-rolled assembly
// stack-switching would fight it rather than cooperate with it. Instead,
// each Fiber here is one goroutine coordinated through a pair of unbuffered
// channels — a resume-direction channel and a yield-direction channel.
// Because only one side of an unbuffered channel can proceed until the
// other receives, this reproduces exactly the externally observable
// contract spec.md §5 requires: at most one fiber runs at a time, the
// handoff is a strict rendezvous, and values are delivered in exactly the
// order produced. See DESIGN.md for this resolved Open Question.
package fiber

import (
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// State is a fiber's lifecycle state, per spec.md §4.6.
type State int

const (
	Created State = iota
	Running
	Dead
)

type message struct {
	val value.Value
	err error
}

// Body is a fiber's entry point: it receives the fiber itself (so it can
// call Yield) and the first resume value.
type Body func(self *Fiber, first value.Value) (value.Value, error)

// Fiber is one independent, cooperatively scheduled call stack.
type Fiber struct {
	state    State
	resumeCh chan message
	yieldCh  chan message
	body     Body
	sched    *Scheduler
}

// Scheduler tracks which fiber (if any) is currently running, so that
// Fiber.yield can be rejected when called from the main fiber (spec.md §5:
// "Error if called from the main fiber").
type Scheduler struct {
	current *Fiber
}

// NewScheduler creates a scheduler with no fiber running (the main fiber).
func NewScheduler() *Scheduler { return &Scheduler{} }

// Current returns the fiber currently running, or nil for the main fiber.
func (s *Scheduler) Current() *Fiber { return s.current }

// Spawn allocates a new fiber in the Created state; its goroutine does not
// start until the first Resume, per spec.md §4.6.
func (s *Scheduler) Spawn(body Body) *Fiber {
	return &Fiber{
		state:    Created,
		resumeCh: make(chan message),
		yieldCh:  make(chan message),
		body:     body,
		sched:    s,
	}
}

// State reports this fiber's lifecycle state.
func (f *Fiber) State() State { return f.state }

// Resume implements spec.md §4.6's resume(value) primitive: a dead fiber
// errors, a fresh fiber is started (delivering v as the body's first
// resume value per spec.md §8's fiber laws), and a running fiber receives
// v as the result of its pending Yield call.
func (f *Fiber) Resume(v value.Value) (value.Value, error) {
	if f.state == Dead {
		return value.Nil(), rerrors.New(rerrors.Fiber, "dead fiber called")
	}

	prev := f.sched.current
	f.sched.current = f
	defer func() { f.sched.current = prev }()

	if f.state == Created {
		f.state = Running
		go func() {
			res, err := f.body(f, v)
			f.state = Dead
			f.yieldCh <- message{val: res, err: err}
		}()
	} else {
		f.resumeCh <- message{val: v}
	}

	msg := <-f.yieldCh
	return msg.val, msg.err
}

// Yield implements spec.md §4.6's yield(value) primitive: called from
// inside this fiber's body, it hands value to the parent's pending Resume
// and blocks until the parent resumes again.
func (f *Fiber) Yield(v value.Value) (value.Value, error) {
	f.yieldCh <- message{val: v}
	msg := <-f.resumeCh
	return msg.val, msg.err
}

