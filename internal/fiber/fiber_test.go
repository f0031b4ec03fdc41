package fiber

import (
	"testing"

	"j5.nz/rbvm/internal/value"
)

func TestResumeYieldLaws(t *testing.T) {
	s := NewScheduler()
	var sawFirst value.Value

	f := s.Spawn(func(self *Fiber, first value.Value) (value.Value, error) {
		sawFirst = first
		v1, _ := self.Yield(mustInt(1))
		v2, _ := self.Yield(v1)
		return v2, nil
	})

	v0 := mustInt(100)
	got, err := f.Resume(v0)
	if err != nil {
		t.Fatalf("first resume: %v", err)
	}
	if sawFirst != v0 {
		t.Fatalf("body's first resume value = %v, want %v", sawFirst, v0)
	}
	if got.AsFixnum() != 1 {
		t.Fatalf("first yield should deliver 1, got %v", got)
	}

	got, err = f.Resume(mustInt(2))
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if got.AsFixnum() != 2 {
		t.Fatalf("second yield should deliver the resume value (2), got %v", got)
	}

	got, err = f.Resume(mustInt(3))
	if err != nil {
		t.Fatalf("third resume: %v", err)
	}
	if got.AsFixnum() != 3 {
		t.Fatalf("final body return should deliver 3, got %v", got)
	}
	if f.State() != Dead {
		t.Fatalf("fiber should be Dead after its body returns")
	}
}

func TestResumeDeadFiberErrors(t *testing.T) {
	s := NewScheduler()
	f := s.Spawn(func(self *Fiber, first value.Value) (value.Value, error) {
		return first, nil
	})
	if _, err := f.Resume(mustInt(1)); err != nil {
		t.Fatalf("first resume should succeed: %v", err)
	}
	if f.State() != Dead {
		t.Fatalf("fiber should be dead after returning")
	}
	if _, err := f.Resume(mustInt(2)); err == nil {
		t.Fatalf("resuming a dead fiber must error")
	}
}

func TestFiveYieldsScenario(t *testing.T) {
	// Fiber.new { 30.times { |x| Fiber.yield x } }.resume called five times
	// => 0,1,2,3,4 (spec.md §8 scenario 4).
	s := NewScheduler()
	f := s.Spawn(func(self *Fiber, first value.Value) (value.Value, error) {
		for x := 0; x < 30; x++ {
			v, _ := mustIntOK(int64(x))
			if _, err := self.Yield(v); err != nil {
				return value.Nil(), err
			}
		}
		return value.Nil(), nil
	})

	for i := 0; i < 5; i++ {
		got, err := f.Resume(value.Nil())
		if err != nil {
			t.Fatalf("resume %d: %v", i, err)
		}
		if got.AsFixnum() != int64(i) {
			t.Fatalf("resume %d = %v, want %d", i, got, i)
		}
	}
}

func mustInt(n int64) value.Value {
	v, ok := value.Integer(n)
	if !ok {
		panic("unpackable test fixture")
	}
	return v
}

func mustIntOK(n int64) (value.Value, bool) { return value.Integer(n) }
