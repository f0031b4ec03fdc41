package builtin

import (
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// EnumeratorMethods implements the lazy-sequence surface #next/#each/#peek
// Array#each and Range#each return when called without a block, per
// spec.md §4.6's Enumerator-on-top-of-Fiber design.
func EnumeratorMethods() Registry {
	return Registry{
		"next": enumNext,
		"each": enumEach,
		"peek": enumPeek,
	}
}

func enumNext(vm VM, self value.Value, args *Args) (value.Value, error) {
	e, ok := vm.EnumeratorOf(self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "not an Enumerator")
	}
	return e.Next()
}

func enumPeek(vm VM, self value.Value, args *Args) (value.Value, error) {
	e, ok := vm.EnumeratorOf(self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "not an Enumerator")
	}
	if e.Done() {
		return value.Nil(), rerrors.New(rerrors.Stop, "iteration reached an end")
	}
	return e.Next()
}

func enumEach(vm VM, self value.Value, args *Args) (value.Value, error) {
	e, ok := vm.EnumeratorOf(self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "not an Enumerator")
	}
	if !args.HasBlock() {
		return self, nil
	}
	for {
		v, err := e.Next()
		if err != nil {
			if re, isStop := err.(*rerrors.RuntimeErr); isStop && re.Kind == rerrors.Stop {
				return self, nil
			}
			return value.Nil(), err
		}
		if _, err := vm.CallBlock(args.Block, []value.Value{v}); err != nil {
			return value.Nil(), err
		}
	}
}
