package builtin

import (
	"fmt"

	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// IntegerMethods implements Integer#times/#upto/#downto (the iteration
// primitives SPEC_FULL.md §8's "fixnum fast path and Integer#times" scenario
// exercises) plus the arithmetic/comparison operators as ordinary dispatch
// targets, reached only when internal/interp's numeric fast path in arith.go
// doesn't short-circuit first (a non-Integer right-hand operand, or an
// explicit #send(:+, ...) call).
func IntegerMethods() Registry {
	return Registry{
		"times":  intTimes,
		"upto":   intUpto,
		"downto": intDownto,
		"to_s":   intToS,
		"to_i":   intIdentity,
		"to_f":   intToF,
		"+":      intOp(func(a, b int64) int64 { return a + b }),
		"-":      intOp(func(a, b int64) int64 { return a - b }),
		"*":      intOp(func(a, b int64) int64 { return a * b }),
		"even?":  intEven,
		"odd?":   intOdd,
		"zero?":  intZero,
		"abs":    intAbs,
	}
}

func intSelf(vm VM, self value.Value) (int64, bool) { return vm.IntOf(self) }

func intTimes(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, ok := intSelf(vm, self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "times: receiver is not an Integer")
	}
	if !args.HasBlock() {
		return value.Nil(), rerrors.New(rerrors.LocalJump, "no block given (times)")
	}
	for i := int64(0); i < n; i++ {
		if _, err := vm.CallBlock(args.Block, []value.Value{vm.NewInt(i)}); err != nil {
			return value.Nil(), err
		}
	}
	return self, nil
}

func intUpto(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, ok := intSelf(vm, self)
	limit, lok := vm.IntOf(args.At(0))
	if !ok || !lok {
		return value.Nil(), rerrors.New(rerrors.Type, "upto: not an Integer")
	}
	if !args.HasBlock() {
		return value.Nil(), rerrors.New(rerrors.LocalJump, "no block given (upto)")
	}
	for i := n; i <= limit; i++ {
		if _, err := vm.CallBlock(args.Block, []value.Value{vm.NewInt(i)}); err != nil {
			return value.Nil(), err
		}
	}
	return self, nil
}

func intDownto(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, ok := intSelf(vm, self)
	limit, lok := vm.IntOf(args.At(0))
	if !ok || !lok {
		return value.Nil(), rerrors.New(rerrors.Type, "downto: not an Integer")
	}
	if !args.HasBlock() {
		return value.Nil(), rerrors.New(rerrors.LocalJump, "no block given (downto)")
	}
	for i := n; i >= limit; i-- {
		if _, err := vm.CallBlock(args.Block, []value.Value{vm.NewInt(i)}); err != nil {
			return value.Nil(), err
		}
	}
	return self, nil
}

func intToS(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, _ := intSelf(vm, self)
	return vm.NewString(fmt.Sprintf("%d", n)), nil
}

func intIdentity(vm VM, self value.Value, args *Args) (value.Value, error) { return self, nil }

func intToF(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, _ := intSelf(vm, self)
	return vm.NewFloat(float64(n)), nil
}

func intOp(f func(a, b int64) int64) Func {
	return func(vm VM, self value.Value, args *Args) (value.Value, error) {
		a, aok := intSelf(vm, self)
		b, bok := vm.IntOf(args.At(0))
		if !aok || !bok {
			return value.Nil(), rerrors.New(rerrors.Type, "not an Integer")
		}
		return vm.NewInt(f(a, b)), nil
	}
}

func intEven(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, _ := intSelf(vm, self)
	return value.Bool(n%2 == 0), nil
}

func intOdd(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, _ := intSelf(vm, self)
	return value.Bool(n%2 != 0), nil
}

func intZero(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, _ := intSelf(vm, self)
	return value.Bool(n == 0), nil
}

func intAbs(vm VM, self value.Value, args *Args) (value.Value, error) {
	n, _ := intSelf(vm, self)
	if n < 0 {
		n = -n
	}
	return vm.NewInt(n), nil
}
