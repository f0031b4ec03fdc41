package builtin

import (
	"fmt"

	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// FloatMethods implements the small set of Float built-ins exercised
// alongside Integer's numeric fast path (spec.md §4.4's mixed-type
// promotion), reached only when a non-fast-path receiver explicitly sends
// one of these.
func FloatMethods() Registry {
	return Registry{
		"to_s": floatToS,
		"to_f": floatIdentity,
		"to_i": floatToI,
		"+":    floatOp(func(a, b float64) float64 { return a + b }),
		"-":    floatOp(func(a, b float64) float64 { return a - b }),
		"*":    floatOp(func(a, b float64) float64 { return a * b }),
		"/":    floatOp(func(a, b float64) float64 { return a / b }),
	}
}

func floatSelf(vm VM, self value.Value) (float64, bool) { return vm.FloatOf(self) }

func floatToS(vm VM, self value.Value, args *Args) (value.Value, error) {
	f, _ := floatSelf(vm, self)
	return vm.NewString(fmt.Sprintf("%g", f)), nil
}

func floatIdentity(vm VM, self value.Value, args *Args) (value.Value, error) { return self, nil }

func floatToI(vm VM, self value.Value, args *Args) (value.Value, error) {
	f, _ := floatSelf(vm, self)
	return vm.NewInt(int64(f)), nil
}

func floatOp(f func(a, b float64) float64) Func {
	return func(vm VM, self value.Value, args *Args) (value.Value, error) {
		a, aok := floatSelf(vm, self)
		b, bok := vm.FloatOf(args.At(0))
		if !bok {
			if n, ok := vm.IntOf(args.At(0)); ok {
				b, bok = float64(n), true
			}
		}
		if !aok || !bok {
			return value.Nil(), rerrors.New(rerrors.Type, "not a Float")
		}
		return vm.NewFloat(f(a, b)), nil
	}
}
