package builtin

import (
	"fmt"
	"os"

	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// KernelMethods implements the handful of Kernel-level built-ins
// SPEC_FULL.md's testable scenarios exercise: puts/print/p for visible
// output, raise for user-initiated errors, loop, and the no-op initialize.
//
// Grounded on the teacher's own native function table in backend_vm.go
// (nativeFuncs), which wires a handful of Go functions directly into the
// call-by-name dispatch table the same way this Registry is installed by
// internal/boot.
func KernelMethods() Registry {
	return Registry{
		"initialize": kernelInitialize,
		"puts":       kernelPuts,
		"print":      kernelPrint,
		"p":          kernelP,
		"raise":      kernelRaise,
		"loop":       kernelLoop,
	}
}

// kernelInitialize is BasicObject#initialize: a no-op, overridden by
// subclasses that declare their own (spec.md §4.5's Class.new → allocate →
// initialize protocol).
func kernelInitialize(vm VM, self value.Value, args *Args) (value.Value, error) {
	return value.Nil(), nil
}

func kernelPuts(vm VM, self value.Value, args *Args) (value.Value, error) {
	if args.Count() == 0 {
		fmt.Fprintln(os.Stdout)
		return value.Nil(), nil
	}
	for _, a := range args.Positional {
		putsOne(vm, a)
	}
	return value.Nil(), nil
}

func putsOne(vm VM, v value.Value) {
	if arr, ok := vm.ArrayOf(v); ok {
		if len(arr.Elements) == 0 {
			fmt.Fprintln(os.Stdout)
			return
		}
		for _, e := range arr.Elements {
			putsOne(vm, e)
		}
		return
	}
	if s, ok := vm.StringOf(v); ok {
		fmt.Fprintln(os.Stdout, s)
		return
	}
	fmt.Fprintln(os.Stdout, vm.Inspect(v))
}

func kernelPrint(vm VM, self value.Value, args *Args) (value.Value, error) {
	for _, a := range args.Positional {
		if s, ok := vm.StringOf(a); ok {
			fmt.Fprint(os.Stdout, s)
		} else {
			fmt.Fprint(os.Stdout, vm.Inspect(a))
		}
	}
	return value.Nil(), nil
}

func kernelP(vm VM, self value.Value, args *Args) (value.Value, error) {
	for _, a := range args.Positional {
		fmt.Fprintln(os.Stdout, vm.Inspect(a))
	}
	if args.Count() == 1 {
		return args.At(0), nil
	}
	return vm.NewArray(args.Positional), nil
}

// kernelRaise implements `raise "msg"` and `raise exc`. A bare string
// becomes a RuntimeError; any other first argument is wrapped opaquely as a
// ValueErr and re-inspected by internal/interp's rescue machinery
// (spec.md §4.7) rather than interpreted here. `raise Class, "msg"` is not
// special-cased: the class itself is wrapped and the message is not used.
func kernelRaise(vm VM, self value.Value, args *Args) (value.Value, error) {
	if args.Count() == 0 {
		return value.Nil(), rerrors.New(rerrors.Runtime, "unhandled exception")
	}
	if s, ok := vm.StringOf(args.At(0)); ok {
		return value.Nil(), rerrors.New(rerrors.Runtime, "%s", s)
	}
	return value.Nil(), &rerrors.ValueErr{Exception: args.At(0)}
}

// kernelLoop repeatedly invokes the given block until it raises
// StopIteration (spec.md §8's enumerator-driven loop idiom), swallowing
// that one error kind as the normal termination signal.
func kernelLoop(vm VM, self value.Value, args *Args) (value.Value, error) {
	if !args.HasBlock() {
		return value.Nil(), rerrors.New(rerrors.LocalJump, "no block given (loop)")
	}
	for {
		_, err := vm.CallBlock(args.Block, nil)
		if err == nil {
			continue
		}
		if re, ok := err.(*rerrors.RuntimeErr); ok && re.Kind == rerrors.Stop {
			return value.Nil(), nil
		}
		return value.Nil(), err
	}
}
