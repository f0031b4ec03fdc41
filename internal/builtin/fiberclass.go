package builtin

import (
	"j5.nz/rbvm/internal/fiber"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// FiberMethods implements the instance-level surface of Fiber — #resume and
// #alive? — installed on Fiber itself. Fiber.new/Fiber.yield are class-level
// (FiberClassMethods, installed on Fiber's singleton) since they don't take
// a Fiber instance as their receiver.
func FiberMethods() Registry {
	return Registry{
		"resume": fiberResume,
		"alive?": fiberAlive,
	}
}

// FiberClassMethods implements Fiber.new and Fiber.yield, per spec.md §4.6.
func FiberClassMethods() Registry {
	return Registry{
		"new":   fiberNew,
		"yield": fiberYield,
	}
}

func fiberNew(vm VM, self value.Value, args *Args) (value.Value, error) {
	if !args.HasBlock() {
		return value.Nil(), rerrors.New(rerrors.Argument, "Fiber.new requires a block")
	}
	block := args.Block
	return vm.NewFiber(func(f *fiber.Fiber, first value.Value) (value.Value, error) {
		return vm.CallBlock(block, []value.Value{first})
	}), nil
}

func fiberResume(vm VM, self value.Value, args *Args) (value.Value, error) {
	f, ok := vm.FiberOf(self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "resume: not a Fiber")
	}
	return f.Resume(args.At(0))
}

func fiberAlive(vm VM, self value.Value, args *Args) (value.Value, error) {
	f, ok := vm.FiberOf(self)
	if !ok {
		return value.Bool(false), nil
	}
	return value.Bool(f.State() != fiber.Dead), nil
}

// fiberYield implements Fiber.yield(value): called from inside the running
// fiber's body, per spec.md §5's "Error if called from the main fiber".
func fiberYield(vm VM, self value.Value, args *Args) (value.Value, error) {
	cur := vm.Fibers().Current()
	if cur == nil {
		return value.Nil(), rerrors.New(rerrors.Fiber, "can't yield from root fiber")
	}
	return cur.Yield(args.At(0))
}
