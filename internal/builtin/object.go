package builtin

import (
	"j5.nz/rbvm/internal/value"
)

// ObjectMethods implements the handful of Object-level built-ins the
// testable scenarios exercise: identity/class introspection and the
// default #to_s/#inspect every object needs before a subclass overrides it.
func ObjectMethods() Registry {
	return Registry{
		"class":       objClass,
		"is_a?":       objIsA,
		"kind_of?":    objIsA,
		"==":          objEq,
		"!=":          objNeq,
		"nil?":        objNilQ,
		"to_s":        objToS,
		"inspect":     objInspect,
		"freeze":      objFreeze,
		"frozen?":     objFrozenQ,
		"respond_to?": objRespondTo,
		"send":        objSend,
	}
}

func objClass(vm VM, self value.Value, args *Args) (value.Value, error) {
	return vm.BoxClass(vm.ClassOf(self)), nil
}

func objIsA(vm VM, self value.Value, args *Args) (value.Value, error) {
	if args.Count() != 1 {
		return value.Bool(false), nil
	}
	target, ok := vm.ClassValue(args.At(0))
	if !ok {
		return value.Bool(false), nil
	}
	return value.Bool(vm.IsA(self, target)), nil
}

func objEq(vm VM, self value.Value, args *Args) (value.Value, error) {
	return value.Bool(args.Count() == 1 && self == args.At(0)), nil
}

func objNeq(vm VM, self value.Value, args *Args) (value.Value, error) {
	return value.Bool(args.Count() != 1 || self != args.At(0)), nil
}

func objNilQ(vm VM, self value.Value, args *Args) (value.Value, error) {
	return value.Bool(self.IsNil()), nil
}

func objToS(vm VM, self value.Value, args *Args) (value.Value, error) {
	return vm.NewString(vm.Inspect(self)), nil
}

func objInspect(vm VM, self value.Value, args *Args) (value.Value, error) {
	return vm.NewString(vm.Inspect(self)), nil
}

func objFreeze(vm VM, self value.Value, args *Args) (value.Value, error) {
	return self, nil
}

func objFrozenQ(vm VM, self value.Value, args *Args) (value.Value, error) {
	return value.Bool(false), nil
}

func objRespondTo(vm VM, self value.Value, args *Args) (value.Value, error) {
	if args.Count() != 1 {
		return value.Bool(false), nil
	}
	name, ok := vm.StringOf(args.At(0))
	if !ok {
		return value.Bool(false), nil
	}
	_, err := vm.Send(self, name, nil, value.Nil())
	return value.Bool(err == nil), nil
}

func objSend(vm VM, self value.Value, args *Args) (value.Value, error) {
	if args.Count() == 0 {
		return value.Nil(), nil
	}
	name, _ := vm.StringOf(args.At(0))
	return vm.Send(self, name, args.Positional[1:], args.Block)
}
