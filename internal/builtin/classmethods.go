package builtin

import (
	"j5.nz/rbvm/internal/value"
)

// BasicObjectClassMethods implements the one class method every class
// inherits through its singleton chain: .new allocates a bare instance and
// runs #initialize against it, per spec.md §4.5. Installed on
// BasicObject's singleton class, the terminal ancestor of every class's
// singleton chain in this simplified model (see internal/class.Class's
// SingletonClass doc comment).
func BasicObjectClassMethods() Registry {
	return Registry{
		"new": genericNew,
	}
}

func genericNew(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.ClassValue(self)
	if !ok {
		return value.Nil(), nil
	}
	instance := vm.NewInstance(c)
	if _, err := vm.Send(instance, "initialize", args.Positional, args.Block); err != nil {
		return value.Nil(), err
	}
	return instance, nil
}
