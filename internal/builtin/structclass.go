package builtin

import (
	"strings"

	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// StructClassMethods implements Struct.new(:a, :b, ...): it builds a fresh
// anonymous subclass with an attr_accessor per field, a positional
// initialize, and an inspect/to_s rendering `#<struct Name @a=.. @b=..>`
// (the class name appearing only once a constant assignment names it, per
// internal/interp's nameAnonymousClass). Installed on Struct's singleton
// class by internal/boot, exactly like FiberClassMethods on Fiber.
func StructClassMethods() Registry {
	return Registry{
		"new": structClassNew,
	}
}

// structClassNew is installed on Struct's own singleton class, so it is
// also what a generated struct subclass inherits for its own `.new` (that
// subclass's singleton chains up through Struct's). Real struct instance
// creation (`Point.new(1, 2)`) must fall through to the ordinary
// allocate-then-initialize protocol instead of re-running the
// shape-building logic below — distinguished by whether self is Struct
// itself or one of its generated descendants.
func structClassNew(vm VM, self value.Value, args *Args) (value.Value, error) {
	structClass, ok := vm.ClassValue(self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "Struct.new: bad receiver")
	}
	if structClass != vm.ClassNamed("Struct") {
		return genericNew(vm, self, args)
	}
	fields := make([]string, 0, args.Count())
	for _, a := range args.Positional {
		name, ok := ivarNameOf(vm, a)
		if !ok {
			return value.Nil(), rerrors.New(rerrors.Type, "Struct.new: field names must be Symbols or Strings")
		}
		fields = append(fields, name)
	}

	c := vm.NewClass(structClass, "")
	for _, f := range fields {
		vm.DefineAttrReader(c, f, "@"+f)
		vm.DefineAttrWriter(c, f+"=", "@"+f)
	}
	vm.DefineBuiltinMethod(c, "initialize", structInitialize(fields))
	vm.DefineBuiltinMethod(c, "inspect", structInspect(fields))
	vm.DefineBuiltinMethod(c, "to_s", structInspect(fields))
	return vm.BoxClass(c), nil
}

func structInitialize(fields []string) Func {
	return func(vm VM, self value.Value, args *Args) (value.Value, error) {
		for i, f := range fields {
			if i >= args.Count() {
				break
			}
			if _, err := vm.Send(self, f+"=", []value.Value{args.At(i)}, value.Nil()); err != nil {
				return value.Nil(), err
			}
		}
		return value.Nil(), nil
	}
}

func structInspect(fields []string) Func {
	return func(vm VM, self value.Value, args *Args) (value.Value, error) {
		c := vm.ClassOf(self)
		var b strings.Builder
		b.WriteString("#<struct")
		if c != nil && c.Name != "" {
			b.WriteString(" ")
			b.WriteString(c.Name)
		}
		for _, f := range fields {
			v, err := vm.Send(self, f, nil, value.Nil())
			if err != nil {
				return value.Nil(), err
			}
			b.WriteString(" @")
			b.WriteString(f)
			b.WriteString("=")
			b.WriteString(vm.Inspect(v))
		}
		b.WriteString(">")
		return vm.NewString(b.String()), nil
	}
}
