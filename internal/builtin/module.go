package builtin

import (
	"j5.nz/rbvm/internal/value"
)

// ModuleMethods implements the class-body built-ins a DEF_CLASS body
// invokes against its own class object as self: attr_accessor/attr_reader/
// attr_writer (spec.md §3's MethodInfo attr variants) and include (spec.md
// §4.3's mixin precedence).
func ModuleMethods() Registry {
	return Registry{
		"attr_accessor":    attrAccessor,
		"attr_reader":      attrReader,
		"attr_writer":      attrWriter,
		"include":          moduleInclude,
		"name":             moduleName,
		"===":              moduleTeq,
		"instance_methods": moduleInstanceMethods,
		"constants":        moduleConstants,
	}
}

func ivarNameOf(vm VM, v value.Value) (string, bool) {
	if s, ok := vm.SymbolOf(v); ok {
		return s, true
	}
	return vm.StringOf(v)
}

func attrReader(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok {
		return value.Nil(), nil
	}
	for _, a := range args.Positional {
		name, ok := ivarNameOf(vm, a)
		if !ok {
			continue
		}
		vm.DefineAttrReader(c, name, "@"+name)
	}
	return value.Nil(), nil
}

func attrWriter(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok {
		return value.Nil(), nil
	}
	for _, a := range args.Positional {
		name, ok := ivarNameOf(vm, a)
		if !ok {
			continue
		}
		vm.DefineAttrWriter(c, name+"=", "@"+name)
	}
	return value.Nil(), nil
}

func attrAccessor(vm VM, self value.Value, args *Args) (value.Value, error) {
	if _, err := attrReader(vm, self, args); err != nil {
		return value.Nil(), err
	}
	return attrWriter(vm, self, args)
}

func moduleInclude(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok {
		return self, nil
	}
	for _, a := range args.Positional {
		if m, ok := vm.ClassValue(a); ok {
			vm.IncludeModule(c, m)
		}
	}
	return self, nil
}

func moduleName(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok {
		return value.Nil(), nil
	}
	return vm.NewString(c.VersionedName()), nil
}

func moduleTeq(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok || args.Count() != 1 {
		return value.Bool(false), nil
	}
	return value.Bool(vm.IsA(args.At(0), c)), nil
}

func moduleInstanceMethods(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok {
		return vm.NewArray(nil), nil
	}
	names := make([]value.Value, 0)
	for name := range c.Methods {
		names = append(names, vm.NewSymbol(name))
	}
	return vm.NewArray(names), nil
}

// moduleConstants implements Module#constants: own-class constants plus the
// same from every ancestor up the superclass chain, stopping before Object
// (otherwise every built-in class registration Object carries would also
// surface). A name nearer the receiver shadows a same-named ancestor
// constant rather than appearing twice.
func moduleConstants(vm VM, self value.Value, args *Args) (value.Value, error) {
	c, ok := vm.DefiningClassOf(self)
	if !ok {
		return vm.NewArray(nil), nil
	}
	objectClass := vm.ClassNamed("Object")
	seen := map[string]bool{}
	names := make([]value.Value, 0)
	for cur := c; cur != nil && cur != objectClass; cur = cur.Super {
		for name := range cur.Constants {
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, vm.NewSymbol(name))
		}
	}
	return vm.NewArray(names), nil
}
