package interp

import (
	"j5.nz/rbvm/internal/builtin"
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/value"
)

// DefiningClassOf implements builtin.VM: class-body built-ins (attr_reader,
// include, …) receive the class object itself as self, so this is just
// ClassValue under the name the VM interface groups with its class-body
// helpers.
func (it *Interp) DefiningClassOf(self value.Value) (*class.Class, bool) {
	return it.ClassValue(self)
}

// DefineAttrReader implements builtin.VM, installing a KindAttrReader
// method exactly as DEF_METHOD would for a compiled `def name; @ivarName;
// end`, per spec.md §3's MethodInfo attr-reader variant.
func (it *Interp) DefineAttrReader(c *class.Class, name, ivarName string) {
	c.DefineMethod(it.Repo, name, method.Info{
		Kind:       method.KindAttrReader,
		IvarName:   ivarName,
		CachedSlot: -1,
	})
}

// DefineAttrWriter implements builtin.VM.
func (it *Interp) DefineAttrWriter(c *class.Class, name, ivarName string) {
	c.DefineMethod(it.Repo, name, method.Info{
		Kind:       method.KindAttrWriter,
		IvarName:   ivarName,
		CachedSlot: -1,
	})
}

// IncludeModule implements builtin.VM.
func (it *Interp) IncludeModule(c, m *class.Class) { c.Include(it.Repo, m) }

// NewSymbol implements builtin.VM.
func (it *Interp) NewSymbol(name string) value.Value {
	return value.Symbol(it.Symbols.Intern(name))
}

// SymbolOf implements builtin.VM.
func (it *Interp) SymbolOf(v value.Value) (string, bool) {
	if !v.IsPackedSymbol() {
		return "", false
	}
	return it.Symbols.Name(v.AsSymbol()), true
}

// NewClass implements builtin.VM: allocates a fresh (possibly anonymous)
// subclass of super, for built-ins like Struct.new that generate a class at
// runtime rather than through DEF_CLASS bytecode.
func (it *Interp) NewClass(super *class.Class, name string) *class.Class {
	return class.New(name, super)
}

// DefineBuiltinMethod implements builtin.VM: installs fn as a
// KindBuiltinFunc method on c, for built-ins that synthesize methods on a
// class they just created (Struct.new's per-shape initialize/inspect).
func (it *Interp) DefineBuiltinMethod(c *class.Class, name string, fn builtin.Func) {
	c.DefineMethod(it.Repo, name, method.Info{Kind: method.KindBuiltinFunc, Builtin: fn})
}
