// Package builtin defines the shape of a built-in method, per spec.md §6:
// "(vm, self_value, args) → Value | Error" where args exposes positional
// count/access, a keyword hash, and an optional block. The built-in class
// *implementations* themselves (Array, Hash, String, IO, …) are out of
// scope per spec.md §1 — only their required interface shape is specified
// here, plus the handful of methods spec.md §8's testable scenarios
// actually exercise (Integer#times, Array#sort, Range#each, Fiber,
// Struct.new, Kernel#puts/raise).
package builtin

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/enum"
	"j5.nz/rbvm/internal/fiber"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/value"
)

// Args is the argument view a built-in receives.
type Args struct {
	Positional []value.Value
	Kwargs     map[string]value.Value
	Block      value.Value // nil-equivalent is value.Nil(); callable via VM.CallBlock
}

// Count returns the positional argument count.
func (a *Args) Count() int { return len(a.Positional) }

// At returns the i'th positional argument, or nil if out of range —
// built-ins check Count themselves when arity must be exact (an
// ArgumentError, not a panic, is the correct response to wrong arity).
func (a *Args) At(i int) value.Value {
	if i < 0 || i >= len(a.Positional) {
		return value.Nil()
	}
	return a.Positional[i]
}

// HasBlock reports whether a block was passed.
func (a *Args) HasBlock() bool { return a.Block != value.Nil() }

// Func is the concrete Go signature a built-in method implements.
type Func func(vm VM, self value.Value, args *Args) (value.Value, error)

// VM is the minimal surface of internal/interp.Interp that built-ins need:
// object construction/access, sending another message, invoking a block,
// and reaching the fiber scheduler (for Fiber/Enumerator built-ins).
// Guaranteed GC-safety of arguments for the call's duration (spec.md §6)
// is the caller's (internal/interp's) responsibility, via its temp stack —
// built-ins never need to think about it.
type VM interface {
	Store() *object.Store
	ClassOf(v value.Value) *class.Class
	ClassNamed(name string) *class.Class
	BoxClass(c *class.Class) value.Value
	ClassValue(v value.Value) (*class.Class, bool)
	IsA(v value.Value, target *class.Class) bool
	Send(self value.Value, name string, args []value.Value, block value.Value) (value.Value, error)
	CallBlock(block value.Value, args []value.Value) (value.Value, error)
	NewString(s string) value.Value
	StringOf(v value.Value) (string, bool)
	NewInt(n int64) value.Value
	IntOf(v value.Value) (int64, bool)
	NewFloat(f float64) value.Value
	FloatOf(v value.Value) (float64, bool)
	NewArray(elems []value.Value) value.Value
	ArrayOf(v value.Value) (*object.ArrayInfo, bool)
	NewRange(start, end value.Value, exclusive bool) value.Value
	RangeOf(v value.Value) (start, end value.Value, exclusive bool, ok bool)
	NewInstance(c *class.Class) value.Value
	NewHash() value.Value
	HashOf(v value.Value) (*object.HashInfo, bool)
	Fibers() *fiber.Scheduler
	NewFiber(body fiber.Body) value.Value
	FiberOf(v value.Value) (*fiber.Fiber, bool)
	NewEnumerator(driver enum.Driver) value.Value
	EnumeratorOf(v value.Value) (*enum.Enumerator, bool)
	Inspect(v value.Value) string

	// DefiningClassOf(self) resolves the class a class-body built-in like
	// attr_accessor/include should install into: self is the boxed class
	// object these built-ins run against (spec.md §4.5's "classes are
	// themselves objects").
	DefiningClassOf(self value.Value) (*class.Class, bool)
	DefineAttrReader(c *class.Class, name, ivarName string)
	DefineAttrWriter(c *class.Class, name, ivarName string)
	IncludeModule(c, m *class.Class)
	NewSymbol(name string) value.Value
	SymbolOf(v value.Value) (string, bool)
	NewClass(super *class.Class, name string) *class.Class
	DefineBuiltinMethod(c *class.Class, name string, fn Func)
}

// Registry maps method names to implementations for one built-in class,
// installed into that class's method table at startup by internal/boot.
type Registry map[string]Func
