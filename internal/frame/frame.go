// Package frame implements the call frame (Context) described in spec.md
// §3 and the closure-promotion rule of §9: contexts default to stack
// allocation and are promoted to the heap when a proc or lambda captures
// them as an outer lexical scope.
package frame

import "j5.nz/rbvm/internal/value"

// Block is whatever was passed as a block argument to the call that
// created this Context: either a method reference or a closed-over Proc.
// Kept as an opaque interface{} here to avoid an import cycle with
// internal/object; internal/interp knows the concrete type.
type Block interface{}

// Context is one call frame: self, locals, the lexical outer chain for
// blocks/closures, the program counter, and the block argument threaded
// into this call.
type Context struct {
	Self    value.Value
	ISeqID  int
	Locals  []value.Value
	Outer   *Context // lexical parent, for blocks/closures; nil for methods
	PC      int
	Block   Block
	Caller  *Context // dynamic call-stack parent, for backtraces

	// DefiningClass is the lexical class-definition scope active for this
	// frame's SET_CONST/GET_CONST/class-variable resolution. Opaque
	// (internal/class.Class) to avoid a cycle; internal/interp casts it.
	DefiningClass interface{}

	// OnStack is true while this Context has not been captured by an
	// escaping closure. Promotion (see Promote) flips it false and is
	// irreversible.
	OnStack bool
}

// New creates a fresh on-stack Context for a call.
func New(self value.Value, iseqID int, numLocals int, outer, caller *Context, block Block) *Context {
	c := &Context{
		Self:    self,
		ISeqID:  iseqID,
		Locals:  make([]value.Value, numLocals),
		Outer:   outer,
		Caller:  caller,
		Block:   block,
		OnStack: true,
	}
	for i := range c.Locals {
		c.Locals[i] = value.Nil()
	}
	return c
}

// SelfValue, LocalValues, and OuterRef implement object.FrameRef, so the
// GC's mark phase can walk a captured closure's outer chain without this
// package importing object (frame is a lower-level dependency than the
// heap-cell payload type).
func (c *Context) SelfValue() value.Value   { return c.Self }
func (c *Context) LocalValues() []value.Value { return c.Locals }
func (c *Context) OuterRef() interface{} {
	if c.Outer == nil {
		return nil
	}
	return c.Outer
}

// Outer lookups walk this many levels for dynamic locals (SET_DYNLOCAL /
// GET_DYNLOCAL's outer-depth operand).
func (c *Context) OuterAt(depth int) *Context {
	cur := c
	for i := 0; i < depth && cur != nil; i++ {
		cur = cur.Outer
	}
	return cur
}

// Promote walks the on-stack outer chain starting at c and copies every
// frame whose OnStack flag is set into heap-owned storage, per spec.md §9
// "Closures and outer contexts": a proc/lambda that escapes must see a
// stable outer chain even after its creating call returns.
//
// Because Context here is already a Go heap pointer (not an actual machine
// stack slot), "promotion" is a bookkeeping operation rather than a real
// copy: it just clears OnStack so internal/interp knows not to reuse or
// discard the frame when its originating call returns. This mirrors the
// teacher's own preference for explicit state flags over implicit
// lifetime tricks (see std/compiler/backend_vm.go's frame-stack
// bookkeeping, adapted from a raw stack offset to a Go-GC-visible flag).
func Promote(c *Context) {
	for cur := c; cur != nil && cur.OnStack; cur = cur.Outer {
		cur.OnStack = false
	}
}
