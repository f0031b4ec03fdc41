// Package interp is rbvm's equivalent of the teacher's backend_vm.go
// execFunc: a switch over opcode bytes read straight out of an iseq.ISeq,
// driving an operand stack, invoking internal/class resolution through
// internal/cache on SEND, and checking the allocator's GC safe point on
// JMP_BACK. Where backend_vm.go dispatches native-register machine ops,
// Interp dispatches iseq.Op bytecode against value.Value operands — same
// per-instruction for-loop shape, different target.
package interp

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	"j5.nz/rbvm/internal/builtin"
	"j5.nz/rbvm/internal/cache"
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/fiber"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/symtab"
	"j5.nz/rbvm/internal/value"
)

// callSite keys per-call-site inline caches by (iseqID, pc): stable for the
// lifetime of a given compiled body, exactly like the teacher's per-PC
// caches in backend_vm.go's inline cache table.
type callSite struct {
	iseqID int
	pc     int
}

// Classes bundles the metacircle roots internal/boot builds, handed to
// NewInterp once bootstrap has run.
type Classes struct {
	BasicObject *class.Class
	Object      *class.Class
	Module      *class.Class
	Class       *class.Class
	Integer     *class.Class
	Float       *class.Class
	String      *class.Class
	Symbol      *class.Class
	Array       *class.Class
	Hash        *class.Class
	Range       *class.Class
	Proc        *class.Class
	NilClass    *class.Class
	TrueClass   *class.Class
	FalseClass  *class.Class
	Fiber       *class.Class
	Enumerator  *class.Class
	Struct      *class.Class
}

// Interp is the running virtual machine: every piece internal/boot wires
// together and every package in internal/interp's dispatch loop touches.
type Interp struct {
	ObjStore *object.Store
	Repo     *method.Repo
	Global   *cache.GlobalMethodCache
	ISeqs    map[int]*iseq.ISeq
	Symbols  *symtab.Table
	Sched    *fiber.Scheduler
	Globals  map[string]value.Value
	Classes  Classes

	methodCaches map[callSite]*cache.MethodEntry
	constCaches  map[callSite]*cache.ConstEntry
	ivarCaches   map[callSite]*cache.IvarEntry

	// Debug is an instruction step counter, toggled by RBVM_STEP_LIMIT
	// (mirroring the teacher's RTG_VM_STEPS debug counter in
	// backend_vm.go): when nonzero, ExecFrame aborts with an Internal
	// error once the limit is exceeded, guarding against a runaway loop
	// during development.
	Debug     bool
	stepLimit int64
	steps     int64

	// jumpTarget carries the destination pc for a ctrlJumpTo signal between
	// step() and ExecFrame's loop; safe unsynchronized state because at
	// most one fiber goroutine is ever unblocked at a time (spec.md §5).
	jumpTarget int

	// activeFrames is the stack of frame.Contexts currently executing,
	// pushed/popped by ExecFrame, so a JMP_BACK safe point can mark every
	// live local/self as a GC root (see gcroots.go).
	activeFrames []*frame.Context

	// classBoxes remembers the one boxed Value object.Store.Alloc created
	// for a given *class.Class, so reopening a class (DEF_CLASS against an
	// existing constant) yields the same object identity every time.
	classBoxes map[*class.Class]value.Value

	// pendingException carries the boxed exception Value handleError found
	// for the handler PC it just returned; ExecFrame pushes it onto the
	// resuming frame's operand stack before continuing, exactly where a
	// rescue clause's bytecode expects to find $! (spec.md §4.7).
	pendingException value.Value
}

// New creates an Interp. Classes must be installed (see internal/boot)
// before any bytecode runs.
func New(store *object.Store, repo *method.Repo, symbols *symtab.Table) *Interp {
	it := &Interp{
		ObjStore:     store,
		Repo:         repo,
		Global:       cache.NewGlobalMethodCache(),
		ISeqs:        map[int]*iseq.ISeq{},
		Symbols:      symbols,
		Sched:        fiber.NewScheduler(),
		Globals:      map[string]value.Value{},
		methodCaches: map[callSite]*cache.MethodEntry{},
		constCaches:  map[callSite]*cache.ConstEntry{},
		ivarCaches:   map[callSite]*cache.IvarEntry{},
		classBoxes:   map[*class.Class]value.Value{},
	}
	if s := os.Getenv("RBVM_STEP_LIMIT"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			it.Debug = true
			it.stepLimit = n
		}
	}
	return it
}

// AddISeq registers a compiled body so Send/CreateProc/DefClass can look it
// up by id.
func (it *Interp) AddISeq(body *iseq.ISeq) { it.ISeqs[body.ID] = body }

func (it *Interp) methodCache(site callSite) *cache.MethodEntry {
	e, ok := it.methodCaches[site]
	if !ok {
		e = &cache.MethodEntry{}
		it.methodCaches[site] = e
	}
	return e
}

func (it *Interp) constCache(site callSite) *cache.ConstEntry {
	e, ok := it.constCaches[site]
	if !ok {
		e = &cache.ConstEntry{}
		it.constCaches[site] = e
	}
	return e
}

func (it *Interp) ivarCache(site callSite) *cache.IvarEntry {
	e, ok := it.ivarCaches[site]
	if !ok {
		e = &cache.IvarEntry{}
		it.ivarCaches[site] = e
	}
	return e
}

// ClassOf returns the lookup class for v, handling every immediate kind
// before falling back to a boxed cell's stored class (spec.md §4.3's
// receiver-class computation).
func (it *Interp) ClassOf(v value.Value) *class.Class {
	switch {
	case v.IsPackedFixnum():
		return it.Classes.Integer
	case v.IsPackedFlonum():
		return it.Classes.Float
	case v.IsPackedSymbol():
		return it.Classes.Symbol
	case v.IsNil():
		return it.Classes.NilClass
	case v.IsTrue():
		return it.Classes.TrueClass
	case v.IsFalse():
		return it.Classes.FalseClass
	default:
		rv := it.ObjStore.Get(v)
		if rv == nil || rv.Class == nil {
			return it.Classes.Object
		}
		c, _ := rv.Class.(*class.Class)
		return c
	}
}

// lookupClassFor returns the class method dispatch should resolve against:
// for an ordinary receiver this is just ClassOf, but a boxed class/module
// object dispatches against its own singleton class first (spec.md §4.5's
// "classes are themselves objects" extends to class methods like
// ClassName.new living on that singleton, distinct from the Class/Module
// object that ClassOf(recv) reports for `.class`).
func (it *Interp) lookupClassFor(v value.Value) *class.Class {
	if rv := it.ObjStore.Get(v); rv != nil && rv.Kind == object.KindModule {
		if c, ok := rv.Opaque.(*class.Class); ok {
			return c.SingletonClass()
		}
	}
	return it.ClassOf(v)
}

// ClassNamed implements builtin.VM.
func (it *Interp) ClassNamed(name string) *class.Class {
	if v, ok := it.Classes.Object.Constants[name]; ok {
		if rv := it.ObjStore.Get(v); rv != nil {
			if c, ok := rv.Opaque.(*class.Class); ok {
				return c
			}
		}
	}
	return nil
}

var _ builtin.VM = (*Interp)(nil)

// internalErr wraps a Go-level failure into a RuntimeErr with a retained Go
// stack trace (github.com/pkg/errors), per SPEC_FULL.md §4.7's ambient
// error-wrapping rule — used at the handful of sites where a bug in rbvm
// itself, not a Ruby-level fault, is the explanation.
func internalErr(format string, args ...interface{}) error {
	return errors.WithStack(rerrors.New(rerrors.Internal, format, args...))
}
