// Package vm wires internal/boot's metacircle, internal/interp's dispatch
// loop, and an ISeq set into the one entry point cmd/rbvm and this
// package's own integration tests drive scripts through: VM.Run.
//
// Grounded on the teacher's own staged-bootstrap-then-run shape in
// std/compiler/main.go (build every global, then hand control to the
// compiled program) adapted from a compile-and-exec pipeline to one that
// accepts already-compiled internal/iseq.ISeq bodies, since the bytecode
// emitter itself is out of scope (spec.md §1).
package vm

import (
	"j5.nz/rbvm/internal/boot"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/interp"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/value"
)

// VM is the wired-up façade spec.md §2 lists separately from
// internal/interp: boot's metacircle plus the top-level "main" object
// every script's outermost frame runs against (Ruby's own top-level self).
type VM struct {
	*interp.Interp
	main value.Value
}

// New boots a fresh VM: metacircle classes, built-in registries, ENV, and
// a top-level main object, ready to run compiled ISeqs.
func New() *VM {
	it := boot.New()
	main := it.NewInstance(it.Classes.Object)
	return &VM{Interp: it, main: main}
}

// AddISeqs registers every body in bodies, for programs compiled as
// several mutually-referencing ISeqs (a method body, a block, a class
// body) alongside the one passed to Run.
func (m *VM) AddISeqs(bodies ...*iseq.ISeq) {
	for _, b := range bodies {
		m.AddISeq(b)
	}
}

// Run executes entry as the top-level script frame: self is the main
// object, the defining class is Object, matching spec.md §6's top-level
// SET_CONST/GET_CONST target (internal/interp/consts.go's definingClass
// fallback). Any other ISeq entry's body references (methods, blocks,
// class bodies) must already be registered, via AddISeqs or a prior Run.
func (m *VM) Run(entry *iseq.ISeq) (value.Value, error) {
	m.AddISeq(entry)
	ctx := frame.New(m.main, entry.ID, len(entry.Locals), nil, nil, nil)
	ctx.DefiningClass = m.Classes.Object
	return m.ExecFrame(ctx)
}

// SetArgs materializes $0/ARGV the way cmd/rbvm's `run` subcommand does
// before executing the loaded file (spec.md §6), ahead of calling Run.
func (m *VM) SetArgs(programName string, args []string) {
	m.Globals["$PROGRAM_NAME"] = m.NewString(programName)
	argv := make([]value.Value, len(args))
	for i, a := range args {
		argv[i] = m.NewString(a)
	}
	m.Classes.Object.SetConstant("ARGV", m.NewArray(argv))
}
