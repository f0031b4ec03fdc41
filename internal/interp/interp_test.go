package interp_test

import (
	"encoding/binary"
	"testing"

	"j5.nz/rbvm/internal/boot"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/interp"
	"j5.nz/rbvm/internal/iseq"
)

var nextTestISeqID = 0

func newBody(it *interp.Interp, numLocals int, a *iseq.Assembler) *iseq.ISeq {
	nextTestISeqID++
	b := &iseq.ISeq{
		ID:     nextTestISeqID,
		Locals: make([]iseq.Local, numLocals),
		Bytes:  a.Bytes(),
	}
	it.AddISeq(b)
	return b
}

// emitDynLocal hand-packs SetDynLocal/GetDynLocal's two u16 sub-fields
// (outerDepth then slot); no Assembler helper exists for this opcode pair.
func emitDynLocal(a *iseq.Assembler, op iseq.Op, outerDepth, slot uint16) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], outerDepth)
	binary.LittleEndian.PutUint16(b[2:4], slot)
	a.Emit(op, b)
}

func TestArithmeticFastPath(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)

	a := iseq.NewAssembler()
	a.EmitU64(iseq.PushFixnum, uint64(int64(3)))
	a.EmitU64(iseq.PushFixnum, uint64(int64(4)))
	a.Emit0(iseq.Add)
	a.EmitU64(iseq.PushFixnum, uint64(int64(5)))
	a.Emit0(iseq.Mul)
	a.Emit0(iseq.Return)
	entry := newBody(it, 0, a)

	ctx := frame.New(self, entry.ID, len(entry.Locals), nil, nil, nil)
	ctx.DefiningClass = it.Classes.Object
	result, err := it.ExecFrame(ctx)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	n, ok := it.IntOf(result)
	if !ok || n != 35 {
		t.Fatalf("(3+4)*5 = %v, want 35", result)
	}
}

func TestDefMethodAndSendSelf(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)
	answerSym := it.Symbols.Intern("answer")

	methodA := iseq.NewAssembler()
	methodA.EmitU64(iseq.PushFixnum, uint64(int64(42)))
	methodA.Emit0(iseq.Return)
	method := newBody(it, 0, methodA)

	topA := iseq.NewAssembler()
	topA.EmitDefMethod(iseq.DefMethod, answerSym, uint32(method.ID))
	topA.Emit0(iseq.Pop) // DefMethod's dispatch always pushes a trailing nil
	topA.EmitSend(iseq.SendSelf, answerSym, 0, 0, 0, 0)
	topA.Emit0(iseq.Return)
	top := newBody(it, 0, topA)

	ctx := frame.New(self, top.ID, len(top.Locals), nil, nil, nil)
	ctx.DefiningClass = it.Classes.Object
	result, err := it.ExecFrame(ctx)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	n, ok := it.IntOf(result)
	if !ok || n != 42 {
		t.Fatalf("self.answer = %v, want 42", result)
	}
}

// TestClosureCapturesOuterLocalAcrossGC builds a block that increments a
// counter local owned by its creating (top-level) frame via
// GetDynLocal/SetDynLocal at outer depth 1, invokes it twice through
// CallBlock directly (bypassing Yield's bytecode path), and forces a full
// collection between the two calls. The Proc is rooted through a global
// variable so object.Store.Mark's markOuterChain keeps the creating frame's
// locals (and thus the counter) alive the way an escaped closure would in
// a real program (spec.md §9's "closures and outer contexts").
func TestClosureCapturesOuterLocalAcrossGC(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)

	incrA := iseq.NewAssembler()
	emitDynLocal(incrA, iseq.GetDynLocal, 1, 0)
	incrA.EmitU64(iseq.PushFixnum, uint64(int64(1)))
	incrA.Emit0(iseq.Add)
	emitDynLocal(incrA, iseq.SetDynLocal, 1, 0)
	emitDynLocal(incrA, iseq.GetDynLocal, 1, 0)
	incrA.Emit0(iseq.Return)
	incrBody := newBody(it, 0, incrA)

	topA := iseq.NewAssembler()
	topA.EmitU64(iseq.PushFixnum, uint64(int64(0)))
	topA.EmitU16(iseq.SetLocal, 0)
	topA.EmitCreateProc(uint32(incrBody.ID), false)
	topA.EmitU16(iseq.SetLocal, 1)
	topA.Emit0(iseq.PushNil)
	topA.Emit0(iseq.Return)
	top := newBody(it, 2, topA)

	ctx := frame.New(self, top.ID, len(top.Locals), nil, nil, nil)
	ctx.DefiningClass = it.Classes.Object
	if _, err := it.ExecFrame(ctx); err != nil {
		t.Fatalf("exec top: %v", err)
	}

	proc := ctx.Locals[1]
	it.Globals["$counter_proc"] = proc

	first, err := it.CallBlock(proc, nil)
	if err != nil {
		t.Fatalf("call 1: %v", err)
	}
	if n, ok := it.IntOf(first); !ok || n != 1 {
		t.Fatalf("first call = %v, want 1", first)
	}

	if err := it.Collect(); err != nil {
		t.Fatalf("collect: %v", err)
	}

	second, err := it.CallBlock(proc, nil)
	if err != nil {
		t.Fatalf("call 2 after GC: %v", err)
	}
	if n, ok := it.IntOf(second); !ok || n != 2 {
		t.Fatalf("second call after GC = %v, want 2", second)
	}

	if n, ok := it.IntOf(ctx.Locals[0]); !ok || n != 2 {
		t.Fatalf("outer counter local = %v, want 2 (closure mutated the captured slot)", ctx.Locals[0])
	}
}
