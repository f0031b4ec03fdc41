package builtin_test

import (
	"testing"

	"j5.nz/rbvm/internal/boot"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/interp"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

var nextBuiltinISeqID = 0

func newBody(it *interp.Interp, numLocals int, a *iseq.Assembler) *iseq.ISeq {
	nextBuiltinISeqID++
	b := &iseq.ISeq{
		ID:     nextBuiltinISeqID,
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
	b[0] = byte(outerDepth)
	b[1] = byte(outerDepth >> 8)
	b[2] = byte(slot)
	b[3] = byte(slot >> 8)
	a.Emit(op, b)
}

// TestIntegerTimesAccumulatesViaBlock exercises intTimes with a real
// bytecode-built block (Registry built-ins take a boxed Proc, not a bare
// Go func), confirming the block runs once per iteration with the right
// index and that the block's captured outer local survives across all of
// them — the same closure mechanism DefinedMethod bodies rely on.
func TestIntegerTimesAccumulatesViaBlock(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)

	blockA := iseq.NewAssembler()
	emitDynLocal(blockA, iseq.GetDynLocal, 1, 0) // outer sum
	blockA.EmitU16(iseq.GetLocal, 0)             // block param i
	blockA.Emit0(iseq.Add)
	emitDynLocal(blockA, iseq.SetDynLocal, 1, 0)
	blockA.Emit0(iseq.PushNil)
	blockA.Emit0(iseq.Return)
	blockBody := newBody(it, 1, blockA)

	setupA := iseq.NewAssembler()
	setupA.EmitU64(iseq.PushFixnum, uint64(int64(0)))
	setupA.EmitU16(iseq.SetLocal, 0)
	setupA.EmitCreateProc(uint32(blockBody.ID), false)
	setupA.Emit0(iseq.Return)
	setupBody := newBody(it, 1, setupA)

	setupCtx := frame.New(self, setupBody.ID, len(setupBody.Locals), nil, nil, nil)
	setupCtx.DefiningClass = it.Classes.Object
	proc, err := it.ExecFrame(setupCtx)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := it.Send(it.NewInt(5), "times", nil, proc); err != nil {
		t.Fatalf("5.times: %v", err)
	}

	sum, ok := it.IntOf(setupCtx.Locals[0])
	if !ok || sum != 10 {
		t.Fatalf("sum after 5.times = %v, want 10 (0+1+2+3+4)", setupCtx.Locals[0])
	}
}

func TestKernelRaiseWithString(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)

	_, err := it.Send(self, "raise", []value.Value{it.NewString("boom")}, value.Nil())
	if err == nil {
		t.Fatal("raise: expected an error")
	}
	re, ok := err.(*rerrors.RuntimeErr)
	if !ok {
		t.Fatalf("raise: error type = %T, want *rerrors.RuntimeErr", err)
	}
	if re.Kind != rerrors.Runtime || re.Message != "boom" {
		t.Fatalf("raise: got kind=%v message=%q, want Runtime/\"boom\"", re.Kind, re.Message)
	}
}

// TestKernelRaiseWithValue confirms raise with a non-String argument wraps
// it opaquely as a ValueErr rather than stringifying it, so a rescue clause
// further up internal/interp's dispatch can recover the original object.
func TestKernelRaiseWithValue(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)
	exc := it.NewInstance(it.ClassNamed("Object"))

	_, err := it.Send(self, "raise", []value.Value{exc}, value.Nil())
	if err == nil {
		t.Fatal("raise: expected an error")
	}
	ve, ok := err.(*rerrors.ValueErr)
	if !ok {
		t.Fatalf("raise: error type = %T, want *rerrors.ValueErr", err)
	}
	if got, ok := ve.Exception.(value.Value); !ok || got != exc {
		t.Fatalf("raise: ValueErr.Exception = %v, want the raised instance back unchanged", ve.Exception)
	}
}

// TestArraySortWithBlockComparator exercises the comparator branch of
// arraySort (spec.md's sort { |a,b| ... } form), distinct from
// internal/vm's plain numeric TestArraySort.
func TestArraySortWithBlockComparator(t *testing.T) {
	it := boot.New()
	self := it.NewInstance(it.Classes.Object)

	// block returns b - a, so it.Send's "times"-style CallBlock driver
	// sorts descending.
	cmpA := iseq.NewAssembler()
	cmpA.EmitU16(iseq.GetLocal, 1)
	cmpA.EmitU16(iseq.GetLocal, 0)
	cmpA.Emit0(iseq.Sub)
	cmpA.Emit0(iseq.Return)
	cmpBody := newBody(it, 2, cmpA)

	setupA := iseq.NewAssembler()
	setupA.EmitCreateProc(uint32(cmpBody.ID), false)
	setupA.Emit0(iseq.Return)
	setupBody := newBody(it, 0, setupA)

	setupCtx := frame.New(self, setupBody.ID, len(setupBody.Locals), nil, nil, nil)
	setupCtx.DefiningClass = it.Classes.Object
	proc, err := it.ExecFrame(setupCtx)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	arr := it.NewArray([]value.Value{it.NewInt(3), it.NewInt(1), it.NewInt(2)})
	result, err := it.Send(arr, "sort", nil, proc)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	info, ok := it.ArrayOf(result)
	if !ok {
		t.Fatalf("sort result is not an Array: %v", result)
	}
	want := []int64{3, 2, 1}
	if len(info.Elements) != len(want) {
		t.Fatalf("sort result length = %d, want %d", len(info.Elements), len(want))
	}
	for i, w := range want {
		n, ok := it.IntOf(info.Elements[i])
		if !ok || n != w {
			t.Fatalf("sort result[%d] = %v, want %d", i, info.Elements[i], w)
		}
	}
}

// TestStructGeneratedAccessorsReadAndWrite confirms structClassNew's
// DefineAttrReader/DefineAttrWriter wiring is a real, independently
// callable reader/writer pair, not just something Struct#inspect formats —
// internal/vm's TestStructNewAnonymousInspect only checks inspect text.
func TestStructGeneratedAccessorsReadAndWrite(t *testing.T) {
	it := boot.New()

	fieldA := it.NewSymbol("a")
	fieldB := it.NewSymbol("b")
	structClass, err := it.Send(it.BoxClass(it.ClassNamed("Struct")), "new", []value.Value{fieldA, fieldB}, value.Nil())
	if err != nil {
		t.Fatalf("Struct.new: %v", err)
	}
	inst, err := it.Send(structClass, "new", []value.Value{it.NewInt(1), it.NewInt(2)}, value.Nil())
	if err != nil {
		t.Fatalf("GeneratedStruct.new: %v", err)
	}

	a, err := it.Send(inst, "a", nil, value.Nil())
	if err != nil || mustInt(t, it, a) != 1 {
		t.Fatalf("inst.a = %v, err=%v, want 1", a, err)
	}

	if _, err := it.Send(inst, "a=", []value.Value{it.NewInt(99)}, value.Nil()); err != nil {
		t.Fatalf("inst.a = 99: %v", err)
	}
	a2, err := it.Send(inst, "a", nil, value.Nil())
	if err != nil || mustInt(t, it, a2) != 99 {
		t.Fatalf("inst.a after write = %v, err=%v, want 99", a2, err)
	}

	b, err := it.Send(inst, "b", nil, value.Nil())
	if err != nil || mustInt(t, it, b) != 2 {
		t.Fatalf("inst.b = %v, err=%v, want 2 (untouched by the a= write)", b, err)
	}
}

func mustInt(t *testing.T, it *interp.Interp, v value.Value) int64 {
	t.Helper()
	n, ok := it.IntOf(v)
	if !ok {
		t.Fatalf("value %v is not an Integer", v)
	}
	return n
}
