package vm

import (
	"testing"

	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/rerrors"
)

// testISeqID hands out unique ids for the hand-built bodies below; each
// scenario builds its own VM, so a process-wide counter only needs to avoid
// collisions within one VM's ISeqs map, never across tests.
var testISeqID = 0

func nextID() int {
	testISeqID++
	return testISeqID
}

// body wraps an assembler's bytes into a registered ISeq with numLocals
// local slots, the shape every scenario below builds method/block/class
// bodies from.
func body(m *VM, kind iseq.Kind, numLocals int, a *iseq.Assembler) *iseq.ISeq {
	b := &iseq.ISeq{
		ID:     nextID(),
		Kind:   kind,
		Locals: make([]iseq.Local, numLocals),
		Bytes:  a.Bytes(),
	}
	m.AddISeq(b)
	return b
}

// TestHundredThousandTimesVecNewSurvivesGC implements spec.md §8 scenario 1:
// 100_000.times { Vec.new }, where Vec has two ivars, completes without
// error, and a forced collection afterward finds free list entries (the
// 100,000 short-lived Vecs becoming garbage) with Vec's own class object
// still intact.
func TestHundredThousandTimesVecNewSurvivesGC(t *testing.T) {
	m := New()
	symInitialize := m.Symbols.Intern("initialize")
	symX := m.Symbols.Intern("@x")
	symY := m.Symbols.Intern("@y")
	symVec := m.Symbols.Intern("Vec")
	symNew := m.Symbols.Intern("new")
	symTimes := m.Symbols.Intern("times")

	initA := iseq.NewAssembler()
	initA.EmitU64(iseq.PushFixnum, uint64(int64(1)))
	initA.EmitIvar(iseq.SetIvar, 0, symX)
	initA.EmitU64(iseq.PushFixnum, uint64(int64(2)))
	initA.EmitIvar(iseq.SetIvar, 0, symY)
	initA.Emit0(iseq.PushNil)
	initA.Emit0(iseq.Return)
	initBody := body(m, iseq.KindMethod, 0, initA)

	classA := iseq.NewAssembler()
	classA.EmitDefMethod(iseq.DefMethod, symInitialize, uint32(initBody.ID))
	classA.Emit0(iseq.Return)
	classBody := body(m, iseq.KindClass, 0, classA)

	blockA := iseq.NewAssembler()
	blockA.EmitConst(iseq.GetConst, 0, symVec)
	blockA.EmitSend(iseq.Send, symNew, 0, 0, 0, 0)
	blockA.Emit0(iseq.Return)
	blockBody := body(m, iseq.KindBlock, 1, blockA)

	topA := iseq.NewAssembler()
	topA.Emit0(iseq.PushNil)
	topA.EmitDefClass(symVec, false, uint32(classBody.ID))
	topA.Emit0(iseq.Pop)
	topA.EmitU64(iseq.PushFixnum, uint64(int64(100000)))
	topA.EmitSend(iseq.Send, symTimes, 0, 0, 0, uint32(blockBody.ID))
	topA.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 0, topA)

	if _, err := m.Run(top); err != nil {
		t.Fatalf("run: %v", err)
	}

	if err := m.Collect(); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if n := m.Store().Heap().FreeListCount(); n < 1 {
		t.Fatalf("free list count = %d, want >= 1 after collecting 100000 garbage Vecs", n)
	}

	vecClass := m.ClassNamed("Vec")
	if vecClass == nil {
		t.Fatalf("Vec class not registered")
	}
	boxed := m.BoxClass(vecClass)
	if rv := m.Store().Get(boxed); rv == nil || rv.IsInvalid() {
		t.Fatalf("Vec's own class object did not survive collection")
	}
}

// TestArraySort implements spec.md §8 scenario 2's first case.
func TestArraySort(t *testing.T) {
	m := New()
	symSort := m.Symbols.Intern("sort")

	a := iseq.NewAssembler()
	a.EmitU64(iseq.PushFixnum, uint64(int64(6)))
	a.EmitU64(iseq.PushFixnum, uint64(int64(2)))
	a.EmitU64(iseq.PushFixnum, uint64(int64(-3)))
	a.EmitU16(iseq.CreateArray, 3)
	a.EmitSend(iseq.Send, symSort, 0, 0, 0, 0)
	a.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 0, a)

	result, err := m.Run(top)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	info, ok := m.ArrayOf(result)
	if !ok {
		t.Fatalf("result is not an Array")
	}
	want := []int64{-3, 2, 6}
	if len(info.Elements) != len(want) {
		t.Fatalf("sorted length = %d, want %d", len(info.Elements), len(want))
	}
	for i, w := range want {
		n, ok := m.IntOf(info.Elements[i])
		if !ok || n != w {
			t.Fatalf("elems[%d] = %v, want %d", i, info.Elements[i], w)
		}
	}
}

// TestArraySortMixedTypesRaises implements spec.md §8 scenario 2's second
// case: sorting a non-homogeneous Array without a block is an
// ArgumentError, not a silent miscomparison.
func TestArraySortMixedTypesRaises(t *testing.T) {
	m := New()
	symSort := m.Symbols.Intern("sort")

	a := iseq.NewAssembler()
	a.EmitU64(iseq.PushFixnum, uint64(int64(1)))
	a.EmitF64(iseq.PushFlonum, 2.5)
	a.Emit0(iseq.PushNil)
	a.EmitU16(iseq.CreateArray, 3)
	a.EmitSend(iseq.Send, symSort, 0, 0, 0, 0)
	a.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 0, a)

	_, err := m.Run(top)
	re, ok := err.(*rerrors.RuntimeErr)
	if !ok {
		t.Fatalf("expected a RuntimeErr, got %v (%T)", err, err)
	}
	if re.Kind != rerrors.Argument {
		t.Fatalf("expected ArgumentError, got %s: %s", re.Kind.ClassName(), re.Message)
	}
}

// TestEnumeratorNext implements spec.md §8 scenario 3.
func TestEnumeratorNext(t *testing.T) {
	m := New()
	symEach := m.Symbols.Intern("each")
	symNext := m.Symbols.Intern("next")

	a := iseq.NewAssembler()
	a.EmitU64(iseq.PushFixnum, uint64(int64(1)))
	a.EmitU64(iseq.PushFixnum, uint64(int64(100)))
	a.Emit(iseq.CreateRange, []byte{0})
	a.EmitSend(iseq.Send, symEach, 0, 0, 0, 0)
	a.EmitU16(iseq.SetLocal, 0)
	a.EmitU16(iseq.GetLocal, 0)
	a.EmitSend(iseq.Send, symNext, 0, 0, 0, 0)
	a.EmitU16(iseq.GetLocal, 0)
	a.EmitSend(iseq.Send, symNext, 0, 0, 0, 0)
	a.EmitU16(iseq.GetLocal, 0)
	a.EmitSend(iseq.Send, symNext, 0, 0, 0, 0)
	a.EmitU16(iseq.CreateArray, 3)
	a.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 1, a)

	result, err := m.Run(top)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	info, ok := m.ArrayOf(result)
	if !ok || len(info.Elements) != 3 {
		t.Fatalf("expected a 3-element Array, got %v", result)
	}
	for i, want := range []int64{1, 2, 3} {
		n, ok := m.IntOf(info.Elements[i])
		if !ok || n != want {
			t.Fatalf("elems[%d] = %v, want %d", i, info.Elements[i], want)
		}
	}
}

// TestFiberYieldFiveResumes implements spec.md §8 scenario 4.
func TestFiberYieldFiveResumes(t *testing.T) {
	m := New()
	symFiber := m.Symbols.Intern("Fiber")
	symYield := m.Symbols.Intern("yield")
	symTimes := m.Symbols.Intern("times")
	symNew := m.Symbols.Intern("new")
	symResume := m.Symbols.Intern("resume")

	innerA := iseq.NewAssembler()
	innerA.EmitConst(iseq.GetConst, 0, symFiber)
	innerA.EmitU16(iseq.GetLocal, 0)
	innerA.EmitSend(iseq.Send, symYield, 0, 1, 0, 0)
	innerA.Emit0(iseq.Return)
	innerBlock := body(m, iseq.KindBlock, 1, innerA)

	fiberBodyA := iseq.NewAssembler()
	fiberBodyA.EmitU64(iseq.PushFixnum, uint64(int64(30)))
	fiberBodyA.EmitSend(iseq.Send, symTimes, 0, 0, 0, uint32(innerBlock.ID))
	fiberBodyA.Emit0(iseq.Return)
	fiberBody := body(m, iseq.KindBlock, 0, fiberBodyA)

	topA := iseq.NewAssembler()
	topA.EmitConst(iseq.GetConst, 0, symFiber)
	topA.EmitSend(iseq.Send, symNew, 0, 0, 0, uint32(fiberBody.ID))
	topA.EmitU16(iseq.SetLocal, 0)
	for i := 0; i < 5; i++ {
		topA.EmitU16(iseq.GetLocal, 0)
		topA.EmitSend(iseq.Send, symResume, 0, 0, 0, 0)
	}
	topA.EmitU16(iseq.CreateArray, 5)
	topA.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 1, topA)

	result, err := m.Run(top)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	info, ok := m.ArrayOf(result)
	if !ok || len(info.Elements) != 5 {
		t.Fatalf("expected a 5-element Array, got %v", result)
	}
	for i, want := range []int64{0, 1, 2, 3, 4} {
		n, ok := m.IntOf(info.Elements[i])
		if !ok || n != want {
			t.Fatalf("resume #%d = %v, want %d", i, info.Elements[i], want)
		}
	}
}

// TestModuleConstantsAcrossHierarchy implements spec.md §8 scenario 5.
func TestModuleConstantsAcrossHierarchy(t *testing.T) {
	m := New()
	symFoo := m.Symbols.Intern("Foo")
	symBaz := m.Symbols.Intern("Baz")
	symBar := m.Symbols.Intern("Bar")
	symDoo := m.Symbols.Intern("Doo")
	symConstants := m.Symbols.Intern("constants")

	fooA := iseq.NewAssembler()
	fooA.EmitU64(iseq.PushFixnum, uint64(int64(100)))
	fooA.EmitConst(iseq.SetConst, 0, symBar)
	fooA.Emit0(iseq.PushNil)
	fooA.Emit0(iseq.Return)
	fooBody := body(m, iseq.KindClass, 0, fooA)

	bazA := iseq.NewAssembler()
	bazA.EmitU64(iseq.PushFixnum, uint64(int64(555)))
	bazA.EmitConst(iseq.SetConst, 0, symDoo)
	bazA.Emit0(iseq.PushNil)
	bazA.Emit0(iseq.Return)
	bazBody := body(m, iseq.KindClass, 0, bazA)

	topA := iseq.NewAssembler()
	topA.Emit0(iseq.PushNil)
	topA.EmitDefClass(symFoo, false, uint32(fooBody.ID))
	topA.Emit0(iseq.Pop)
	topA.EmitConst(iseq.GetConst, 0, symFoo)
	topA.EmitDefClass(symBaz, false, uint32(bazBody.ID))
	topA.EmitSend(iseq.Send, symConstants, 0, 0, 0, 0)
	topA.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 0, topA)

	result, err := m.Run(top)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	info, ok := m.ArrayOf(result)
	if !ok {
		t.Fatalf("result is not an Array")
	}
	names := map[string]bool{}
	for _, e := range info.Elements {
		if s, ok := m.SymbolOf(e); ok {
			names[s] = true
		}
	}
	if !names["Doo"] || !names["Bar"] {
		t.Fatalf("Baz.constants = %v, want a set containing Doo and Bar", names)
	}
}

// TestStructNewAnonymousInspect implements spec.md §8 scenario 6:
// Struct.new(:a,:b).new(100,200).inspect, never assigned to a constant,
// stays anonymous.
func TestStructNewAnonymousInspect(t *testing.T) {
	m := New()
	symStruct := m.Symbols.Intern("Struct")
	symA := m.Symbols.Intern("a")
	symB := m.Symbols.Intern("b")
	symNew := m.Symbols.Intern("new")
	symInspect := m.Symbols.Intern("inspect")

	a := iseq.NewAssembler()
	a.EmitConst(iseq.GetConst, 0, symStruct)
	a.EmitU32(iseq.PushSymbol, symA)
	a.EmitU32(iseq.PushSymbol, symB)
	a.EmitSend(iseq.Send, symNew, 0, 2, 0, 0)
	a.EmitU64(iseq.PushFixnum, uint64(int64(100)))
	a.EmitU64(iseq.PushFixnum, uint64(int64(200)))
	a.EmitSend(iseq.Send, symNew, 0, 2, 0, 0)
	a.EmitSend(iseq.Send, symInspect, 0, 0, 0, 0)
	a.Emit0(iseq.Return)
	top := body(m, iseq.KindOther, 0, a)

	result, err := m.Run(top)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	s, ok := m.StringOf(result)
	if !ok {
		t.Fatalf("result is not a String")
	}
	want := "#<struct @a=100 @b=200>"
	if s != want {
		t.Fatalf("inspect = %q, want %q", s, want)
	}
}
