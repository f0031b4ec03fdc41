// Package object implements the boxed heap cell (RValue): a fixed-size
// payload carrying a class reference, an optional inline ivar table, and a
// tagged-union kind, per spec.md §3.
package object

import "j5.nz/rbvm/internal/value"

// Kind tags the payload variant carried by an RValue, mirroring spec.md's
// tagged union verbatim.
type Kind int

const (
	KindOrdinary Kind = iota
	KindInteger
	KindFloat
	KindComplex
	KindModule
	KindString
	KindArray
	KindRange
	KindSplat
	KindHash
	KindProc
	KindRegexp
	KindMethod
	KindFiber
	KindEnumerator
	KindTime
	KindException
	// KindInvalid is the freed-cell sentinel written by the GC's sweep.
	KindInvalid
)

// ClassRef is implemented by internal/class.Class; object stays decoupled
// from class to avoid an import cycle (class needs object.RValue for
// instances, object needs only an opaque class handle).
type ClassRef interface {
	// VersionedName is used only for debug/inspect rendering.
	VersionedName() string
}

// IvarTable is the dense, per-instance ivar vector described in spec.md §3:
// indexed by the owning class's IvarSlot assignment, grown on demand, never
// shrunk.
type IvarTable struct {
	slots []value.Value
}

// Get returns the ivar at slot, or value.Nil() if the instance's vector
// hasn't grown that far yet (the slot was assigned by a different, later
// instance, or this instance never wrote it).
func (t *IvarTable) Get(slot int) value.Value {
	if slot < 0 || slot >= len(t.slots) {
		return value.Nil()
	}
	return t.slots[slot]
}

// Set grows the vector if needed and writes v at slot. Per spec.md §3,
// vectors are grown on demand and never shrunk.
func (t *IvarTable) Set(slot int, v value.Value) {
	if slot >= len(t.slots) {
		grown := make([]value.Value, slot+1)
		copy(grown, t.slots)
		for i := len(t.slots); i < len(grown); i++ {
			grown[i] = value.Nil()
		}
		t.slots = grown
	}
	t.slots[slot] = v
}

// Len reports how far this instance's ivar vector has grown, for GC
// root-walking.
func (t *IvarTable) Len() int { return len(t.slots) }

// RValue is the payload for one boxed heap cell. The GC heap package only
// knows cell addresses and liveness; RValue is the Go-level view that a
// cell's bytes are reinterpreted as once class/method code dereferences a
// pointer Value.
type RValue struct {
	Class ClassRef
	Ivar  *IvarTable
	Kind  Kind

	// Exactly one of the following is meaningful, selected by Kind. Stored
	// as separate fields (not a Go interface{} union) so ordinary field
	// access stays allocation-free on the hot paths (Integer/Float/String).
	IntVal     int64
	FloatVal   float64
	ComplexRe  value.Value
	ComplexIm  value.Value
	StringVal  *RString
	ArrayVal   *ArrayInfo
	RangeVal   *RangeInfo
	HashVal    *HashInfo
	ProcVal    *ProcInfo
	MethodVal  *MethodInfo
	Opaque     interface{} // Module/Regexp/Fiber/Enumerator/Time/Exception payloads
}

// RString is the boxed string payload; mutable, unlike Go's native string.
type RString struct {
	Bytes []byte
}

// ArrayInfo is the boxed array payload.
type ArrayInfo struct {
	Elements []value.Value
}

// RangeInfo is the boxed range payload.
type RangeInfo struct {
	Start, End value.Value
	Exclusive  bool
}

// HashInfo is the boxed hash payload. Ruby hashes preserve insertion order;
// Keys tracks that order alongside the map for O(1) lookup.
type HashInfo struct {
	Keys   []value.Value
	Values map[value.Value]value.Value
}

// ProcInfo is the boxed proc/lambda payload; Lambda distinguishes `return`
// semantics (lambda: local return: block: MethodReturn propagation).
type ProcInfo struct {
	ISeqID int
	Lambda bool
	Outer  interface{} // *frame.Context, set by internal/interp; interface{} avoids an import cycle
	Self   value.Value
}

// MethodInfo (boxed `Method`/`UnboundMethod` object payload) wraps a method
// repository id plus its receiver, distinct from internal/method.Info
// which is the repository's own definition record.
type MethodInfo struct {
	Receiver value.Value
	MethodID int
	Name     string
}

// Free releases owned payload storage and tombstones the cell, implementing
// heap.Sweeper for the GC's sweep phase (spec.md §4.1 phase 4). The §9 open
// question about excluding Array payloads from sweep is resolved here by
// *not* special-casing KindArray: it is released like any other payload.
func (r *RValue) Free() {
	r.Class = nil
	r.Ivar = nil
	r.StringVal = nil
	r.ArrayVal = nil
	r.RangeVal = nil
	r.HashVal = nil
	r.ProcVal = nil
	r.MethodVal = nil
	r.Opaque = nil
	r.Kind = KindInvalid
}

// IsInvalid reports the GC tombstone state.
func (r *RValue) IsInvalid() bool { return r.Kind == KindInvalid }
