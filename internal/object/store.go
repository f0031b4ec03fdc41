package object

import (
	"j5.nz/rbvm/internal/heap"
	"j5.nz/rbvm/internal/value"
)

// Store associates live heap-cell addresses with their Go-level RValue
// payload and implements heap.Sweeper so the collector can release that
// payload on an unmarked cell. The raw mmap'd cell itself (see
// internal/heap) carries only the free-list link and the mark bit; the
// actual object graph lives here, in ordinary Go-GC-tracked memory, so that
// Go pointers reachable from a payload (e.g. an ArrayInfo's []value.Value)
// stay visible to the host Go runtime's own collector.
type Store struct {
	h      *heap.Heap
	values map[uintptr]*RValue
}

// NewStore creates a Store backed by a fresh heap.Heap.
func NewStore() *Store {
	s := &Store{values: map[uintptr]*RValue{}}
	s.h = heap.New(s)
	return s
}

// Heap exposes the underlying allocator/collector for safe-point checks and
// Collect calls.
func (s *Store) Heap() *heap.Heap { return s.h }

// Alloc allocates a fresh cell and associates it with payload, returning
// the boxed Value that refers to it.
func (s *Store) Alloc(payload *RValue) (value.Value, error) {
	addr, err := s.h.Alloc()
	if err != nil {
		return 0, err
	}
	s.values[addr] = payload
	return value.FromPointer(addr), nil
}

// Get dereferences a boxed Value to its RValue payload. Returns nil if v is
// not currently a live pointer in this store (corruption, or v is an
// immediate).
func (s *Store) Get(v value.Value) *RValue {
	if !v.IsPointer() {
		return nil
	}
	return s.values[v.Pointer()]
}

// Free implements heap.Sweeper: called by Collect on every unmarked cell.
func (s *Store) Free(addr uintptr) {
	if rv, ok := s.values[addr]; ok {
		rv.Free()
		delete(s.values, addr)
	}
}

// IsMarkable implements heap.Sweeper.
func (s *Store) IsMarkable(addr uintptr) bool {
	rv, ok := s.values[addr]
	return ok && !rv.IsInvalid()
}

// Mark marks v's cell (if it is a pointer) and, on first mark, recursively
// marks everything the payload references — ivars, array elements, hash
// entries, proc closures, range endpoints. The payload's class pointer is
// not a Value; it is handed to markClass (when non-nil) instead.
func (s *Store) Mark(v value.Value, markClass func(ClassRef)) error {
	if !v.IsPointer() {
		return nil
	}
	addr := v.Pointer()
	already, err := s.h.Mark(addr)
	if err != nil || already {
		return err
	}
	rv, ok := s.values[addr]
	if !ok || rv.IsInvalid() {
		return nil
	}
	if markClass != nil && rv.Class != nil {
		markClass(rv.Class)
	}
	if rv.Ivar != nil {
		for i := 0; i < rv.Ivar.Len(); i++ {
			if err := s.Mark(rv.Ivar.Get(i), markClass); err != nil {
				return err
			}
		}
	}
	switch rv.Kind {
	case KindArray:
		if rv.ArrayVal != nil {
			for _, elem := range rv.ArrayVal.Elements {
				if err := s.Mark(elem, markClass); err != nil {
					return err
				}
			}
		}
	case KindRange:
		if rv.RangeVal != nil {
			if err := s.Mark(rv.RangeVal.Start, markClass); err != nil {
				return err
			}
			if err := s.Mark(rv.RangeVal.End, markClass); err != nil {
				return err
			}
		}
	case KindHash:
		if rv.HashVal != nil {
			for _, k := range rv.HashVal.Keys {
				if err := s.Mark(k, markClass); err != nil {
					return err
				}
				if err := s.Mark(rv.HashVal.Values[k], markClass); err != nil {
					return err
				}
			}
		}
	case KindProc:
		if rv.ProcVal != nil {
			if err := s.Mark(rv.ProcVal.Self, markClass); err != nil {
				return err
			}
			if err := s.markOuterChain(rv.ProcVal.Outer, markClass); err != nil {
				return err
			}
		}
	case KindComplex:
		if err := s.Mark(rv.ComplexRe, markClass); err != nil {
			return err
		}
		if err := s.Mark(rv.ComplexIm, markClass); err != nil {
			return err
		}
	}
	return nil
}

// FrameRef is implemented by *frame.Context; object stays decoupled from
// frame (no import) to keep every cross-package reference in this file
// opaque, matching ProcInfo.Outer's own interface{} convention.
type FrameRef interface {
	SelfValue() value.Value
	LocalValues() []value.Value
	OuterRef() interface{}
}

// markOuterChain walks a captured closure's lexical Outer chain (spec.md
// §9 "Closures and outer contexts"), marking each frame's self and locals
// so a Proc that escaped its creating call still keeps its captured
// variables alive across a collection.
func (s *Store) markOuterChain(outer interface{}, markClass func(ClassRef)) error {
	for outer != nil {
		fr, ok := outer.(FrameRef)
		if !ok {
			return nil
		}
		if err := s.Mark(fr.SelfValue(), markClass); err != nil {
			return err
		}
		for _, v := range fr.LocalValues() {
			if err := s.Mark(v, markClass); err != nil {
				return err
			}
		}
		outer = fr.OuterRef()
	}
	return nil
}

// LiveCount reports how many live (non-freed) cells are currently tracked.
func (s *Store) LiveCount() int { return len(s.values) }
