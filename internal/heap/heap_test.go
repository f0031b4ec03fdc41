package heap

import "testing"

// fakeSweeper tracks which addresses were freed, standing in for the
// object package's payload-release hook.
type fakeSweeper struct {
	freed map[uintptr]bool
}

func newFakeSweeper() *fakeSweeper { return &fakeSweeper{freed: map[uintptr]bool{}} }

func (s *fakeSweeper) Free(addr uintptr)          { s.freed[addr] = true }
func (s *fakeSweeper) IsMarkable(addr uintptr) bool { return !s.freed[addr] }

// fakeRoot marks a fixed set of addresses as reachable.
type fakeRoot struct{ addrs []uintptr }

func (r fakeRoot) MarkRoots(h *Heap) {
	for _, a := range r.addrs {
		_, _ = h.Mark(a)
	}
}

func TestMarkIdempotence(t *testing.T) {
	h := New(newFakeSweeper())
	addr, err := h.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	first, err := h.Mark(addr)
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if first {
		t.Fatalf("first mark should report not-already-marked")
	}
	second, err := h.Mark(addr)
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !second {
		t.Fatalf("second mark should report already-marked")
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	sw := newFakeSweeper()
	h := New(sw)
	live, _ := h.Alloc()
	dead, _ := h.Alloc()

	if err := h.Collect([]Root{fakeRoot{addrs: []uintptr{live}}}); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if !sw.freed[dead] {
		t.Fatalf("unreachable cell was not swept")
	}
	if sw.freed[live] {
		t.Fatalf("reachable cell was incorrectly swept")
	}
	if h.FreeListCount() != 1 {
		t.Fatalf("free list count = %d, want 1", h.FreeListCount())
	}
}

func TestAllocAfterCollectReturnsDistinctPointers(t *testing.T) {
	sw := newFakeSweeper()
	h := New(sw)

	var addrs []uintptr
	for i := 0; i < 10; i++ {
		a, err := h.Alloc()
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}
		addrs = append(addrs, a)
	}

	// Nothing is rooted: everything becomes free-list fodder.
	if err := h.Collect(nil); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	n := h.FreeListCount()
	if n != len(addrs) {
		t.Fatalf("free list count = %d, want %d", n, len(addrs))
	}

	seen := map[uintptr]bool{}
	for i := 0; i < n+1; i++ {
		a, err := h.Alloc()
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}
		if seen[a] {
			t.Fatalf("Alloc returned duplicate pointer %x", a)
		}
		seen[a] = true
	}
}

func TestMarkUnknownPointerIsCorruption(t *testing.T) {
	h := New(newFakeSweeper())
	if _, err := h.Mark(0xdeadbeef); err == nil {
		t.Fatalf("expected ErrCorruptPointer for a pointer outside any page")
	}
}

func TestPageOfMasksToAlignment(t *testing.T) {
	h := New(newFakeSweeper())
	a, _ := h.Alloc()
	b, _ := h.Alloc()
	if PageOf(a) != PageOf(b) {
		t.Fatalf("two early allocations should share a page")
	}
	if PageOf(a)%PageSize != 0 {
		t.Fatalf("page base %x is not PageSize-aligned", PageOf(a))
	}
}
