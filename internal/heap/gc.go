package heap

import "github.com/pkg/errors"

// ErrCorruptPointer is returned when a pointer handed to the GC does not
// resolve to a cell on any known page — spec.md §4.1: "implementation
// panics — indicates corruption". We surface it as an error instead of a
// panic so callers (tests included) can assert on it.
var ErrCorruptPointer = errors.New("heap: pointer does not resolve to a known page")

// allocThreshold is how many allocations run before alloc_flag is raised,
// per spec.md §4.1.
const allocThreshold = 2048

// Root marks every Value reachable from one GC root. Implementations walk
// through boxed payloads recursively, calling Heap.Mark on each pointer they
// find; Heap.Mark short-circuits on already-marked cells.
type Root interface {
	MarkRoots(h *Heap)
}

// Sweeper is implemented by the object package so the GC can release a
// cell's owned payload storage before tombstoning it.
type Sweeper interface {
	// Free releases resources owned by the cell at addr and sets its kind
	// to Invalid, per spec.md §4.1 phase 4.
	Free(addr uintptr)
	// IsMarkable reports whether addr currently holds a live (non-Invalid)
	// payload worth walking at all; used only for bookkeeping assertions.
	IsMarkable(addr uintptr) bool
}

// Heap owns all pages, the free list, and the allocation counter that
// drives the alloc_flag safe-point signal.
type Heap struct {
	pages    []*Page
	free     uintptr // head of the free list, 0 means empty
	freeLen  int
	allocCnt int
	flag     bool
	sweeper  Sweeper
}

// New creates an empty heap. sweeper is consulted during sweep to release
// payload-owned storage.
func New(sweeper Sweeper) *Heap {
	return &Heap{sweeper: sweeper}
}

// AllocFlagRaised reports whether a GC is recommended at the next safe
// point (spec.md §4.1); cleared by Collect.
func (h *Heap) AllocFlagRaised() bool { return h.flag }

// FreeListCount returns the number of cells currently on the free list.
func (h *Heap) FreeListCount() int { return h.freeLen }

// Alloc returns a fresh cell address: pop the free list if non-empty,
// otherwise bump-allocate, growing the page set on exhaustion.
func (h *Heap) Alloc() (uintptr, error) {
	h.allocCnt++
	if h.allocCnt >= allocThreshold {
		h.flag = true
	}

	if h.free != 0 {
		addr := h.free
		h.free = readNext(addr)
		h.freeLen--
		return addr, nil
	}

	if len(h.pages) == 0 || h.pages[len(h.pages)-1].Full() {
		p, err := NewPage()
		if err != nil {
			return 0, err
		}
		h.pages = append(h.pages, p)
	}
	cur := h.pages[len(h.pages)-1]
	return cur.BumpAlloc(), nil
}

// pageFor finds the Page owning addr, or nil.
func (h *Heap) pageFor(addr uintptr) *Page {
	base := PageOf(addr)
	for _, p := range h.pages {
		if p.base == base {
			return p
		}
	}
	return nil
}

// Mark sets addr's mark bit, returning true if it was already set (so
// callers recursing through a cycle can stop). Returns ErrCorruptPointer if
// addr does not belong to any known page.
func (h *Heap) Mark(addr uintptr) (alreadyMarked bool, err error) {
	p := h.pageFor(addr)
	if p == nil {
		return false, errors.WithStack(ErrCorruptPointer)
	}
	return p.TestAndSetMark(addr), nil
}

// Collect runs the full stop-the-world mark-sweep protocol of spec.md
// §4.1: clear marks, mark every root, sweep every page rebuilding the free
// list from unmarked cells.
func (h *Heap) Collect(roots []Root) error {
	for _, p := range h.pages {
		p.ClearMarks()
	}
	h.allocCnt = 0
	h.flag = false

	for _, r := range roots {
		r.MarkRoots(h)
	}

	h.free = 0
	h.freeLen = 0
	for _, p := range h.pages {
		limit := PageLen
		if p == h.pages[len(h.pages)-1] {
			limit = p.used
		}
		for idx := 0; idx < limit; idx++ {
			if p.isMarked(idx) {
				continue
			}
			addr := p.cellAddr(idx)
			h.sweeper.Free(addr)
			writeNext(addr, h.free)
			h.free = addr
			h.freeLen++
		}
	}
	return nil
}

// readNext/writeNext implement the free-list link stored in a freed cell's
// first 8 bytes, per spec.md §3 "Free list. Singly linked through the next
// field of freed cells".
func readNext(addr uintptr) uintptr {
	return *(*uintptr)(ptrAt(addr))
}

func writeNext(addr uintptr, next uintptr) {
	*(*uintptr)(ptrAt(addr)) = next
}
