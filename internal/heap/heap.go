// Package heap implements the page-based mark-and-sweep garbage collector:
// fixed-size cells, a parallel mark bitmap per page, and a free list rebuilt
// on every sweep.
//
// Grounded on the teacher's own target allocator (std/runtime/runtime.go's
// Alloc), which bump-allocates over mmap'd chunks; here that pattern
// allocates whole, power-of-two-aligned pages of fixed-size cells instead of
// raw byte ranges, via golang.org/x/sys/unix.Mmap.
package heap

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// CellSize is the fixed size of one boxed object cell, per spec.md §3.
	CellSize = 64
	// PageSize is the size of one heap page; must be a power of two so a
	// cell's containing page is recovered by masking the pointer.
	PageSize = 256 * 1024
	// PageLen is the number of cells per page.
	PageLen = PageSize / CellSize

	pageAlignMask = ^uintptr(PageSize - 1)
)

// Cell is one fixed-size heap slot. Payload is owned by the object package;
// heap only needs to know a cell's liveness and its free-list link.
type Cell struct {
	// Next links a freed cell onto the free list. Valid only when the cell
	// is not live (i.e. its payload kind is Invalid).
	Next uintptr
}

// Finalizer is called on an unmarked cell during sweep so its payload can
// release owned resources before the cell is reused.
type Finalizer func(addr uintptr)

// Page is one mmap-backed, PageSize-aligned slab of PageLen cells plus its
// mark bitmap.
type Page struct {
	base uintptr
	mem  []byte // raw mmap'd region, len == PageSize (+ alignment slack, see NewPage)
	mark []uint64
	used int // number of cells bump-allocated so far (partial last page)
}

// PageOf computes the containing page base address of any live cell pointer
// by masking to the page alignment, per spec.md §4.1's mark-bit-test step.
func PageOf(addr uintptr) uintptr {
	return addr & pageAlignMask
}

// CellIndex returns a cell's index within its page.
func CellIndex(pageBase, addr uintptr) int {
	return int(addr-pageBase) / CellSize
}

// NewPage mmaps a fresh PageSize-aligned region of PageLen cells.
//
// mmap does not guarantee alignment to more than the system page size, so
// we over-allocate by one PageSize and trim, mirroring the "round up and
// mask" idiom the teacher's runtime.Alloc uses for its own chunk sizing.
func NewPage() (*Page, error) {
	raw, err := unix.Mmap(-1, 0, PageSize*2, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "heap: mmap page")
	}
	rawBase := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (rawBase + PageSize - 1) &^ (PageSize - 1)
	offset := aligned - rawBase

	return &Page{
		base: aligned,
		mem:  raw[offset : offset+PageSize],
		mark: make([]uint64, PageLen/64+1),
	}, nil
}

// Base returns the page's aligned start address.
func (p *Page) Base() uintptr { return p.base }

// Used returns how many cells have been bump-allocated on this page.
func (p *Page) Used() int { return p.used }

// Full reports whether the page has no room left for bump allocation.
func (p *Page) Full() bool { return p.used >= PageLen }

// BumpAlloc hands out the next untouched cell on this page.
func (p *Page) BumpAlloc() uintptr {
	addr := p.base + uintptr(p.used*CellSize)
	p.used++
	return addr
}

// ClearMarks zeroes this page's mark bitmap (GC phase 1).
func (p *Page) ClearMarks() {
	for i := range p.mark {
		p.mark[i] = 0
	}
}

// TestAndSetMark sets the mark bit for addr's cell and reports whether it
// was already set, per spec.md §4.1 phase 3 (used to short-circuit cycles).
func (p *Page) TestAndSetMark(addr uintptr) (alreadyMarked bool) {
	idx := CellIndex(p.base, addr)
	word, bit := idx/64, uint(idx%64)
	mask := uint64(1) << bit
	already := p.mark[word]&mask != 0
	p.mark[word] |= mask
	return already
}

func (p *Page) isMarked(idx int) bool {
	word, bit := idx/64, uint(idx%64)
	return p.mark[word]&(uint64(1)<<bit) != 0
}

// cellAddr computes the address of the cell at idx on this page.
func (p *Page) cellAddr(idx int) uintptr {
	return p.base + uintptr(idx*CellSize)
}
