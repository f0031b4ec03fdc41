package interp

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/heap"
	"j5.nz/rbvm/internal/object"
)

// maybeCollect is the JMP_BACK safe point: it runs a full collection only
// when the allocator's alloc_flag has been raised (spec.md §4.1), marking
// every active frame's self/locals (and their lexical Outer chains, for
// blocks), every global, and every reachable class's constant/cvar table
// and boxed class object.
func (it *Interp) maybeCollect() error {
	if !it.ObjStore.Heap().AllocFlagRaised() {
		return nil
	}
	return it.Collect()
}

// Collect forces a full collection regardless of the allocator's
// alloc_flag, for a caller (internal/vm's test harness, a future `GC.start`
// built-in) that needs a deterministic collection point instead of waiting
// for the next JMP_BACK safe point.
func (it *Interp) Collect() error {
	root := &gcRoot{it: it}
	return it.ObjStore.Heap().Collect([]heap.Root{root})
}

// gcRoot implements heap.Root over everything internal/interp knows is
// live: the running frame stack, global variables, and the class graph
// (whose constant tables may be the only reference keeping an object
// alive, e.g. a class-level constant holding an Array).
type gcRoot struct {
	it *Interp
}

func (g *gcRoot) MarkRoots(h *heap.Heap) {
	it := g.it
	markClass := g.markClassValue

	for _, ctx := range it.activeFrames {
		it.ObjStore.Mark(ctx.Self, markClass)
		for _, v := range ctx.Locals {
			it.ObjStore.Mark(v, markClass)
		}
		for outer := ctx.Outer; outer != nil; outer = outer.Outer {
			it.ObjStore.Mark(outer.Self, markClass)
			for _, v := range outer.Locals {
				it.ObjStore.Mark(v, markClass)
			}
		}
	}

	for _, v := range it.Globals {
		it.ObjStore.Mark(v, markClass)
	}

	seen := map[*class.Class]bool{}
	for _, v := range it.classBoxes {
		it.ObjStore.Mark(v, markClass)
	}
	markClassGraph(it.Classes.BasicObject, it, seen)
}

// markClassValue is passed to object.Store.Mark as its markClass callback:
// whenever a marked payload's Class field is consulted, also mark that
// class's own boxed object and constant/cvar tables, so the class graph
// itself participates in reachability instead of being implicitly assumed
// permanent.
func (g *gcRoot) markClassValue(ref object.ClassRef) {
	c, ok := ref.(*class.Class)
	if !ok {
		return
	}
	markClassGraph(c, g.it, map[*class.Class]bool{})
}

// markClassGraph walks c's superclass and include chain, marking every
// constant and class variable it carries. seen prevents re-walking a
// class already visited in this pass (classes form a DAG via Includes,
// not strictly a tree).
func markClassGraph(c *class.Class, it *Interp, seen map[*class.Class]bool) {
	for c != nil && !seen[c] {
		seen[c] = true
		for _, v := range c.Constants {
			it.ObjStore.Mark(v, nil)
		}
		for _, v := range c.CVars {
			it.ObjStore.Mark(v, nil)
		}
		for _, m := range c.Includes {
			markClassGraph(m, it, seen)
		}
		c = c.Super
	}
}
