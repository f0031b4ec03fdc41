package builtin

import (
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// RangeMethods implements Range#each (SPEC_FULL.md §8's integer-range
// iteration scenario) and a handful of supporting reader methods, all on
// top of RangeOf's Start/End/Exclusive triple. Only Integer endpoints are
// iterable; a non-Integer endpoint raises rather than silently no-oping.
func RangeMethods() Registry {
	return Registry{
		"each":     rangeEach,
		"to_a":     rangeToA,
		"first":    rangeFirst,
		"last":     rangeLast,
		"include?": rangeInclude,
		"===":      rangeInclude,
		"min":      rangeFirst,
		"max":      rangeMax,
	}
}

func rangeBounds(vm VM, self value.Value) (start, end int64, exclusive, ok bool) {
	s, e, excl, rok := vm.RangeOf(self)
	if !rok {
		return 0, 0, false, false
	}
	si, siok := vm.IntOf(s)
	ei, eiok := vm.IntOf(e)
	if !siok || !eiok {
		return 0, 0, false, false
	}
	return si, ei, excl, true
}

func rangeEach(vm VM, self value.Value, args *Args) (value.Value, error) {
	start, end, excl, ok := rangeBounds(vm, self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "each: non-Integer Range endpoints")
	}
	if !args.HasBlock() {
		last := end
		if excl {
			last--
		}
		return vm.NewEnumerator(func(yield func(value.Value) error) error {
			for i := start; i <= last; i++ {
				if err := yield(vm.NewInt(i)); err != nil {
					return err
				}
			}
			return nil
		}), nil
	}
	last := end
	if excl {
		last--
	}
	for i := start; i <= last; i++ {
		if _, err := vm.CallBlock(args.Block, []value.Value{vm.NewInt(i)}); err != nil {
			return value.Nil(), err
		}
	}
	return self, nil
}

func rangeToA(vm VM, self value.Value, args *Args) (value.Value, error) {
	start, end, excl, ok := rangeBounds(vm, self)
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "to_a: non-Integer Range endpoints")
	}
	last := end
	if excl {
		last--
	}
	var out []value.Value
	for i := start; i <= last; i++ {
		out = append(out, vm.NewInt(i))
	}
	return vm.NewArray(out), nil
}

func rangeFirst(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _, _, ok := vm.RangeOf(self)
	if !ok {
		return value.Nil(), nil
	}
	return s, nil
}

func rangeLast(vm VM, self value.Value, args *Args) (value.Value, error) {
	_, e, _, ok := vm.RangeOf(self)
	if !ok {
		return value.Nil(), nil
	}
	return e, nil
}

func rangeMax(vm VM, self value.Value, args *Args) (value.Value, error) {
	_, end, excl, ok := rangeBounds(vm, self)
	if !ok {
		e, _, _, _ := vm.RangeOf(self)
		return e, nil
	}
	if excl {
		end--
	}
	return vm.NewInt(end), nil
}

func rangeInclude(vm VM, self value.Value, args *Args) (value.Value, error) {
	start, end, excl, ok := rangeBounds(vm, self)
	n, nok := vm.IntOf(args.At(0))
	if !ok || !nok {
		return value.Bool(false), nil
	}
	if excl {
		return value.Bool(n >= start && n < end), nil
	}
	return value.Bool(n >= start && n <= end), nil
}
