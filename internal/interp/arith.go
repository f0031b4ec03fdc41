package interp

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/value"
)

// arith implements SPEC_FULL.md §4.4's numeric fast path: if both operands
// are packed fixnums/flonums, compute directly; otherwise fall back to an
// ordinary method dispatch on the operator name, exactly as spec.md §4.4
// describes for Integer/Float overflow and any non-numeric receiver.
func (it *Interp) arith(ctx *frame.Context, op iseq.Op, a, b value.Value) (value.Value, error) {
	if ai, aok := it.IntOf(a); aok {
		if bi, bok := it.IntOf(b); bok {
			if v, ok := intArith(op, ai, bi); ok {
				return it.BoxInt(v), nil
			}
		} else if bf, bok := it.FloatOf(b); bok {
			return it.BoxFloat(floatArith(op, float64(ai), bf)), nil
		}
	} else if af, aok := it.FloatOf(a); aok {
		if bf, bok := it.FloatOf(b); bok {
			return it.BoxFloat(floatArith(op, af, bf)), nil
		} else if bi, bok := it.IntOf(b); bok {
			return it.BoxFloat(floatArith(op, af, float64(bi))), nil
		}
	}
	return it.Send(a, opMethodName(op), []value.Value{b}, value.Nil())
}

func intArith(op iseq.Op, a, b int64) (int64, bool) {
	switch op {
	case iseq.Add:
		s := a + b
		return s, (b >= 0) == (s >= a)
	case iseq.Sub:
		s := a - b
		return s, (b >= 0) == (s <= a)
	case iseq.Mul:
		p := a * b
		if a != 0 && (p/a != b || (a == -1 && b == -1<<63)) {
			return 0, false
		}
		return p, true
	case iseq.Div:
		if b == 0 {
			return 0, false
		}
		return floorDiv(a, b), true
	case iseq.Rem:
		if b == 0 {
			return 0, false
		}
		return a - floorDiv(a, b)*b, true
	case iseq.Shl:
		return a << uint(b), true
	case iseq.Shr:
		return a >> uint(b), true
	case iseq.BAnd:
		return a & b, true
	case iseq.BOr:
		return a | b, true
	case iseq.BXor:
		return a ^ b, true
	case iseq.Pow:
		return intPow(a, b), true
	}
	return 0, false
}

// floorDiv implements Ruby's floor-division semantics (rounds toward
// negative infinity), unlike Go's truncating /.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

func floatArith(op iseq.Op, a, b float64) float64 {
	switch op {
	case iseq.Add:
		return a + b
	case iseq.Sub:
		return a - b
	case iseq.Mul:
		return a * b
	case iseq.Div:
		return a / b
	case iseq.Pow:
		r := 1.0
		for i := 0; i < int(b); i++ {
			r *= a
		}
		return r
	}
	return 0
}

func opMethodName(op iseq.Op) string {
	switch op {
	case iseq.Add:
		return "+"
	case iseq.Sub:
		return "-"
	case iseq.Mul:
		return "*"
	case iseq.Div:
		return "/"
	case iseq.Rem:
		return "%"
	case iseq.Pow:
		return "**"
	case iseq.Shl:
		return "<<"
	case iseq.Shr:
		return ">>"
	case iseq.BAnd:
		return "&"
	case iseq.BOr:
		return "|"
	case iseq.BXor:
		return "^"
	case iseq.Gt:
		return ">"
	case iseq.Ge:
		return ">="
	case iseq.Lt:
		return "<"
	case iseq.Le:
		return "<="
	case iseq.Cmp:
		return "<=>"
	}
	return "+"
}

// compare implements the comparison family, including Teq's case-equality
// dispatch (spec.md §4.4): Range#=== is cover-membership, Class#=== is
// is_a?, everything else falls back to the receiver's #==.
func (it *Interp) compare(ctx *frame.Context, op iseq.Op, a, b value.Value) (value.Value, error) {
	if op == iseq.Teq {
		return it.caseEq(a, b)
	}
	if ai, aok := it.numOf(a); aok {
		if bi, bok := it.numOf(b); bok {
			if op == iseq.Cmp {
				return it.BoxInt(int64(spaceship(ai, bi))), nil
			}
			return value.Bool(numCompare(op, ai, bi)), nil
		}
	}
	switch op {
	case iseq.Eq:
		return value.Bool(a == b), nil
	case iseq.Ne:
		return value.Bool(a != b), nil
	}
	return it.Send(a, opMethodName(op), []value.Value{b}, value.Nil())
}

func (it *Interp) numOf(v value.Value) (float64, bool) {
	if n, ok := it.IntOf(v); ok {
		return float64(n), true
	}
	if f, ok := it.FloatOf(v); ok {
		return f, true
	}
	return 0, false
}

func numCompare(op iseq.Op, a, b float64) bool {
	switch op {
	case iseq.Eq:
		return a == b
	case iseq.Ne:
		return a != b
	case iseq.Gt:
		return a > b
	case iseq.Ge:
		return a >= b
	case iseq.Lt:
		return a < b
	case iseq.Le:
		return a <= b
	}
	return false
}

func spaceship(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// caseEq implements `b === a`'s dispatch table for the receivers
// SPEC_FULL.md's testable scenarios exercise: Range membership, Class/
// Module is_a?, plain equality otherwise.
func (it *Interp) caseEq(recv, arg value.Value) (value.Value, error) {
	rv := it.ObjStore.Get(recv)
	if rv != nil && rv.Kind == object.KindRange {
		return value.Bool(it.rangeCovers(rv.RangeVal, arg)), nil
	}
	if rv != nil && rv.Kind == object.KindModule {
		if c, ok := rv.Opaque.(*class.Class); ok {
			return value.Bool(it.isA(arg, c)), nil
		}
	}
	return it.Send(recv, "==", []value.Value{arg}, value.Nil())
}

// isA reports whether v's class chain includes target, per spec.md's
// Class#=== / Object#is_a? semantics.
func (it *Interp) isA(v value.Value, target *class.Class) bool {
	for _, c := range class.Ancestors(it.ClassOf(v)) {
		if c == target {
			return true
		}
	}
	return false
}

// IsA implements builtin.VM.
func (it *Interp) IsA(v value.Value, target *class.Class) bool { return it.isA(v, target) }

// rangeCovers implements Range#cover?/#=== for the numeric ranges
// SPEC_FULL.md's Enumerator scenario exercises.
func (it *Interp) rangeCovers(r *object.RangeInfo, v value.Value) bool {
	lo, lok := it.numOf(r.Start)
	hi, hok := it.numOf(r.End)
	n, nok := it.numOf(v)
	if !lok || !hok || !nok {
		return false
	}
	if n < lo {
		return false
	}
	if r.Exclusive {
		return n < hi
	}
	return n <= hi
}
