// Package value implements the 64-bit tagged Value representation: a
// pointer-sized handle that is either a packed immediate (fixnum, flonum,
// symbol, bool, nil, uninitialized) or an aligned pointer to a boxed heap
// cell. All packed forms are untraced by the GC.
package value

import "math"

// Value is the uniform handle used everywhere in the interpreter: on the
// operand stack, in local-variable slots, in ivar tables, as hash keys.
type Value uint64

const (
	falseValue        Value = 0x00
	uninitializedBits Value = 0x04
	nilBits           Value = 0x08
	symbolTag         Value = 0x0c
	trueValue         Value = 0x14

	// floatZero is the reserved encoding for +0.0: the rotated bit pattern
	// for IEEE +0.0 collides with other tag bits, so it gets its own
	// constant rather than falling out of the general rotation.
	floatZero Value = (0b1000 << 60) | 0b10

	floatMask1 uint64 = ^(uint64(0b0110) << 60)
	floatMask2 uint64 = uint64(0b0100) << 60
)

// Kind distinguishes how a Value's bits should be interpreted, without
// needing to dereference anything.
type Kind int

const (
	KindPointer Kind = iota
	KindFixnum
	KindFlonum
	KindSymbol
	KindNil
	KindTrue
	KindFalse
	KindUninitialized
)

// Nil, True, False, Uninitialized are the reserved immediate singletons.
func Nil() Value           { return nilBits }
func True() Value          { return trueValue }
func False() Value         { return falseValue }
func Uninitialized() Value { return uninitializedBits }

// Bool packs a Go bool into the matching immediate.
func Bool(b bool) Value {
	if b {
		return trueValue
	}
	return falseValue
}

// IsNil, IsTrue, IsFalse report immediate identity, not truthiness coercion
// (Ruby's falsiness is exactly {nil, false} and is computed by the
// interpreter from these, not folded in here).
func (v Value) IsNil() bool  { return v == nilBits }
func (v Value) IsTrue() bool { return v == trueValue }

func (v Value) IsFalse() bool { return v == falseValue }

func (v Value) IsUninitialized() bool { return v == uninitializedBits }

// Truthy implements Ruby truthiness: everything except nil and false.
func (v Value) Truthy() bool { return v != nilBits && v != falseValue }

// IsPackedFixnum reports whether the low bit marks an immediate integer.
func (v Value) IsPackedFixnum() bool { return v&0b1 == 1 }

// IsPackedFlonum reports whether the low two bits mark an immediate float.
func (v Value) IsPackedFlonum() bool { return v&0b11 == 0b10 }

// IsPackedNum is IsPackedFixnum || IsPackedFlonum.
func (v Value) IsPackedNum() bool { return v&0b11 != 0 }

// IsPackedSymbol reports the low-byte symbol tag.
func (v Value) IsPackedSymbol() bool { return v&0xff == symbolTag }

// IsPointer reports that v is (or should be) an aligned pointer to a boxed
// cell: none of the immediate patterns above matched and it is not one of
// the four reserved singleton bit patterns.
func (v Value) IsPointer() bool {
	switch {
	case v.IsPackedFixnum(), v.IsPackedFlonum(), v.IsPackedSymbol():
		return false
	case v == nilBits, v == trueValue, v == falseValue, v == uninitializedBits:
		return false
	default:
		return true
	}
}

// Integer packs an i64 as a fixnum when it fits in 63 bits; otherwise it
// returns ok=false and the caller must box an Integer RValue instead.
//
// Grounded on ruruby's Value::integer: the top two bits of the unsigned
// view must agree (sign does not overflow into the tag bit) for the value
// to be packable.
func Integer(n int64) (v Value, ok bool) {
	u := uint64(n)
	top := (u >> 62) ^ (u >> 63)
	if top&0b1 != 0 {
		return 0, false
	}
	return Value(u<<1) | 1, true
}

// AsFixnum unpacks a packed fixnum. Caller must check IsPackedFixnum first.
func (v Value) AsFixnum() int64 {
	return int64(v) >> 1
}

// Float packs a float64 as a flonum when its exponent fits the reserved
// tag-free range; otherwise returns ok=false and the caller boxes a Float
// RValue. Grounded on ruruby's Value::float bit rotation.
func Float(f float64) (v Value, ok bool) {
	if f == 0 {
		return floatZero, true
	}
	bits := math.Float64bits(f)
	exp := (bits >> 60) & 0b111
	if exp != 3 && exp != 4 {
		return 0, false
	}
	rotated := rotateLeft(bits&floatMask1|floatMask2, 3)
	return Value(rotated), true
}

// AsFlonum unpacks a packed flonum. Caller must check IsPackedFlonum first.
func (v Value) AsFlonum() float64 {
	if v == floatZero {
		return 0.0
	}
	bits := uint64(v)
	var num uint64
	if bits&(uint64(0b1000)<<60) == 0 {
		num = bits
	} else {
		num = (bits &^ uint64(0b0011)) | 0b01
	}
	return math.Float64frombits(rotateRight(num, 3))
}

// Symbol packs a 32-bit symbol id.
func Symbol(id uint32) Value {
	return Value(uint64(id)<<32) | symbolTag
}

// AsSymbol unpacks a packed symbol id. Caller must check IsPackedSymbol first.
func (v Value) AsSymbol() uint32 {
	return uint32(v >> 32)
}

// FromPointer wraps an aligned heap-cell address as a Value. The caller is
// responsible for the alignment invariant the GC depends on (addr must be a
// live cell within a known page).
func FromPointer(addr uintptr) Value {
	return Value(addr)
}

// Pointer extracts the heap address from a boxed Value. Caller must check
// IsPointer first.
func (v Value) Pointer() uintptr {
	return uintptr(v)
}

func rotateLeft(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}

func rotateRight(x uint64, k uint) uint64 {
	return (x >> k) | (x << (64 - k))
}
