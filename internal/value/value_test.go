package value

import (
	"math"
	"testing"
)

func TestFixnumRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, math.MaxInt64 >> 1, (math.MinInt64 >> 1), 42, -42}
	for _, c := range cases {
		v, ok := Integer(c)
		if !ok {
			t.Fatalf("Integer(%d) reported unpackable", c)
		}
		if !v.IsPackedFixnum() {
			t.Fatalf("Integer(%d) did not set the fixnum tag", c)
		}
		if got := v.AsFixnum(); got != c {
			t.Fatalf("round-trip failed: got %d, want %d", got, c)
		}
	}
}

func TestFixnumOverflowFallsBackToBoxing(t *testing.T) {
	_, ok := Integer(math.MaxInt64)
	if ok {
		t.Fatalf("Integer(MaxInt64) should not be packable in 63 bits")
	}
	_, ok = Integer(math.MinInt64)
	if ok {
		t.Fatalf("Integer(MinInt64) should not be packable in 63 bits")
	}
}

func TestFlonumRoundTrip(t *testing.T) {
	cases := []float64{0.0, 1.0, -1.0, 3.14, -2.5, 100.0}
	for _, c := range cases {
		v, ok := Float(c)
		if !ok {
			// Not every double is packable; that's expected for some
			// exponent ranges. Only assert round-trip when packable.
			continue
		}
		if !v.IsPackedFlonum() {
			t.Fatalf("Float(%v) did not set the flonum tag", c)
		}
		if got := v.AsFlonum(); got != c {
			t.Fatalf("round-trip failed: got %v, want %v", got, c)
		}
	}
}

func TestFloatNegativeZero(t *testing.T) {
	v, ok := Float(math.Copysign(0, -1))
	if !ok {
		t.Fatalf("-0.0 should be packable")
	}
	if got := v.AsFlonum(); got != 0.0 {
		t.Fatalf("round-trip failed for -0.0: got %v", got)
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	for _, id := range []uint32{0, 1, 12345, math.MaxUint32} {
		v := Symbol(id)
		if !v.IsPackedSymbol() {
			t.Fatalf("Symbol(%d) did not set the symbol tag", id)
		}
		if got := v.AsSymbol(); got != id {
			t.Fatalf("round-trip failed: got %d, want %d", got, id)
		}
	}
}

func TestSingletons(t *testing.T) {
	if !Nil().IsNil() || Nil().Truthy() {
		t.Fatalf("Nil() must be nil and falsy")
	}
	if !False().IsFalse() || False().Truthy() {
		t.Fatalf("False() must be false and falsy")
	}
	if !True().IsTrue() || !True().Truthy() {
		t.Fatalf("True() must be true and truthy")
	}
	if Bool(true) != True() || Bool(false) != False() {
		t.Fatalf("Bool() must match the singletons")
	}
}

func TestPointerNotConfusedWithImmediates(t *testing.T) {
	p := FromPointer(0x1000) // 8-byte aligned, none of the immediate tags set
	if !p.IsPointer() {
		t.Fatalf("aligned address should be classified as a pointer")
	}
	if p.IsPackedFixnum() || p.IsPackedFlonum() || p.IsPackedSymbol() {
		t.Fatalf("aligned pointer value collided with an immediate tag")
	}
}
