package iseq

import "testing"

func TestAssembleAndDecodeJump(t *testing.T) {
	a := NewAssembler()
	a.Emit0(PushNil)
	jmpAt := a.EmitI32(Jmp, 0) // placeholder displacement
	a.Emit0(PushTrue)
	target := a.Label()
	a.Emit0(Pop)
	a.PatchI32(jmpAt, target)

	bytes := a.Bytes()
	d := Decoder{Bytes: bytes}

	pc := 0
	if d.Op(pc) != PushNil {
		t.Fatalf("expected PushNil at pc 0")
	}
	pc += d.Size(pc)
	if d.Op(pc) != Jmp {
		t.Fatalf("expected Jmp at pc %d", pc)
	}
	disp := d.I32(pc)
	instEnd := pc + d.Size(pc)
	if instEnd+int(disp) != target {
		t.Fatalf("jump displacement resolves to %d, want %d", instEnd+int(disp), target)
	}
}

func TestSendFieldsRoundTrip(t *testing.T) {
	a := NewAssembler()
	a.EmitSend(Send, 7, 3, 2, 0b01, 9)
	d := Decoder{Bytes: a.Bytes()}
	sym, slot, argc, flags, block := d.SendFields(0)
	if sym != 7 || slot != 3 || argc != 2 || flags != 0b01 || block != 9 {
		t.Fatalf("SendFields round-trip mismatch: %d %d %d %d %d", sym, slot, argc, flags, block)
	}
}
