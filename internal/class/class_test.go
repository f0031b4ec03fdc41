package class

import (
	"testing"

	"j5.nz/rbvm/internal/method"
)

func TestIvarSlotMonotonicPerClass(t *testing.T) {
	c := New("C", nil)
	slot := c.IvarSlot("@x")
	if slot != 0 {
		t.Fatalf("first ivar slot should be 0, got %d", slot)
	}
	// A later instance of the same class reads/writes @x at the same slot.
	again := c.IvarSlot("@x")
	if again != slot {
		t.Fatalf("IvarSlot(@x) changed from %d to %d", slot, again)
	}
	other := c.IvarSlot("@y")
	if other == slot {
		t.Fatalf("distinct ivar names must get distinct slots")
	}
}

func TestMethodResolutionPrecedence(t *testing.T) {
	repo := method.NewRepo()
	base := New("Base", nil)
	mixin := NewModule("Mixin")
	derived := New("Derived", base)

	baseID := repo.Define(method.Info{Kind: method.KindVoid, Name: "greet"})
	base.Methods["greet"] = baseID

	mixinID := repo.Define(method.Info{Kind: method.KindVoid, Name: "greet"})
	mixin.Methods["greet"] = mixinID
	derived.Include(repo, mixin)

	// include precedes superclass.
	id, owner, ok := Resolve(derived, "greet")
	if !ok || owner != mixin || id != mixinID {
		t.Fatalf("expected mixin's greet to win over superclass, got owner=%v ok=%v", owner, ok)
	}

	ownID := repo.Define(method.Info{Kind: method.KindVoid, Name: "greet"})
	derived.Methods["greet"] = ownID

	// direct method precedes includes.
	id, owner, ok = Resolve(derived, "greet")
	if !ok || owner != derived || id != ownID {
		t.Fatalf("expected derived's own greet to win, got owner=%v", owner)
	}
}

func TestClassVersionBumpsOnDefine(t *testing.T) {
	repo := method.NewRepo()
	before := repo.Version()
	c := New("C", nil)
	c.DefineMethod(repo, "foo", method.Info{Kind: method.KindVoid})
	if repo.Version() == before {
		t.Fatalf("defining a method must bump class_version")
	}
}

func TestModuleConstantsScenario(t *testing.T) {
	// class Foo; Bar=100; end; class Baz<Foo; Doo=555; end
	foo := New("Foo", nil)
	foo.SetConstant("Bar", 0)
	baz := New("Baz", foo)
	baz.SetConstant("Doo", 0)

	var names []string
	for _, c := range Ancestors(baz) {
		names = append(names, c.ConstantNames()...)
	}
	want := map[string]bool{"Bar": true, "Doo": true}
	got := map[string]bool{}
	for _, n := range names {
		got[n] = true
	}
	for n := range want {
		if !got[n] {
			t.Fatalf("Baz.constants missing %q (got %v)", n, names)
		}
	}
}
