package cache

import (
	"testing"

	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/value"
)

func TestMethodCacheCoherence(t *testing.T) {
	repo := method.NewRepo()
	c := class.New("C", nil)
	id1 := c.DefineMethod(repo, "greet", method.Info{Kind: method.KindVoid})

	var entry MethodEntry
	gotID, _, ok := entry.Lookup(repo, c, "greet")
	if !ok || gotID != id1 {
		t.Fatalf("initial lookup failed: ok=%v id=%v want=%v", ok, gotID, id1)
	}

	// Redefine on the same class: class_version bumps, cached entry must
	// miss and re-resolve to the new method.
	id2 := c.DefineMethod(repo, "greet", method.Info{Kind: method.KindVoid})
	if id1 == id2 {
		t.Fatalf("redefining should allocate a new method id")
	}
	gotID, _, ok = entry.Lookup(repo, c, "greet")
	if !ok || gotID != id2 {
		t.Fatalf("cache did not observe the redefinition: got=%v want=%v", gotID, id2)
	}
}

func TestGlobalMethodCacheDiscardsStaleVersions(t *testing.T) {
	repo := method.NewRepo()
	c := class.New("C", nil)
	id1 := c.DefineMethod(repo, "foo", method.Info{Kind: method.KindVoid})

	g := NewGlobalMethodCache()
	gotID, _, ok := g.Lookup(repo, c, "foo")
	if !ok || gotID != id1 {
		t.Fatalf("initial global lookup failed")
	}

	id2 := c.DefineMethod(repo, "foo", method.Info{Kind: method.KindVoid})
	gotID, _, ok = g.Lookup(repo, c, "foo")
	if !ok || gotID != id2 {
		t.Fatalf("global cache served a stale entry: got=%v want=%v", gotID, id2)
	}
}

func TestConstCacheInvalidatedByAssignment(t *testing.T) {
	c := class.New("C", nil)
	var entry ConstEntry
	if _, ok := entry.Lookup(c); ok {
		t.Fatalf("empty entry must not hit")
	}
	v1, _ := value.Integer(1)
	c.SetConstant("X", v1)
	entry.Store(c, v1)
	if got, ok := entry.Lookup(c); !ok || got != v1 {
		t.Fatalf("expected a hit for v1")
	}
	v2, _ := value.Integer(2)
	c.SetConstant("X", v2)
	if _, ok := entry.Lookup(c); ok {
		t.Fatalf("reassigning the constant should invalidate the cache entry")
	}
}
