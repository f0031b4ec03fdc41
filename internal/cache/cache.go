// Package cache implements the four inline/global caches of spec.md §4.2:
// per-call-site method caches, a global method cache, per-call-site
// constant caches, and per-opcode ivar caches.
package cache

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/value"
)

// MethodEntry is one inline method-cache slot, keyed implicitly by the
// SEND opcode that owns it.
type MethodEntry struct {
	version    uint64
	recvClass  *class.Class
	methodID   method.ID
	owner      *class.Class
	valid      bool
}

// Lookup returns the cached method if entry.version still matches the
// repository's class_version and the receiver's lookup class is unchanged
// (spec.md §4.2 step 1 — a hit). Otherwise it resolves via class.Resolve,
// updates the entry, and returns the fresh result (step 2 — a miss).
func (e *MethodEntry) Lookup(repo *method.Repo, recvClass *class.Class, name string) (id method.ID, owner *class.Class, ok bool) {
	if e.valid && e.version == repo.Version() && e.recvClass == recvClass {
		return e.methodID, e.owner, true
	}
	id, owner, ok = class.Resolve(recvClass, name)
	if ok {
		e.valid = true
		e.version = repo.Version()
		e.recvClass = recvClass
		e.methodID = id
		e.owner = owner
	} else {
		e.valid = false
	}
	return id, owner, ok
}

// globalKey is the (class, name) key of the secondary global method cache.
type globalKey struct {
	recv *class.Class
	name string
}

type globalEntry struct {
	version  uint64
	methodID method.ID
	owner    *class.Class
}

// GlobalMethodCache is the secondary cache consulted when an inline probe
// misses, per spec.md §4.2. Entries older than the current class_version
// are discarded lazily on lookup.
type GlobalMethodCache struct {
	entries map[globalKey]globalEntry
}

// NewGlobalMethodCache creates an empty global cache.
func NewGlobalMethodCache() *GlobalMethodCache {
	return &GlobalMethodCache{entries: map[globalKey]globalEntry{}}
}

// Lookup checks the global cache, falling back to class.Resolve and
// refreshing the entry on a miss or stale version.
func (g *GlobalMethodCache) Lookup(repo *method.Repo, recvClass *class.Class, name string) (method.ID, *class.Class, bool) {
	key := globalKey{recvClass, name}
	if e, ok := g.entries[key]; ok && e.version == repo.Version() {
		return e.methodID, e.owner, true
	}
	id, owner, ok := class.Resolve(recvClass, name)
	if ok {
		g.entries[key] = globalEntry{version: repo.Version(), methodID: id, owner: owner}
	} else {
		delete(g.entries, key)
	}
	return id, owner, ok
}

// ConstEntry is one inline GET_CONST cache slot.
type ConstEntry struct {
	version uint64
	val     value.Value
	valid   bool
}

// Lookup returns the cached constant if still valid against c's
// ConstVersion; otherwise the caller resolves fresh and calls Store.
func (e *ConstEntry) Lookup(c *class.Class) (value.Value, bool) {
	if e.valid && e.version == c.ConstVersion() {
		return e.val, true
	}
	return value.Nil(), false
}

// Store records a freshly resolved constant value against c's current
// version.
func (e *ConstEntry) Store(c *class.Class, v value.Value) {
	e.val = v
	e.version = c.ConstVersion()
	e.valid = true
}

// IvarEntry is one inline ivar-access cache slot: {last_class, ivar_slot}.
type IvarEntry struct {
	lastClass *class.Class
	slot      int
	valid     bool
}

// Lookup returns the cached slot if lastClass matches c. Ivar caches have no
// version to check (spec.md §4.2): a changed receiver class is itself the
// invalidation signal.
func (e *IvarEntry) Lookup(c *class.Class) (slot int, ok bool) {
	if e.valid && e.lastClass == c {
		return e.slot, true
	}
	return 0, false
}

// Store records a freshly resolved ivar slot for class c.
func (e *IvarEntry) Store(c *class.Class, slot int) {
	e.lastClass = c
	e.slot = slot
	e.valid = true
}
