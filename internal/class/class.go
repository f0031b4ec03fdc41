// Package class implements ClassInfo: method/constant/class-variable tables,
// the dense ivar-slot map, the superclass link, the include chain, and
// singleton classes, per spec.md §3 and §4.5.
package class

import (
	"golang.org/x/exp/slices"

	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/value"
)

// Class is a class or module object. Modules are Classes with IsModule set
// and no Super.
type Class struct {
	Name  string // "" for anonymous classes (e.g. Struct.new)
	Super *Class
	// Includes lists mixed-in modules in declared order — precedence in
	// method resolution (spec.md §4.3) follows this order.
	Includes []*Class
	IsModule bool

	Methods map[string]method.ID
	// constVersion is bumped on every constant assignment, invalidating the
	// inline constant cache (spec.md §4.2).
	Constants    map[string]value.Value
	constVersion uint64
	CVars        map[string]value.Value

	// IvarSlots assigns a dense index to each ivar name on first write,
	// shared by every instance of this class (spec.md §3's ivar layout).
	// Slot numbers are monotonic and never change once assigned.
	IvarSlots map[string]int
	nextSlot  int

	Singleton   bool
	SingletonOf *Class // back-reference; nil unless Singleton

	// lazySingleton is created on the first SingletonClass call for a class
	// that doesn't carry one yet (spec.md §4.5: "singletons are created
	// lazily").
	lazySingleton *Class
}

// New creates a class with the given superclass (nil only for BasicObject).
func New(name string, super *Class) *Class {
	return &Class{
		Name:      name,
		Super:     super,
		Methods:   map[string]method.ID{},
		Constants: map[string]value.Value{},
		CVars:     map[string]value.Value{},
		IvarSlots: map[string]int{},
	}
}

// NewModule creates a module (no superclass, IsModule set).
func NewModule(name string) *Class {
	c := New(name, nil)
	c.IsModule = true
	return c
}

// VersionedName implements object.ClassRef.
func (c *Class) VersionedName() string {
	if c.Name == "" {
		return "#<Class>"
	}
	return c.Name
}

// DefineMethod installs m under name and bumps the repo's class_version via
// repo.Define (the caller passes the already-built method.Info; DefineMethod
// just wires the name to the resulting ID).
func (c *Class) DefineMethod(repo *method.Repo, name string, info method.Info) method.ID {
	info.Name = name
	id := repo.Define(info)
	c.Methods[name] = id
	return id
}

// Include mixes a module into this class's chain, appended in declared
// order, and bumps class_version by touching the repo (inclusion can shadow
// previously-cached resolutions exactly like a new method would).
func (c *Class) Include(repo *method.Repo, m *Class) {
	c.Includes = append(c.Includes, m)
	repo.Define(method.Info{Kind: method.KindVoid, Name: "<include>"})
}

// SetConstant assigns a constant and bumps this class's constVersion,
// invalidating any inline GET_CONST cache keyed on it.
func (c *Class) SetConstant(name string, v value.Value) {
	c.Constants[name] = v
	c.constVersion++
}

// ConstVersion returns the current constant-cache version for this class's
// constant table.
func (c *Class) ConstVersion() uint64 { return c.constVersion }

// ConstantNames returns constant names declared directly on c, sorted.
// internal/builtin's Module#constants does not call it: that method walks
// the superclass chain and reads each Constants table itself.
func (c *Class) ConstantNames() []string {
	names := make([]string, 0, len(c.Constants))
	for n := range c.Constants {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// IvarSlot returns the dense slot for name, assigning a fresh monotonic one
// on first use (spec.md §3's ivar-slot assignment rule).
func (c *Class) IvarSlot(name string) int {
	if slot, ok := c.IvarSlots[name]; ok {
		return slot
	}
	slot := c.nextSlot
	c.IvarSlots[name] = slot
	c.nextSlot++
	return slot
}

// SingletonClass lazily creates and returns this object's singleton class,
// per spec.md §4.5. Every Class already is itself an object with a
// singleton used for "class methods" (def self.foo), so SingletonClass
// is defined on *Class directly rather than requiring a separate "object"
// wrapper.
func (c *Class) SingletonClass() *Class {
	if c.Singleton {
		return c // a singleton's singleton is itself in this simplified model
	}
	if c.lazySingleton == nil {
		super := c.Super
		if super != nil {
			super = super.SingletonClass()
		}
		c.lazySingleton = New("#<Class:"+c.VersionedName()+">", super)
		c.lazySingleton.Singleton = true
		c.lazySingleton.SingletonOf = c
	}
	return c.lazySingleton
}
