package class

import "j5.nz/rbvm/internal/method"

// Resolve walks the method-lookup chain starting at c, per spec.md §4.3:
// a class's own methods precede its includes (recursively, in declared
// order), which precede its superclass's methods. Returns ok=false if no
// definition is found anywhere in the chain.
func Resolve(start *Class, name string) (id method.ID, owner *Class, ok bool) {
	for c := start; c != nil; c = c.Super {
		if id, found := c.Methods[name]; found {
			return id, c, true
		}
		for i := 0; i < len(c.Includes); i++ {
			if id, owner, ok := resolveInclude(c.Includes[i], name); ok {
				return id, owner, true
			}
		}
	}
	return 0, nil, false
}

// resolveInclude walks into an included module's own chain (a module can
// itself include other modules).
func resolveInclude(m *Class, name string) (method.ID, *Class, bool) {
	if id, found := m.Methods[name]; found {
		return id, m, true
	}
	for i := 0; i < len(m.Includes); i++ {
		if id, owner, ok := resolveInclude(m.Includes[i], name); ok {
			return id, owner, true
		}
	}
	return 0, nil, false
}

// Ancestors returns the full method-resolution order starting at c:
// c itself, its includes (recursively), then its superclass's ancestors.
// Used by internal/interp's is_a?/=== checks (isA).
func Ancestors(start *Class) []*Class {
	var out []*Class
	seen := map[*Class]bool{}
	var walk func(c *Class)
	walk = func(c *Class) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
		for i := 0; i < len(c.Includes); i++ {
			walk(c.Includes[i])
		}
	}
	for c := start; c != nil; c = c.Super {
		walk(c)
	}
	return out
}
