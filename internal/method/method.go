// Package method implements the process-wide method repository: an
// append-only table of method definitions indexed by a dense MethodId, plus
// the global class_version counter that invalidates inline/global caches.
package method

// ID identifies one entry in the repository. Zero is never issued (it
// means "no method" in cache entries).
type ID int

// Kind distinguishes MethodInfo variants, per spec.md §3.
type Kind int

const (
	KindRubyFunc Kind = iota
	KindAttrReader
	KindAttrWriter
	KindBuiltinFunc
	KindVoid
)

// Info is one method definition. Exactly the fields relevant to its Kind
// are meaningful.
type Info struct {
	Kind Kind
	Name string

	// KindRubyFunc
	ISeqID int

	// KindAttrReader / KindAttrWriter
	IvarName   string
	CachedSlot int // set on first invocation; -1 means unset

	// KindBuiltinFunc: always a builtin.Func. Stored as interface{} because
	// internal/builtin imports internal/class (for the VM facade's
	// ClassOf/ClassNamed), and internal/class already imports this
	// package — a concrete builtin.Func field here would close that into
	// an import cycle. internal/interp, which imports both, type-asserts
	// this back to builtin.Func at the call site.
	Builtin interface{}

	// Visibility, per spec.md §4.2 ("alias, or visibility change" bumps
	// class_version).
	Private bool
}

// Repo is the process-wide, append-only method table. Entries are never
// removed, per spec.md §3's MethodInfo lifecycle.
type Repo struct {
	entries []Info
	// version is bumped on every Define/Alias/SetVisibility, per spec.md
	// §4.2. It is the single source of truth inline and global caches
	// compare against.
	version uint64
}

// NewRepo creates an empty repository.
func NewRepo() *Repo {
	// Reserve index 0 so ID zero can mean "absent" everywhere.
	return &Repo{entries: make([]Info, 1)}
}

// Version returns the current class_version.
func (r *Repo) Version() uint64 { return r.version }

// Define appends a new method definition and bumps class_version, returning
// its ID.
func (r *Repo) Define(info Info) ID {
	if info.Kind == KindAttrReader || info.Kind == KindAttrWriter {
		info.CachedSlot = -1
	}
	r.entries = append(r.entries, info)
	r.version++
	return ID(len(r.entries) - 1)
}

// Get dereferences an ID. Panics on an out-of-range ID, which would
// indicate a corrupt cache entry — callers always validate IDs came from
// this Repo's own Define.
func (r *Repo) Get(id ID) *Info {
	return &r.entries[id]
}

// Alias records a second definition pointing at the same underlying method
// body by copying the Info under a new name, bumping class_version exactly
// like Define (aliasing is specified as one of the version-bumping
// mutations in spec.md §4.2).
func (r *Repo) Alias(id ID, newName string) ID {
	info := *r.Get(id)
	info.Name = newName
	return r.Define(info)
}

// SetVisibility flips Private on an existing entry and bumps class_version.
func (r *Repo) SetVisibility(id ID, private bool) {
	r.entries[id].Private = private
	r.version++
}
