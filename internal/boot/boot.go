// Package boot builds the metacircle every running interpreter needs
// before the first instruction executes: BasicObject at the root,
// Object/Module/Class wired into the "a Class's class is Class" cycle
// spec.md §4.5 describes, the small set of classes the interpreter's fast
// paths hard-code (Integer, Float, String, Symbol, Array, Hash, Range,
// Proc, NilClass, TrueClass, FalseClass, Fiber, Enumerator, Struct), and the
// built-in method registries of internal/builtin installed into them.
//
// Grounded on the teacher's own staged bootstrap in std/compiler/main.go,
// which builds its global symbol table and runtime globals in a fixed
// order before compiling or running anything else.
package boot

import (
	"os"

	"j5.nz/rbvm/internal/builtin"
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/interp"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/symtab"
	"j5.nz/rbvm/internal/value"
)

// New creates a fully wired Interp: metacircle classes built, built-in
// registries installed, ENV materialized from the host environment, and
// $0/ARGV globals ready for cmd/rbvm to fill in.
func New() *interp.Interp {
	store := object.NewStore()
	repo := method.NewRepo()
	symbols := symtab.New()
	it := interp.New(store, repo, symbols)

	basicObject := class.New("BasicObject", nil)
	object_ := class.New("Object", basicObject)
	module_ := class.New("Module", object_)
	class_ := class.New("Class", module_)

	it.Classes.BasicObject = basicObject
	it.Classes.Object = object_
	it.Classes.Module = module_
	it.Classes.Class = class_

	it.Classes.Integer = class.New("Integer", object_)
	it.Classes.Float = class.New("Float", object_)
	it.Classes.String = class.New("String", object_)
	it.Classes.Symbol = class.New("Symbol", object_)
	it.Classes.Array = class.New("Array", object_)
	it.Classes.Hash = class.New("Hash", object_)
	it.Classes.Range = class.New("Range", object_)
	it.Classes.Proc = class.New("Proc", object_)
	it.Classes.NilClass = class.New("NilClass", object_)
	it.Classes.TrueClass = class.New("TrueClass", object_)
	it.Classes.FalseClass = class.New("FalseClass", object_)
	it.Classes.Fiber = class.New("Fiber", object_)
	it.Classes.Enumerator = class.New("Enumerator", object_)
	it.Classes.Struct = class.New("Struct", object_)

	for _, c := range []*class.Class{
		basicObject, object_, module_, class_,
		it.Classes.Integer, it.Classes.Float, it.Classes.String, it.Classes.Symbol,
		it.Classes.Array, it.Classes.Hash, it.Classes.Range, it.Classes.Proc,
		it.Classes.NilClass, it.Classes.TrueClass, it.Classes.FalseClass,
		it.Classes.Fiber, it.Classes.Enumerator, it.Classes.Struct,
	} {
		object_.SetConstant(c.Name, it.BoxClass(c))
	}

	installRegistry(it, repo, basicObject, builtin.KernelMethods())
	installRegistry(it, repo, object_, builtin.ObjectMethods())
	installRegistry(it, repo, module_, builtin.ModuleMethods())
	installRegistry(it, repo, it.Classes.Integer, builtin.IntegerMethods())
	installRegistry(it, repo, it.Classes.Float, builtin.FloatMethods())
	installRegistry(it, repo, it.Classes.String, builtin.StringMethods())
	installRegistry(it, repo, it.Classes.Array, builtin.ArrayMethods())
	installRegistry(it, repo, it.Classes.Hash, builtin.HashMethods())
	installRegistry(it, repo, it.Classes.Range, builtin.RangeMethods())
	installRegistry(it, repo, it.Classes.Fiber, builtin.FiberMethods())
	installRegistry(it, repo, it.Classes.Enumerator, builtin.EnumeratorMethods())

	installRegistry(it, repo, basicObject.SingletonClass(), builtin.BasicObjectClassMethods())
	installRegistry(it, repo, it.Classes.Fiber.SingletonClass(), builtin.FiberClassMethods())
	installRegistry(it, repo, it.Classes.Struct.SingletonClass(), builtin.StructClassMethods())

	installEnv(it)
	return it
}

// installRegistry wires every Func in reg into target's method table as a
// KindBuiltinFunc entry, per spec.md §4.5's built-in installation step.
func installRegistry(it *interp.Interp, repo *method.Repo, target *class.Class, reg builtin.Registry) {
	for name, fn := range reg {
		target.DefineMethod(repo, name, method.Info{Kind: method.KindBuiltinFunc, Builtin: fn})
	}
}

// installEnv materializes the host process environment into a Ruby Hash
// bound to the ENV constant, per spec.md §6.
func installEnv(it *interp.Interp) {
	h := it.NewHash()
	rv := it.Store().Get(h)
	for _, kv := range os.Environ() {
		k, v := splitEnv(kv)
		key := it.NewString(k)
		val := it.NewString(v)
		rv.HashVal.Keys = append(rv.HashVal.Keys, key)
		rv.HashVal.Values[key] = val
	}
	it.Classes.Object.SetConstant("ENV", h)
	it.Globals["$PROGRAM_NAME"] = value.Nil()
}

func splitEnv(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}
