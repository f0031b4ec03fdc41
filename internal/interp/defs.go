package interp

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/value"
)

// BoxClass returns the single boxed Value identifying c, allocating it on
// first use so re-running DEF_CLASS against an already-open class (or a
// test harness referring to a class by name) always sees the same object
// (spec.md §4.5's "classes are themselves objects").
func (it *Interp) BoxClass(c *class.Class) value.Value {
	if v, ok := it.classBoxes[c]; ok {
		return v
	}
	metaClass := it.Classes.Class
	if c.IsModule {
		metaClass = it.Classes.Module
	}
	v := it.box(metaClass, object.KindModule, func(rv *object.RValue) { rv.Opaque = c })
	it.classBoxes[c] = v
	return v
}

// ClassValue implements builtin.VM: the inverse of BoxClass, unboxing a
// class/module object back to its *class.Class for built-ins like
// Object#is_a? that receive a class as an ordinary argument Value.
func (it *Interp) ClassValue(v value.Value) (*class.Class, bool) {
	rv := it.ObjStore.Get(v)
	if rv == nil || rv.Kind != object.KindModule {
		return nil, false
	}
	c, ok := rv.Opaque.(*class.Class)
	return c, ok
}

// nameAnonymousClass names c if v boxes a still-anonymous class, mirroring
// Ruby's own "the first constant a class is assigned to becomes its name"
// rule — needed for Struct.new(...)'s result (spec.md §8 scenario 6's
// `S = Struct.new(:a,:b)` naming S only once assigned).
func (it *Interp) nameAnonymousClass(v value.Value, name string) {
	c, ok := it.ClassValue(v)
	if ok && c.Name == "" {
		c.Name = name
	}
}

// execDefClass implements DEF_CLASS/DEF_SCLASS: open (or create) a class
// or module under the current lexical scope, run its body against a fresh
// frame whose self is the class object itself, and leave the class value
// on the stack. DEF_CLASS doesn't wire a superclass operand into its
// fixed-width encoding (spec.md §4.5), so the convention here, like
// CRuby's own defineclass instruction, is that the compiled expression for
// an explicit `class Foo < Bar` superclass is evaluated and left on the
// operand stack just below DEF_CLASS itself; superExpr is that popped
// value (value.Nil() for a bare `class Foo`, meaning "superclass Object").
func (it *Interp) execDefClass(ctx *frame.Context, dec iseq.Decoder, op iseq.Op, pc int, superExpr value.Value) (value.Value, error) {
	nameSym, isModule, bodyISeqID := dec.DefClassFields(pc)
	name := it.Symbols.Name(nameSym)
	scope := it.definingClass(ctx)

	var target *class.Class
	if existing, ok := scope.Constants[name]; ok {
		if rv := it.ObjStore.Get(existing); rv != nil {
			if c, ok := rv.Opaque.(*class.Class); ok {
				target = c
			}
		}
	}
	if target == nil {
		super := it.Classes.Object
		if !superExpr.IsNil() {
			if c, ok := it.ClassValue(superExpr); ok {
				super = c
			}
		}
		if isModule {
			target = class.NewModule(name)
		} else {
			target = class.New(name, super)
		}
		scope.SetConstant(name, it.BoxClass(target))
	}

	if bodyISeqID == 0 {
		return it.BoxClass(target), nil
	}
	body, ok := it.ISeqs[int(bodyISeqID)]
	if !ok {
		return value.Nil(), internalErr("class %q: iseq %d not registered", name, bodyISeqID)
	}
	bodyCtx := frame.New(it.BoxClass(target), int(bodyISeqID), len(body.Locals), nil, it.currentFrame(), nil)
	bodyCtx.DefiningClass = target
	if _, err := it.ExecFrame(bodyCtx); err != nil {
		return value.Nil(), err
	}
	return it.BoxClass(target), nil
}

// execDefMethod implements DEF_METHOD/DEF_SMETHOD: install a KindRubyFunc
// method under name (or, for DEF_SMETHOD, under the defining class's
// singleton class, which inside a class body is ctx.Self's own) pointing at
// the already-compiled body ISeq.
func (it *Interp) execDefMethod(ctx *frame.Context, dec iseq.Decoder, op iseq.Op, pc int) {
	nameSym, bodyISeqID := dec.DefMethodFields(pc)
	name := it.Symbols.Name(nameSym)
	target := it.definingClass(ctx)
	if op == iseq.DefSMethod {
		target = target.SingletonClass()
	}
	target.DefineMethod(it.Repo, name, method.Info{Kind: method.KindRubyFunc, ISeqID: int(bodyISeqID)})
}
