package interp

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// NewException boxes a RuntimeErr as a KindException Value whose class is
// looked up by the error's Ruby class name, so a rescue clause's
// RescueTypes filter (class-name strings, per iseq.ExceptionEntry) can be
// checked against it the same way spec.md §4.7 checks `e.is_a?(klass)`.
func (it *Interp) NewException(kind rerrors.Kind, message string) value.Value {
	c := it.ClassNamed(kind.ClassName())
	if c == nil {
		c = it.ClassNamed("RuntimeError")
	}
	return it.box(c, object.KindException, func(rv *object.RValue) {
		rv.Opaque = &rerrors.RuntimeErr{Kind: kind, Message: message}
	})
}

// exceptionValue turns a Go error propagating through ExecFrame into the
// boxed Value a rescue handler sees on the stack, and the class name used
// to match against an ExceptionEntry's RescueTypes.
func (it *Interp) exceptionValue(err error) (value.Value, string) {
	switch e := err.(type) {
	case *rerrors.RuntimeErr:
		return it.box(it.classForKind(e.Kind), object.KindException, func(rv *object.RValue) {
			rv.Opaque = e
		}), e.Kind.ClassName()
	case *rerrors.ValueErr:
		if v, ok := e.Exception.(value.Value); ok {
			return v, it.ClassOf(v).Name
		}
		return it.NewException(rerrors.Runtime, e.Error()), "RuntimeError"
	default:
		return it.NewException(rerrors.Runtime, err.Error()), "RuntimeError"
	}
}

func (it *Interp) classForKind(k rerrors.Kind) *class.Class {
	if c := it.ClassNamed(k.ClassName()); c != nil {
		return c
	}
	return it.Classes.Object
}

// handleError searches body's exception table for a guarded range covering
// pc whose RescueTypes accept err's class (spec.md §4.7), returning the
// handler's PC with the exception value left in it.pendingException for
// ExecFrame to push, or -1 if no entry matches (the error keeps propagating
// to the caller).
//
// Control-transfer signals (BlockReturn/MethodReturn) never match a rescue
// clause — they unwind straight through, exactly like CRuby's break/return
// bypassing begin/rescue.
func (it *Interp) handleError(ctx *frame.Context, body *iseq.ISeq, pc int, err error) (int, error) {
	if rerrors.IsControl(err) {
		return -1, nil
	}

	excVal, className := it.exceptionValue(err)

	for _, ent := range body.Exc {
		if pc < ent.Start || pc >= ent.End {
			continue
		}
		if !ent.Ensure && len(ent.RescueTypes) > 0 && !rescueMatches(ent.RescueTypes, className, it, excVal) {
			continue
		}
		it.pendingException = excVal
		return ent.Handler, nil
	}
	return -1, nil
}

// rescueMatches reports whether excVal (whose direct class name is
// className) is covered by one of types — either a literal class-name
// match or, for ancestor coverage (rescue StandardError catching a
// TypeError), an is_a? walk via internal/class.Ancestors.
func rescueMatches(types []string, className string, it *Interp, excVal value.Value) bool {
	for _, t := range types {
		if t == className {
			return true
		}
		if target := it.ClassNamed(t); target != nil && it.isA(excVal, target) {
			return true
		}
	}
	return false
}
