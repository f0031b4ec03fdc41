package interp

import (
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// ExecFrame runs ctx's bytecode to completion: a normal Return unwinds with
// its value, an uncaught error propagates to the caller, and BlockReturn/
// MethodReturn pass straight through to be intercepted by the call that
// made this frame (CallBlock and invokeRuby in send.go, spec.md §4.7). This is rbvm's equivalent of the teacher's backend_vm.go
// execFunc: one switch over opcode bytes, an operand stack, a dispatch loop
// advancing pc by the decoded instruction's fixed width (iseq.OperandWidth)
// unless a jump opcode overrides it.
func (it *Interp) ExecFrame(ctx *frame.Context) (value.Value, error) {
	body, ok := it.ISeqs[ctx.ISeqID]
	if !ok {
		return value.Nil(), internalErr("no iseq registered for id %d", ctx.ISeqID)
	}
	dec := iseq.Decoder{Bytes: body.Bytes}
	it.activeFrames = append(it.activeFrames, ctx)
	defer func() { it.activeFrames = it.activeFrames[:len(it.activeFrames)-1] }()
	var stack []value.Value
	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() value.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	popN := func(n int) []value.Value {
		out := make([]value.Value, n)
		copy(out, stack[len(stack)-n:])
		stack = stack[:len(stack)-n]
		return out
	}

	pc := ctx.PC
	for {
		if it.Debug {
			it.steps++
			if it.steps > it.stepLimit {
				return value.Nil(), internalErr("RBVM_STEP_LIMIT exceeded")
			}
		}
		op := dec.Op(pc)
		next := pc + dec.Size(pc)

		result, ctrl, err := it.step(ctx, body, dec, op, pc, &stack, push, pop, popN)
		if err != nil {
			handlerPC, hErr := it.handleError(ctx, body, pc, err)
			if hErr != nil {
				return value.Nil(), hErr
			}
			if handlerPC < 0 {
				return value.Nil(), err
			}
			push(it.pendingException)
			pc = handlerPC
			continue
		}
		switch ctrl {
		case ctrlNone:
			// fall through to ordinary advance below
		case ctrlReturn:
			return result, nil
		case ctrlJumpTo:
			pc = it.jumpTarget
			continue
		}
		pc = next
	}
}

// control signals step() reports back to ExecFrame's loop.
type ctrlSignal int

const (
	ctrlNone ctrlSignal = iota
	ctrlReturn
	ctrlJumpTo
)

// jumpTarget carries the destination for ctrlJumpTo; a field on Interp
// rather than a return value purely to keep step()'s signature from
// growing a sixth return — single-mutator-at-a-time (spec.md §5) makes
// this safe exactly like the rest of interp's unsynchronized state.
// (The field itself is declared on Interp in interp.go; setJump below is
// its only writer.)

func (it *Interp) setJump(target int) ctrlSignal {
	it.jumpTarget = target
	return ctrlJumpTo
}

// step executes exactly one instruction. Returning a non-nil error means a
// RuntimeErr/ValueErr/BlockReturn/MethodReturn is propagating; ExecFrame
// does the exception-table lookup, and control signals are intercepted by
// CallBlock/invokeRuby.
func (it *Interp) step(
	ctx *frame.Context,
	body *iseq.ISeq,
	dec iseq.Decoder,
	op iseq.Op,
	pc int,
	stack *[]value.Value,
	push func(value.Value),
	pop func() value.Value,
	popN func(int) []value.Value,
) (value.Value, ctrlSignal, error) {
	switch op {
	case iseq.PushNil:
		push(value.Nil())
	case iseq.PushTrue:
		push(value.True())
	case iseq.PushFalse:
		push(value.False())
	case iseq.PushSelf:
		push(ctx.Self)
	case iseq.PushFixnum:
		push(it.BoxInt(int64(dec.U64(pc))))
	case iseq.PushFlonum:
		push(it.BoxFloat(dec.F64(pc)))
	case iseq.PushSymbol:
		push(value.Symbol(dec.U32(pc)))
	case iseq.PushConstVal:
		push(value.Nil()) // literal const-pool values: unused without a compiler

	case iseq.Pop:
		pop()
	case iseq.Dup:
		v := (*stack)[len(*stack)-1]
		push(v)
	case iseq.DupN:
		n := int(dec.U16(pc))
		v := (*stack)[len(*stack)-1-n]
		push(v)
	case iseq.SinkN:
		n := int(dec.U16(pc))
		top := pop()
		s := *stack
		copy(s[len(s)-n:], s[len(s)-n+1:])
		s[len(s)-1] = top
		*stack = s
	case iseq.TopN:
		n := int(dec.U16(pc))
		push((*stack)[len(*stack)-1-n])
	case iseq.Take:
		n := int(dec.U16(pc))
		vs := popN(n)
		push(it.NewArray(vs))
	case iseq.ConcatString:
		n := int(dec.U16(pc))
		vs := popN(n)
		var sb []byte
		for _, v := range vs {
			s, ok := it.StringOf(v)
			if !ok {
				s = it.Inspect(v)
			}
			sb = append(sb, s...)
		}
		push(it.NewString(string(sb)))

	case iseq.Add, iseq.Sub, iseq.Mul, iseq.Div, iseq.Rem, iseq.Pow,
		iseq.Shl, iseq.Shr, iseq.BAnd, iseq.BOr, iseq.BXor:
		b := pop()
		a := pop()
		v, err := it.arith(ctx, op, a, b)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)
	case iseq.BNot:
		a := pop()
		n, ok := it.IntOf(a)
		if !ok {
			return value.Nil(), ctrlNone, rerrors.New(rerrors.Type, "~: not an Integer")
		}
		push(it.BoxInt(^n))
	case iseq.Neg:
		a := pop()
		if n, ok := it.IntOf(a); ok {
			push(it.BoxInt(-n))
		} else if f, ok := it.FloatOf(a); ok {
			push(it.BoxFloat(-f))
		} else {
			return value.Nil(), ctrlNone, rerrors.New(rerrors.Type, "-@: not numeric")
		}
	case iseq.AddI:
		a := pop()
		imm := int64(dec.I32(pc))
		if n, ok := it.IntOf(a); ok {
			push(it.BoxInt(n + imm))
		} else {
			v, err := it.arith(ctx, iseq.Add, a, it.BoxInt(imm))
			if err != nil {
				return value.Nil(), ctrlNone, err
			}
			push(v)
		}
	case iseq.SubI:
		a := pop()
		imm := int64(dec.I32(pc))
		if n, ok := it.IntOf(a); ok {
			push(it.BoxInt(n - imm))
		} else {
			v, err := it.arith(ctx, iseq.Sub, a, it.BoxInt(imm))
			if err != nil {
				return value.Nil(), ctrlNone, err
			}
			push(v)
		}

	case iseq.Eq, iseq.Ne, iseq.Gt, iseq.Ge, iseq.Lt, iseq.Le, iseq.Cmp, iseq.Teq:
		b := pop()
		a := pop()
		v, err := it.compare(ctx, op, a, b)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)

	case iseq.SetLocal:
		slot := int(dec.U16(pc))
		ctx.Locals[slot] = pop()
	case iseq.GetLocal:
		slot := int(dec.U16(pc))
		push(ctx.Locals[slot])
	case iseq.CheckLocal:
		slot := int(dec.U16(pc))
		push(value.Bool(!ctx.Locals[slot].IsUninitialized()))
	case iseq.SetDynLocal:
		depth, slot := dec.U16(pc), dec.U16(pc+2)
		target := ctx.OuterAt(int(depth))
		target.Locals[slot] = pop()
	case iseq.GetDynLocal:
		depth, slot := dec.U16(pc), dec.U16(pc+2)
		target := ctx.OuterAt(int(depth))
		push(target.Locals[slot])

	case iseq.SetIvar, iseq.GetIvar, iseq.CheckIvar:
		cacheSlot, symID := dec.IvarFields(pc)
		name := it.Symbols.Name(symID)
		c := it.ClassOf(ctx.Self)
		slot, hit := it.ivarCache(callSite{ctx.ISeqID, pc}).Lookup(c)
		if !hit {
			slot = c.IvarSlot(name)
			it.ivarCache(callSite{ctx.ISeqID, pc}).Store(c, slot)
		}
		_ = cacheSlot
		rv := it.ObjStore.Get(ctx.Self)
		if rv == nil {
			return value.Nil(), ctrlNone, internalErr("ivar access on non-heap self")
		}
		if rv.Ivar == nil {
			rv.Ivar = &object.IvarTable{}
		}
		switch op {
		case iseq.SetIvar:
			rv.Ivar.Set(slot, pop())
		case iseq.GetIvar:
			push(rv.Ivar.Get(slot))
		case iseq.CheckIvar:
			push(value.Bool(slot < rv.Ivar.Len()))
		}

	case iseq.SetGvar:
		name := it.Symbols.Name(dec.U32(pc))
		it.Globals[name] = pop()
	case iseq.GetGvar:
		name := it.Symbols.Name(dec.U32(pc))
		v, ok := it.Globals[name]
		if !ok {
			v = value.Nil()
		}
		push(v)
	case iseq.SetCvar:
		name := it.Symbols.Name(dec.U32(pc))
		owner := it.cvarOwner(ctx)
		for c := owner; c != nil; c = c.Super {
			if _, ok := c.CVars[name]; ok {
				owner = c
				break
			}
		}
		owner.CVars[name] = pop()
	case iseq.GetCvar:
		name := it.Symbols.Name(dec.U32(pc))
		push(it.lookupCvar(ctx, name))

	case iseq.SetConst:
		_, symID := dec.IvarFields(pc)
		name := it.Symbols.Name(symID)
		v := pop()
		it.nameAnonymousClass(v, name)
		it.definingClass(ctx).SetConstant(name, v)
	case iseq.GetConst:
		_, symID := dec.IvarFields(pc)
		name := it.Symbols.Name(symID)
		site := callSite{ctx.ISeqID, pc}
		dc := it.definingClass(ctx)
		if v, ok := it.constCache(site).Lookup(dc); ok {
			push(v)
		} else {
			v, err := it.resolveConst(dc, name)
			if err != nil {
				return value.Nil(), ctrlNone, err
			}
			it.constCache(site).Store(dc, v)
			push(v)
		}
	case iseq.GetConstTop:
		name := it.Symbols.Name(dec.U32(pc))
		v, ok := it.Classes.Object.Constants[name]
		if !ok {
			return value.Nil(), ctrlNone, rerrors.New(rerrors.Name, "uninitialized constant %s", name)
		}
		push(v)
	case iseq.GetScope:
		// Scoped lookup (A::B): resolved identically to GetConst against
		// the popped left-hand value's module, per spec.md §6.
		name := it.Symbols.Name(dec.U32(pc))
		recv := pop()
		rv := it.ObjStore.Get(recv)
		if rv == nil || rv.Kind != object.KindModule {
			return value.Nil(), ctrlNone, rerrors.New(rerrors.Type, "not a class/module")
		}
		owner, _ := rv.Opaque.(*class.Class)
		v, err := it.resolveConst(owner, name)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)

	case iseq.SetIndex:
		v := pop()
		idx := pop()
		recv := pop()
		if err := it.setIndex(recv, idx, v); err != nil {
			return value.Nil(), ctrlNone, err
		}
	case iseq.GetIndex:
		idx := pop()
		recv := pop()
		v, err := it.getIndex(recv, idx)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)
	case iseq.SetIdxI:
		i := int(dec.U16(pc))
		v := pop()
		recv := pop()
		if err := it.setIndex(recv, it.BoxInt(int64(i)), v); err != nil {
			return value.Nil(), ctrlNone, err
		}
	case iseq.GetIdxI:
		i := int(dec.U16(pc))
		recv := pop()
		v, err := it.getIndex(recv, it.BoxInt(int64(i)))
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)

	case iseq.Jmp:
		return value.Nil(), it.setJump(pc + 1 + 4 + int(dec.I32(pc))), nil
	case iseq.JmpBack:
		if err := it.maybeCollect(); err != nil {
			return value.Nil(), ctrlNone, internalErr("gc safe point: %v", err)
		}
		return value.Nil(), it.setJump(pc + 1 + 4 + int(dec.I32(pc))), nil
	case iseq.JmpT:
		cond := pop()
		if cond.Truthy() {
			return value.Nil(), it.setJump(pc + 1 + 4 + int(dec.I32(pc))), nil
		}
	case iseq.JmpF:
		cond := pop()
		if !cond.Truthy() {
			return value.Nil(), it.setJump(pc + 1 + 4 + int(dec.I32(pc))), nil
		}
	case iseq.JmpFEq, iseq.JmpFNe, iseq.JmpFGt, iseq.JmpFGe, iseq.JmpFLt, iseq.JmpFLe:
		b := pop()
		a := pop()
		cmpOp := fusedCompareOp(op)
		v, err := it.compare(ctx, cmpOp, a, b)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		if !v.Truthy() {
			return value.Nil(), it.setJump(pc + 1 + 4 + int(dec.I32(pc))), nil
		}
	case iseq.OptCase:
		return value.Nil(), ctrlNone, rerrors.New(rerrors.Unimplemented, "OPT_CASE requires a jump-table compiled by the emitter")

	case iseq.Return:
		return pop(), ctrlReturn, nil
	case iseq.Break:
		return value.Nil(), ctrlNone, &rerrors.BlockReturn{Value: pop()}
	case iseq.MReturn:
		return value.Nil(), ctrlNone, &rerrors.MethodReturn{Value: pop(), Target: rootFrame(ctx)}

	case iseq.Send, iseq.SendSelf, iseq.OptSend, iseq.OptSendSelf:
		v, err := it.execSend(ctx, dec, op, pc, stack)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)
	case iseq.Yield:
		argc := int(dec.U16(pc))
		args := popN(argc)
		v, err := it.doYield(ctx, args)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)

	case iseq.DefClass, iseq.DefSClass:
		superExpr := pop()
		v, err := it.execDefClass(ctx, dec, op, pc, superExpr)
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		push(v)
	case iseq.DefMethod, iseq.DefSMethod:
		it.execDefMethod(ctx, dec, op, pc)
		push(value.Nil())
	case iseq.CreateProc:
		bodyID, isLambda := dec.CreateProcFields(pc)
		push(it.newProc(ctx, int(bodyID), isLambda))
	case iseq.CreateArray:
		n := int(dec.U16(pc))
		push(it.NewArray(popN(n)))
	case iseq.CreateHash:
		n := int(dec.U16(pc))
		vs := popN(n * 2)
		h := it.NewHash()
		rv := it.ObjStore.Get(h)
		for i := 0; i < len(vs); i += 2 {
			it.hashSet(rv.HashVal, vs[i], vs[i+1])
		}
		push(h)
	case iseq.CreateRange:
		excl := dec.Bytes[pc+1] != 0
		end := pop()
		start := pop()
		push(it.NewRange(start, end, excl))
	case iseq.CreateRegexp:
		return value.Nil(), ctrlNone, rerrors.New(rerrors.Unimplemented, "Regexp literals are out of scope")
	case iseq.Splat:
		v := pop()
		push(v) // splat's array-spreading effect is realized by execSend's arg collection, not here
	case iseq.ToS:
		v := pop()
		if s, ok := it.StringOf(v); ok {
			push(it.NewString(s))
			break
		}
		sv, err := it.Send(v, "to_s", nil, value.Nil())
		if err != nil {
			return value.Nil(), ctrlNone, err
		}
		if s, ok := it.StringOf(sv); ok {
			push(it.NewString(s))
		} else {
			push(it.NewString(it.Inspect(v)))
		}

	default:
		return value.Nil(), ctrlNone, internalErr("unimplemented opcode %d", op)
	}
	return value.Nil(), ctrlNone, nil
}

func fusedCompareOp(op iseq.Op) iseq.Op {
	switch op {
	case iseq.JmpFEq:
		return iseq.Eq
	case iseq.JmpFNe:
		return iseq.Ne
	case iseq.JmpFGt:
		return iseq.Gt
	case iseq.JmpFGe:
		return iseq.Ge
	case iseq.JmpFLt:
		return iseq.Lt
	case iseq.JmpFLe:
		return iseq.Le
	}
	return iseq.Eq
}
