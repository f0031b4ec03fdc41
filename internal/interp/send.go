package interp

import (
	"j5.nz/rbvm/internal/builtin"
	"j5.nz/rbvm/internal/class"
	"j5.nz/rbvm/internal/frame"
	"j5.nz/rbvm/internal/iseq"
	"j5.nz/rbvm/internal/method"
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// rootFrame walks a frame's lexical Outer chain to the enclosing method
// context, used to give an MRETURN its target (spec.md §4.7).
func rootFrame(ctx *frame.Context) *frame.Context {
	for ctx.Outer != nil {
		ctx = ctx.Outer
	}
	return ctx
}

// sendFlags bit layout for the Send-family opcodes' flags byte, per
// spec.md §6: bit 0 marks an explicit block argument (a Proc/Method value)
// passed via `&blk` rather than a literal `{ }`/`do...end`, pushed on the
// operand stack just above the positional arguments. OptSend/OptSendSelf
// never carry a block at all (opcode.go's "fast path: no block, no keyword,
// no splat").
const sendFlagExplicitBlock = 0x1

// execSend decodes and dispatches one Send-family instruction.
func (it *Interp) execSend(ctx *frame.Context, dec iseq.Decoder, op iseq.Op, pc int, stack *[]value.Value) (value.Value, error) {
	pop := func() value.Value {
		s := *stack
		v := s[len(s)-1]
		*stack = s[:len(s)-1]
		return v
	}
	popN := func(n int) []value.Value {
		s := *stack
		out := make([]value.Value, n)
		copy(out, s[len(s)-n:])
		*stack = s[:len(s)-n]
		return out
	}

	methodSym, _, argc, flags, blockISeqID := dec.SendFields(pc)
	name := it.Symbols.Name(methodSym)

	blockVal := value.Nil()
	if op == iseq.Send || op == iseq.SendSelf {
		if flags&sendFlagExplicitBlock != 0 {
			blockVal = pop()
		} else if blockISeqID != 0 {
			blockVal = it.newProc(ctx, int(blockISeqID), false)
		}
	}

	args := popN(int(argc))

	selfSend := op == iseq.SendSelf || op == iseq.OptSendSelf
	var recv value.Value
	if selfSend {
		recv = ctx.Self
	} else {
		recv = pop()
	}

	return it.dispatch(ctx, recv, name, args, blockVal, selfSend)
}

// Send implements builtin.VM's Send, and is the entry point ordinary
// arithmetic/comparison fallbacks use to invoke a message with no block.
func (it *Interp) Send(self value.Value, name string, args []value.Value, block value.Value) (value.Value, error) {
	return it.dispatch(nil, self, name, args, block, false)
}

// dispatch resolves name against recv's class through the global method
// cache and invokes it, falling back to method_missing/NoMethodError on a
// miss. selfSend means the call came from SEND_SELF/OPT_SEND_SELF: private
// methods are reachable there even though they are not for an explicit
// receiver (spec.md's private-call rule).
func (it *Interp) dispatch(ctx *frame.Context, recv value.Value, name string, args []value.Value, block value.Value, selfSend bool) (value.Value, error) {
	c := it.lookupClassFor(recv)
	if c == nil {
		return value.Nil(), internalErr("no class for receiver")
	}
	id, owner, ok := it.Global.Lookup(it.Repo, c, name)
	if !ok {
		return it.methodMissing(recv, name, args, block)
	}
	info := it.Repo.Get(id)
	if info.Private && !selfSend {
		if ctx == nil || recv != ctx.Self {
			return value.Nil(), rerrors.New(rerrors.NoMethod, "private method '%s' called", name)
		}
	}
	return it.invoke(recv, owner, info, args, block)
}

// invoke runs one resolved method body against recv.
func (it *Interp) invoke(recv value.Value, owner *class.Class, info *method.Info, args []value.Value, block value.Value) (value.Value, error) {
	switch info.Kind {
	case method.KindRubyFunc:
		return it.invokeRuby(recv, info, args, block)
	case method.KindAttrReader:
		return it.invokeAttrReader(recv, owner, info)
	case method.KindAttrWriter:
		return it.invokeAttrWriter(recv, owner, info, args)
	case method.KindBuiltinFunc:
		fn, ok := info.Builtin.(builtin.Func)
		if !ok {
			return value.Nil(), internalErr("method %q has no builtin implementation wired", info.Name)
		}
		return fn(it, recv, &builtin.Args{Positional: args, Block: block})
	default:
		return value.Nil(), rerrors.New(rerrors.NoMethod, "method '%s' is not callable", info.Name)
	}
}

// invokeRuby builds a fresh call frame and runs its body, consuming a
// MethodReturn whose Target is this very frame (spec.md §4.7's "propagates
// until the matching method frame").
func (it *Interp) invokeRuby(recv value.Value, info *method.Info, args []value.Value, block value.Value) (value.Value, error) {
	body, ok := it.ISeqs[info.ISeqID]
	if !ok {
		return value.Nil(), internalErr("method %q: iseq %d not registered", info.Name, info.ISeqID)
	}
	ctx := frame.New(recv, info.ISeqID, len(body.Locals), nil, it.currentFrame(), blockArg(block))
	for i, a := range args {
		if i < len(ctx.Locals) {
			ctx.Locals[i] = a
		}
	}
	v, err := it.ExecFrame(ctx)
	if mr, isMR := err.(*rerrors.MethodReturn); isMR {
		if target, ok := mr.Target.(*frame.Context); ok && target == ctx {
			if rv, ok := mr.Value.(value.Value); ok {
				return rv, nil
			}
			return value.Nil(), nil
		}
	}
	return v, err
}

func (it *Interp) currentFrame() *frame.Context {
	if len(it.activeFrames) == 0 {
		return nil
	}
	return it.activeFrames[len(it.activeFrames)-1]
}

func (it *Interp) invokeAttrReader(recv value.Value, owner *class.Class, info *method.Info) (value.Value, error) {
	rv := it.ObjStore.Get(recv)
	if rv == nil {
		return value.Nil(), nil
	}
	slot := info.CachedSlot
	if slot < 0 {
		slot = owner.IvarSlot(info.IvarName)
		info.CachedSlot = slot
	}
	if rv.Ivar == nil {
		return value.Nil(), nil
	}
	return rv.Ivar.Get(slot), nil
}

func (it *Interp) invokeAttrWriter(recv value.Value, owner *class.Class, info *method.Info, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil(), rerrors.New(rerrors.Argument, "wrong number of arguments (given %d, expected 1)", len(args))
	}
	rv := it.ObjStore.Get(recv)
	if rv == nil {
		return value.Nil(), internalErr("attr writer on non-heap receiver")
	}
	if rv.Ivar == nil {
		rv.Ivar = &object.IvarTable{}
	}
	slot := info.CachedSlot
	if slot < 0 {
		slot = owner.IvarSlot(info.IvarName)
		info.CachedSlot = slot
	}
	rv.Ivar.Set(slot, args[0])
	return args[0], nil
}

// methodMissing implements spec.md's resolved Open Question: a missed
// lookup retries against `method_missing` with the missed name prepended to
// the argument list, and only becomes NoMethodError if that, too, is
// unresolved.
func (it *Interp) methodMissing(recv value.Value, name string, args []value.Value, block value.Value) (value.Value, error) {
	c := it.lookupClassFor(recv)
	id, owner, ok := it.Global.Lookup(it.Repo, c, "method_missing")
	if !ok {
		return value.Nil(), rerrors.New(rerrors.NoMethod, "undefined method '%s'", name)
	}
	info := it.Repo.Get(id)
	fullArgs := append([]value.Value{value.Symbol(it.Symbols.Intern(name))}, args...)
	return it.invoke(recv, owner, info, fullArgs, block)
}

// doYield implements the YIELD opcode: invoke ctx's block with args.
func (it *Interp) doYield(ctx *frame.Context, args []value.Value) (value.Value, error) {
	blockVal, ok := ctx.Block.(value.Value)
	if !ok || blockVal.IsNil() {
		return value.Nil(), rerrors.New(rerrors.LocalJump, "no block given (yield)")
	}
	return it.CallBlock(blockVal, args)
}

// CallBlock implements builtin.VM: invoke a Proc value (from Yield, from a
// `&blk` parameter, or from a builtin iterator like Array#each) against a
// fresh frame whose lexical Outer is the proc's creating context. A Break
// (BlockReturn) is caught right here, since the call that invoked the block
// is exactly its semantic boundary (spec.md §4.7).
func (it *Interp) CallBlock(block value.Value, args []value.Value) (value.Value, error) {
	rv := it.ObjStore.Get(block)
	if rv == nil || rv.Kind != object.KindProc || rv.ProcVal == nil {
		return value.Nil(), rerrors.New(rerrors.Type, "not a Proc")
	}
	p := rv.ProcVal
	outer, _ := p.Outer.(*frame.Context)
	body, ok := it.ISeqs[p.ISeqID]
	if !ok {
		return value.Nil(), internalErr("proc: iseq %d not registered", p.ISeqID)
	}
	ctx := frame.New(p.Self, p.ISeqID, len(body.Locals), outer, it.currentFrame(), nil)
	if outer != nil {
		ctx.Block = outer.Block
	}
	for i, a := range args {
		if i < len(ctx.Locals) {
			ctx.Locals[i] = a
		}
	}
	v, err := it.ExecFrame(ctx)
	if br, isBR := err.(*rerrors.BlockReturn); isBR {
		if bv, ok := br.Value.(value.Value); ok {
			return bv, nil
		}
		return value.Nil(), nil
	}
	return v, err
}

// newProc boxes a Proc cell capturing ctx as its lexical outer; Promote
// marks ctx (and its on-stack ancestors) as heap-owned, per frame.Promote's
// doc comment — a captured closure must see a stable outer chain even
// after its creating call returns.
func (it *Interp) newProc(ctx *frame.Context, bodyISeqID int, isLambda bool) value.Value {
	frame.Promote(ctx)
	return it.box(it.Classes.Proc, object.KindProc, func(rv *object.RValue) {
		rv.ProcVal = &object.ProcInfo{ISeqID: bodyISeqID, Lambda: isLambda, Outer: ctx, Self: ctx.Self}
	})
}

func blockArg(v value.Value) frame.Block {
	if v.IsNil() {
		return nil
	}
	return v
}
