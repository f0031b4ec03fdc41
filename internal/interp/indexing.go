package interp

import (
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// getIndex implements GET_INDEX/GET_IDX_I's builtin fast paths (Array,
// Hash) and falls back to a `[]` method dispatch for anything else,
// matching the fast-path-then-dispatch pattern spec.md §4.4 uses for
// arithmetic.
func (it *Interp) getIndex(recv, idx value.Value) (value.Value, error) {
	rv := it.ObjStore.Get(recv)
	if rv == nil {
		return it.Send(recv, "[]", []value.Value{idx}, value.Nil())
	}
	switch rv.Kind {
	case object.KindArray:
		i, ok := it.IntOf(idx)
		if !ok {
			return value.Nil(), rerrors.New(rerrors.Type, "Array#[]: index not an Integer")
		}
		elems := rv.ArrayVal.Elements
		if i < 0 {
			i += int64(len(elems))
		}
		if i < 0 || i >= int64(len(elems)) {
			return value.Nil(), nil
		}
		return elems[i], nil
	case object.KindHash:
		if v, ok := rv.HashVal.Values[idx]; ok {
			return v, nil
		}
		return value.Nil(), nil
	default:
		return it.Send(recv, "[]", []value.Value{idx}, value.Nil())
	}
}

// setIndex is getIndex's write-side counterpart.
func (it *Interp) setIndex(recv, idx, v value.Value) error {
	rv := it.ObjStore.Get(recv)
	if rv == nil {
		_, err := it.Send(recv, "[]=", []value.Value{idx, v}, value.Nil())
		return err
	}
	switch rv.Kind {
	case object.KindArray:
		i, ok := it.IntOf(idx)
		if !ok {
			return rerrors.New(rerrors.Type, "Array#[]=: index not an Integer")
		}
		elems := rv.ArrayVal.Elements
		if i < 0 {
			i += int64(len(elems))
		}
		if i < 0 {
			return rerrors.New(rerrors.Index, "index %d too small for array", i)
		}
		for int64(len(elems)) <= i {
			elems = append(elems, value.Nil())
		}
		elems[i] = v
		rv.ArrayVal.Elements = elems
		return nil
	case object.KindHash:
		it.hashSet(rv.HashVal, idx, v)
		return nil
	default:
		_, err := it.Send(recv, "[]=", []value.Value{idx, v}, value.Nil())
		return err
	}
}

// hashSet preserves insertion order (object.HashInfo's doc comment) by only
// appending to Keys on a genuinely new key.
func (it *Interp) hashSet(h *object.HashInfo, k, v value.Value) {
	if _, exists := h.Values[k]; !exists {
		h.Keys = append(h.Keys, k)
	}
	h.Values[k] = v
}
