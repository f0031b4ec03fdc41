package builtin

import (
	"j5.nz/rbvm/internal/object"
	"j5.nz/rbvm/internal/value"
)

// HashMethods implements the Hash built-ins layered on HashInfo's
// insertion-ordered Keys slice plus its lookup map.
func HashMethods() Registry {
	return Registry{
		"[]":       hashGet,
		"[]=":      hashSet,
		"store":    hashSet,
		"each":     hashEach,
		"keys":     hashKeys,
		"values":   hashValues,
		"length":   hashLength,
		"size":     hashLength,
		"empty?":   hashEmpty,
		"key?":     hashHasKey,
		"has_key?": hashHasKey,
		"delete":   hashDelete,
	}
}

func hashSelf(vm VM, self value.Value) (*object.HashInfo, bool) { return vm.HashOf(self) }

func hashGet(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return value.Nil(), nil
	}
	if v, found := h.Values[args.At(0)]; found {
		return v, nil
	}
	return value.Nil(), nil
}

func hashSet(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return value.Nil(), nil
	}
	key, val := args.At(0), args.At(1)
	if _, found := h.Values[key]; !found {
		h.Keys = append(h.Keys, key)
	}
	h.Values[key] = val
	return val, nil
}

func hashEach(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return self, nil
	}
	if !args.HasBlock() {
		return vm.NewEnumerator(func(yield func(value.Value) error) error {
			for _, k := range h.Keys {
				if err := yield(vm.NewArray([]value.Value{k, h.Values[k]})); err != nil {
					return err
				}
			}
			return nil
		}), nil
	}
	for _, k := range h.Keys {
		if _, err := vm.CallBlock(args.Block, []value.Value{k, h.Values[k]}); err != nil {
			return value.Nil(), err
		}
	}
	return self, nil
}

func hashKeys(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return vm.NewArray(nil), nil
	}
	return vm.NewArray(h.Keys), nil
}

func hashValues(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return vm.NewArray(nil), nil
	}
	out := make([]value.Value, len(h.Keys))
	for i, k := range h.Keys {
		out[i] = h.Values[k]
	}
	return vm.NewArray(out), nil
}

func hashLength(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return vm.NewInt(0), nil
	}
	return vm.NewInt(int64(len(h.Keys))), nil
}

func hashEmpty(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	return value.Bool(!ok || len(h.Keys) == 0), nil
}

func hashHasKey(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return value.Bool(false), nil
	}
	_, found := h.Values[args.At(0)]
	return value.Bool(found), nil
}

func hashDelete(vm VM, self value.Value, args *Args) (value.Value, error) {
	h, ok := hashSelf(vm, self)
	if !ok {
		return value.Nil(), nil
	}
	key := args.At(0)
	v, found := h.Values[key]
	if !found {
		return value.Nil(), nil
	}
	delete(h.Values, key)
	for i, k := range h.Keys {
		if k == key {
			h.Keys = append(h.Keys[:i], h.Keys[i+1:]...)
			break
		}
	}
	return v, nil
}
