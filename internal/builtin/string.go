package builtin

import (
	"strings"

	"j5.nz/rbvm/internal/rerrors"
	"j5.nz/rbvm/internal/value"
)

// StringMethods implements the String built-ins the concatenation and
// inspection scenarios exercise; internal/interp's CONCAT_STRING opcode
// and ToS opcode cover the fast paths, these are the ordinary method-call
// surface (spec.md §4.4's "falls back to method dispatch").
func StringMethods() Registry {
	return Registry{
		"+":        stringConcat,
		"*":        stringRepeat,
		"length":   stringLength,
		"size":     stringLength,
		"to_s":     stringIdentity,
		"to_str":   stringIdentity,
		"to_sym":   stringToSym,
		"upcase":   stringUpcase,
		"downcase": stringDowncase,
		"reverse":  stringReverse,
		"==":       stringEq,
		"empty?":   stringEmpty,
		"[]":       stringIndex,
		"split":    stringSplit,
		"include?": stringInclude,
	}
}

func strSelf(vm VM, self value.Value) (string, bool) { return vm.StringOf(self) }

func stringConcat(vm VM, self value.Value, args *Args) (value.Value, error) {
	a, ok := strSelf(vm, self)
	b, bok := vm.StringOf(args.At(0))
	if !ok || !bok {
		return value.Nil(), rerrors.New(rerrors.Type, "no implicit conversion to String")
	}
	return vm.NewString(a + b), nil
}

func stringRepeat(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, ok := strSelf(vm, self)
	n, nok := vm.IntOf(args.At(0))
	if !ok || !nok || n < 0 {
		return value.Nil(), rerrors.New(rerrors.Type, "String#*: expected a non-negative Integer")
	}
	return vm.NewString(strings.Repeat(s, int(n))), nil
}

func stringLength(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	return vm.NewInt(int64(len([]rune(s)))), nil
}

func stringIdentity(vm VM, self value.Value, args *Args) (value.Value, error) { return self, nil }

func stringToSym(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	return vm.NewSymbol(s), nil
}

func stringUpcase(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	return vm.NewString(strings.ToUpper(s)), nil
}

func stringDowncase(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	return vm.NewString(strings.ToLower(s)), nil
}

func stringReverse(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return vm.NewString(string(r)), nil
}

func stringEq(vm VM, self value.Value, args *Args) (value.Value, error) {
	a, ok := strSelf(vm, self)
	b, bok := vm.StringOf(args.At(0))
	return value.Bool(ok && bok && a == b), nil
}

func stringEmpty(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	return value.Bool(s == ""), nil
}

func stringIndex(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	r := []rune(s)
	i, ok := vm.IntOf(args.At(0))
	if !ok {
		return value.Nil(), rerrors.New(rerrors.Type, "String#[]: expected an Integer index")
	}
	if i < 0 {
		i += int64(len(r))
	}
	if i < 0 || i >= int64(len(r)) {
		return value.Nil(), nil
	}
	return vm.NewString(string(r[i])), nil
}

func stringSplit(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	sep := " "
	if args.Count() > 0 {
		if v, ok := vm.StringOf(args.At(0)); ok {
			sep = v
		}
	}
	var parts []string
	if sep == " " {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, sep)
	}
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = vm.NewString(p)
	}
	return vm.NewArray(out), nil
}

func stringInclude(vm VM, self value.Value, args *Args) (value.Value, error) {
	s, _ := strSelf(vm, self)
	sub, ok := vm.StringOf(args.At(0))
	return value.Bool(ok && strings.Contains(s, sub)), nil
}
