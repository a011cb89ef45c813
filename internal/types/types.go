// Package types implements the structural type system shared by the
// resolver, codegen and the monomorphisation key used to discriminate
// overloaded functions. It is grounded on the TType enum of the language
// this toolchain's bytecode format was modeled on (see original_source),
// reshaped as a Go tagged struct the way the teacher package represents its
// own sum types with a Kind discriminant plus payload fields.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the variant of a Type value.
type Kind uint8

const (
	KindNone Kind = iota
	KindAny
	KindInt
	KindFloat
	KindBool
	KindChar
	KindString
	KindVoid
	KindAuto
	KindList
	KindOption
	KindTuple
	KindFunction
	KindCustom
	KindGeneric
)

// Type is a structurally-compared, tagged representation of a value type.
// Zero value is the invalid type; use the Kind* constructors below.
type Type struct {
	Kind Kind

	// List, Option: Elem is the contained type.
	Elem *Type

	// Tuple: Elems are the component types.
	Elems []Type

	// Function: Params are the parameter types, Ret is the return type.
	Params []Type
	Ret    *Type

	// Custom: Name is the declared type name, TypeParams its generic
	// arguments (possibly empty for a non-generic custom type).
	// Generic: Name is the identifier bound during unification.
	Name       string
	TypeParams []Type
}

// Constructors. Each returns a fresh, structurally comparable Type.

func None() Type  { return Type{Kind: KindNone} }
func Any() Type   { return Type{Kind: KindAny} }
func Int() Type   { return Type{Kind: KindInt} }
func Float() Type { return Type{Kind: KindFloat} }
func Bool() Type  { return Type{Kind: KindBool} }
func Char() Type  { return Type{Kind: KindChar} }
func Str() Type   { return Type{Kind: KindString} }
func Void() Type  { return Type{Kind: KindVoid} }
func Auto() Type  { return Type{Kind: KindAuto} }

func List(elem Type) Type   { e := elem; return Type{Kind: KindList, Elem: &e} }
func Option(elem Type) Type { e := elem; return Type{Kind: KindOption, Elem: &e} }
func Tuple(elems []Type) Type {
	return Type{Kind: KindTuple, Elems: append([]Type(nil), elems...)}
}
func Function(params []Type, ret Type) Type {
	r := ret
	return Type{Kind: KindFunction, Params: append([]Type(nil), params...), Ret: &r}
}
func Custom(name string, typeParams []Type) Type {
	return Type{Kind: KindCustom, Name: name, TypeParams: append([]Type(nil), typeParams...)}
}
func Generic(name string) Type { return Type{Kind: KindGeneric, Name: name} }

// Equal reports whether two types are structurally identical. Generic names
// must match exactly; Equal does not perform unification.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindList, KindOption:
		return Equal(*a.Elem, *b.Elem)
	case KindTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KindFunction:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return Equal(*a.Ret, *b.Ret)
	case KindCustom:
		if a.Name != b.Name || len(a.TypeParams) != len(b.TypeParams) {
			return false
		}
		for i := range a.TypeParams {
			if !Equal(a.TypeParams[i], b.TypeParams[i]) {
				return false
			}
		}
		return true
	case KindGeneric:
		return a.Name == b.Name
	default:
		return true
	}
}

// String renders the type the way the monomorphisation key's printer does:
// "Int", "[Int]", "Option(Int)", "(Int,String)", "fn(Int,Int)->Bool",
// "Pair(Int,String)", "$T".
func (t Type) String() string {
	switch t.Kind {
	case KindNone:
		return "None"
	case KindAny:
		return "Any"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindChar:
		return "Char"
	case KindString:
		return "String"
	case KindVoid:
		return "Void"
	case KindAuto:
		return "Auto"
	case KindList:
		return "[" + t.Elem.String() + "]"
	case KindOption:
		return "Option(" + t.Elem.String() + ")"
	case KindTuple:
		return "(" + joinTypes(t.Elems) + ")"
	case KindFunction:
		return "fn(" + joinTypes(t.Params) + ")->" + t.Ret.String()
	case KindCustom:
		if len(t.TypeParams) == 0 {
			return t.Name
		}
		return t.Name + "(" + joinTypes(t.TypeParams) + ")"
	case KindGeneric:
		return "$" + t.Name
	default:
		return fmt.Sprintf("<invalid type %d>", t.Kind)
	}
}

func joinTypes(ts []Type) string {
	var sb strings.Builder
	for i, t := range ts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}

// Mangle builds the monomorphisation key for a function named name with
// parameter types. An empty types list returns name unchanged (generic
// functions register under the bare name; see spec §4.1).
func Mangle(name string, argTypes []Type) string {
	if len(argTypes) == 0 {
		return name
	}
	var sb strings.Builder
	sb.WriteString(name)
	for _, t := range argTypes {
		sb.WriteByte('_')
		sb.WriteString(t.String())
	}
	return sb.String()
}

// UnifyError reports a structural mismatch or illegal binding encountered
// while unifying two type lists.
type UnifyError struct {
	Expected, Actual Type
	Reason           string
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s: %s", e.Expected, e.Actual, e.Reason)
}

// Bindings maps a generic parameter name to the concrete type it was bound
// to during unification.
type Bindings map[string]Type

// Unify performs the pairwise structural walk described in spec §4.1: Any
// accepts any non-Void actual; a Generic name binds to its peer unless
// already bound to a conflicting type; List/Option/Tuple/Function recurse
// element-wise with matching arity; primitives must be equal. Binding a
// generic to None or Void is rejected.
func Unify(expected, actual []Type) (Bindings, error) {
	if len(expected) != len(actual) {
		return nil, &UnifyError{Reason: fmt.Sprintf("arity mismatch: want %d arguments, got %d", len(expected), len(actual))}
	}
	b := make(Bindings)
	for i := range expected {
		if err := unifyOne(expected[i], actual[i], b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func unifyOne(exp, act Type, b Bindings) error {
	if exp.Kind == KindGeneric {
		if act.Kind == KindNone || act.Kind == KindVoid {
			return &UnifyError{Expected: exp, Actual: act, Reason: "cannot bind a generic parameter to None or Void"}
		}
		if prev, ok := b[exp.Name]; ok {
			if !Equal(prev, act) {
				return &UnifyError{Expected: prev, Actual: act, Reason: fmt.Sprintf("generic %s already bound to %s", exp.Name, prev)}
			}
			return nil
		}
		b[exp.Name] = act
		return nil
	}
	if exp.Kind == KindAny {
		if act.Kind == KindVoid {
			return &UnifyError{Expected: exp, Actual: act, Reason: "Any does not accept Void"}
		}
		return nil
	}

	if exp.Kind != act.Kind {
		return &UnifyError{Expected: exp, Actual: act, Reason: "kind mismatch"}
	}

	switch exp.Kind {
	case KindList, KindOption:
		return unifyOne(*exp.Elem, *act.Elem, b)
	case KindTuple:
		if len(exp.Elems) != len(act.Elems) {
			return &UnifyError{Expected: exp, Actual: act, Reason: "tuple arity mismatch"}
		}
		for i := range exp.Elems {
			if err := unifyOne(exp.Elems[i], act.Elems[i], b); err != nil {
				return err
			}
		}
		return nil
	case KindFunction:
		if len(exp.Params) != len(act.Params) {
			return &UnifyError{Expected: exp, Actual: act, Reason: "function arity mismatch"}
		}
		for i := range exp.Params {
			if err := unifyOne(exp.Params[i], act.Params[i], b); err != nil {
				return err
			}
		}
		return unifyOne(*exp.Ret, *act.Ret, b)
	case KindCustom:
		if exp.Name != act.Name || len(exp.TypeParams) != len(act.TypeParams) {
			return &UnifyError{Expected: exp, Actual: act, Reason: "custom type mismatch"}
		}
		for i := range exp.TypeParams {
			if err := unifyOne(exp.TypeParams[i], act.TypeParams[i], b); err != nil {
				return err
			}
		}
		return nil
	default:
		if !Equal(exp, act) {
			return &UnifyError{Expected: exp, Actual: act, Reason: "primitive type mismatch"}
		}
		return nil
	}
}

// Substitute replaces every Generic(name) reachable from t with b[name],
// leaving unbound generics untouched. It recurses through List, Option,
// Tuple and Function the same way unifyOne does, so structural depth bounds
// the recursion (spec §9, "Generic recursion depth").
func Substitute(t Type, b Bindings) Type {
	switch t.Kind {
	case KindGeneric:
		if v, ok := b[t.Name]; ok {
			return v
		}
		return t
	case KindList:
		e := Substitute(*t.Elem, b)
		return Type{Kind: KindList, Elem: &e}
	case KindOption:
		e := Substitute(*t.Elem, b)
		return Type{Kind: KindOption, Elem: &e}
	case KindTuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Substitute(e, b)
		}
		return Type{Kind: KindTuple, Elems: elems}
	case KindFunction:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = Substitute(p, b)
		}
		ret := Substitute(*t.Ret, b)
		return Type{Kind: KindFunction, Params: params, Ret: &ret}
	case KindCustom:
		tp := make([]Type, len(t.TypeParams))
		for i, p := range t.TypeParams {
			tp[i] = Substitute(p, b)
		}
		return Type{Kind: KindCustom, Name: t.Name, TypeParams: tp}
	default:
		return t
	}
}
