// Package vcm implements the value construction model evaluator: the
// lazy, pre-parsed expression tree attached to HVML attributes and
// content, and its reduction against a variable scope.
package vcm

import (
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
)

// NodeKind tags a VCM tree node.
type NodeKind int

const (
	Literal NodeKind = iota
	NamedRef
	SymbolRef
	Positional
	ObjectCtor
	ArrayCtor
	SetCtor
	TupleCtor
	Concat
	Getter
	Setter
)

// Node is one VCM tree node. Only the fields relevant to Kind are set; the
// rest are zero, a plain struct with several concerns rather than an
// interface per kind,
// since the tree is built once by the loader and only ever walked, never
// extended at runtime.
type Node struct {
	Kind NodeKind

	Lit *variant.Variant // Literal

	Name   string // NamedRef
	Symbol byte   // SymbolRef: one of ?@%!^:=< or ~
	Index  int    // Positional: $N

	Keys       []string // ObjectCtor: keys parallel to Children
	UniqueKeys []string // SetCtor
	Children   []*Node  // ObjectCtor/ArrayCtor/SetCtor/TupleCtor/Concat members

	Base         *Node   // Getter/Setter: the object expression
	Key          string  // Getter/Setter: property or method name
	Args         []*Node // Getter/Setter: call arguments
	IsMethodCall bool     // Getter: $obj.method(args) vs $obj.key
}

// Scope is the narrow view the evaluator needs of the named-variable scope
// (internal/scope), kept separate to avoid an import cycle: vcm is a leaf
// package consumed by scope's own attribute/content evaluation helpers.
type Scope interface {
	Resolve(name string) (*variant.Variant, bool)
	Symbol(sym byte) (*variant.Variant, bool)
	Positional(i int) (*variant.Variant, bool)
}

// Eval reduces tree against scope, producing a new variant (callers own the
// returned reference). The evaluator is single-threaded and safe to re-enter
// only across distinct coroutines — callers running several
// coroutines concurrently must not share a Scope across goroutines without
// their own synchronization, which the single-threaded scheduler guarantees
// by construction.
func Eval(tree *Node, scope Scope) (*variant.Variant, error) {
	if tree == nil {
		return variant.MakeUndefined(), nil
	}
	switch tree.Kind {
	case Literal:
		return tree.Lit.Ref(), nil

	case NamedRef:
		v, ok := scope.Resolve(tree.Name)
		if !ok {
			return nil, perrors.New(perrors.NotFound, "undefined variable $%s", tree.Name)
		}
		return v.Ref(), nil

	case SymbolRef:
		v, ok := scope.Symbol(tree.Symbol)
		if !ok {
			return nil, perrors.New(perrors.NotFound, "undefined symbol $%c", tree.Symbol)
		}
		return v.Ref(), nil

	case Positional:
		v, ok := scope.Positional(tree.Index)
		if !ok {
			return nil, perrors.New(perrors.NotFound, "undefined positional $%d", tree.Index)
		}
		return v.Ref(), nil

	case ObjectCtor:
		return evalObject(tree, scope)

	case ArrayCtor:
		items, err := evalChildren(tree.Children, scope)
		if err != nil {
			return nil, err
		}
		return variant.MakeArray(items...), nil

	case SetCtor:
		items, err := evalChildren(tree.Children, scope)
		if err != nil {
			return nil, err
		}
		return variant.MakeSetWithUniqueKey(tree.UniqueKeys, items...)

	case TupleCtor:
		items, err := evalChildren(tree.Children, scope)
		if err != nil {
			return nil, err
		}
		return variant.MakeTuple(items...), nil

	case Concat:
		return evalConcat(tree, scope)

	case Getter:
		return evalGetter(tree, scope)

	case Setter:
		return evalSetter(tree, scope)
	}
	return nil, perrors.New(perrors.InvalidValue, "unknown VCM node kind %d", tree.Kind)
}

func evalChildren(children []*Node, scope Scope) ([]*variant.Variant, error) {
	out := make([]*variant.Variant, 0, len(children))
	for _, c := range children {
		v, err := Eval(c, scope)
		if err != nil {
			for _, done := range out {
				done.Unref()
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func evalObject(tree *Node, scope Scope) (*variant.Variant, error) {
	vals, err := evalChildren(tree.Children, scope)
	if err != nil {
		return nil, err
	}
	return variant.MakeObjectByKeys(tree.Keys, vals)
}

func evalConcat(tree *Node, scope Scope) (*variant.Variant, error) {
	var sb []byte
	for _, c := range tree.Children {
		v, err := Eval(c, scope)
		if err != nil {
			return nil, err
		}
		sb = append(sb, v.String()...)
		v.Unref()
	}
	return variant.MakeString(string(sb)), nil
}

// evalGetter handles both `$obj.key` (property access) and
// `$obj.method(args)` (method/dynamic-getter call).
func evalGetter(tree *Node, scope Scope) (*variant.Variant, error) {
	base, err := Eval(tree.Base, scope)
	if err != nil {
		return nil, err
	}
	defer base.Unref()

	args, err := evalChildren(tree.Args, scope)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, a := range args {
			a.Unref()
		}
	}()

	if base.Kind() == variant.Dynamic {
		return base.CallGetter(args)
	}
	if tree.IsMethodCall {
		return nil, perrors.New(perrors.NotSupported, "method call on non-dynamic variant %q", tree.Key)
	}
	switch base.Kind() {
	case variant.Object:
		return base.ObjectGet(tree.Key)
	default:
		return nil, perrors.New(perrors.WrongDataType, "cannot get property %q of %s", tree.Key, base.Kind())
	}
}

func evalSetter(tree *Node, scope Scope) (*variant.Variant, error) {
	base, err := Eval(tree.Base, scope)
	if err != nil {
		return nil, err
	}
	defer base.Unref()

	args, err := evalChildren(tree.Args, scope)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, a := range args {
			a.Unref()
		}
	}()

	if base.Kind() != variant.Dynamic {
		return nil, perrors.New(perrors.WrongDataType, "setter-call on non-dynamic variant %q", tree.Key)
	}
	return base.CallSetter(args)
}
