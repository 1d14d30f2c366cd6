package vcm

import (
	"testing"

	"github.com/purc-go/purc/internal/variant"
)

type fakeScope struct {
	named map[string]*variant.Variant
	sym   map[byte]*variant.Variant
	pos   []*variant.Variant
}

func (s *fakeScope) Resolve(name string) (*variant.Variant, bool) {
	v, ok := s.named[name]
	return v, ok
}

func (s *fakeScope) Symbol(sym byte) (*variant.Variant, bool) {
	v, ok := s.sym[sym]
	return v, ok
}

func (s *fakeScope) Positional(i int) (*variant.Variant, bool) {
	if i < 0 || i >= len(s.pos) {
		return nil, false
	}
	return s.pos[i], true
}

func TestEvalLiteralAndNamedRef(t *testing.T) {
	scope := &fakeScope{named: map[string]*variant.Variant{"x": variant.MakeLongInt(42)}}

	lit := &Node{Kind: Literal, Lit: variant.MakeString("hi")}
	got, err := Eval(lit, scope)
	if err != nil || got.Str() != "hi" {
		t.Fatalf("literal eval = %v, %v", got, err)
	}

	ref := &Node{Kind: NamedRef, Name: "x"}
	got, err = Eval(ref, scope)
	if err != nil || got.Int() != 42 {
		t.Fatalf("named ref eval = %v, %v", got, err)
	}

	missing := &Node{Kind: NamedRef, Name: "y"}
	if _, err := Eval(missing, scope); err == nil {
		t.Fatal("expected NOT_FOUND for undefined variable")
	}
}

func TestEvalObjectCtor(t *testing.T) {
	scope := &fakeScope{}
	tree := &Node{
		Kind: ObjectCtor,
		Keys: []string{"a", "b"},
		Children: []*Node{
			{Kind: Literal, Lit: variant.MakeLongInt(1)},
			{Kind: Literal, Lit: variant.MakeLongInt(2)},
		},
	}
	v, err := Eval(tree, scope)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := v.ObjectGet("a")
	b, _ := v.ObjectGet("b")
	if a.Int() != 1 || b.Int() != 2 {
		t.Fatalf("object ctor produced a=%v b=%v", a, b)
	}
}

func TestEvalConcat(t *testing.T) {
	scope := &fakeScope{named: map[string]*variant.Variant{"name": variant.MakeString("world")}}
	tree := &Node{
		Kind: Concat,
		Children: []*Node{
			{Kind: Literal, Lit: variant.MakeString("hello ")},
			{Kind: NamedRef, Name: "name"},
		},
	}
	v, err := Eval(tree, scope)
	if err != nil || v.Str() != "hello world" {
		t.Fatalf("concat eval = %v, %v", v, err)
	}
}

func TestEvalGetterOnDynamic(t *testing.T) {
	dyn := variant.MakeDynamic(func(args []*variant.Variant) (*variant.Variant, error) {
		return variant.MakeString("called"), nil
	}, nil)
	scope := &fakeScope{named: map[string]*variant.Variant{"obj": dyn}}
	tree := &Node{
		Kind:         Getter,
		Base:         &Node{Kind: NamedRef, Name: "obj"},
		Key:          "method",
		IsMethodCall: true,
	}
	v, err := Eval(tree, scope)
	if err != nil || v.Str() != "called" {
		t.Fatalf("getter eval = %v, %v", v, err)
	}
}
