package vdomsrc

import (
	"strings"
	"testing"

	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

func TestParseSimpleElementWithAttributesAndText(t *testing.T) {
	vd, err := Parse(`<hvml><body><p class="greeting">hello world</p></body></hvml>`)
	if err != nil {
		t.Fatal(err)
	}
	root := vd.Root
	if root.Tag != "hvml" {
		t.Fatalf("root tag = %q, want hvml", root.Tag)
	}
	body := root.Children[0]
	if body.Tag != "body" {
		t.Fatalf("body tag = %q", body.Tag)
	}
	p := body.Children[0]
	if p.Tag != "p" {
		t.Fatalf("p tag = %q", p.Tag)
	}
	node, ok := p.Attrs["class"]
	if !ok {
		t.Fatal("missing class attribute")
	}
	if node.Kind != vcm.Literal || node.Lit.Str() != "greeting" {
		t.Fatalf("class attr = %+v, want literal \"greeting\"", node)
	}
	if len(p.Children) != 1 || p.Children[0].Kind != vdom.TextNode {
		t.Fatalf("expected one text child, got %+v", p.Children)
	}
	if p.Children[0].Content.Lit.Str() != "hello world" {
		t.Fatalf("text content = %q", p.Children[0].Content.Lit.Str())
	}
}

func TestParseSelfClosingElement(t *testing.T) {
	vd, err := Parse(`<init as="x" with="1" />`)
	if err != nil {
		t.Fatal(err)
	}
	if vd.Root.Tag != "init" {
		t.Fatalf("root tag = %q", vd.Root.Tag)
	}
	if len(vd.Root.Children) != 0 {
		t.Fatalf("self-closed element should have no children, got %d", len(vd.Root.Children))
	}
}

func TestParseTemplateAttributeCompilesToVCM(t *testing.T) {
	vd, err := Parse(`<init as="x" with="{{ $count }}" />`)
	if err != nil {
		t.Fatal(err)
	}
	node := vd.Root.Attrs["with"]
	if node.Kind != vcm.NamedRef || node.Name != "count" {
		t.Fatalf("with attr = %+v, want NamedRef(count)", node)
	}
}

func TestParseMixedLiteralAndTemplateProducesConcat(t *testing.T) {
	vd, err := Parse(`<span title="Hello, {{ $name }}!" />`)
	if err != nil {
		t.Fatal(err)
	}
	node := vd.Root.Attrs["title"]
	if node.Kind != vcm.Concat || len(node.Children) != 3 {
		t.Fatalf("title attr = %+v, want a 3-part concat", node)
	}
	if node.Children[0].Lit.Str() != "Hello, " {
		t.Fatalf("first part = %q", node.Children[0].Lit.Str())
	}
	if node.Children[1].Kind != vcm.NamedRef || node.Children[1].Name != "name" {
		t.Fatalf("second part = %+v", node.Children[1])
	}
	if node.Children[2].Lit.Str() != "!" {
		t.Fatalf("third part = %q", node.Children[2].Lit.Str())
	}
}

func TestParsePositionalAndSymbolRefs(t *testing.T) {
	vd, err := Parse(`<init with="{{ $0 }}" as="{{ $? }}" />`)
	if err != nil {
		t.Fatal(err)
	}
	with := vd.Root.Attrs["with"]
	if with.Kind != vcm.Positional || with.Index != 0 {
		t.Fatalf("with = %+v", with)
	}
	as := vd.Root.Attrs["as"]
	if as.Kind != vcm.SymbolRef || as.Symbol != '?' {
		t.Fatalf("as = %+v", as)
	}
}

func TestParseGetterAndMethodCall(t *testing.T) {
	vd, err := Parse(`<init with="{{ $obj.key }}" as="{{ $obj.method(1, 2) }}" />`)
	if err != nil {
		t.Fatal(err)
	}
	get := vd.Root.Attrs["with"]
	if get.Kind != vcm.Getter || get.Key != "key" || get.IsMethodCall {
		t.Fatalf("with = %+v", get)
	}
	call := vd.Root.Attrs["as"]
	if call.Kind != vcm.Getter || call.Key != "method" || !call.IsMethodCall || len(call.Args) != 2 {
		t.Fatalf("as = %+v", call)
	}
}

func TestParseSetterCall(t *testing.T) {
	vd, err := Parse(`<update with="{{ $obj.value!(42) }}" />`)
	if err != nil {
		t.Fatal(err)
	}
	node := vd.Root.Attrs["with"]
	if node.Kind != vcm.Setter || node.Key != "value" || len(node.Args) != 1 {
		t.Fatalf("with = %+v", node)
	}
}

func TestParseContainerConstructors(t *testing.T) {
	vd, err := Parse(`<init
		arr="{{ [1, 2, 3] }}"
		ob="{{ obj(a: 1, b: 2) }}"
		tup="{{ tuple(1, 2) }}"
		s="{{ set(1, 2) }}"
		sb="{{ set_by(\"k\"; 1, 2) }}"
	/>`)
	if err != nil {
		t.Fatal(err)
	}
	if vd.Root.Attrs["arr"].Kind != vcm.ArrayCtor || len(vd.Root.Attrs["arr"].Children) != 3 {
		t.Fatalf("arr = %+v", vd.Root.Attrs["arr"])
	}
	ob := vd.Root.Attrs["ob"]
	if ob.Kind != vcm.ObjectCtor || len(ob.Keys) != 2 || ob.Keys[0] != "a" {
		t.Fatalf("ob = %+v", ob)
	}
	if vd.Root.Attrs["tup"].Kind != vcm.TupleCtor {
		t.Fatalf("tup = %+v", vd.Root.Attrs["tup"])
	}
	if vd.Root.Attrs["s"].Kind != vcm.SetCtor {
		t.Fatalf("s = %+v", vd.Root.Attrs["s"])
	}
	sb := vd.Root.Attrs["sb"]
	if sb.Kind != vcm.SetCtor || len(sb.UniqueKeys) != 1 || sb.UniqueKeys[0] != "k" {
		t.Fatalf("sb = %+v", sb)
	}
}

func TestParseCommentIsKept(t *testing.T) {
	vd, err := Parse(`<div><!-- a note --></div>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(vd.Root.Children) != 1 || vd.Root.Children[0].Kind != vdom.CommentNode {
		t.Fatalf("children = %+v", vd.Root.Children)
	}
	if got := vd.Root.Children[0].Content.Lit.Str(); strings.TrimSpace(got) != "a note" {
		t.Fatalf("comment text = %q", got)
	}
}

func TestParseNestedElements(t *testing.T) {
	vd, err := Parse(`<hvml>
		<body>
			<iterate on="{{ [1, 2, 3] }}">
				<p>item</p>
			</iterate>
		</body>
	</hvml>`)
	if err != nil {
		t.Fatal(err)
	}
	body := vd.Root.Children[0]
	iter := body.Children[0]
	if iter.Tag != "iterate" {
		t.Fatalf("iter tag = %q", iter.Tag)
	}
	if len(iter.Children) != 1 || iter.Children[0].Tag != "p" {
		t.Fatalf("iter children = %+v", iter.Children)
	}
	if iter.Children[0].Parent != iter {
		t.Fatal("child's Parent pointer not set to its element")
	}
}

func TestParseMismatchedClosingTagErrors(t *testing.T) {
	_, err := Parse(`<div></span>`)
	if err == nil {
		t.Fatal("expected a mismatched-tag error")
	}
}

func TestParseDuplicateAttributeErrors(t *testing.T) {
	_, err := Parse(`<div a="1" a="2" />`)
	if err == nil {
		t.Fatal("expected a duplicate-attribute error")
	}
}

func TestParseUnterminatedTagErrors(t *testing.T) {
	_, err := Parse(`<div`)
	if err == nil {
		t.Fatal("expected an unterminated-tag error")
	}
}

func TestParseReaderMatchesParse(t *testing.T) {
	vd, err := ParseReader(strings.NewReader(`<div a="1" />`))
	if err != nil {
		t.Fatal(err)
	}
	if vd.Root.Tag != "div" {
		t.Fatalf("root tag = %q", vd.Root.Tag)
	}
}
