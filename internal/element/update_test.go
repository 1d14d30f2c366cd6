package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

func namedRef(name string) *vcm.Node { return &vcm.Node{Kind: vcm.NamedRef, Name: name} }

func TestUpdateOpsAppendsToArrayTarget(t *testing.T) {
	el := vdom.NewElement("update")
	el.Attrs["on"] = namedRef("arr")
	el.Attrs["to"] = literalNode("append")
	el.Attrs["with"] = literalNode("x")
	el.AttrOrder = []string{"on", "to", "with"}

	arr := variant.MakeArray(variant.MakeNumber(1), variant.MakeNumber(2))
	vd := vdom.New(el)
	vd.BindDocumentVariable("arr", arr.Ref())

	sched := coroutine.NewScheduler(Resolver(&Env{}))
	if _, err := sched.Spawn(vd, el); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}

	if arr.ArrayLen() != 3 {
		t.Fatalf("arr len = %d, want 3", arr.ArrayLen())
	}
	last, _ := arr.ArrayGet(2)
	s, _ := variant.CastToString(last, true)
	defer s.Unref()
	if s.Str() != "x" {
		t.Fatalf("arr[2] = %q, want %q", s.Str(), "x")
	}
}

func TestUpdateOpsDisplaceResetsObjectTarget(t *testing.T) {
	el := vdom.NewElement("update")
	el.Attrs["on"] = namedRef("obj")
	el.Attrs["to"] = literalNode("displace")
	el.AttrOrder = []string{"on", "to"}
	// with is intentionally absent: displace on an object with no with=
	// should clear every key and merge in nothing.

	obj := variant.MakeObject()
	if err := obj.ObjectSet("old", variant.MakeNumber(1)); err != nil {
		t.Fatal(err)
	}
	vd := vdom.New(el)
	vd.BindDocumentVariable("obj", obj.Ref())

	sched := coroutine.NewScheduler(Resolver(&Env{}))
	if _, err := sched.Spawn(vd, el); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}

	if len(obj.ObjectKeys()) != 0 {
		t.Fatalf("obj keys = %v, want empty after displace", obj.ObjectKeys())
	}
}

func TestUpdateOpsRejectsInsertOnTextContent(t *testing.T) {
	el := vdom.NewElement("update")
	el.Attrs["at"] = literalNode("textContent")
	el.Attrs["to"] = literalNode("insertBefore")
	el.Attrs["on"] = literalNode("#target")
	el.AttrOrder = []string{"at", "to", "on"}

	vd := vdom.New(el)
	sched := coroutine.NewScheduler(Resolver(&Env{}))
	var except error
	sched.OnTerminate(func(c *coroutine.Coroutine) { except = c.Except })
	if _, err := sched.Spawn(vd, el); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if except == nil {
		t.Fatal("expected insertBefore on textContent to be rejected")
	}
}
