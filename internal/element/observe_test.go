package element

import (
	"strings"
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

// TestObserveOpsFiresBodyOnMatchingMessage builds a root <observe on=CRTN
// for="custom"> whose body is a <span> rendering a marker, then posts a
// matching message through the scheduler and checks the body ran: an
// observer match pushes the body like select_child would.
func TestObserveOpsFiresBodyOnMatchingMessage(t *testing.T) {
	observe := vdom.NewElement("observe")
	observe.Attrs["for"] = literalNode("custom")
	observe.AttrOrder = []string{"for"}

	span := vdom.NewElement("span")
	span.Parent = observe
	span.Children = []*vdom.Element{textChild(span, "fired")}
	observe.Children = []*vdom.Element{span}

	env := &Env{}
	sched := coroutine.NewScheduler(Resolver(env))
	vd := vdom.New(observe)
	c, err := sched.Spawn(vd, observe)
	if err != nil {
		t.Fatal(err)
	}
	observe.Attrs["on"] = &vcm.Node{Kind: vcm.Literal, Lit: c.Self}

	var gotEdom string
	var terminated bool
	sched.OnTerminate(func(done *coroutine.Coroutine) {
		if done.ID == c.ID {
			terminated = true
			gotEdom = done.Edom.String()
		}
	})

	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if terminated {
		t.Fatal("coroutine should still be waiting on its <observe>, not terminated")
	}

	if _, err := sched.PostMessage(c, observer.Message{
		Source: c.Self, Type: "custom", SubType: "", Payload: variant.MakeString("hi"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if !terminated {
		t.Fatal("coroutine did not terminate after the observed body ran and its stack drained")
	}
	if !strings.Contains(gotEdom, "fired") {
		t.Fatalf("edom = %q, want the observe body to have run", gotEdom)
	}
}

func TestObserveOpsRequiresForAttribute(t *testing.T) {
	observe := vdom.NewElement("observe")
	observe.Attrs["on"] = literalNode("x")
	observe.AttrOrder = []string{"on"}

	var except error
	sched := coroutine.NewScheduler(Resolver(&Env{}))
	sched.OnTerminate(func(c *coroutine.Coroutine) { except = c.Except })
	vd := vdom.New(observe)
	if _, err := sched.Spawn(vd, observe); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if except == nil {
		t.Fatal("expected missing for= to be rejected")
	}
}

