package element

import (
	"strings"
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/vdom"
)

// TestChooseOpsRunsBodyExactlyOnceWithTheChosenValue exercises the default
// ATOM executor (by= defaults to "ATOM"), whose Choose always
// returns the given on= value untouched, then checks the body runs exactly
// once against it via "?" (not zero, not twice, unlike <iterate>).
func TestChooseOpsRunsBodyExactlyOnceWithTheChosenValue(t *testing.T) {
	choose := vdom.NewElement("choose")
	choose.Attrs["on"] = literalNode("picked")
	choose.AttrOrder = []string{"on"}

	p := vdom.NewElement("p")
	p.Parent = choose
	text := &vdom.Element{Kind: vdom.TextNode, Content: symbolRef(frame.SymQuestion), Parent: p}
	p.Children = []*vdom.Element{text}
	choose.Children = []*vdom.Element{p}

	got := runAndRenderEdom(t, choose)
	if strings.Count(got, "picked") != 1 {
		t.Fatalf("edom = %q, want exactly one occurrence of the chosen value", got)
	}
}

func TestChooseOpsRequiresOnAttribute(t *testing.T) {
	choose := vdom.NewElement("choose")

	var except error
	sched := coroutine.NewScheduler(Resolver(&Env{}))
	sched.OnTerminate(func(c *coroutine.Coroutine) { except = c.Except })
	vd := vdom.New(choose)
	if _, err := sched.Spawn(vd, choose); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if except == nil {
		t.Fatal("expected missing on= to be rejected")
	}
}
