package element

import (
	"strings"
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/vdom"
)

func textChild(parent *vdom.Element, literal string) *vdom.Element {
	return &vdom.Element{Kind: vdom.TextNode, Content: literalNode(literal), Parent: parent}
}

// buildTestElement wires a <test with=with> with one <match for="one">
// and a bare <differ>, each rendering a distinguishing
// marker via a generic <span> body, so the dispatched branch is observable
// in the rendered EDOM output.
func buildTestElement(with string) *vdom.Element {
	testEl := vdom.NewElement("test")
	testEl.Attrs["with"] = literalNode(with)
	testEl.AttrOrder = []string{"with"}

	matchOne := vdom.NewElement("match")
	matchOne.Attrs["for"] = literalNode("one")
	matchOne.AttrOrder = []string{"for"}
	matchOne.Parent = testEl
	spanOne := vdom.NewElement("span")
	spanOne.Parent = matchOne
	spanOne.Children = []*vdom.Element{textChild(spanOne, "matched-one")}
	matchOne.Children = []*vdom.Element{spanOne}

	differ := vdom.NewElement("differ")
	differ.Parent = testEl
	spanDiffer := vdom.NewElement("span")
	spanDiffer.Parent = differ
	spanDiffer.Children = []*vdom.Element{textChild(spanDiffer, "no-match")}
	differ.Children = []*vdom.Element{spanDiffer}

	testEl.Children = []*vdom.Element{matchOne, differ}
	return testEl
}

func runAndRenderEdom(t *testing.T, root *vdom.Element) string {
	t.Helper()
	var gotEdom string
	sched := coroutine.NewScheduler(Resolver(&Env{}))
	sched.OnTerminate(func(c *coroutine.Coroutine) { gotEdom = c.Edom.String() })
	vd := vdom.New(root)
	if _, err := sched.Spawn(vd, root); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	return gotEdom
}

func TestTestOpsDispatchesToMatchingBranch(t *testing.T) {
	got := runAndRenderEdom(t, buildTestElement("one"))
	if !strings.Contains(got, "matched-one") {
		t.Fatalf("edom = %q, want the <match for=\"one\"> branch", got)
	}
	if strings.Contains(got, "no-match") {
		t.Fatalf("edom = %q, want the differ branch NOT to run", got)
	}
}

func TestTestOpsFallsBackToDifferWhenNothingMatchesAndWithIsFalsy(t *testing.T) {
	got := runAndRenderEdom(t, buildTestElement(""))
	if !strings.Contains(got, "no-match") {
		t.Fatalf("edom = %q, want the <differ> fallback branch", got)
	}
}

func TestTestOpsRunsNoBranchWhenNothingMatchesAndWithIsTruthy(t *testing.T) {
	got := runAndRenderEdom(t, buildTestElement("two"))
	if strings.Contains(got, "matched-one") || strings.Contains(got, "no-match") {
		t.Fatalf("edom = %q, want neither branch to run (no match, with is truthy)", got)
	}
}
