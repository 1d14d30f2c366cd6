package element

import (
	"strings"
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

// fibonacciSequence is the 18-term sequence under 2000, starting 0,1.
var fibonacciSequence = []string{
	"0", "1", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89",
	"144", "233", "377", "610", "987", "1597",
}

// TestIterateAccumulatesFibonacciSequence drives an 18-term RANGE loop that
// renders one <li> per term and carries its running accumulator across
// iterations by reassigning two named variables on the <iterate>'s own
// frame (<init at="_parent">, since <update to="displace"> only rewrites
// container targets and a scalar can't be mutated in place). The addition
// itself runs through CALC, a Dynamic variant this test binds as a document
// variable and whose getter is invoked through the ordinary $CALC.add(a, b)
// method-call path — standing in for a loaded dynamic object, since the
// template grammar has no arithmetic operators of its own.
func TestIterateAccumulatesFibonacciSequence(t *testing.T) {
	body := vdom.NewElement("body")

	initA := vdom.NewElement("init")
	initA.Attrs["as"] = literalNode("a")
	initA.Attrs["with"] = numberLiteral(0)
	initA.AttrOrder = []string{"as", "with"}
	initA.Parent = body

	initB := vdom.NewElement("init")
	initB.Attrs["as"] = literalNode("b")
	initB.Attrs["with"] = numberLiteral(1)
	initB.AttrOrder = []string{"as", "with"}
	initB.Parent = body

	ol := vdom.NewElement("ol")
	ol.Parent = body

	iterate := vdom.NewElement("iterate")
	iterate.Attrs["by"] = literalNode("RANGE")
	iterate.Attrs["on"] = &vcm.Node{Kind: vcm.ArrayCtor, Children: []*vcm.Node{numberLiteral(0), numberLiteral(18)}}
	iterate.AttrOrder = []string{"by", "on"}
	iterate.Parent = ol

	group := vdom.NewElement("group")
	group.Parent = iterate

	li := vdom.NewElement("li")
	li.Parent = group
	li.Children = []*vdom.Element{{Kind: vdom.TextNode, Content: namedRef("a"), Parent: li}}

	addCall := &vcm.Node{
		Kind: vcm.Getter, Base: namedRef("CALC"), Key: "add", IsMethodCall: true,
		Args: []*vcm.Node{namedRef("a"), namedRef("b")},
	}
	initNext := vdom.NewElement("init")
	initNext.Attrs["as"] = literalNode("next")
	initNext.Attrs["at"] = literalNode("_parent")
	initNext.Attrs["with"] = addCall
	initNext.AttrOrder = []string{"as", "at", "with"}
	initNext.Parent = group

	initShiftA := vdom.NewElement("init")
	initShiftA.Attrs["as"] = literalNode("a")
	initShiftA.Attrs["at"] = literalNode("_parent")
	initShiftA.Attrs["with"] = namedRef("b")
	initShiftA.AttrOrder = []string{"as", "at", "with"}
	initShiftA.Parent = group

	initShiftB := vdom.NewElement("init")
	initShiftB.Attrs["as"] = literalNode("b")
	initShiftB.Attrs["at"] = literalNode("_parent")
	initShiftB.Attrs["with"] = namedRef("next")
	initShiftB.AttrOrder = []string{"as", "at", "with"}
	initShiftB.Parent = group

	group.Children = []*vdom.Element{li, initNext, initShiftA, initShiftB}
	iterate.Children = []*vdom.Element{group}
	ol.Children = []*vdom.Element{iterate}

	footer := vdom.NewElement("p")
	footer.Parent = body
	footer.Children = []*vdom.Element{textChild(footer, "Totally 18 numbers.")}

	body.Children = []*vdom.Element{initA, initB, ol, footer}

	add := func(args []*variant.Variant) (*variant.Variant, error) {
		return variant.MakeNumber(args[0].Float() + args[1].Float()), nil
	}

	sched := coroutine.NewScheduler(Resolver(&Env{}))
	vd := vdom.New(body)
	vd.BindDocumentVariable("CALC", variant.MakeDynamic(add, nil))

	var gotEdom string
	var except error
	sched.OnTerminate(func(c *coroutine.Coroutine) {
		gotEdom = c.Edom.String()
		except = c.Except
	})
	if _, err := sched.Spawn(vd, body); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if except != nil {
		t.Fatalf("unexpected exception: %v", except)
	}

	if got := strings.Count(gotEdom, "<li"); got != 18 {
		t.Fatalf("got %d <li> elements, want 18: %q", got, gotEdom)
	}
	for i, term := range fibonacciSequence {
		if !strings.Contains(gotEdom, term) {
			t.Fatalf("edom missing Fibonacci term %d (%q): %q", i, term, gotEdom)
		}
	}
	if !strings.Contains(gotEdom, "Totally 18 numbers.") {
		t.Fatalf("edom = %q, want the footer text", gotEdom)
	}
}
