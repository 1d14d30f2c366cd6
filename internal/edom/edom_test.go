package edom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestPrintfBuildsTree(t *testing.T) {
	g := NewGenerator()
	div := g.PrintfStartElement("div", map[string]string{"id": "box"}, []string{"id"})
	g.PrintfText("hello")
	if err := g.PrintfEndElement(); err != nil {
		t.Fatal(err)
	}

	if div.Parent != g.Root {
		t.Fatalf("div.Parent = %v, want Root", div.Parent)
	}
	if div.FirstChild == nil || div.FirstChild.Type != html.TextNode || div.FirstChild.Data != "hello" {
		t.Fatalf("div child = %+v, want text node 'hello'", div.FirstChild)
	}
	if !strings.Contains(g.String(), "hello") {
		t.Fatalf("String() = %q, want it to contain 'hello'", g.String())
	}
}

func TestEndElementWithoutOpenReturnsError(t *testing.T) {
	g := NewGenerator()
	if err := g.PrintfEndElement(); err == nil {
		t.Fatal("expected error closing the root")
	}
}

func TestTargetsByIDAndTag(t *testing.T) {
	g := NewGenerator()
	g.PrintfStartElement("div", map[string]string{"id": "box"}, []string{"id"})
	g.PrintfEndElement()
	g.PrintfStartElement("span", nil, nil)
	g.PrintfEndElement()
	g.PrintfStartElement("span", nil, nil)
	g.PrintfEndElement()
	g.Finalize()

	byID := g.Targets("#box")
	if len(byID) != 1 || byID[0].Data != "div" {
		t.Fatalf("Targets(#box) = %v", byID)
	}

	byTag := g.Targets("span")
	if len(byTag) != 2 {
		t.Fatalf("Targets(span) = %d, want 2", len(byTag))
	}

	if g.Targets("#missing") != nil {
		t.Fatal("Targets(#missing) should be nil")
	}
}

func TestQueueDrainAppendAndDisplace(t *testing.T) {
	g := NewGenerator()
	box := g.PrintfStartElement("div", map[string]string{"id": "box"}, []string{"id"})
	g.PrintfText("seed")
	g.PrintfEndElement()
	g.Finalize()

	q := NewQueue(false)
	q.Push(EdomFragment{On: "#box", Op: OpAppend, Content: "<b>more</b>"})
	drops := q.Drain(g)
	if len(drops) != 0 {
		t.Fatalf("unexpected drops: %+v", drops)
	}
	if box.LastChild == nil || box.LastChild.Data != "b" {
		t.Fatalf("append did not land: last child = %+v", box.LastChild)
	}

	q.Push(EdomFragment{On: "#box", Op: OpDisplace, Content: "<i>replaced</i>"})
	drops = q.Drain(g)
	if len(drops) != 0 {
		t.Fatalf("unexpected drops: %+v", drops)
	}
	if box.FirstChild == nil || box.FirstChild.NextSibling != nil || box.FirstChild.Data != "i" {
		t.Fatalf("displace did not clear+replace children: first=%+v", box.FirstChild)
	}
}

func TestQueueDrainMissingTargetDrops(t *testing.T) {
	g := NewGenerator()
	g.Finalize()

	q := NewQueue(false)
	q.Push(EdomFragment{On: "#nope", Op: OpAppend, Content: "x"})
	drops := q.Drain(g)
	if len(drops) != 1 {
		t.Fatalf("Drain drops = %v, want 1 drop for missing target", drops)
	}
}

func TestQueueDrainAttrDisplace(t *testing.T) {
	g := NewGenerator()
	div := g.PrintfStartElement("div", map[string]string{"id": "box", "class": "old"}, []string{"id", "class"})
	g.PrintfEndElement()
	g.Finalize()

	q := NewQueue(false)
	q.Push(EdomFragment{On: "#box", Op: OpDisplace, Attr: "class", Value: "new"})
	if drops := q.Drain(g); len(drops) != 0 {
		t.Fatalf("unexpected drops: %+v", drops)
	}
	var got string
	for _, a := range div.Attr {
		if a.Key == "class" {
			got = a.Val
		}
	}
	if got != "new" {
		t.Fatalf("class = %q, want new", got)
	}
}

func TestQueueStrictModeSanitizes(t *testing.T) {
	g := NewGenerator()
	box := g.PrintfStartElement("div", map[string]string{"id": "box"}, []string{"id"})
	g.PrintfEndElement()
	g.Finalize()

	q := NewQueue(true)
	q.Push(EdomFragment{On: "#box", Op: OpAppend, Content: `<script>alert(1)</script>safe`})
	if drops := q.Drain(g); len(drops) != 0 {
		t.Fatalf("unexpected drops: %+v", drops)
	}
	for c := box.FirstChild; c != nil; c = c.NextSibling {
		if c.Data == "script" {
			t.Fatal("strict mode should have stripped the <script> element")
		}
	}
}
