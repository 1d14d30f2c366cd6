// Package edom implements the incremental EDOM (generated HTML) builder and
// its deferred fragment queue. The generator builds its *html.Node tree by
// hand, element by element, as the interpreter walks the VDOM; fragment.go
// separately drives golang.org/x/net/html's own parser (html.ParseFragment)
// to parse update-supplied markup into nodes before splicing them in.
package edom

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/purc-go/purc/internal/perrors"
)

// Generator is one coroutine's growing output DOM. Writes during FIRST_ROUND
// both mutate the *html.Node tree directly (the insertion point an element's
// frame is given back as its StackFrame.EdomElement) and accumulate a plain
// text record in buf, an incremental-writer idiom that keeps both a
// structured and a serialized view in step.
type Generator struct {
	mu        sync.Mutex
	Root      *html.Node
	open      []*html.Node
	buf       bytes.Buffer
	ids       map[string]*html.Node
	finalized bool
}

// NewGenerator creates a generator rooted at a synthetic <body> fragment
// context, the usual target for html.ParseFragment.
func NewGenerator() *Generator {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return &Generator{Root: root, open: []*html.Node{root}, ids: make(map[string]*html.Node)}
}

func (g *Generator) top() *html.Node { return g.open[len(g.open)-1] }

// PrintfStartElement opens tag as a child of the current insertion point and
// pushes it onto the open-element stack, returning the new node as the
// frame's insertion point ("open_element() exposes the
// parser's current top-of-open-elements stack frame").
func (g *Generator) PrintfStartElement(tag string, attrs map[string]string, order []string) *html.Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := &html.Node{Type: html.ElementNode, Data: tag}
	for _, k := range order {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	g.top().AppendChild(n)
	g.open = append(g.open, n)
	g.buf.WriteByte('<')
	g.buf.WriteString(tag)
	g.buf.WriteByte('>')

	if id, ok := attrs["id"]; ok && id != "" {
		g.ids[id] = n
	}
	return n
}

// PrintfEndElement closes the current insertion point, 's
// streamed start/end write pair.
func (g *Generator) PrintfEndElement() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.open) <= 1 {
		return perrors.New(perrors.InvalidValue, "edom: end_element with no matching open element")
	}
	closed := g.open[len(g.open)-1]
	g.open = g.open[:len(g.open)-1]
	g.buf.WriteString("</")
	g.buf.WriteString(closed.Data)
	g.buf.WriteByte('>')
	return nil
}

// PrintfText appends a text child at the current insertion point.
func (g *Generator) PrintfText(s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.top().AppendChild(&html.Node{Type: html.TextNode, Data: s})
	g.buf.WriteString(s)
}

// OpenElement returns the current insertion point.
func (g *Generator) OpenElement() *html.Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.top()
}

// Finalize resets the open-element stack to the document root, closing
// any elements an ill-formed program left open, and marks the generator
// finalized, so fragment application always runs against a stable tree.
func (g *Generator) Finalize() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = g.open[:1]
	g.finalized = true
}

// String renders the accumulated plain-text record (not the structured
// tree); used for quick assertions in tests and for the monitor transport's
// snapshot push.
func (g *Generator) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.String()
}

// findByID looks up a single element carrying id="on" with the leading '#'
// already stripped.
func (g *Generator) findByID(id string) *html.Node {
	return g.ids[id]
}

// findByTag collects every element whose tag equals name, depth-first,
// document order — the "all matching DOM elements" fallback an `on`
// selector allows for any non-#id target.
func (g *Generator) findByTag(name string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == name {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(g.Root)
	return out
}

// Targets resolves an `on` selector to every matching node: "#id" selects a
// single element by id; anything else selects every element of that tag.
func (g *Generator) Targets(on string) []*html.Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.HasPrefix(on, "#") {
		if n := g.findByID(on[1:]); n != nil {
			return []*html.Node{n}
		}
		return nil
	}
	return g.findByTag(on)
}

var strictPolicy = bluemonday.StrictPolicy()

// sanitize runs content through bluemonday's strict policy, used only when
// a Queue is constructed with strict=true (off by
// default since HVML authors are trusted).
func sanitize(content string) string {
	return strictPolicy.Sanitize(content)
}
