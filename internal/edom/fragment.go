package edom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/purc-go/purc/internal/perrors"
)

// FragmentOp is an out-of-order edit's apply mode.
type FragmentOp int

const (
	OpAppend FragmentOp = iota
	OpPrepend
	OpInsertBefore
	OpInsertAfter
	OpDisplace
)

// EdomFragment is one deferred out-of-order edit, captured when its target
// does not exist yet during FIRST_ROUND.
type EdomFragment struct {
	On      string // selector: "#id" or a bare tag name
	Op      FragmentOp
	Content string // literal HTML for textContent ops
	Attr    string // non-empty selects "attr.NAME" instead of textContent
	Value   string // new attribute value, only used when Attr != ""
}

// Queue holds one coroutine's deferred fragments, drained in insertion order
// once FIRST_ROUND ends.
type Queue struct {
	items  []EdomFragment
	strict bool
}

// NewQueue builds an empty queue. strict enables bluemonday sanitization of
// fragment content before it is parsed, for callers that do not trust their
// HVML source (off by default ).
func NewQueue(strict bool) *Queue {
	return &Queue{strict: strict}
}

func (q *Queue) Push(f EdomFragment) { q.items = append(q.items, f) }

func (q *Queue) Len() int { return len(q.items) }

// Drop is a dropped-fragment diagnostic ("dropped with a
// warning, never fatal").
type Drop struct {
	Fragment EdomFragment
	Reason   string
}

// Drain applies every queued fragment against g's now-finalized tree, in
// insertion order. Fragments whose selector resolves to no target are
// skipped and reported in the returned drops, never as an error.
func (q *Queue) Drain(g *Generator) []Drop {
	var drops []Drop
	for _, f := range q.items {
		targets := g.Targets(f.On)
		if len(targets) == 0 {
			drops = append(drops, Drop{Fragment: f, Reason: "no element matched on=" + f.On})
			continue
		}
		for _, t := range targets {
			if err := q.apply(g, t, f); err != nil {
				drops = append(drops, Drop{Fragment: f, Reason: err.Error()})
			}
		}
	}
	q.items = nil
	return drops
}

func (q *Queue) apply(g *Generator, target *html.Node, f EdomFragment) error {
	if f.Attr != "" {
		for i, a := range target.Attr {
			if a.Key == f.Attr {
				target.Attr[i].Val = f.Value
				return nil
			}
		}
		target.Attr = append(target.Attr, html.Attribute{Key: f.Attr, Val: f.Value})
		return nil
	}

	content := f.Content
	if q.strict {
		content = sanitize(content)
	}
	nodes, err := parseFragmentNodes(content, target)
	if err != nil {
		return err
	}

	switch f.Op {
	case OpDisplace:
		for c := target.FirstChild; c != nil; {
			next := c.NextSibling
			target.RemoveChild(c)
			c = next
		}
		for _, n := range nodes {
			target.AppendChild(n)
		}
	case OpAppend:
		for _, n := range nodes {
			target.AppendChild(n)
		}
	case OpPrepend:
		first := target.FirstChild
		for i := len(nodes) - 1; i >= 0; i-- {
			target.InsertBefore(nodes[i], first)
		}
	case OpInsertBefore:
		parent := target.Parent
		if parent == nil {
			return errNoParent
		}
		for _, n := range nodes {
			parent.InsertBefore(n, target)
		}
	case OpInsertAfter:
		parent := target.Parent
		if parent == nil {
			return errNoParent
		}
		anchor := target.NextSibling
		for _, n := range nodes {
			parent.InsertBefore(n, anchor)
		}
	}
	return nil
}

// parseFragmentNodes parses content as children of a context element with
// the same tag as target, per html.ParseFragment's contract.
func parseFragmentNodes(content string, target *html.Node) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: target.Data, DataAtom: target.DataAtom}
	return html.ParseFragment(strings.NewReader(content), ctx)
}

var errNoParent = perrors.New(perrors.InvalidValue, "edom: insertBefore/insertAfter target has no parent")
