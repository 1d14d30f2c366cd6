// Package element implements the concrete semantics of the built-in HVML
// elements: <init>, <update>, <iterate>, <test>/<match>,
// <request>, <observe>, <forget>, <choose>, <catch>. Each is a ~100-200
// line module: attribute processors, a ctxt struct, the four-hook ops, and
// (where needed) a preemptor for post-suspension resumption. Any tag not
// among these nine resolves to genericOps (generic.go), the plain
// output-element fallback that every ordinary HTML-shaped tag uses.
//
// Elements register themselves here by tag name from their own init(), a
// map keyed by tag instead of a giant switch statement.
package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// Fetcher is the resource-fetch collaborator injected as an external
// concern; <init from=...> calls through it (<request> does not fetch).
// params may be nil.
type Fetcher interface {
	FetchSync(uri string, params *variant.Variant) (*variant.Variant, error)
}

// Env carries the services every element instance of one PurC instance
// shares, injected by the root library package.
type Env struct {
	Fetcher Fetcher
}

type factory func(c *coroutine.Coroutine, env *Env) frame.Ops

var registry = make(map[string]factory)

func register(tag string, f factory) { registry[tag] = f }

// Resolver returns the coroutine.OpsResolver the scheduler calls to turn a
// VdomElement into its ops vtable for a given coroutine.
func Resolver(env *Env) coroutine.OpsResolver {
	return func(c *coroutine.Coroutine, pos *vdom.Element) (frame.Ops, error) {
		switch pos.Kind {
		case vdom.TextNode, vdom.CommentNode:
			return newLeafTextOps(c), nil
		}
		f, ok := registry[pos.Tag]
		if !ok {
			return newGenericOps(c), nil
		}
		return f(c, env), nil
	}
}

// leafTextOps streams a TextNode/CommentNode's literal content into the
// coroutine's EDOM generator during FIRST_ROUND (:
// "printf_to_edom"), then pops immediately — text/comment nodes never have
// children of their own.
type leafTextOps struct{ c *coroutine.Coroutine }

func newLeafTextOps(c *coroutine.Coroutine) frame.Ops { return leafTextOps{c: c} }

func (o leafTextOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	v, err := evalContent(o.c, fr)
	if err != nil {
		return nil, err
	}
	defer v.Unref()
	if o.c.Stage == coroutine.FirstRound {
		o.c.Edom.PrintfText(v.String())
	}
	return nil, nil // signals immediate pop
}

func (o leafTextOps) OnPopping(fr *frame.StackFrame) (bool, error)          { return true, nil }
func (o leafTextOps) Rerun(fr *frame.StackFrame) (bool, error)              { return true, nil }
func (o leafTextOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) { return nil, nil }
