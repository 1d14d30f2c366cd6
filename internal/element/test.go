package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func init() {
	register("test", newTestOps)
	// <match>/<differ> never execute their own ops directly — <test> reaches
	// into their VDOM children and runs those — but they still need an entry
	// in the registry so a stray walk that encounters one standalone (e.g.
	// the loader's own structural validation) doesn't fail to resolve ops.
	register("match", newPassthroughOps)
	register("differ", newPassthroughOps)
}

// testOps implements <test>: evaluates with=, then picks the first <match>
// child whose for= compares equal to it (declaration order wins ties), or
// falls back to a <differ> child with no on= when with= is falsy and no
// match fired.
type testOps struct{ c *coroutine.Coroutine }

func newTestOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &testOps{c: c} }

func (o *testOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	with, hasWith, err := evalAttr(o.c, fr, "with")
	if err != nil {
		return nil, err
	}
	if !hasWith {
		with = variant.MakeUndefined()
	}
	defer with.Unref()

	var chosen *vdom.Element
	var differCandidate *vdom.Element

	for _, child := range childElements(fr) {
		switch child.Tag {
		case "match":
			forNode, ok := child.Attrs["for"]
			if !ok {
				continue
			}
			forVal, err := frameEval(o.c, fr, forNode)
			if err != nil {
				return nil, err
			}
			eq := variant.Equal(forVal, with)
			forVal.Unref()
			if eq {
				chosen = child
			}
		case "differ":
			if _, hasOn := child.Attrs["on"]; !hasOn && differCandidate == nil {
				differCandidate = child
			}
		}
		if chosen != nil {
			break
		}
	}

	if chosen == nil && !truthy(with) {
		chosen = differCandidate
	}
	if chosen == nil {
		return nil, nil
	}

	return &childSequence{children: elementChildrenOf(chosen)}, nil
}

func (o *testOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	seq := fr.Ctxt.(*childSequence)
	el, ok := seq.next()
	if !ok {
		return nil, nil
	}
	return el, nil
}

func (o *testOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *testOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }

// passthroughOps simply runs its own element children in order. It drives
// an <observe>'s body once its observer fires (observe.go's onMatch), and
// backs <match>/<differ> if either is ever reached directly as a standalone
// frame (it should not be, per <test>'s own dispatch above).
type passthroughOps struct{ c *coroutine.Coroutine }

func newPassthroughOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &passthroughOps{c: c} }

func (o *passthroughOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	children := childElements(fr)
	if len(children) == 0 {
		return nil, nil
	}
	return &childSequence{children: children}, nil
}

func (o *passthroughOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	seq := fr.Ctxt.(*childSequence)
	el, ok := seq.next()
	if !ok {
		return nil, nil
	}
	return el, nil
}

func (o *passthroughOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *passthroughOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }
