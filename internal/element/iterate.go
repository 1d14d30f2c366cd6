package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/executor"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("iterate", newIterateOps) }

// iterateCtxt holds the running iterator plus the single body child every
// iteration re-runs ("select_child advances the iterator").
type iterateCtxt struct {
	it   executor.Iterator
	body *vdom.Element
	as   string
	hasAs bool
}

type iterateOps struct{ c *coroutine.Coroutine }

func newIterateOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &iterateOps{c: c} }

func (o *iterateOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	by, hasBy, err := evalAttrString(o.c, fr, "by")
	if err != nil {
		return nil, err
	}
	if !hasBy {
		return nil, perrors.New(perrors.ArgumentMissed, "<iterate> requires by=").At(perrors.Position{Tag: "iterate", Attr: "by"})
	}

	on, hasOn, err := evalAttr(o.c, fr, "on")
	if err != nil {
		return nil, err
	}
	if !hasOn {
		return nil, perrors.New(perrors.ArgumentMissed, "<iterate> requires on=").At(perrors.Position{Tag: "iterate", Attr: "on"})
	}
	defer on.Unref()

	rule, _, err := evalAttrString(o.c, fr, "rule")
	if err != nil {
		return nil, err
	}

	ex, err := executor.New(by, on, nil)
	if err != nil {
		return nil, err
	}
	it, err := ex.Begin(rule)
	if err != nil {
		return nil, err
	}

	children := childElements(fr)
	if len(children) == 0 {
		return nil, nil
	}

	as, hasAs, err := evalAttrString(o.c, fr, "as")
	if err != nil {
		return nil, err
	}

	return &iterateCtxt{it: it, body: children[0], as: as, hasAs: hasAs}, nil
}

func (o *iterateOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	ctxt := fr.Ctxt.(*iterateCtxt)
	v, ok := ctxt.it.Next()
	if !ok {
		return nil, nil
	}
	fr.SetSymbol(frame.SymQuestion, v)
	if ctxt.hasAs {
		fr.BindLocal(ctxt.as, v.Ref())
	}
	return ctxt.body, nil
}

func (o *iterateOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *iterateOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }
