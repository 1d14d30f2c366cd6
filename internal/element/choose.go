package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/executor"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("choose", newChooseOps) }

// chooseCtxt carries the single selected value and the body to run against
// it once, then exhausted (unlike <iterate>, <choose> selects exactly one
// value via the executor's choose()).
type chooseCtxt struct {
	value *variant.Variant
	body  *vdom.Element
	ran   bool
	as    string
	hasAs bool
}

type chooseOps struct{ c *coroutine.Coroutine }

func newChooseOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &chooseOps{c: c} }

func (o *chooseOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	by, hasBy, err := evalAttrString(o.c, fr, "by")
	if err != nil {
		return nil, err
	}
	if !hasBy {
		by = "ATOM"
	}

	on, hasOn, err := evalAttr(o.c, fr, "on")
	if err != nil {
		return nil, err
	}
	if !hasOn {
		return nil, perrors.New(perrors.ArgumentMissed, "<choose> requires on=").At(perrors.Position{Tag: "choose", Attr: "on"})
	}
	defer on.Unref()

	rule, _, err := evalAttrString(o.c, fr, "choice")
	if err != nil {
		return nil, err
	}

	ex, err := executor.New(by, on, nil)
	if err != nil {
		return nil, err
	}
	v, err := ex.Choose(rule)
	if err != nil {
		return nil, err
	}

	children := childElements(fr)
	if len(children) == 0 {
		v.Unref()
		return nil, nil
	}

	as, hasAs, err := evalAttrString(o.c, fr, "as")
	if err != nil {
		v.Unref()
		return nil, err
	}

	fr.CtxtDestroy = func() { v.Unref() }
	return &chooseCtxt{value: v, body: children[0], as: as, hasAs: hasAs}, nil
}

func (o *chooseOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	ctxt := fr.Ctxt.(*chooseCtxt)
	if ctxt.ran {
		return nil, nil
	}
	ctxt.ran = true
	fr.SetSymbol(frame.SymQuestion, ctxt.value.Ref())
	if ctxt.hasAs {
		fr.BindLocal(ctxt.as, ctxt.value.Ref())
	}
	return ctxt.body, nil
}

func (o *chooseOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *chooseOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }
