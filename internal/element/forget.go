package element

import (
	"strings"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("forget", newForgetOps) }

// forgetOps implements <forget>: revokes every observer still registered on
// the same (on=, for=) pair an <observe> used, releasing one outstanding
// wait per observer it revokes.
type forgetOps struct{ c *coroutine.Coroutine }

func newForgetOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &forgetOps{c: c} }

func (o *forgetOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	onV, hasOn, err := evalAttr(o.c, fr, "on")
	if err != nil {
		return nil, err
	}
	if !hasOn {
		return nil, perrors.New(perrors.ArgumentMissed, "<forget> requires on=").At(perrors.Position{Tag: "forget", Attr: "on"})
	}
	defer onV.Unref()

	forStr, hasFor, err := evalAttrString(o.c, fr, "for")
	if err != nil {
		return nil, err
	}
	if !hasFor {
		return nil, perrors.New(perrors.ArgumentMissed, "<forget> requires for=").At(perrors.Position{Tag: "forget", Attr: "for"})
	}

	msgType, subType, _ := strings.Cut(forStr, ":")
	n := o.c.Observers.RevokeMatching(onV, msgType, subType)
	for i := 0; i < n; i++ {
		o.c.RemoveWait()
	}
	return nil, nil
}

func (o *forgetOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) { return nil, nil }
func (o *forgetOps) OnPopping(fr *frame.StackFrame) (bool, error)            { return true, nil }
func (o *forgetOps) Rerun(fr *frame.StackFrame) (bool, error)                { return true, nil }
