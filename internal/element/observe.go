package element

import (
	"strings"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("observe", newObserveOps) }

// observeOps implements <observe>: registers an observer on on= for for=
// (split into type[:sub_type] on the first colon) and parks
// the coroutine's stack (via AddWait, the empty-stack suspension, not
// Suspend's mid-stack one — the frame pops immediately, leaving nothing on
// the stack until a match pushes this element's body back) until a matching
// message fires.
type observeOps struct{ c *coroutine.Coroutine }

func newObserveOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &observeOps{c: c} }

func (o *observeOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	onV, hasOn, err := evalAttr(o.c, fr, "on")
	if err != nil {
		return nil, err
	}
	if !hasOn {
		return nil, perrors.New(perrors.ArgumentMissed, "<observe> requires on=").At(perrors.Position{Tag: "observe", Attr: "on"})
	}

	forStr, hasFor, err := evalAttrString(o.c, fr, "for")
	if err != nil {
		onV.Unref()
		return nil, err
	}
	if !hasFor {
		onV.Unref()
		return nil, perrors.New(perrors.ArgumentMissed, "<observe> requires for=").At(perrors.Position{Tag: "observe", Attr: "for"})
	}

	msgType, subType, _ := strings.Cut(forStr, ":")
	body := fr.Pos

	// <observe>'s own frame pops right after this step (it has no body of
	// its own to run); the registered observer must outlive that pop, so
	// unlike most elements' ctxt this one is NOT torn down via CtxtDestroy —
	// only <forget> or the coroutine's own Detach revokes it.
	_, err = o.c.Observers.Register(onV, msgType, subType, o.onMatch(body))
	onV.Unref()
	if err != nil {
		return nil, err
	}

	o.c.AddWait()
	return struct{}{}, nil
}

// onMatch pushes body's children as a fresh passthrough frame directly onto
// the coroutine's stack ("an observer firing behaves like
// select_child handing back the observe element's own body") and wakes it.
// It runs passthroughOps rather than re-resolving body's own "observe" tag,
// which would just register a second observer instead of running the
// handler. The observer stays registered across a fire (only <forget> or
// coroutine Detach revokes it), and each delivered match releases one of
// the coroutine's outstanding waits, so once the body has run and no other
// wait is held the coroutine can terminate.
func (o *observeOps) onMatch(body *vdom.Element) func(observer.Message) error {
	return func(msg observer.Message) error {
		child := frame.NewFrame(body, &passthroughOps{c: o.c})
		if msg.Payload != nil {
			child.SetSymbol(frame.SymMessage, msg.Payload.Ref())
		}
		o.c.Stack.Push(child)
		o.c.RemoveWait()
		o.c.Wake()
		return nil
	}
}

func (o *observeOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) { return nil, nil }
func (o *observeOps) OnPopping(fr *frame.StackFrame) (bool, error)            { return true, nil }
func (o *observeOps) Rerun(fr *frame.StackFrame) (bool, error)                { return true, nil }
