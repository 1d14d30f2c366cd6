package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("catch", newCatchOps) }

// catchOps handles a <catch> only when normal child dispatch reaches it
// directly — which happens only if nothing in its surrounding frame threw.
// Its handler body is run instead by the scheduler's own unwind logic,
// which matches a <catch for="TYPE|*"> sibling against an inherited
// exception and drives its children itself; reached this
// way, <catch> has nothing to do and pops immediately.
type catchOps struct{ c *coroutine.Coroutine }

func newCatchOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &catchOps{c: c} }

func (o *catchOps) AfterPushed(fr *frame.StackFrame) (any, error)             { return nil, nil }
func (o *catchOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error)   { return nil, nil }
func (o *catchOps) OnPopping(fr *frame.StackFrame) (bool, error)              { return true, nil }
func (o *catchOps) Rerun(fr *frame.StackFrame) (bool, error)                  { return true, nil }
