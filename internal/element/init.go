package element

import (
	"strings"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/scope"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("init", newInitOps) }

// initOps implements <init>: evaluates from/with into a variant, optionally
// reshapes an array result into a set keyed by uniquely, then binds it
// under as at the scope at selects. <init> has no children
// of its own beyond the binding it performs.
type initOps struct {
	c   *coroutine.Coroutine
	env *Env
}

func newInitOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &initOps{c: c, env: env} }

func (o *initOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	value, err := o.resolveValue(fr)
	if err != nil {
		return nil, err
	}

	value, err = o.applyUniquely(fr, value)
	if err != nil {
		return nil, err
	}

	name, hasName, err := evalAttrString(o.c, fr, "as")
	if err != nil {
		value.Unref()
		return nil, err
	}
	if !hasName {
		value.Unref()
		return struct{}{}, nil
	}

	atV, hasAt, err := evalAttrString(o.c, fr, "at")
	if err != nil {
		value.Unref()
		return nil, err
	}
	frameIsParent := hasAt && atV == "_parent"
	scope.BindFrameVariable(fr, name, value, frameIsParent)
	return struct{}{}, nil
}

func (o *initOps) resolveValue(fr *frame.StackFrame) (*variant.Variant, error) {
	withV, hasWith, err := evalAttr(o.c, fr, "with")
	if err != nil {
		return nil, err
	}

	fromV, hasFrom, err := evalAttr(o.c, fr, "from")
	if err != nil {
		if hasWith {
			withV.Unref()
		}
		return nil, err
	}
	if !hasFrom {
		if hasWith {
			return withV, nil
		}
		return variant.MakeUndefined(), nil
	}
	defer fromV.Unref()

	if o.env == nil || o.env.Fetcher == nil {
		if hasWith {
			withV.Unref()
		}
		return nil, perrors.New(perrors.NotSupported, "<init from=%q> requires a configured fetcher", fromV.String()).At(perrors.Position{Tag: "init", Attr: "from"})
	}
	var params *variant.Variant
	if hasWith {
		params = withV
		defer withV.Unref()
	}
	return o.env.Fetcher.FetchSync(fromV.String(), params)
}

// applyUniquely reshapes an array result into a set keyed by the
// whitespace-separated field names in uniquely, 
// ("optionally uniquely (creates a set keyed by uniquely's fields)").
// Non-array values and a missing attribute pass through unchanged.
func (o *initOps) applyUniquely(fr *frame.StackFrame, value *variant.Variant) (*variant.Variant, error) {
	uniq, hasUniq, err := evalAttrString(o.c, fr, "uniquely")
	if err != nil {
		value.Unref()
		return nil, err
	}
	if !hasUniq || value.Kind() != variant.Array {
		return value, nil
	}

	keys := strings.Fields(uniq)
	items := make([]*variant.Variant, value.ArrayLen())
	for i := range items {
		items[i], _ = value.ArrayGet(i)
		items[i] = items[i].Ref()
	}
	set, _ := variant.MakeSetWithUniqueKey(keys)
	for _, it := range items {
		if _, err = set.SetAdd(it, false); err != nil {
			it.Unref()
			if !perrors.Is(err, perrors.Duplicated) {
				break
			}
			// A later item whose key is already present is dropped.
			err = nil
		}
	}
	value.Unref()
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (o *initOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *initOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }
func (o *initOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	return nil, nil
}
