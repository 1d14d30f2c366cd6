package element

import (
	"strings"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/edom"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("update", newUpdateOps) }

// updateOps implements <update>: mutates a target via to=.
// When at= is given the target is a DOM selector and the edit is enqueued
// as an EdomFragment; otherwise on= is evaluated as the
// target variant itself and mutated in place.
type updateOps struct {
	c *coroutine.Coroutine
}

func newUpdateOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &updateOps{c: c} }

func (o *updateOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	toStr, hasTo, err := evalAttrString(o.c, fr, "to")
	if err != nil {
		return nil, err
	}
	if !hasTo {
		toStr = "displace"
	}

	atStr, hasAt, err := evalAttrString(o.c, fr, "at")
	if err != nil {
		return nil, err
	}

	if hasAt {
		return nil, o.applyDom(fr, toStr, atStr)
	}
	return nil, o.applyVariant(fr, toStr)
}

func (o *updateOps) applyDom(fr *frame.StackFrame, to, at string) error {
	op, ok := domOps[to]
	if !ok {
		return perrors.New(perrors.NotSupported, "<update to=%q> not supported on a DOM target", to).At(perrors.Position{Tag: "update", Attr: "to"})
	}
	if (op == edom.OpInsertBefore || op == edom.OpInsertAfter) && at == "textContent" {
		return perrors.New(perrors.NotSupported, "<update to=%q at=\"textContent\">: insertBefore/insertAfter is not legal on textContent", to).At(perrors.Position{Tag: "update", Attr: "to"})
	}

	onStr, hasOn, err := evalAttrString(o.c, fr, "on")
	if err != nil {
		return err
	}
	if !hasOn {
		return perrors.New(perrors.ArgumentMissed, "<update> requires on= for a DOM target").At(perrors.Position{Tag: "update", Attr: "on"})
	}

	withStr, _, err := evalAttrString(o.c, fr, "with")
	if err != nil {
		return err
	}

	f := edom.EdomFragment{On: onStr, Op: op, Content: withStr}
	if attrName, ok := strings.CutPrefix(at, "attr."); ok {
		f.Attr = attrName
		f.Value = withStr
	}
	o.c.Fragments.Push(f)
	return nil
}

var domOps = map[string]edom.FragmentOp{
	"displace":     edom.OpDisplace,
	"append":       edom.OpAppend,
	"prepend":      edom.OpPrepend,
	"insertBefore": edom.OpInsertBefore,
	"insertAfter":  edom.OpInsertAfter,
}

func (o *updateOps) applyVariant(fr *frame.StackFrame, to string) error {
	target, hasOn, err := evalAttr(o.c, fr, "on")
	if err != nil {
		return err
	}
	if !hasOn {
		return perrors.New(perrors.ArgumentMissed, "<update> requires on= for a variant target").At(perrors.Position{Tag: "update", Attr: "on"})
	}
	defer target.Unref()

	with, hasWith, err := evalAttr(o.c, fr, "with")
	if err != nil {
		return err
	}
	if !hasWith {
		with = variant.MakeUndefined()
	}
	defer with.Unref()

	switch to {
	case "displace", "overwrite":
		return displaceVariant(target, with)
	case "append":
		return appendVariant(target, with)
	case "prepend":
		return prependVariant(target, with)
	case "merge":
		return mergeVariant(target, with, false)
	case "unite":
		return mergeVariant(target, with, true)
	default:
		return perrors.New(perrors.NotSupported, "<update to=%q> not supported on a variant target", to).At(perrors.Position{Tag: "update", Attr: "to"})
	}
}

func displaceVariant(target, with *variant.Variant) error {
	switch target.Kind() {
	case variant.Array:
		for target.ArrayLen() > 0 {
			if err := target.ArrayRemove(target.ArrayLen() - 1); err != nil {
				return err
			}
		}
		return appendVariant(target, with)
	case variant.Object:
		for _, k := range target.ObjectKeys() {
			if err := target.ObjectRemove(k); err != nil {
				return err
			}
		}
		if with.Kind() == variant.Undefined {
			return nil
		}
		return mergeVariant(target, with, false)
	case variant.Set:
		for target.SetLen() > 0 {
			var first *variant.Variant
			target.SetEach(func(v *variant.Variant) bool { first = v; return false })
			if err := target.SetRemove(first); err != nil {
				return err
			}
		}
		return appendVariant(target, with)
	default:
		return perrors.New(perrors.WrongDataType, "<update to=\"displace\"> requires a container target, got %s", target.Kind())
	}
}

func appendVariant(target, with *variant.Variant) error {
	switch target.Kind() {
	case variant.Array:
		return target.ArrayAppend(with.Ref())
	case variant.Set:
		_, err := target.SetAdd(with.Ref(), false)
		return err
	default:
		return perrors.New(perrors.WrongDataType, "<update to=\"append\"> requires an array or set target, got %s", target.Kind())
	}
}

func prependVariant(target, with *variant.Variant) error {
	if target.Kind() != variant.Array {
		return perrors.New(perrors.WrongDataType, "<update to=\"prepend\"> requires an array target, got %s", target.Kind())
	}
	return target.ArrayPrepend(with.Ref())
}

// mergeVariant folds with's entries/members into target. For an object
// target, with must be an object; override controls whether a colliding key
// wins (unite) or is left untouched (merge). For a set target, with's
// members are folded in with the same override semantics.
func mergeVariant(target, with *variant.Variant, override bool) error {
	switch target.Kind() {
	case variant.Object:
		if with.Kind() != variant.Object {
			return perrors.New(perrors.WrongDataType, "<update to=\"merge\"/\"unite\"> requires an object with=, got %s", with.Kind())
		}
		var firstErr error
		with.ObjectEach(func(key string, val *variant.Variant) bool {
			if !override {
				if _, err := target.ObjectGet(key); err == nil {
					return true
				}
			}
			if err := target.ObjectSet(key, val.Ref()); err != nil && firstErr == nil {
				firstErr = err
			}
			return true
		})
		return firstErr
	case variant.Set:
		var firstErr error
		foldSetMembers(with, func(m *variant.Variant) bool {
			if _, err := target.SetAdd(m.Ref(), override); err != nil {
				if !override && perrors.Is(err, perrors.Duplicated) {
					return true
				}
				if firstErr == nil {
					firstErr = err
				}
			}
			return true
		})
		return firstErr
	default:
		return perrors.New(perrors.WrongDataType, "<update to=\"merge\"/\"unite\"> requires an object or set target, got %s", target.Kind())
	}
}

// foldSetMembers iterates with's members if it is itself a set, or treats it
// as a single member otherwise, matching HVML's permissive with= shape.
func foldSetMembers(with *variant.Variant, fn func(*variant.Variant) bool) {
	if with.Kind() == variant.Set {
		with.SetEach(fn)
		return
	}
	fn(with)
}

func (o *updateOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *updateOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }
func (o *updateOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	return nil, nil
}
