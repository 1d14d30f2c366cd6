package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/scope"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

// frameScope adapts fr + its owning coroutine's Vdom into a vcm.Scope for
// attribute/content evaluation.
func frameScope(c *coroutine.Coroutine, fr *frame.StackFrame) *scope.FrameScope {
	return &scope.FrameScope{Frame: fr, Vdom: c.Vdom}
}

// evalAttr evaluates attribute name on fr.Pos, if present. The bool return
// is false (with a nil variant and nil error) when the attribute is absent
// so callers can tell "not given" from "evaluated to undefined".
func evalAttr(c *coroutine.Coroutine, fr *frame.StackFrame, name string) (*variant.Variant, bool, error) {
	node, ok := fr.Pos.Attrs[name]
	if !ok {
		return nil, false, nil
	}
	v, err := vcm.Eval(node, frameScope(c, fr))
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

// frameEval evaluates an arbitrary VCM node (e.g. a <match for=...> node
// reached through fr.Pos's children rather than fr.Pos's own attributes)
// against fr's scope.
func frameEval(c *coroutine.Coroutine, fr *frame.StackFrame, node *vcm.Node) (*variant.Variant, error) {
	return vcm.Eval(node, frameScope(c, fr))
}

// evalContent evaluates fr.Pos's content expression, defaulting to an
// empty string when the element has none (text/comment nodes always carry
// one; structural elements may not).
func evalContent(c *coroutine.Coroutine, fr *frame.StackFrame) (*variant.Variant, error) {
	if fr.Pos.Content == nil {
		return variant.MakeString(""), nil
	}
	return vcm.Eval(fr.Pos.Content, frameScope(c, fr))
}

// evalAttrString is the common case of an attribute that must be a plain
// string (element/scope/selector names): it evaluates and casts with
// force=true, cast_to_string.
func evalAttrString(c *coroutine.Coroutine, fr *frame.StackFrame, name string) (string, bool, error) {
	v, ok, err := evalAttr(c, fr, name)
	if err != nil || !ok {
		return "", ok, err
	}
	defer v.Unref()
	s, _ := variant.CastToString(v, true)
	defer s.Unref()
	return s.Str(), true, nil
}

// truthy mirrors HVML's falsy set: undefined, null, false, 0, "", empty
// containers — anything else is truthy. Used by <test>'s <differ> fallback.
func truthy(v *variant.Variant) bool {
	b, _ := variant.CastToBoolean(v, true)
	defer b.Unref()
	return b.Bool()
}

// childElements returns fr.Pos's ElementNode children only, skipping
// interleaved text/comment nodes, in declaration order.
func childElements(fr *frame.StackFrame) []*vdom.Element {
	var out []*vdom.Element
	for _, ch := range fr.Pos.Children {
		if ch.Kind == vdom.ElementNode {
			out = append(out, ch)
		}
	}
	return out
}

// elementChildrenOf is childElements generalized to an arbitrary element,
// for elements (e.g. <match>/<differ>) that need a chosen child's own body
// rather than the frame's.
func elementChildrenOf(el *vdom.Element) []*vdom.Element {
	var out []*vdom.Element
	for _, ch := range el.Children {
		if ch.Kind == vdom.ElementNode {
			out = append(out, ch)
		}
	}
	return out
}

// childSequence walks a fixed list of VDOM elements one at a time, the
// shape most non-looping elements with a body need for select_child.
type childSequence struct {
	children []*vdom.Element
	idx      int
}

func (s *childSequence) next() (*vdom.Element, bool) {
	if s.idx >= len(s.children) {
		return nil, false
	}
	el := s.children[s.idx]
	s.idx++
	return el, true
}
