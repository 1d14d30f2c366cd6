package element

import (
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// genericOps implements every tag that is not one of nine
// control elements: a plain output tag (<hvml>, <body>, <div>, <p>, ...)
// that has no control-flow semantics of its own. It streams its own start
// tag into the EDOM generator with its evaluated attributes, runs all of
// its children (elements, text and comments) in document order, and
// streams its end tag on the way out ("element implementations
// stream literal HTML into the generator via printf_to_edom /
// printf_start_element / printf_end_element"). Registered as the resolver's
// fallback rather than by tag name, since it covers an open-ended set of
// tags the HVML document may use.
type genericOps struct{ c *coroutine.Coroutine }

func newGenericOps(c *coroutine.Coroutine) frame.Ops { return &genericOps{c: c} }

func (o *genericOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	if o.c.Stage == coroutine.FirstRound {
		attrs := make(map[string]string, len(fr.Pos.AttrOrder))
		for _, name := range fr.Pos.AttrOrder {
			v, _, err := evalAttr(o.c, fr, name)
			if err != nil {
				return nil, err
			}
			s, _ := variant.CastToString(v, true)
			attrs[name] = s.Str()
			s.Unref()
			v.Unref()
		}
		fr.EdomElement = o.c.Edom.PrintfStartElement(fr.Pos.Tag, attrs, fr.Pos.AttrOrder)
	}

	return &childSequence{children: fr.Pos.Children}, nil
}

func (o *genericOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	seq := fr.Ctxt.(*childSequence)
	el, ok := seq.next()
	if !ok {
		return nil, nil
	}
	return el, nil
}

func (o *genericOps) OnPopping(fr *frame.StackFrame) (bool, error) {
	if o.c.Stage == coroutine.FirstRound {
		if err := o.c.Edom.PrintfEndElement(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (o *genericOps) Rerun(fr *frame.StackFrame) (bool, error) { return true, nil }
