// Package frame implements the per-element execution frame and its
// four-hook ops vtable, and the coroutine's frame stack.
package frame

import (
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// Symbol kinds index a frame's positional-reference variants.
const (
	SymQuestion = '?'
	SymAt       = '@'
	SymPercent  = '%'
	SymBang     = '!'
	SymCaret    = '^'
	SymColon    = ':'
	SymEqual    = '='
	SymLess     = '<'
	// SymMessage is not one of HVML's built-in positional symbols; it is
	// this module's own binding for the Message.Payload an <observe>
	// delivers to its resumed body.
	SymMessage = '~'
)

var symbolOrder = []byte{SymQuestion, SymAt, SymPercent, SymBang, SymCaret, SymColon, SymEqual, SymLess, SymMessage}

func symbolIndex(b byte) (int, bool) {
	for i, s := range symbolOrder {
		if s == b {
			return i, true
		}
	}
	return 0, false
}

// NextStep is the coroutine step state machine's current instruction.
type NextStep int

const (
	AfterPushed NextStep = iota
	SelectChild
	OnPopping
	Rerun
)

func (n NextStep) String() string {
	switch n {
	case AfterPushed:
		return "AFTER_PUSHED"
	case SelectChild:
		return "SELECT_CHILD"
	case OnPopping:
		return "ON_POPPING"
	case Rerun:
		return "RERUN"
	default:
		return "?"
	}
}

// Ops is the per-element lifecycle vtable. AfterPushed
// returning a nil ctxt and nil error signals "pop me immediately" (the
// element had nothing to do, e.g. a comment).
type Ops interface {
	AfterPushed(fr *StackFrame) (ctxt any, err error)
	OnPopping(fr *StackFrame) (done bool, err error)
	Rerun(fr *StackFrame) (done bool, err error)
	SelectChild(fr *StackFrame) (*vdom.Element, error)
}

// StackFrame is one entry on a coroutine's execution stack, corresponding
// to one HVML element being processed.
type StackFrame struct {
	Pos        *vdom.Element
	ScopeFrame *StackFrame // nearest enclosing non-anonymous frame, for name binding
	Parent     *StackFrame

	// Except holds an exception inherited from a frame below this one
	// that has already been popped ("the next outer frame
	// inherits the exception"). Set only while the scheduler is
	// unwinding; a <catch> that consumes it clears it back to nil.
	Except error

	EdomElement any // output DOM insertion point; opaque to avoid an edom<->frame import cycle

	Ops         Ops
	Ctxt        any
	CtxtDestroy func()
	NextStepV   NextStep

	symbols  [9]*variant.Variant
	bindings map[string]*variant.Variant

	AttrVars  *variant.Variant // object with evaluated attributes
	CtntVar   *variant.Variant // evaluated content
	ResultVar *variant.Variant // last child's result

	// Preemptor, when set, is invoked instead of the normal NextStepV
	// dispatch for this step; used to resume a synchronous yield
	//.
	Preemptor func(fr *StackFrame) error

	Anonymous bool
}

// NewFrame creates a frame for pos with the given ops, ready to be pushed.
func NewFrame(pos *vdom.Element, ops Ops) *StackFrame {
	return &StackFrame{Pos: pos, Ops: ops, NextStepV: AfterPushed, bindings: make(map[string]*variant.Variant)}
}

func (f *StackFrame) SetSymbol(b byte, v *variant.Variant) bool {
	idx, ok := symbolIndex(b)
	if !ok {
		return false
	}
	if old := f.symbols[idx]; old != nil {
		old.Unref()
	}
	f.symbols[idx] = v
	return true
}

func (f *StackFrame) Symbol(b byte) (*variant.Variant, bool) {
	idx, ok := symbolIndex(b)
	if !ok || f.symbols[idx] == nil {
		return nil, false
	}
	return f.symbols[idx], true
}

// BindLocal sets a frame-scoped binding directly on f (not walking to
// f.ScopeFrame) — used by scope.BindFrameVariable once it has resolved the
// target frame per the frameIsParent flag.
func (f *StackFrame) BindLocal(name string, v *variant.Variant) {
	if old, ok := f.bindings[name]; ok {
		old.Unref()
	}
	f.bindings[name] = v
}

// LocalBinding looks up name on f only (no upward walk).
func (f *StackFrame) LocalBinding(name string) (*variant.Variant, bool) {
	v, ok := f.bindings[name]
	return v, ok
}

// Stack is a coroutine's ordered sequence of frames; bottom is index 0, top
// (the currently executing frame) is the last element.
type Stack struct {
	frames []*StackFrame
}

func (s *Stack) Push(fr *StackFrame) {
	if len(s.frames) > 0 {
		top := s.frames[len(s.frames)-1]
		fr.Parent = top
		if top.Anonymous {
			fr.ScopeFrame = top.ScopeFrame
		} else {
			fr.ScopeFrame = top
		}
	}
	s.frames = append(s.frames, fr)
}

// Pop removes and returns the top frame, running its destructor first.
func (s *Stack) Pop() (*StackFrame, error) {
	if len(s.frames) == 0 {
		return nil, perrors.New(perrors.InvalidValue, "pop on empty frame stack")
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if top.CtxtDestroy != nil {
		top.CtxtDestroy()
	}
	for _, v := range top.symbols {
		if v != nil {
			v.Unref()
		}
	}
	for _, v := range top.bindings {
		v.Unref()
	}
	if top.AttrVars != nil {
		top.AttrVars.Unref()
	}
	if top.CtntVar != nil {
		top.CtntVar.Unref()
	}
	if top.ResultVar != nil {
		top.ResultVar.Unref()
	}
	return top, nil
}

func (s *Stack) Top() *StackFrame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *Stack) Empty() bool { return len(s.frames) == 0 }

func (s *Stack) Len() int { return len(s.frames) }

// Frames returns the stack bottom-first; callers must not retain beyond the
// current step.
func (s *Stack) Frames() []*StackFrame { return s.frames }
