// Package scope implements the named-variable scope: document
// bindings that live for a coroutine's lifetime, frame-scoped bindings
// resolved by walking the stack upward, and dynamic-object loading through a
// pluggable factory registry.
package scope

import (
	"golang.org/x/sync/singleflight"

	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// Factory produces a variant for a canonical dynamic-object name (HVML's
// dynamic-object plugin contract, degraded to a static registry here —
// no plugin.Open/cgo).
type Factory func() (*variant.Variant, error)

// Registry holds named factories, shared across all coroutines of one
// Instance.
type Registry struct {
	factories map[string]Factory
	group     singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// LoadDynamicObject resolves name against vd's per-document cache, calling
// the registered factory at most once even under concurrent callers within
// one scheduler pass (golang.org/x/sync/singleflight), then binding the
// result as a document variable. Re-loading the same name is idempotent.
func (r *Registry) LoadDynamicObject(vd *vdom.Vdom, name string) (*variant.Variant, error) {
	if v, ok := vd.DynCacheGet(name); ok {
		return v.Ref(), nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, perrors.New(perrors.EntityNotFound, "no dynamic object factory registered for %q", name)
	}
	res, err, _ := r.group.Do(name, func() (any, error) {
		if v, ok := vd.DynCacheGet(name); ok {
			return v, nil
		}
		v, err := factory()
		if err != nil {
			return nil, err
		}
		vd.BindDocumentVariable(name, v.Ref())
		vd.DynCacheSet(name, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*variant.Variant).Ref(), nil
}

// BindFrameVariable binds name -> v in the nearest enclosing non-anonymous
// frame (fr.ScopeFrame, or fr itself when it has none), transferring
// ownership of one reference. If frameIsParent is true the binding goes one
// scope further out, onto that frame's own ScopeFrame when it has one
// ("binds in the nearest enclosing non-anonymous frame").
func BindFrameVariable(fr *frame.StackFrame, name string, v *variant.Variant, frameIsParent bool) {
	target := fr.ScopeFrame
	if target == nil {
		target = fr
	}
	if frameIsParent && target.ScopeFrame != nil {
		target = target.ScopeFrame
	}
	target.BindLocal(name, v)
}

// Resolve looks up name: first walking fr's ScopeFrame chain, then falling
// back to vd's document bindings.
func Resolve(fr *frame.StackFrame, vd *vdom.Vdom, name string) (*variant.Variant, bool) {
	for f := fr; f != nil; f = f.ScopeFrame {
		if v, ok := f.LocalBinding(name); ok {
			return v, true
		}
	}
	return vd.Resolve(name)
}

// FrameScope adapts one frame + its owning Vdom into vcm.Scope, the
// interface VCM evaluation consumes. Positional is set by the caller before
// each Eval call when the expression may contain $N references (e.g. an
// executor feeding one iteration value into slot 0).
type FrameScope struct {
	Frame      *frame.StackFrame
	Vdom       *vdom.Vdom
	Positional []*variant.Variant
}

func (s *FrameScope) Resolve(name string) (*variant.Variant, bool) {
	return Resolve(s.Frame, s.Vdom, name)
}

func (s *FrameScope) Symbol(sym byte) (*variant.Variant, bool) {
	for f := s.Frame; f != nil; f = f.Parent {
		if v, ok := f.Symbol(sym); ok {
			return v, true
		}
	}
	return nil, false
}

func (s *FrameScope) Positional(i int) (*variant.Variant, bool) {
	if i < 0 || i >= len(s.Positional) {
		return nil, false
	}
	return s.Positional[i], true
}
