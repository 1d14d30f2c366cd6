// Package vdom defines the immutable parse-tree type the interpreter walks
// (VdomElement and Vdom). Producing this tree from HVML source
// text is, , the tokenizer/VDOM builder's job; that external
// collaborator is narrow-interfaced here as the internal/vdomsrc loader so
// this module's own test suite can drive real programs end-to-end.
package vdom

import (
	"sync"

	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/variant"
)

// NodeKind distinguishes an HVML element from the comment/text leaves the
// same tree shape carries ("child nodes (element/comment/text)").
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	CommentNode
)

// Element is one VdomElement: tag id, attribute expression trees, optional
// content expression tree, and children. Immutable during execution.
type Element struct {
	Kind NodeKind
	Tag  string // meaningful for ElementNode

	// Attrs holds unevaluated expression trees keyed by attribute name, in
	// source declaration order (duplicate attribute names are a load-time
	// error, see internal/vdomsrc).
	Attrs     map[string]*vcm.Node
	AttrOrder []string

	// Content is the element's content expression (nil for purely
	// structural elements); for TextNode/CommentNode it is always a
	// Literal node holding the raw text.
	Content *vcm.Node

	Children []*Element

	Parent *Element
}

// NewElement returns an empty ElementNode with its attribute maps
// initialized, ready for the loader to populate.
func NewElement(tag string) *Element {
	return &Element{Tag: tag, Kind: ElementNode, Attrs: make(map[string]*vcm.Node)}
}

// Vdom is the arena that owns one parsed HVML program: the root element plus
// the document-level name bindings that survive for the coroutine's life
//. Vdom nodes outlive every coroutine that reads them —
// coroutines only ever hold non-owning *Element pointers into this arena.
type Vdom struct {
	Root *Element

	mu       sync.RWMutex
	bindings map[string]*variant.Variant
	dynCache map[string]*variant.Variant // load_dynamic_object memoization
}

func New(root *Element) *Vdom {
	return &Vdom{Root: root, bindings: make(map[string]*variant.Variant), dynCache: make(map[string]*variant.Variant)}
}

// BindDocumentVariable stores name -> v, transferring ownership of one
// strong reference. Re-binding an existing name releases the
// old value.
func (vd *Vdom) BindDocumentVariable(name string, v *variant.Variant) {
	vd.mu.Lock()
	defer vd.mu.Unlock()
	if old, ok := vd.bindings[name]; ok {
		old.Unref()
	}
	vd.bindings[name] = v
}

// Resolve looks up a document-level binding.
func (vd *Vdom) Resolve(name string) (*variant.Variant, bool) {
	vd.mu.RLock()
	defer vd.mu.RUnlock()
	v, ok := vd.bindings[name]
	return v, ok
}

// DynCacheGet/Set back load_dynamic_object's per-document memoization.
func (vd *Vdom) DynCacheGet(name string) (*variant.Variant, bool) {
	vd.mu.RLock()
	defer vd.mu.RUnlock()
	v, ok := vd.dynCache[name]
	return v, ok
}

func (vd *Vdom) DynCacheSet(name string, v *variant.Variant) {
	vd.mu.Lock()
	defer vd.mu.Unlock()
	vd.dynCache[name] = v
}
