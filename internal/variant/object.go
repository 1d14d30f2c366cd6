package variant

import (
	"strings"

	"github.com/purc-go/purc/internal/perrors"
)

type objectEntry struct {
	key string
	val *Variant
}

// objectData is an insertion-ordered string-keyed map. Order is preserved
// across Set on an existing key and is the iteration order exposed to
// callers.
type objectData struct {
	entries []objectEntry
	index   map[string]int
}

func newObjectData() *objectData {
	return &objectData{index: make(map[string]int)}
}

func (o *objectData) string() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range o.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.key)
		sb.WriteString(": ")
		sb.WriteString(e.val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (o *objectData) releaseAll() {
	for i := len(o.entries) - 1; i >= 0; i-- {
		o.entries[i].val.Unref()
	}
}

// MakeObject builds an empty object variant.
func MakeObject() *Variant {
	v := newVariant(Object)
	v.obj = newObjectData()
	return v
}

// MakeObjectByKeys builds an object from parallel keys/values slices,
// taking ownership of one reference to each value.
func MakeObjectByKeys(keys []string, vals []*Variant) (*Variant, error) {
	if len(keys) != len(vals) {
		return nil, perrors.New(perrors.InvalidValue, "keys/values length mismatch")
	}
	v := MakeObject()
	for i, k := range keys {
		if err := v.ObjectSet(k, vals[i]); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ObjectGet looks up key, returning (nil, NOT_FOUND) if absent.
func (v *Variant) ObjectGet(key string) (*Variant, error) {
	if v.kind != Object {
		return nil, perrors.New(perrors.WrongDataType, "not an object")
	}
	idx, ok := v.obj.index[key]
	if !ok {
		return nil, perrors.New(perrors.NotFound, "key %q", key)
	}
	return v.obj.entries[idx].val, nil
}

// ObjectSet inserts or replaces key, preserving its position on replace.
// Takes ownership of one reference to val.
func (v *Variant) ObjectSet(key string, val *Variant) error {
	if v.kind != Object {
		return perrors.New(perrors.WrongDataType, "not an object")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	if idx, ok := v.obj.index[key]; ok {
		old := v.obj.entries[idx].val
		v.obj.entries[idx].val = val
		old.Unref()
		return v.notify(OpChange, old, val)
	}
	v.obj.index[key] = len(v.obj.entries)
	v.obj.entries = append(v.obj.entries, objectEntry{key: key, val: val})
	return v.notify(OpGrow, nil, val)
}

// ObjectRemove deletes key, shifting later entries down by one slot but
// preserving their relative order.
func (v *Variant) ObjectRemove(key string) error {
	if v.kind != Object {
		return perrors.New(perrors.WrongDataType, "not an object")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	idx, ok := v.obj.index[key]
	if !ok {
		return perrors.New(perrors.NotFound, "key %q", key)
	}
	old := v.obj.entries[idx].val
	v.obj.entries = append(v.obj.entries[:idx], v.obj.entries[idx+1:]...)
	delete(v.obj.index, key)
	for k, i := range v.obj.index {
		if i > idx {
			v.obj.index[k] = i - 1
		}
	}
	old.Unref()
	return v.notify(OpShrink, old, nil)
}

// ObjectLen reports the number of keys.
func (v *Variant) ObjectLen() int { return len(v.obj.entries) }

// ObjectKeys returns keys in insertion order.
func (v *Variant) ObjectKeys() []string {
	keys := make([]string, len(v.obj.entries))
	for i, e := range v.obj.entries {
		keys[i] = e.key
	}
	return keys
}

// ObjectEach iterates entries in insertion order.
func (v *Variant) ObjectEach(fn func(key string, val *Variant) bool) {
	for _, e := range v.obj.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}
