package variant

import (
	"strings"

	"github.com/purc-go/purc/internal/perrors"
)

type arrayData struct {
	items []*Variant
}

func (a *arrayData) string() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, it := range a.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(it.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a *arrayData) releaseAll() {
	for i := len(a.items) - 1; i >= 0; i-- {
		a.items[i].Unref()
	}
}

// MakeArray builds an array variant from items, taking ownership of one
// reference to each.
func MakeArray(items ...*Variant) *Variant {
	v := newVariant(Array)
	v.arr = &arrayData{items: append([]*Variant(nil), items...)}
	return v
}

func (v *Variant) ArrayLen() int {
	if v.kind != Array {
		return 0
	}
	return len(v.arr.items)
}

func (v *Variant) ArrayGet(i int) (*Variant, error) {
	if v.kind != Array {
		return nil, perrors.New(perrors.WrongDataType, "not an array")
	}
	if i < 0 || i >= len(v.arr.items) {
		return nil, perrors.New(perrors.NotFound, "array index %d out of range", i)
	}
	return v.arr.items[i], nil
}

func (v *Variant) ArraySet(i int, val *Variant) error {
	if v.kind != Array {
		return perrors.New(perrors.WrongDataType, "not an array")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	if i < 0 || i >= len(v.arr.items) {
		return perrors.New(perrors.NotFound, "array index %d out of range", i)
	}
	old := v.arr.items[i]
	v.arr.items[i] = val
	old.Unref()
	return v.notify(OpChange, old, val)
}

func (v *Variant) ArrayAppend(val *Variant) error {
	if v.kind != Array {
		return perrors.New(perrors.WrongDataType, "not an array")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	v.arr.items = append(v.arr.items, val)
	return v.notify(OpGrow, nil, val)
}

func (v *Variant) ArrayPrepend(val *Variant) error {
	return v.ArrayInsert(0, val)
}

func (v *Variant) ArrayInsert(i int, val *Variant) error {
	if v.kind != Array {
		return perrors.New(perrors.WrongDataType, "not an array")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	if i < 0 || i > len(v.arr.items) {
		return perrors.New(perrors.NotFound, "array index %d out of range", i)
	}
	v.arr.items = append(v.arr.items, nil)
	copy(v.arr.items[i+1:], v.arr.items[i:])
	v.arr.items[i] = val
	return v.notify(OpGrow, nil, val)
}

func (v *Variant) ArrayRemove(i int) error {
	if v.kind != Array {
		return perrors.New(perrors.WrongDataType, "not an array")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	if i < 0 || i >= len(v.arr.items) {
		return perrors.New(perrors.NotFound, "array index %d out of range", i)
	}
	old := v.arr.items[i]
	v.arr.items = append(v.arr.items[:i], v.arr.items[i+1:]...)
	old.Unref()
	return v.notify(OpShrink, old, nil)
}

// ArrayEach iterates items in order.
func (v *Variant) ArrayEach(fn func(i int, val *Variant) bool) {
	for i, it := range v.arr.items {
		if !fn(i, it) {
			return
		}
	}
}
