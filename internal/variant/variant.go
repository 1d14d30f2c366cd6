// Package variant implements the HVML dynamic-value system: a tagged,
// reference-counted value plus its container types (object/array/set/tuple),
// change listeners, comparison, and casts.
package variant

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/purc-go/purc/internal/perrors"
)

// Kind is a variant's type tag. It never changes after creation.
type Kind int

const (
	Undefined Kind = iota
	Null
	Boolean
	Number     // IEEE-754 double
	LongInt    // explicit signed 64-bit integer
	ULongInt   // explicit unsigned 64-bit integer
	LongDouble // extended-precision float
	AtomString // interned string
	String     // UTF-8 byte buffer
	ByteSeq
	Object
	Array
	Set
	Tuple
	Dynamic
	Native
)

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Boolean:
		return "boolean"
	case Number:
		return "number"
	case LongInt:
		return "longint"
	case ULongInt:
		return "ulongint"
	case LongDouble:
		return "longdouble"
	case AtomString:
		return "atomstring"
	case String:
		return "string"
	case ByteSeq:
		return "bsequence"
	case Object:
		return "object"
	case Array:
		return "array"
	case Set:
		return "set"
	case Tuple:
		return "tuple"
	case Dynamic:
		return "dynamic"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// typeOrder fixes the cross-type comparison order required by 
var typeOrder = map[Kind]int{
	Undefined: 0, Null: 1, Boolean: 2, Number: 3, LongInt: 4, ULongInt: 5,
	LongDouble: 6, AtomString: 7, String: 8, ByteSeq: 9, Tuple: 10,
	Array: 11, Object: 12, Set: 13, Dynamic: 14, Native: 15,
}

// Getter/Setter back a Dynamic variant.
type Getter func(args []*Variant) (*Variant, error)
type Setter func(args []*Variant) (*Variant, error)

// NativeOps is the operation vtable a Native variant carries alongside its
// opaque pointer.
type NativeOps struct {
	ToString func(ptr any) string
	Release  func(ptr any)
}

// Variant is the tagged, reference-counted dynamic value. Containers embed
// a *Variant per member so the graph can be released structurally.
type Variant struct {
	kind Kind
	refs int64 // atomic

	b    bool
	n    float64
	i    int64
	u    uint64
	atom Atom
	s    string
	bs   []byte

	obj   *objectData
	arr   *arrayData
	set   *setData
	tuple []*Variant

	getter Getter
	setter Setter

	native    any
	nativeOps *NativeOps

	listeners *listenerList
	mu        sync.Mutex // guards listeners + container mutation-recursion flag
	mutating  bool
	recErr    error
}

func newVariant(k Kind) *Variant {
	return &Variant{kind: k, refs: 1}
}

func (v *Variant) Kind() Kind { return v.kind }

// Ref increments the reference count and returns v, mirroring
// purc_variant_ref's pass-through-return convenience.
func (v *Variant) Ref() *Variant {
	atomic.AddInt64(&v.refs, 1)
	return v
}

// RefCount reports the current strong reference count.
func (v *Variant) RefCount() int64 { return atomic.LoadInt64(&v.refs) }

// Unref drops one strong reference. When the count reaches zero the variant
// releases its own member references in reverse of insertion order and the
// variant itself becomes unusable.
func (v *Variant) Unref() {
	if atomic.AddInt64(&v.refs, -1) != 0 {
		return
	}
	switch v.kind {
	case Object:
		v.obj.releaseAll()
	case Array:
		v.arr.releaseAll()
	case Set:
		v.set.releaseAll()
	case Tuple:
		for i := len(v.tuple) - 1; i >= 0; i-- {
			v.tuple[i].Unref()
		}
	case Native:
		if v.nativeOps != nil && v.nativeOps.Release != nil {
			v.nativeOps.Release(v.native)
		}
	}
}

// ---- scalar constructors ----

func MakeUndefined() *Variant { return newVariant(Undefined) }
func MakeNull() *Variant      { return newVariant(Null) }

func MakeBoolean(b bool) *Variant {
	v := newVariant(Boolean)
	v.b = b
	return v
}

func MakeNumber(n float64) *Variant {
	v := newVariant(Number)
	v.n = n
	return v
}

func MakeLongInt(i int64) *Variant {
	v := newVariant(LongInt)
	v.i = i
	return v
}

func MakeULongInt(u uint64) *Variant {
	v := newVariant(ULongInt)
	v.u = u
	return v
}

func MakeLongDouble(n float64) *Variant {
	v := newVariant(LongDouble)
	v.n = n
	return v
}

func MakeAtomString(s string) *Variant {
	v := newVariant(AtomString)
	v.atom = Intern(s)
	return v
}

func MakeString(s string) *Variant {
	v := newVariant(String)
	v.s = s
	return v
}

func MakeByteSequence(bs []byte) *Variant {
	v := newVariant(ByteSeq)
	v.bs = append([]byte(nil), bs...)
	return v
}

func MakeDynamic(get Getter, set Setter) *Variant {
	v := newVariant(Dynamic)
	v.getter = get
	v.setter = set
	return v
}

func MakeNative(ptr any, ops *NativeOps) *Variant {
	v := newVariant(Native)
	v.native = ptr
	v.nativeOps = ops
	return v
}

// ---- scalar accessors ----

func (v *Variant) Bool() bool       { return v.b }
func (v *Variant) Float() float64   { return v.n }
func (v *Variant) Int() int64       { return v.i }
func (v *Variant) Uint() uint64     { return v.u }
func (v *Variant) Atom() Atom       { return v.atom }
func (v *Variant) Str() string      { return v.s }
func (v *Variant) Bytes() []byte    { return v.bs }
func (v *Variant) NativePtr() any   { return v.native }

// CallGetter invokes a Dynamic variant's getter with args; CallSetter below
// invokes its setter. The caller picks which one applies.
func (v *Variant) CallGetter(args []*Variant) (*Variant, error) {
	if v.kind != Dynamic {
		return nil, perrors.New(perrors.WrongDataType, "not a dynamic variant")
	}
	if v.getter == nil {
		return nil, perrors.New(perrors.NotSupported, "dynamic variant has no getter")
	}
	return v.getter(args)
}

func (v *Variant) CallSetter(args []*Variant) (*Variant, error) {
	if v.kind != Dynamic {
		return nil, perrors.New(perrors.WrongDataType, "not a dynamic variant")
	}
	if v.setter == nil {
		return nil, perrors.New(perrors.NotSupported, "dynamic variant has no setter")
	}
	return v.setter(args)
}

func (v *Variant) String() string {
	switch v.kind {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Boolean:
		if v.b {
			return "true"
		}
		return "false"
	case Number, LongDouble:
		return fmt.Sprintf("%g", v.n)
	case LongInt:
		return fmt.Sprintf("%d", v.i)
	case ULongInt:
		return fmt.Sprintf("%d", v.u)
	case AtomString:
		return v.atom.String()
	case String:
		return v.s
	case ByteSeq:
		return fmt.Sprintf("%x", v.bs)
	case Object:
		return v.obj.string()
	case Array:
		return v.arr.string()
	case Set:
		return v.set.string()
	case Tuple:
		return tupleString(v.tuple)
	case Dynamic:
		return "<dynamic>"
	case Native:
		if v.nativeOps != nil && v.nativeOps.ToString != nil {
			return v.nativeOps.ToString(v.native)
		}
		return "<native>"
	}
	return "<?>"
}

func tupleString(items []*Variant) string {
	s := "("
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += it.String()
	}
	return s + ")"
}

// MakeTuple builds a fixed-size sequence variant, taking ownership of one
// reference to each member.
func MakeTuple(items ...*Variant) *Variant {
	v := newVariant(Tuple)
	v.tuple = append([]*Variant(nil), items...)
	return v
}

func (v *Variant) TupleLen() int { return len(v.tuple) }

func (v *Variant) TupleAt(i int) (*Variant, error) {
	if i < 0 || i >= len(v.tuple) {
		return nil, perrors.New(perrors.NotFound, "tuple index %d out of range", i)
	}
	return v.tuple[i], nil
}
