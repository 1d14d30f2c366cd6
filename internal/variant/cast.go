package variant

import (
	"strconv"
	"strings"
)

// CastToBoolean follows JS-like truthiness: undefined/null are false,
// numbers are false only at zero, strings are false only when empty.
// force is accepted for API symmetry with the other casts (boolean casts
// never fail) and is otherwise unused.
func CastToBoolean(v *Variant, force bool) (*Variant, bool) {
	switch v.kind {
	case Undefined, Null:
		return MakeBoolean(false), true
	case Boolean:
		return MakeBoolean(v.b), true
	case Number, LongDouble:
		return MakeBoolean(v.n != 0), true
	case LongInt:
		return MakeBoolean(v.i != 0), true
	case ULongInt:
		return MakeBoolean(v.u != 0), true
	case AtomString:
		return MakeBoolean(v.atom.String() != ""), true
	case String:
		return MakeBoolean(v.s != ""), true
	case ByteSeq:
		return MakeBoolean(len(v.bs) > 0), true
	case Object:
		return MakeBoolean(v.obj.len() > 0), true
	case Array:
		return MakeBoolean(len(v.arr.items) > 0), true
	case Set:
		return MakeBoolean(len(v.set.members) > 0), true
	case Tuple:
		return MakeBoolean(len(v.tuple) > 0), true
	default:
		return MakeBoolean(true), true
	}
}

// CastToNumber converts scalar variants to a Number. force=true also
// attempts to parse strings; force=false only accepts already-numeric or
// boolean kinds.
func CastToNumber(v *Variant, force bool) (*Variant, bool) {
	switch v.kind {
	case Number, LongDouble:
		return MakeNumber(v.n), true
	case LongInt:
		return MakeNumber(float64(v.i)), true
	case ULongInt:
		return MakeNumber(float64(v.u)), true
	case Boolean:
		if v.b {
			return MakeNumber(1), true
		}
		return MakeNumber(0), true
	case String:
		if !force {
			return nil, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return nil, false
		}
		return MakeNumber(f), true
	default:
		return nil, false
	}
}

// CastToInteger is CastToNumber truncated toward zero into a LongInt.
func CastToInteger(v *Variant, force bool) (*Variant, bool) {
	n, ok := CastToNumber(v, force)
	if !ok {
		return nil, false
	}
	return MakeLongInt(int64(n.n)), true
}

// CastToString renders v textually. force is accepted for symmetry;
// String() already has a total rendering for every kind.
func CastToString(v *Variant, force bool) (*Variant, bool) {
	return MakeString(v.String()), true
}
