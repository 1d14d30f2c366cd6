package variant

import "unsafe"

// Compare returns -1, 0, or 1. Within a compatible pair (same kind, or both
// numeric kinds) it is antisymmetric and reflexive; across incompatible
// kinds it falls back to the fixed typeOrder so Compare is still a total
// order over the whole variant universe.
func Compare(a, b *Variant) int {
	if a == b {
		return 0
	}
	if isNumeric(a.kind) && isNumeric(b.kind) {
		return compareNumeric(a, b)
	}
	if a.kind != b.kind {
		return sign(typeOrder[a.kind] - typeOrder[b.kind])
	}
	switch a.kind {
	case Undefined, Null:
		return 0
	case Boolean:
		return sign(boolInt(a.b) - boolInt(b.b))
	case AtomString:
		return compareStrings(a.atom.String(), b.atom.String())
	case String:
		return compareStrings(a.s, b.s)
	case ByteSeq:
		return compareBytes(a.bs, b.bs)
	case Tuple:
		return compareTuples(a.tuple, b.tuple)
	case Array:
		return compareTuples(a.arr.items, b.arr.items)
	case Object:
		return sign(a.obj.len() - b.obj.len())
	case Set:
		return sign(len(a.set.members) - len(b.set.members))
	case Native, Dynamic:
		// Identity, not structural, equality: two distinct native/dynamic
		// variants (e.g. different coroutines' $CRTN) must never compare
		// equal, or observer/message routing (by-value match)
		// would cross-deliver between them. a == b was already handled
		// above, so reaching here means they're genuinely distinct; any
		// stable non-zero order works since nothing sorts on it.
		pa, pb := uintptr(unsafe.Pointer(a)), uintptr(unsafe.Pointer(b))
		if pa < pb {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Equal reports value equality (Compare == 0); this is the "by value"
// comparison observer/message matching uses, as distinct from
// container-listener identity comparisons (pointer equality, used directly
// via == on *Variant elsewhere).
func Equal(a, b *Variant) bool { return Compare(a, b) == 0 }

func (o *objectData) len() int { return len(o.entries) }

func isNumeric(k Kind) bool {
	switch k {
	case Number, LongInt, ULongInt, LongDouble:
		return true
	}
	return false
}

func numericValue(v *Variant) float64 {
	switch v.kind {
	case LongInt:
		return float64(v.i)
	case ULongInt:
		return float64(v.u)
	default:
		return v.n
	}
}

func compareNumeric(a, b *Variant) int {
	av, bv := numericValue(a), numericValue(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return sign(int(a[i]) - int(b[i]))
		}
	}
	return sign(len(a) - len(b))
}

func compareTuples(a, b []*Variant) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return sign(len(a) - len(b))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
