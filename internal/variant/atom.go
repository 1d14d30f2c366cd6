package variant

import (
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Atom is an interned-string handle: equal strings always intern to the
// same Atom, so atom comparisons are pointer/integer comparisons.
type Atom uint64

var internTable = struct {
	sync.RWMutex
	buckets map[[16]byte][]internedString
}{buckets: make(map[[16]byte][]internedString)}

type internedString struct {
	atom Atom
	s    string
}

var nextAtom uint64

// digest buckets candidate strings with a blake2b-128 hash before the exact
// match scan, keeping the common case (a handful of names per bucket) cheap
// without committing to a full hash-map-of-strings implementation for what
// is, in practice, a small closed vocabulary of element/attribute/event
// names per program.
func digest(s string) [16]byte {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(s))
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Intern returns the Atom for s, creating one if this is the first time s
// has been seen. Re-interning the same string is idempotent.
func Intern(s string) Atom {
	key := digest(s)

	internTable.RLock()
	for _, cand := range internTable.buckets[key] {
		if cand.s == s {
			internTable.RUnlock()
			return cand.atom
		}
	}
	internTable.RUnlock()

	internTable.Lock()
	defer internTable.Unlock()
	for _, cand := range internTable.buckets[key] {
		if cand.s == s {
			return cand.atom
		}
	}
	nextAtom++
	a := Atom(nextAtom)
	internTable.buckets[key] = append(internTable.buckets[key], internedString{atom: a, s: s})
	atomStrings[a] = s
	return a
}

var atomStrings = make(map[Atom]string)

// String resolves an Atom back to its original text.
func (a Atom) String() string {
	internTable.RLock()
	defer internTable.RUnlock()
	return atomStrings[a]
}
