package variant

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/purc-go/purc/internal/perrors"
)

// setMember is one entry of a Set variant. Its address is the "node
// identity" override scenario asks to be preserved: an
// override replaces .value in place rather than allocating a new member
// slot, so iterators holding a *setMember stay valid.
type setMember struct {
	key   string // composite lexicographic key, see keyOf
	value *Variant
}

type setData struct {
	uniqueKeys []string // field names extracted from each member; empty => whole-value key
	members    []*setMember
	// keyPresence mirrors the member keys for an O(1) "is this key already
	// here" pre-check (github.com/deckarep/golang-set/v2) ahead of the
	// authoritative binary search over the lexicographically ordered slice.
	keyPresence mapset.Set[string]
}

func newSetData(uniqueKeys []string) *setData {
	return &setData{uniqueKeys: uniqueKeys, keyPresence: mapset.NewSet[string]()}
}

func (s *setData) string() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, m := range s.members {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(m.value.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (s *setData) releaseAll() {
	for i := len(s.members) - 1; i >= 0; i-- {
		s.members[i].value.Unref()
	}
}

// keyOf computes the composite lexicographic key for member, extracting
// s.uniqueKeys fields (member must be an Object when uniqueKeys is
// non-empty) and joining their string forms with a separator byte that
// cannot appear in a field's own String() output ambiguity-free for the
// scalar field values HVML unique keys are drawn from.
func (s *setData) keyOf(member *Variant) (string, error) {
	if len(s.uniqueKeys) == 0 {
		return member.String(), nil
	}
	if member.Kind() != Object {
		return "", perrors.New(perrors.WrongDataType, "set member must be an object to use unique keys")
	}
	parts := make([]string, len(s.uniqueKeys))
	for i, k := range s.uniqueKeys {
		fv, err := member.ObjectGet(k)
		if err != nil {
			return "", perrors.New(perrors.InvalidValue, "member missing unique-key field %q", k)
		}
		parts[i] = fv.String()
	}
	return strings.Join(parts, "\x1f"), nil
}

func (s *setData) find(key string) (int, bool) {
	i := sort.Search(len(s.members), func(i int) bool { return s.members[i].key >= key })
	if i < len(s.members) && s.members[i].key == key {
		return i, true
	}
	return i, false
}

// MakeSet builds a set variant with no unique-key fields: membership is by
// whole-value string identity.
func MakeSet(members ...*Variant) (*Variant, error) {
	return MakeSetWithUniqueKey(nil, members...)
}

// MakeSetWithUniqueKey builds a set keyed by the named fields of each
// (object) member.
func MakeSetWithUniqueKey(uniqueKeys []string, members ...*Variant) (*Variant, error) {
	v := newVariant(Set)
	v.set = newSetData(uniqueKeys)
	for _, m := range members {
		if _, err := v.SetAdd(m, false); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// SetAdd inserts member. With override=false, a duplicate key fails with
// DUPLICATED and the existing member is untouched. With override=true, a
// duplicate replaces the existing member's value in place (same slot,
// iterators stay valid); value identity of the *set* is "added" either way
// and the caller's reference to member is consumed on success.
func (v *Variant) SetAdd(member *Variant, override bool) (bool, error) {
	if v.kind != Set {
		return false, perrors.New(perrors.WrongDataType, "not a set")
	}
	if err := v.checkNotMutating(); err != nil {
		return false, err
	}
	key, err := v.set.keyOf(member)
	if err != nil {
		return false, err
	}

	if v.set.keyPresence.Contains(key) {
		idx, found := v.set.find(key)
		if !found {
			// keyPresence said yes but the ordered slice disagrees: treat
			// as corruption rather than silently diverging.
			return false, perrors.New(perrors.InvalidValue, "set index inconsistency for key %q", key)
		}
		if !override {
			return false, perrors.New(perrors.Duplicated, "member with key %q already present", key)
		}
		old := v.set.members[idx].value
		v.set.members[idx].value = member
		old.Unref()
		return true, v.notify(OpChange, old, member)
	}

	idx, _ := v.set.find(key)
	v.set.members = append(v.set.members, nil)
	copy(v.set.members[idx+1:], v.set.members[idx:])
	v.set.members[idx] = &setMember{key: key, value: member}
	v.set.keyPresence.Add(key)
	return true, v.notify(OpGrow, nil, member)
}

// SetRemove deletes the member matching probe's key (probe need not be the
// same pointer as the stored member, only carry the same unique-key fields).
func (v *Variant) SetRemove(probe *Variant) error {
	if v.kind != Set {
		return perrors.New(perrors.WrongDataType, "not a set")
	}
	if err := v.checkNotMutating(); err != nil {
		return err
	}
	key, err := v.set.keyOf(probe)
	if err != nil {
		return err
	}
	idx, found := v.set.find(key)
	if !found {
		return perrors.New(perrors.NotFound, "no member with key %q", key)
	}
	old := v.set.members[idx].value
	v.set.members = append(v.set.members[:idx], v.set.members[idx+1:]...)
	v.set.keyPresence.Remove(key)
	old.Unref()
	return v.notify(OpShrink, old, nil)
}

// SetGet finds the member matching probe's key.
func (v *Variant) SetGet(probe *Variant) (*Variant, error) {
	if v.kind != Set {
		return nil, perrors.New(perrors.WrongDataType, "not a set")
	}
	key, err := v.set.keyOf(probe)
	if err != nil {
		return nil, err
	}
	idx, found := v.set.find(key)
	if !found {
		return nil, perrors.New(perrors.NotFound, "no member with key %q", key)
	}
	return v.set.members[idx].value, nil
}

func (v *Variant) SetLen() int {
	if v.kind != Set {
		return 0
	}
	return len(v.set.members)
}

// SetEach iterates members in key-tuple lexicographic order.
func (v *Variant) SetEach(fn func(val *Variant) bool) {
	for _, m := range v.set.members {
		if !fn(m.value) {
			return
		}
	}
}
