package variant

import "testing"

func TestRefCountLifecycle(t *testing.T) {
	v := MakeString("hi")
	if v.RefCount() != 1 {
		t.Fatalf("refcount = %d, want 1", v.RefCount())
	}
	v.Ref()
	if v.RefCount() != 2 {
		t.Fatalf("refcount after Ref = %d, want 2", v.RefCount())
	}
	v.Unref()
	if v.RefCount() != 1 {
		t.Fatalf("refcount after one Unref = %d, want 1", v.RefCount())
	}
}

func TestSetAddDuplicated(t *testing.T) {
	// make_set_with_unique_key("id", {id:1,v:"a"}) then
	// add({id:1,v:"b"}, override=false) -> DUPLICATED, size unchanged, v=="a".
	obj1, _ := MakeObjectByKeys([]string{"id", "v"}, []*Variant{MakeLongInt(1), MakeString("a")})
	s, err := MakeSetWithUniqueKey([]string{"id"}, obj1)
	if err != nil {
		t.Fatal(err)
	}

	obj2, _ := MakeObjectByKeys([]string{"id", "v"}, []*Variant{MakeLongInt(1), MakeString("b")})
	added, err := s.SetAdd(obj2, false)
	if added || err == nil {
		t.Fatalf("expected DUPLICATED, got added=%v err=%v", added, err)
	}
	if s.SetLen() != 1 {
		t.Fatalf("set size = %d, want 1", s.SetLen())
	}
	got, _ := s.SetGet(obj1)
	fv, _ := got.ObjectGet("v")
	if fv.Str() != "a" {
		t.Fatalf("member v = %q, want %q", fv.Str(), "a")
	}
}

func TestSetAddOverride(t *testing.T) {
	obj1, _ := MakeObjectByKeys([]string{"id", "v"}, []*Variant{MakeLongInt(1), MakeString("a")})
	s, _ := MakeSetWithUniqueKey([]string{"id"}, obj1)

	obj2, _ := MakeObjectByKeys([]string{"id", "v"}, []*Variant{MakeLongInt(1), MakeString("b")})
	added, err := s.SetAdd(obj2, true)
	if err != nil || !added {
		t.Fatalf("override add failed: added=%v err=%v", added, err)
	}
	if s.SetLen() != 1 {
		t.Fatalf("set size = %d, want 1", s.SetLen())
	}
	probe, _ := MakeObjectByKeys([]string{"id"}, []*Variant{MakeLongInt(1)})
	got, err := s.SetGet(probe)
	if err != nil {
		t.Fatal(err)
	}
	fv, _ := got.ObjectGet("v")
	if fv.Str() != "b" {
		t.Fatalf("member v = %q, want %q", fv.Str(), "b")
	}
}

func TestObjectSetPreservesOrder(t *testing.T) {
	o := MakeObject()
	o.ObjectSet("a", MakeLongInt(1))
	o.ObjectSet("b", MakeLongInt(2))
	o.ObjectSet("c", MakeLongInt(3))
	o.ObjectSet("b", MakeLongInt(20))

	want := []string{"a", "b", "c"}
	got := o.ObjectKeys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	pairs := [][2]*Variant{
		{MakeLongInt(3), MakeLongInt(5)},
		{MakeString("abc"), MakeString("abd")},
		{MakeBoolean(true), MakeBoolean(false)},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		if Compare(a, b) != -Compare(b, a) {
			t.Errorf("Compare(a,b)=%d, -Compare(b,a)=%d", Compare(a, b), -Compare(b, a))
		}
		if Compare(a, a) != 0 {
			t.Errorf("Compare(a,a) = %d, want 0", Compare(a, a))
		}
	}
}

// TestCompareNativeIdentityNeverCollidesAcrossDistinctValues guards the
// Native/Dynamic branch of Compare: two distinct native variants (standing
// in for two coroutines' $CRTN) must never compare equal, since Equal
// backs observer/message routing and a false match would
// cross-deliver a message to the wrong coroutine.
func TestCompareNativeIdentityNeverCollidesAcrossDistinctValues(t *testing.T) {
	idA, idB := 1, 2
	a := MakeNative(&idA, nil)
	b := MakeNative(&idB, nil)

	if Equal(a, b) {
		t.Fatal("two distinct native variants must not compare Equal")
	}
	if Compare(a, b) == 0 || Compare(b, a) == 0 {
		t.Fatal("Compare must return non-zero for distinct native variants")
	}
	if Compare(a, b) != -Compare(b, a) {
		t.Fatalf("Compare(a,b)=%d, -Compare(b,a)=%d, want antisymmetric", Compare(a, b), -Compare(b, a))
	}
	if !Equal(a, a) {
		t.Fatal("a native variant must compare Equal to itself")
	}
}

func TestListenerFiresBeforeVisible(t *testing.T) {
	arr := MakeArray()
	var sawLenDuringCallback int
	RegisterListener(arr, OpGrow, func(ctxt any, op Op, old, new *Variant) {
		sawLenDuringCallback = arr.ArrayLen()
	}, nil)
	arr.ArrayAppend(MakeLongInt(1))
	if sawLenDuringCallback != 0 {
		t.Fatalf("listener observed length %d, want 0 (fires before change visible)", sawLenDuringCallback)
	}
	if arr.ArrayLen() != 1 {
		t.Fatalf("after append, length = %d, want 1", arr.ArrayLen())
	}
}

func TestListenerRecursionRejected(t *testing.T) {
	arr := MakeArray()
	RegisterListener(arr, OpGrow, func(ctxt any, op Op, old, new *Variant) {
		arr.ArrayAppend(MakeLongInt(99))
	}, nil)
	err := arr.ArrayAppend(MakeLongInt(1))
	if err == nil {
		t.Fatal("expected RECURSION error from re-entrant mutation")
	}
}
