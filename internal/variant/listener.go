package variant

import "github.com/purc-go/purc/internal/perrors"

// Op is the bitmask of container mutations a listener can subscribe to.
type Op uint8

const (
	OpGrow Op = 1 << iota
	OpShrink
	OpChange
)

// ListenerFunc is invoked synchronously, before the structural change is
// visible to unrelated readers, with the old and new member values (either
// may be nil: Grow has no old value, Shrink has no new value).
type ListenerFunc func(ctxt any, op Op, old, new *Variant)

type listenerEntry struct {
	id   int
	mask Op
	fn   ListenerFunc
	ctxt any
}

type listenerList struct {
	entries []listenerEntry
	nextID  int
}

// recErr, guarded by Variant.mu, carries a RECURSION error raised by
// checkNotMutating during a listener callback back out to the notify call
// that is currently iterating listeners, since ListenerFunc itself has no
// error return.

// Handle identifies a registered listener for later revocation.
type Handle struct {
	v  *Variant
	id int
}

// RegisterListener attaches a listener to a container variant (object,
// array, or set). It fires on any mutation matching opMask.
func RegisterListener(v *Variant, opMask Op, fn ListenerFunc, ctxt any) (Handle, error) {
	if v.kind != Object && v.kind != Array && v.kind != Set {
		return Handle{}, perrors.New(perrors.WrongDataType, "listeners only attach to containers")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.listeners == nil {
		v.listeners = &listenerList{}
	}
	v.listeners.nextID++
	id := v.listeners.nextID
	v.listeners.entries = append(v.listeners.entries, listenerEntry{id: id, mask: opMask, fn: fn, ctxt: ctxt})
	return Handle{v: v, id: id}, nil
}

// RevokeListener removes a previously registered listener. Revoking an
// already-revoked or zero Handle is a no-op.
func RevokeListener(h Handle) {
	if h.v == nil {
		return
	}
	h.v.mu.Lock()
	defer h.v.mu.Unlock()
	if h.v.listeners == nil {
		return
	}
	entries := h.v.listeners.entries[:0]
	for _, e := range h.v.listeners.entries {
		if e.id != h.id {
			entries = append(entries, e)
		}
	}
	h.v.listeners.entries = entries
}

// notify fires all listeners on v matching op, guarding against synchronous
// re-entrant mutation of the same container ("listeners must
// not mutate the same container synchronously").
func (v *Variant) notify(op Op, old, new *Variant) error {
	v.mu.Lock()
	if v.mutating {
		v.mu.Unlock()
		return perrors.New(perrors.Recursion, "listener attempted synchronous mutation of its own container")
	}
	if v.listeners == nil || len(v.listeners.entries) == 0 {
		v.mu.Unlock()
		return nil
	}
	v.mutating = true
	v.recErr = nil
	entries := append([]listenerEntry(nil), v.listeners.entries...)
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.mutating = false
		v.mu.Unlock()
	}()

	for _, e := range entries {
		if e.mask&op != 0 {
			e.fn(e.ctxt, op, old, new)
		}
	}

	v.mu.Lock()
	err := v.recErr
	v.recErr = nil
	v.mu.Unlock()
	return err
}

// checkNotMutating is called at the top of every mutating container
// operation so a listener's own attempt to mutate its container synchronously
// is rejected before notify would even be reached. If a mutation is already
// in flight (we are inside that same container's notify), it also stashes
// the error on the variant so the enclosing notify call can surface it to
// its own caller, since ListenerFunc has no error return of its own.
func (v *Variant) checkNotMutating() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mutating {
		err := perrors.New(perrors.Recursion, "synchronous mutation of container from its own listener")
		v.recErr = err
		return err
	}
	return nil
}
