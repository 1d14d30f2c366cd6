// Package observer implements the observer/event plane:
// observers keyed by (observed-variant, message-type, sub-type), message
// dispatch for inter-coroutine messages, and the variant-mutation-listener
// bridge for "change"/"grow"/"shrink" events.
package observer

import (
	"sync"

	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
)

// Message is the unit inter-coroutine communication moves in.
type Message struct {
	Source    *variant.Variant
	Type      string
	SubType   string // "" means "any" — unifies the null and empty sub_type cases
	Payload   *variant.Variant
	RequestID string
}

// mutationTypes are the message types that are actually backed by a
// variant.Listener rather than the per-coroutine message queue.
var mutationTypes = map[string]variant.Op{
	"grow":   variant.OpGrow,
	"shrink": variant.OpShrink,
	"change": variant.OpChange,
}

// Observer is a registered resumption record: OnMatch is called (by Dispatch
// for message observers, or synchronously from the variant listener bridge
// for mutation observers) once per qualifying event.
type Observer struct {
	ID        int
	Observed  *variant.Variant
	Type      string
	SubType   string
	OnMatch   func(Message) error
	listener  variant.Handle
	isVariant bool
}

// Registry is the per-coroutine observer list plus dispatch logic.
type Registry struct {
	mu        sync.Mutex
	observers []*Observer
	nextID    int
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds an observer for (observed, messageType[:subType]). If
// messageType names a variant-mutation kind, this attaches a listener to
// observed ("a listener is attached via 4.A so the observer
// fires on container mutation") and OnMatch is invoked directly from that
// listener, never through Dispatch. Otherwise the observer is appended to
// the per-coroutine list Dispatch walks.
func (r *Registry) Register(observed *variant.Variant, messageType, subType string, onMatch func(Message) error) (*Observer, error) {
	r.mu.Lock()
	r.nextID++
	obs := &Observer{ID: r.nextID, Observed: observed, Type: messageType, SubType: subType, OnMatch: onMatch}
	r.mu.Unlock()

	if op, ok := mutationTypes[messageType]; ok {
		obs.isVariant = true
		h, err := variant.RegisterListener(observed, op, func(ctxt any, firedOp variant.Op, old, new *variant.Variant) {
			obs.OnMatch(Message{Source: observed, Type: messageType, Payload: new})
		}, nil)
		if err != nil {
			return nil, err
		}
		obs.listener = h
	}

	r.mu.Lock()
	r.observers = append(r.observers, obs)
	r.mu.Unlock()
	return obs, nil
}

// Revoke removes an observer. For a variant-mutation observer this also
// detaches its listener handle ("Destroying a coroutine ...
// detaches its listener handles from shared variants").
func (r *Registry) Revoke(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.observers {
		if o.ID == id {
			if o.isVariant {
				variant.RevokeListener(o.listener)
			}
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// RevokeAll detaches every observer in r, used when a coroutine terminates.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	obs := append([]*Observer(nil), r.observers...)
	r.observers = nil
	r.mu.Unlock()
	for _, o := range obs {
		if o.isVariant {
			variant.RevokeListener(o.listener)
		}
	}
}

// Len reports the number of observers still registered, mutation observers
// included —
// used to confirm "every observer has been revoked" after teardown.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// Dispatch delivers msg to every matching non-mutation observer, in
// declaration order, tie-break rule ("each message fires
// all matches"). Matching is (observed equals-by-value source) AND
// (message_type equal) AND (sub_type absent-or-equal).
func (r *Registry) Dispatch(msg Message) (int, error) {
	r.mu.Lock()
	snapshot := append([]*Observer(nil), r.observers...)
	r.mu.Unlock()

	matched := 0
	var firstErr error
	for _, o := range snapshot {
		if o.isVariant {
			continue
		}
		if !matches(o, msg) {
			continue
		}
		matched++
		if err := o.OnMatch(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if matched == 0 {
		return 0, nil
	}
	return matched, firstErr
}

// RevokeMatching removes every non-mutation observer registered on observed
// for messageType[:subType] (<forget>: "revoke the observer
// matching the same on=/for= an <observe> used to register"). subType == ""
// matches only observers themselves registered with an empty sub_type,
// mirroring <observe>'s own registration key rather than Dispatch's
// any-subtype wildcard. Returns the number revoked.
func (r *Registry) RevokeMatching(observed *variant.Variant, messageType, subType string) int {
	r.mu.Lock()
	var keep []*Observer
	var revoked []*Observer
	for _, o := range r.observers {
		if !o.isVariant && variant.Equal(o.Observed, observed) && o.Type == messageType && o.SubType == subType {
			revoked = append(revoked, o)
			continue
		}
		keep = append(keep, o)
	}
	r.observers = keep
	r.mu.Unlock()
	for _, o := range revoked {
		if o.isVariant {
			variant.RevokeListener(o.listener)
		}
	}
	return len(revoked)
}

func matches(o *Observer, msg Message) bool {
	if !variant.Equal(o.Observed, msg.Source) {
		return false
	}
	if o.Type != msg.Type {
		return false
	}
	if o.SubType == "" {
		return true
	}
	return o.SubType == msg.SubType
}

// ErrNoMatch is returned by helpers that require at least one observer to
// have matched (none of the core dispatch paths require this themselves;
// it's exposed for callers, e.g. <request>, that want to distinguish "no
// responder" from a delivered-but-erroring response).
var ErrNoMatch = perrors.New(perrors.NotFound, "no matching observer")
