// Package coroutine implements the single-threaded cooperative coroutine and
// scheduler: one frame stack per coroutine, a four-state
// execute_one_step dispatch, and the ready/wait/run/terminated lifecycle.
package coroutine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/purc-go/purc/internal/edom"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/timers"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

// Stage tracks where a coroutine sits relative to its first synchronous
// pass over the VDOM.
type Stage int

const (
	FirstRound Stage = iota
	EventLoop
	Terminating
)

// State is a coroutine's scheduling status.
type State int

const (
	Ready State = iota
	Run
	Wait
	Stopped
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Run:
		return "RUN"
	case Wait:
		return "WAIT"
	case Stopped:
		return "STOPPED"
	case Terminated:
		return "TERMINATED"
	default:
		return "?"
	}
}

// Coroutine is one suspended-stack unit of HVML execution.
type Coroutine struct {
	ID    int
	Token string

	// Scheduler is the owning instance's scheduler, exposed so element
	// implementations (component H) can look up other coroutines for
	// <request> and post messages for <observe>/<forget> without the
	// scheduler package importing theirs.
	Scheduler *Scheduler

	Stack frame.Stack
	Vdom  *vdom.Vdom

	Stage Stage
	State State

	mu               sync.Mutex
	waits            int
	suspendRequested bool

	Observers *observer.Registry
	Timers    *timers.Set
	// TimersVariant is the $TIMERS native variant bound into this
	// coroutine's document scope; <observe on="$TIMERS" for="expired:ID">
	// matches messages whose Source equals it.
	TimersVariant *variant.Variant
	// Self is a native variant standing in for this coroutine's own
	// inbox, bound as the document variable CRTN. <request>/<observe>
	// address a coroutine by naming Self as the message Source/Observed
	// (request/response routing).
	Self *variant.Variant
	Edom      *edom.Generator
	Fragments *edom.Queue

	Except error

	dynObjects []*variant.Variant

	onWake func(*Coroutine)
}

func newCoroutine(id int, vd *vdom.Vdom, strictEdom bool) *Coroutine {
	ts := timers.NewSet()
	tv := variant.MakeNative(ts, nil)
	self := variant.MakeNative(&id, nil)
	c := &Coroutine{
		ID:            id,
		Token:         uuid.NewString(),
		Vdom:          vd,
		Stage:         FirstRound,
		State:         Ready,
		Observers:     observer.NewRegistry(),
		Timers:        ts,
		TimersVariant: tv,
		Self:          self,
		Edom:          edom.NewGenerator(),
		Fragments:     edom.NewQueue(strictEdom),
	}
	vd.BindDocumentVariable("TIMERS", tv.Ref())
	vd.BindDocumentVariable("CRTN", self.Ref())
	return c
}

// AddWait/RemoveWait track outstanding suspensions ("a counter
// of outstanding waits"). A coroutine whose stack has emptied terminates
// only once this counter is back at zero.
func (c *Coroutine) AddWait() {
	c.mu.Lock()
	c.waits++
	c.mu.Unlock()
}

func (c *Coroutine) RemoveWait() {
	c.mu.Lock()
	if c.waits > 0 {
		c.waits--
	}
	c.mu.Unlock()
}

// Suspend marks this step as a mid-stack synchronous yield (:
// "<request synchronously>... an element explicitly yields via the
// preemptor pathway"), distinct from AddWait's empty-stack wait counter.
// An element calls this from AfterPushed/a Preemptor right after installing
// its own fr.Preemptor, so the scheduler parks the coroutine in WAIT
// without popping its still-live frame stack or re-enqueueing it; Wake()
// is the only thing that resumes it.
func (c *Coroutine) Suspend() {
	c.mu.Lock()
	c.suspendRequested = true
	c.mu.Unlock()
}

// takeSuspend reports and clears whether Suspend was called during the step
// just finished.
func (c *Coroutine) takeSuspend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.suspendRequested
	c.suspendRequested = false
	return v
}

func (c *Coroutine) Waits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

// TrackDynObject records a dynamically-loaded variant object under this
// coroutine's ownership ("a list of dynamically-loaded variant
// objects"), taking one strong reference. Released on Detach.
func (c *Coroutine) TrackDynObject(v *variant.Variant) {
	c.mu.Lock()
	c.dynObjects = append(c.dynObjects, v.Ref())
	c.mu.Unlock()
}

// Wake marks c READY and, if it is registered with a scheduler, re-enqueues
// it. Called by an <observe>/<request> resumption handler once its match
// fires.
func (c *Coroutine) Wake() {
	c.mu.Lock()
	c.State = Ready
	wake := c.onWake
	c.mu.Unlock()
	if wake != nil {
		wake(c)
	}
}

// Detach releases everything a terminated coroutine still owns: its
// observers ("destroying a coroutine revokes all its observers
// and detaches its listener handles"), its $TIMERS and $CRTN native
// variants, and its tracked dynamic objects.
func (c *Coroutine) Detach() {
	c.Observers.RevokeAll()
	c.TimersVariant.Unref()
	c.Self.Unref()
	c.mu.Lock()
	objs := c.dynObjects
	c.dynObjects = nil
	c.mu.Unlock()
	for _, v := range objs {
		v.Unref()
	}
}

// ErrStackEmpty is returned by Step when called on a coroutine with nothing
// left to execute; callers should treat this as "already terminated".
var ErrStackEmpty = perrors.New(perrors.InvalidValue, "coroutine: step on an empty frame stack")
