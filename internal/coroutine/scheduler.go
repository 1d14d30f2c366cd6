package coroutine

import (
	"strings"
	"sync"
	"time"

	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/scope"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

// OpsResolver maps a VDOM element to the ops vtable that implements it
//. Supplied by the root library package, which owns the
// element registry — the scheduler itself never imports component H, only
// calls back into it through this one function, avoiding an import cycle.
type OpsResolver func(c *Coroutine, pos *vdom.Element) (frame.Ops, error)

// Scheduler runs every coroutine of one PurC instance on a single
// goroutine, ready-queue FIFO, 
type Scheduler struct {
	resolver OpsResolver

	mu      sync.Mutex
	ready   []*Coroutine
	waiting map[int]*Coroutine
	all     map[int]*Coroutine
	nextID  int

	strictEdom bool

	// onTerminate, when set, is called once for every coroutine that
	// reaches TERMINATED (normally or via an uncaught exception), just
	// before it is detached and dropped from s.all — the root library
	// package's run(initial_request, handler_callback) hook
	// is wired through here, since afterStep/Run is the only place a
	// terminated coroutine's final Except is still reachable.
	onTerminate func(*Coroutine)
}

func NewScheduler(resolver OpsResolver) *Scheduler {
	return &Scheduler{
		resolver: resolver,
		waiting:  make(map[int]*Coroutine),
		all:      make(map[int]*Coroutine),
	}
}

// OnTerminate registers fn to be called with each coroutine as it
// terminates. Replaces any previously registered callback.
func (s *Scheduler) OnTerminate(fn func(*Coroutine)) { s.onTerminate = fn }

// SetStrictEdom toggles bluemonday sanitization for every coroutine spawned
// afterwards (off by default).
func (s *Scheduler) SetStrictEdom(strict bool) { s.strictEdom = strict }

// Spawn creates a coroutine rooted at root, pushes its root frame, and
// enqueues it READY.
func (s *Scheduler) Spawn(vd *vdom.Vdom, root *vdom.Element) (*Coroutine, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	c := newCoroutine(id, vd, s.strictEdom)
	c.onWake = s.enqueueReady
	c.Scheduler = s

	ops, err := s.resolver(c, root)
	if err != nil {
		return nil, err
	}

	fr := frame.NewFrame(root, ops)
	c.Stack.Push(fr)

	s.mu.Lock()
	s.all[id] = c
	s.ready = append(s.ready, c)
	s.mu.Unlock()
	return c, nil
}

func (s *Scheduler) enqueueReady(c *Coroutine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waiting, c.ID)
	for _, q := range s.ready {
		if q == c {
			return
		}
	}
	s.ready = append(s.ready, c)
}

func (s *Scheduler) dequeueReady() *Coroutine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ready) == 0 {
		return nil
	}
	c := s.ready[0]
	s.ready = s.ready[1:]
	return c
}

// Lookup resolves a numeric coroutine id, for <request>'s target-resolution
// case 1.
func (s *Scheduler) Lookup(id int) (*Coroutine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.all[id]
	return c, ok
}

// ByToken resolves a coroutine by its opaque string token, for <request>'s
// hvml:// URI case.
func (s *Scheduler) ByToken(token string) (*Coroutine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.all {
		if c.Token == token {
			return c, true
		}
	}
	return nil, false
}

// First/Last resolve the "_first"/"_last" runner-name convention <request>'s
// hvml:// URI case supports, ordered by coroutine id.
func (s *Scheduler) First() (*Coroutine, bool) { return s.extremal(false) }
func (s *Scheduler) Last() (*Coroutine, bool)  { return s.extremal(true) }

func (s *Scheduler) extremal(wantMax bool) (*Coroutine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Coroutine
	for _, c := range s.all {
		if best == nil || (wantMax && c.ID > best.ID) || (!wantMax && c.ID < best.ID) {
			best = c
		}
	}
	return best, best != nil
}

// PostMessage dispatches msg to target's observer registry and wakes it if
// it was WAITing and at least one observer matched.
func (s *Scheduler) PostMessage(target *Coroutine, msg observer.Message) (int, error) {
	n, err := target.Observers.Dispatch(msg)
	if n > 0 {
		target.mu.Lock()
		waiting := target.State == Wait
		target.mu.Unlock()
		if waiting {
			target.Wake()
		}
	}
	return n, err
}

// step executes exactly one execute_one_step.
func (s *Scheduler) step(c *Coroutine) error {
	if c.Stack.Empty() {
		return ErrStackEmpty
	}
	top := c.Stack.Top()

	if top.Preemptor != nil {
		pre := top.Preemptor
		top.Preemptor = nil
		if err := pre(top); err != nil {
			return s.unwind(c, err)
		}
		return s.afterStep(c)
	}

	var err error
	switch top.NextStepV {
	case frame.AfterPushed:
		var ctxt any
		ctxt, err = top.Ops.AfterPushed(top)
		if err == nil {
			if ctxt == nil {
				_, err = c.Stack.Pop()
			} else {
				top.Ctxt = ctxt
				top.NextStepV = frame.SelectChild
			}
		}

	case frame.SelectChild:
		var child *vdom.Element
		child, err = top.Ops.SelectChild(top)
		if err == nil {
			if child == nil {
				top.NextStepV = frame.OnPopping
			} else {
				var ops frame.Ops
				ops, err = s.resolver(c, child)
				if err == nil {
					cf := frame.NewFrame(child, ops)
					c.Stack.Push(cf)
				}
			}
		}

	case frame.OnPopping:
		var done bool
		done, err = top.Ops.OnPopping(top)
		if err == nil {
			if done {
				_, err = c.Stack.Pop()
			} else {
				top.NextStepV = frame.Rerun
			}
		}

	case frame.Rerun:
		// "RERUN -> ops.rerun; set next_step = SELECT_CHILD"
		// unconditionally — the bool Ops.Rerun returns is informational for
		// the element implementation's own bookkeeping, not a branch here.
		_, err = top.Ops.Rerun(top)
		if err == nil {
			top.NextStepV = frame.SelectChild
		}
	}
	if err != nil {
		return s.unwind(c, err)
	}
	return s.afterStep(c)
}

// afterStep applies the post-step termination check: an
// emptied stack during FIRST_ROUND finalizes the EDOM output, then the
// waits counter decides READY/WAIT/TERMINATED.
func (s *Scheduler) afterStep(c *Coroutine) error {
	if !c.Stack.Empty() {
		if c.takeSuspend() {
			c.mu.Lock()
			c.State = Wait
			c.mu.Unlock()
			s.mu.Lock()
			s.waiting[c.ID] = c
			s.mu.Unlock()
			return nil
		}
		c.mu.Lock()
		c.State = Ready
		c.mu.Unlock()
		s.enqueueReady(c)
		return nil
	}

	if c.Stage == FirstRound {
		c.Edom.Finalize()
		c.Fragments.Drain(c.Edom)
		c.Stage = EventLoop
	}

	c.mu.Lock()
	if c.waits == 0 {
		c.State = Terminated
	} else {
		c.State = Wait
	}
	state := c.State
	c.mu.Unlock()

	if state == Terminated {
		if s.onTerminate != nil {
			s.onTerminate(c)
		}
		c.Detach()
		s.mu.Lock()
		delete(s.all, c.ID)
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		s.waiting[c.ID] = c
		s.mu.Unlock()
	}
	return nil
}

// unwind implements exception contract, walking outward from the throwing
// frame: each frame in turn records except and runs its own OnPopping for
// cleanup, then its own declared children are scanned for a <catch
// for="TYPE|*"> (this module's own selection rule for which catch a thrown
// exception is offered to) whose for= names the exception's perrors.Kind or
// "*". The first such child, in declaration order, consumes the exception:
// the frame stays on the stack and the catch's own children become its new
// child sequence. Otherwise the frame is popped and the next outer frame
// inherits the exception. An exception nothing catches is returned to Run,
// which terminates the coroutine.
func (s *Scheduler) unwind(c *Coroutine, except error) error {
	for {
		top := c.Stack.Top()
		if top == nil {
			return except
		}
		top.Except = except
		top.Ops.OnPopping(top)

		if handler, ok := findCatch(c, top, except); ok {
			top.Except = nil
			top.Ctxt = &catchBody{children: elementChildren(handler)}
			top.Ops = &catchBodyOps{}
			top.NextStepV = frame.SelectChild
			return nil
		}

		if _, err := c.Stack.Pop(); err != nil {
			return err
		}
	}
}

func elementChildren(el *vdom.Element) []*vdom.Element {
	var out []*vdom.Element
	for _, ch := range el.Children {
		if ch.Kind == vdom.ElementNode {
			out = append(out, ch)
		}
	}
	return out
}

// findCatch looks for a <catch> among parent's own declared children
// matching except's kind. A frame already running a catch body is not
// offered its catches again, so an exception raised inside a handler
// propagates outward.
func findCatch(c *Coroutine, parent *frame.StackFrame, except error) (*vdom.Element, bool) {
	if _, handling := parent.Ops.(*catchBodyOps); handling {
		return nil, false
	}
	kind := ""
	if pe, ok := perrors.AsError(except); ok {
		kind = string(pe.Kind)
	}
	sc := &scope.FrameScope{Frame: parent, Vdom: c.Vdom}
	for _, ch := range elementChildren(parent.Pos) {
		if ch.Tag != "catch" {
			continue
		}
		forNode, ok := ch.Attrs["for"]
		spec := "*"
		if ok {
			v, err := vcm.Eval(forNode, sc)
			if err != nil {
				continue
			}
			s, _ := variant.CastToString(v, true)
			spec = s.Str()
			s.Unref()
			v.Unref()
		}
		for _, part := range strings.Split(spec, "|") {
			if part == "*" || part == kind {
				return ch, true
			}
		}
	}
	return nil, false
}

// catchBody walks a <catch>'s own children once, as the handler run after
// it consumes an exception.
type catchBody struct {
	children []*vdom.Element
	idx      int
}

// catchBodyOps is the scheduler's own minimal "run these children in
// order" driver for a matched catch body; distinct from the registered
// "catch" tag's ops (component H), which only handles the case where a
// <catch> is reached directly by normal child dispatch (nothing thrown)
// and simply no-ops.
type catchBodyOps struct{}

func (o *catchBodyOps) AfterPushed(fr *frame.StackFrame) (any, error) { return fr.Ctxt, nil }
func (o *catchBodyOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	b := fr.Ctxt.(*catchBody)
	if b.idx >= len(b.children) {
		return nil, nil
	}
	el := b.children[b.idx]
	b.idx++
	return el, nil
}
func (o *catchBodyOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *catchBodyOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }

// Run drains the ready queue, handling one step per coroutine per turn,
// FIFO, until it is empty; then sleeps until the earliest pending timer
// across every live coroutine and drains expired ones, repeating until
// nothing is READY and no live coroutine has a pending timer. Run then
// returns even if coroutines are still WAITing for a message: they stay
// parked in WAIT until a later PostMessage wakes them and Run is called
// again.
// Errors raised during a step set the coroutine's Except slot rather than
// aborting Run; Run itself only returns an error for a scheduler-level
// failure.
func (s *Scheduler) Run() error {
	for {
		for {
			c := s.dequeueReady()
			if c == nil {
				break
			}
			c.mu.Lock()
			c.State = Run
			c.mu.Unlock()
			if err := s.step(c); err != nil {
				c.Except = err
				c.mu.Lock()
				c.State = Terminated
				c.mu.Unlock()
				if s.onTerminate != nil {
					s.onTerminate(c)
				}
				c.Detach()
				s.mu.Lock()
				delete(s.all, c.ID)
				s.mu.Unlock()
			}
		}

		deadline, ok := s.earliestDeadline()
		if !ok {
			return nil
		}
		if d := time.Until(deadline); d > 0 {
			time.Sleep(d)
		}
		s.fireExpiredTimers()
	}
}

func (s *Scheduler) earliestDeadline() (time.Time, bool) {
	s.mu.Lock()
	waiting := make([]*Coroutine, 0, len(s.waiting))
	for _, c := range s.waiting {
		waiting = append(waiting, c)
	}
	s.mu.Unlock()

	var best time.Time
	found := false
	for _, c := range waiting {
		if d, ok := c.Timers.NextDeadline(); ok {
			if !found || d.Before(best) {
				best, found = d, true
			}
		}
	}
	return best, found
}

func (s *Scheduler) fireExpiredTimers() {
	s.mu.Lock()
	waiting := make([]*Coroutine, 0, len(s.waiting))
	for _, c := range s.waiting {
		waiting = append(waiting, c)
	}
	s.mu.Unlock()

	now := time.Now()
	for _, c := range waiting {
		for _, id := range c.Timers.Drain(now) {
			s.PostMessage(c, observer.Message{
				Source:  c.TimersVariant,
				Type:    "expired",
				SubType: id,
			})
		}
	}
}
