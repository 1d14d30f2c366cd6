package element

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
)

func init() { register("request", newRequestOps) }

// requestCtxt tracks a synchronous request's outcome across the coroutine's
// preemptor-driven suspend/resume cycle ("synchronous
// yield"). response/settled are written from the OnMatch callback, which may
// run on a different coroutine's step (the responder's), then read back by
// the preemptor once this coroutine is re-scheduled.
type requestCtxt struct {
	obsID        int
	timeoutObsID int
	timeoutID    string
	requestID    string
	response     *variant.Variant
	settled      bool
}

type requestOps struct{ c *coroutine.Coroutine }

func newRequestOps(c *coroutine.Coroutine, env *Env) frame.Ops { return &requestOps{c: c} }

// AfterPushed resolves the target, evaluates with=, posts the request
// message, and — unless synchronously is explicitly false or this request
// is itself a reply (to="response") — suspends until a matching response
// arrives.
func (o *requestOps) AfterPushed(fr *frame.StackFrame) (any, error) {
	onV, hasOn, err := evalAttr(o.c, fr, "on")
	if err != nil {
		return nil, err
	}
	if !hasOn {
		return nil, perrors.New(perrors.ArgumentMissed, "<request> requires on=").At(perrors.Position{Tag: "request", Attr: "on"})
	}
	defer onV.Unref()

	target, err := resolveTarget(o.c, onV)
	if err != nil {
		return nil, err
	}

	to, _, err := evalAttrString(o.c, fr, "to")
	if err != nil {
		return nil, err
	}

	with, hasWith, err := evalAttr(o.c, fr, "with")
	if err != nil {
		return nil, err
	}
	if !hasWith {
		with = variant.MakeUndefined()
	}

	reqID, hasID, err := evalAttrString(o.c, fr, "request_id")
	if err != nil {
		with.Unref()
		return nil, err
	}
	if !hasID {
		reqID = uuid.NewString()
	}

	// A reply is posted as ("response", request_id), the pair the requester's
	// own observer waits on.
	msgType, subType := "request", to
	if to == "response" {
		msgType, subType = "response", reqID
	}
	if _, err := o.c.Scheduler.PostMessage(target, observer.Message{
		Source:    target.Self,
		Type:      msgType,
		SubType:   subType,
		Payload:   with,
		RequestID: reqID,
	}); err != nil {
		return nil, err
	}

	sync, hasSync, err := evalAttrString(o.c, fr, "synchronously")
	if err != nil {
		return nil, err
	}
	synchronous := to != "response" && (!hasSync || !isFalseWord(sync))
	if !synchronous {
		return struct{}{}, nil
	}

	ctxt := &requestCtxt{requestID: reqID}
	obs, err := o.c.Observers.Register(o.c.Self, "response", reqID, func(msg observer.Message) error {
		if ctxt.settled {
			return nil
		}
		ctxt.settled = true
		ctxt.response = msg.Payload.Ref()
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctxt.obsID = obs.ID

	// <request timeout=N>: schedule a one-shot internal timer;
	// on fire, settle this request with a synthetic response carrying
	// retCode 408 instead of waiting forever for an unreachable target.
	if ms, hasTimeout, err := evalAttrString(o.c, fr, "timeout"); err == nil && hasTimeout {
		if d, perr := time.ParseDuration(ms + "ms"); perr == nil && d > 0 {
			ctxt.timeoutID = "request:" + reqID
			o.c.Timers.SetTimer(ctxt.timeoutID, d, true)
			timeoutObsID := 0
			timeoutObs, terr := o.c.Observers.Register(o.c.TimersVariant, "expired", ctxt.timeoutID, func(observer.Message) error {
				o.c.Timers.Cancel(ctxt.timeoutID)
				if ctxt.settled {
					return nil
				}
				ctxt.settled = true
				resp, rerr := variant.MakeObjectByKeys([]string{"retCode"}, []*variant.Variant{variant.MakeNumber(408)})
				if rerr != nil {
					return rerr
				}
				ctxt.response = resp
				return nil
			})
			if terr == nil {
				timeoutObsID = timeoutObs.ID
			}
			ctxt.timeoutObsID = timeoutObsID
		}
	} else if err != nil {
		return nil, err
	}

	fr.Preemptor = o.waitForResponse(ctxt)
	o.c.Suspend()
	return ctxt, nil
}

func (o *requestOps) waitForResponse(ctxt *requestCtxt) func(*frame.StackFrame) error {
	return func(fr *frame.StackFrame) error {
		if ctxt.response == nil {
			// Not yet delivered; stay suspended for another wake.
			fr.Preemptor = o.waitForResponse(ctxt)
			o.c.Suspend()
			return nil
		}
		o.c.Observers.Revoke(ctxt.obsID)
		if ctxt.timeoutObsID != 0 {
			o.c.Observers.Revoke(ctxt.timeoutObsID)
			o.c.Timers.Cancel(ctxt.timeoutID)
		}
		fr.SetSymbol(frame.SymQuestion, ctxt.response)
		ctxt.response = nil
		_, err := o.c.Stack.Pop()
		return err
	}
}

func isFalseWord(s string) bool {
	switch strings.ToLower(s) {
	case "false", "no", "0", "":
		return true
	default:
		return false
	}
}

// resolveTarget implements three target cases: a positive
// integer coroutine id, an hvml:// URI (only the _first/_last/explicit
// token runner-name forms are supported, open question
// about the RDR case), or a bare token equivalent to the URI's last
// segment. Any other string, a CSS selector included, is looked up as a
// bare token and fails with ENTITY_NOT_FOUND when no coroutine carries it;
// a target of any other kind is NOT_SUPPORTED.
func resolveTarget(c *coroutine.Coroutine, onV *variant.Variant) (*coroutine.Coroutine, error) {
	switch onV.Kind() {
	case variant.Number, variant.LongInt, variant.ULongInt, variant.LongDouble:
		id := int(onV.Float())
		if onV.Kind() == variant.LongInt {
			id = int(onV.Int())
		}
		if id <= 0 {
			return nil, perrors.New(perrors.InvalidValue, "<request on=%d> must be a positive coroutine id", id)
		}
		t, ok := c.Scheduler.Lookup(id)
		if !ok {
			return nil, perrors.New(perrors.EntityNotFound, "no coroutine with id %d", id)
		}
		return t, nil

	case variant.String:
		s := onV.Str()
		token := s
		if strings.HasPrefix(s, "hvml://") {
			parts := strings.Split(strings.TrimPrefix(s, "hvml://"), "/")
			token = parts[len(parts)-1]
		}
		switch token {
		case "_first":
			t, ok := c.Scheduler.First()
			if !ok {
				return nil, perrors.New(perrors.EntityNotFound, "no coroutines registered for _first")
			}
			return t, nil
		case "_last":
			t, ok := c.Scheduler.Last()
			if !ok {
				return nil, perrors.New(perrors.EntityNotFound, "no coroutines registered for _last")
			}
			return t, nil
		default:
			t, ok := c.Scheduler.ByToken(token)
			if !ok {
				return nil, perrors.New(perrors.EntityNotFound, "no coroutine with token %q", token)
			}
			return t, nil
		}

	default:
		return nil, perrors.New(perrors.NotSupported, "<request on=...> of kind %s is not supported", onV.Kind())
	}
}

func (o *requestOps) OnPopping(fr *frame.StackFrame) (bool, error) { return true, nil }
func (o *requestOps) Rerun(fr *frame.StackFrame) (bool, error)     { return true, nil }
func (o *requestOps) SelectChild(fr *frame.StackFrame) (*vdom.Element, error) {
	return nil, nil
}
