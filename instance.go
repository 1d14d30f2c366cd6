// Package purc is the library entry point: it owns one
// Scheduler, one element.Env, and one Fetcher per running instance, and
// exposes the Library API operations as methods on
// Instance, following a NewVM-style constructor shape: one self-contained
// struct other packages drive by method calls, never by reaching into its
// fields.
package purc

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/purc-go/purc/internal/audit"
	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/element"
	"github.com/purc-go/purc/internal/fetcher"
	"github.com/purc-go/purc/internal/frame"
	"github.com/purc-go/purc/internal/monitor"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vdom"
	"github.com/purc-go/purc/internal/vdomsrc"
)

// Result reports one coroutine's outcome once it reaches TERMINATED,
// delivered to the callback Run is given (handler_callback). HVML's run()
// names no further shape for this callback beyond "runs the event loop to
// quiescence", so this module picks the minimal thing a caller actually
// needs to observe per coroutine: its
// id, the rendered EDOM output it produced, and an uncaught exception if
// one terminated it early.
type Result struct {
	CoroutineID int
	Edom        string
	Except      error
}

// Instance is one running PurC program: a scheduler, the element registry's
// shared environment, and the default Fetcher wired into it. Audit and
// monitor are both optional and nil unless enabled with
// EnableAudit/EnableMonitor.
type Instance struct {
	scheduler *coroutine.Scheduler
	env       *element.Env
	fetcher   *fetcher.HTTPFetcher

	audit   *audit.Store
	monitor *monitor.Hub
}

// New creates an Instance with a net/http-backed Fetcher (internal/fetcher)
// as its default resource-fetch collaborator; opts configure
// that fetcher (fetcher.WithTimeout, fetcher.WithProxy, etc).
func New(opts ...fetcher.Option) *Instance {
	f := fetcher.New(opts...)
	env := &element.Env{Fetcher: f}
	inst := &Instance{
		env:     env,
		fetcher: f,
	}
	inst.scheduler = coroutine.NewScheduler(element.Resolver(env))
	return inst
}

// SetBaseURI sets the base URI relative fetch targets resolve against
// (set_base_uri).
func (inst *Instance) SetBaseURI(uri string) { inst.fetcher.SetBaseURI(uri) }

// EnableAudit opens a sqlite-backed audit trail (internal/audit) at
// path (":memory:" is valid) and starts recording every coroutine's
// spawn/terminate lifecycle and every dispatched message. Safe to call at
// most once; a second call replaces the previous store without closing it.
func (inst *Instance) EnableAudit(path string) error {
	store, err := audit.Open(path)
	if err != nil {
		return err
	}
	inst.audit = store
	return nil
}

// EnableMonitor starts an internal/monitor.Hub and returns it so the
// caller can mount it on an http.ServeMux; Instance pushes lifecycle events
// to it as they occur.
func (inst *Instance) EnableMonitor() *monitor.Hub {
	inst.monitor = monitor.NewHub()
	return inst.monitor
}

// Close releases the audit store, if one was enabled.
func (inst *Instance) Close() error {
	if inst.audit != nil {
		return inst.audit.Close()
	}
	return nil
}

// LoadHVMLFromString parses source into a fresh *vdom.Vdom (:
// load_hvml_from_string), via the minimal loader in internal/vdomsrc.
func (inst *Instance) LoadHVMLFromString(source string) (*vdom.Vdom, error) {
	return vdomsrc.Parse(source)
}

// LoadHVMLFromFile reads and parses path (load_hvml_from_file).
func (inst *Instance) LoadHVMLFromFile(path string) (*vdom.Vdom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vdomsrc.Parse(string(data))
}

// LoadHVMLFromStream reads r to completion and parses it (:
// load_hvml_from_stream).
func (inst *Instance) LoadHVMLFromStream(r io.Reader) (*vdom.Vdom, error) {
	return vdomsrc.ParseReader(r)
}

// BindDocumentVariable binds name to v in vd's document scope (:
// bind_document_variable), delegating directly to *vdom.Vdom since that
// binding store already lives there.
func (inst *Instance) BindDocumentVariable(vd *vdom.Vdom, name string, v *variant.Variant) {
	vd.BindDocumentVariable(name, v)
}

// ScheduleVdom spawns a coroutine rooted at vd (schedule_vdom),
// binding request as the root frame's "?" positional symbol when non-nil —
// HVML's own convention for "the data this program was invoked with" (the
// same frame.SymQuestion slot a synchronous <request> binds its response
// payload into once it resumes). Returns the new coroutine's numeric id.
func (inst *Instance) ScheduleVdom(vd *vdom.Vdom, request *variant.Variant) (int, error) {
	c, err := inst.scheduler.Spawn(vd, vd.Root)
	if err != nil {
		return 0, err
	}
	if request != nil {
		c.Stack.Top().SetSymbol(frame.SymQuestion, request)
	}
	if inst.audit != nil {
		inst.audit.RecordCoroutineEvent(c.ID, "spawned", "")
	}
	if inst.monitor != nil {
		inst.monitor.Broadcast(monitor.Event{Kind: "spawned", CoroutineID: c.ID, At: time.Now()})
	}
	return c.ID, nil
}

// DispatchMessage posts a message to the coroutine identified by targetCID
// (dispatch_message), returning how many observers matched.
func (inst *Instance) DispatchMessage(targetCID int, source *variant.Variant, msgType, subType string, payload *variant.Variant) (int, error) {
	target, ok := inst.scheduler.Lookup(targetCID)
	if !ok {
		return 0, fmt.Errorf("purc: no coroutine with id %d", targetCID)
	}
	matched, err := inst.scheduler.PostMessage(target, observer.Message{
		Source:  source,
		Type:    msgType,
		SubType: subType,
		Payload: payload,
	})
	if err == nil && inst.audit != nil {
		inst.audit.RecordMessage(targetCID, msgType, subType, matched)
	}
	return matched, err
}

// Run drives every scheduled coroutine to quiescence (run),
// invoking onTerminate once per coroutine as it reaches TERMINATED — whether
// by an emptied stack with no outstanding waits, or by an uncaught
// exception. onTerminate may be nil.
func (inst *Instance) Run(onTerminate func(Result)) error {
	inst.scheduler.OnTerminate(func(c *coroutine.Coroutine) {
		if inst.audit != nil {
			detail := ""
			event := "terminated"
			if c.Except != nil {
				event = "exception"
				detail = c.Except.Error()
			}
			inst.audit.RecordCoroutineEvent(c.ID, event, detail)
		}
		if inst.monitor != nil {
			detail := ""
			if c.Except != nil {
				detail = c.Except.Error()
			}
			inst.monitor.Broadcast(monitor.Event{Kind: "terminated", CoroutineID: c.ID, Detail: detail, At: time.Now()})
		}
		if onTerminate != nil {
			onTerminate(Result{
				CoroutineID: c.ID,
				Edom:        c.Edom.String(),
				Except:      c.Except,
			})
		}
	})
	return inst.scheduler.Run()
}
