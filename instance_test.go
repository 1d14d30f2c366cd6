package purc

import (
	"strings"
	"testing"

	"github.com/purc-go/purc/internal/variant"
)

func TestScheduleVdomAndRunRendersGenericTags(t *testing.T) {
	inst := New()

	vd, err := inst.LoadHVMLFromString(`<hvml><body><p class="greeting">hi</p></body></hvml>`)
	if err != nil {
		t.Fatal(err)
	}

	var results []Result
	cid, err := inst.ScheduleVdom(vd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Run(func(r Result) { results = append(results, r) }); err != nil {
		t.Fatal(err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.CoroutineID != cid {
		t.Fatalf("result id = %d, want %d", r.CoroutineID, cid)
	}
	if r.Except != nil {
		t.Fatalf("unexpected exception: %v", r.Except)
	}
	if !strings.Contains(r.Edom, "<p") || !strings.Contains(r.Edom, "hi") {
		t.Fatalf("edom = %q, want it to contain the rendered <p>hi</p>", r.Edom)
	}
}

func TestScheduleVdomRunsCleanlyWithARequestVariant(t *testing.T) {
	inst := New()
	vd, err := inst.LoadHVMLFromString(`<init as="echo" with="{{ $? }}" />`)
	if err != nil {
		t.Fatal(err)
	}

	var result Result
	req := variant.MakeString("hello")
	if _, err := inst.ScheduleVdom(vd, req); err != nil {
		t.Fatal(err)
	}
	if err := inst.Run(func(r Result) { result = r }); err != nil {
		t.Fatal(err)
	}
	if result.Except != nil {
		t.Fatalf("unexpected exception: %v", result.Except)
	}
}

func TestLoadHVMLFromStreamMatchesFromString(t *testing.T) {
	inst := New()
	vd, err := inst.LoadHVMLFromStream(strings.NewReader(`<div a="1" />`))
	if err != nil {
		t.Fatal(err)
	}
	if vd.Root.Tag != "div" {
		t.Fatalf("root tag = %q, want div", vd.Root.Tag)
	}
}

func TestDispatchMessageFailsForUnknownCoroutine(t *testing.T) {
	inst := New()
	if _, err := inst.DispatchMessage(999, nil, "ping", "", nil); err == nil {
		t.Fatal("expected an error dispatching to an unknown coroutine id")
	}
}

func TestSetBaseURIDoesNotPanic(t *testing.T) {
	inst := New()
	inst.SetBaseURI("https://example.com/base/")
}

func TestEnableAuditRecordsSpawnAndTerminateEvents(t *testing.T) {
	inst := New()
	if err := inst.EnableAudit(":memory:"); err != nil {
		t.Fatal(err)
	}
	defer inst.Close()

	vd, err := inst.LoadHVMLFromString(`<div></div>`)
	if err != nil {
		t.Fatal(err)
	}
	cid, err := inst.ScheduleVdom(vd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Run(nil); err != nil {
		t.Fatal(err)
	}

	events, err := inst.audit.Events(cid)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d audit events, want 2 (spawned, terminated): %+v", len(events), events)
	}
	if events[0].Event != "spawned" || events[1].Event != "terminated" {
		t.Fatalf("events = %+v, want spawned then terminated", events)
	}
}

// TestUpdateFragmentsQueueUntilTargetGeneratedThenApplyInOrder drives the
// fragment-flush-order scenario end to end: two
// <update on="#x" to="append" at="textContent"> run before <div id="x">
// exists in the EDOM, so both are queued and only applied once the div is
// generated, in the order they were issued.
func TestUpdateFragmentsQueueUntilTargetGeneratedThenApplyInOrder(t *testing.T) {
	inst := New()
	vd, err := inst.LoadHVMLFromString(`<body>
		<update on="#x" to="append" at="textContent" with="A" />
		<update on="#x" to="append" at="textContent" with="B" />
		<div id="x"></div>
	</body>`)
	if err != nil {
		t.Fatal(err)
	}

	var result Result
	if _, err := inst.ScheduleVdom(vd, nil); err != nil {
		t.Fatal(err)
	}
	if err := inst.Run(func(r Result) { result = r }); err != nil {
		t.Fatal(err)
	}
	if result.Except != nil {
		t.Fatalf("unexpected exception: %v", result.Except)
	}
	if !strings.Contains(result.Edom, "AB") {
		t.Fatalf("edom = %q, want #x's textContent to read \"AB\" in issue order", result.Edom)
	}
}

func TestEnableMonitorReturnsAnHTTPHandler(t *testing.T) {
	inst := New()
	hub := inst.EnableMonitor()
	if hub == nil {
		t.Fatal("EnableMonitor returned nil")
	}
	if inst.monitor != hub {
		t.Fatal("Instance did not retain the hub it returned")
	}
}
