package element

import (
	"testing"

	"github.com/purc-go/purc/internal/coroutine"
	"github.com/purc-go/purc/internal/observer"
	"github.com/purc-go/purc/internal/variant"
	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/vdom"
)

func numberLiteral(n float64) *vcm.Node { return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeNumber(n)} }

// TestRequestOpsSuspendsUntilMatchingResponseArrives drives a full
// synchronous <request> round trip: the requester suspends after posting,
// a reply is posted directly to its own observer registry (standing in for
// a responder coroutine's own <request to="response">), and the requester's
// preemptor resumes, binding the payload as "?" before popping.
func TestRequestOpsSuspendsUntilMatchingResponseArrives(t *testing.T) {
	sched := coroutine.NewScheduler(Resolver(&Env{}))

	responder, err := sched.Spawn(vdom.New(vdom.NewElement("div")), vdom.NewElement("div"))
	if err != nil {
		t.Fatal(err)
	}

	reqEl := vdom.NewElement("request")
	reqEl.Attrs["on"] = numberLiteral(float64(responder.ID))
	reqEl.Attrs["with"] = literalNode("ping")
	reqEl.Attrs["request_id"] = literalNode("rid-1")
	reqEl.AttrOrder = []string{"on", "with", "request_id"}

	vd := vdom.New(reqEl)
	requester, err := sched.Spawn(vd, reqEl)
	if err != nil {
		t.Fatal(err)
	}

	var result *coroutine.Coroutine
	sched.OnTerminate(func(c *coroutine.Coroutine) {
		if c.ID == requester.ID {
			result = c
		}
	})

	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Fatal("requester should still be suspended, not terminated, before a response arrives")
	}

	if _, err := sched.PostMessage(requester, observer.Message{
		Source:  requester.Self,
		Type:    "response",
		SubType: "rid-1",
		Payload: variant.MakeString("pong"),
	}); err != nil {
		t.Fatal(err)
	}

	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("requester did not terminate after its response arrived")
	}
	if result.Except != nil {
		t.Fatalf("unexpected exception: %v", result.Except)
	}
}

func TestRequestOpsRejectsUnknownTargetID(t *testing.T) {
	reqEl := vdom.NewElement("request")
	reqEl.Attrs["on"] = numberLiteral(999)
	reqEl.AttrOrder = []string{"on"}

	sched := coroutine.NewScheduler(Resolver(&Env{}))
	var except error
	sched.OnTerminate(func(c *coroutine.Coroutine) { except = c.Except })
	vd := vdom.New(reqEl)
	if _, err := sched.Spawn(vd, reqEl); err != nil {
		t.Fatal(err)
	}
	if err := sched.Run(); err != nil {
		t.Fatal(err)
	}
	if except == nil {
		t.Fatal("expected requesting an unknown coroutine id to fail")
	}
}
