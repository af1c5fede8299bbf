package dom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/domsync/delta"
)

func TestSubscriptionsQueuedBeforeRecording(t *testing.T) {
	d := NewDocument("x")
	btn := NewElementWithID("button", "b")
	btn.On("click", func(*Event) error { return nil })
	if d.HasPendingChanges() {
		t.Fatal("detached subscription must not queue")
	}
	_ = d.Body().AppendChild(btn)
	btn.OnWith(delta.PlugOptions{EventName: "input", IgnoreSequence: true},
		func(*Event) error { return nil }, WithDebounce(250*time.Millisecond), WithFilter("ev.key=='Enter'"))

	list := d.Drain()
	wantTypes(t, list, delta.TypeSubscribe, delta.TypeSubscribe)
	in := list[1].(delta.Subscribe)
	if in.ElementID != "b" || !in.Settings.IgnoreSequence || in.DebounceInterval != 250 || in.EvalFilter == "" {
		t.Errorf("Subscribe: got %+v", in)
	}

	btn.Off("click")
	btn.Off("click")
	wantTypes(t, d.Drain(), delta.TypeUnsubscribe)
	if subs := btn.Subscriptions(); len(subs) != 1 || subs[0].EventName != "input" {
		t.Errorf("Subscriptions: got %+v", subs)
	}
}

func TestResubscribeOnMove(t *testing.T) {
	d := recordingDoc(t)
	a, b := NewElementWithID("div", "a"), NewElementWithID("div", "b")
	_ = d.Body().AppendChild(a)
	_ = d.Body().AppendChild(b)
	btn := NewElementWithID("button", "btn")
	btn.On("click", func(*Event) error { return nil })
	_ = a.AppendChild(btn)
	wantTypes(t, d.Drain()[2:], delta.TypeAppend, delta.TypeSubscribe)

	_ = b.AppendChild(btn)
	wantTypes(t, d.Drain(), delta.TypeRemove, delta.TypeAppend, delta.TypeSubscribe)
}

func TestDispatch(t *testing.T) {
	d := recordingDoc(t)
	btn := NewElementWithID("button", "inc")
	_ = d.Body().AppendChild(btn)
	count := 0
	btn.On("click", func(ev *Event) error {
		if ev.Target != btn || ev.Name != "click" || ev.Message != "m" {
			t.Errorf("event: got target %v name %q message %q", ev.Target, ev.Name, ev.Message)
		}
		count++
		btn.SetInnerText("clicked")
		return nil
	})
	d.Drain()

	ctx := context.Background()
	if err := d.Dispatch(ctx, EventRequest{ElementID: "inc", Name: "click", Message: "m"}); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("handler calls: got %d, want 1", count)
	}
	wantTypes(t, d.Drain(), delta.TypeTextModified)

	if err := d.Dispatch(ctx, EventRequest{ElementID: "nope", Name: "click"}); !errors.Is(err, ErrNoElement) {
		t.Errorf("unknown element: got %v, want ErrNoElement", err)
	}
	if err := d.Dispatch(ctx, EventRequest{ElementID: "inc", Name: "dblclick"}); err != nil {
		t.Errorf("unsubscribed event: got %v, want nil", err)
	}
}

func TestDispatchMessageAndPanic(t *testing.T) {
	d := recordingDoc(t)
	var got string
	d.OnMessage("save", func(ev *Event) error {
		got = ev.Message
		return nil
	})
	if err := d.Dispatch(context.Background(), EventRequest{Name: "_save", Message: "payload"}); err != nil {
		t.Fatal(err)
	}
	if got != "payload" {
		t.Errorf("message: got %q", got)
	}

	boom := NewElementWithID("button", "boom")
	_ = d.Body().AppendChild(boom)
	boom.On("click", func(*Event) error { panic("bad") })
	err := d.Dispatch(context.Background(), EventRequest{ElementID: "boom", Name: "click"})
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Errorf("panic: got %v", err)
	}
}

func TestFlushUnavailable(t *testing.T) {
	ev := &Event{}
	if err := ev.FlushPartialChanges(); !errors.Is(err, ErrFlushUnavailable) {
		t.Fatalf("got %v, want ErrFlushUnavailable", err)
	}
	if ev.Context() == nil {
		t.Fatal("Context must never be nil")
	}
}

type recordSink struct {
	pushed []delta.EventResult
	closed bool
	fail   bool
}

func (s *recordSink) Push(_ context.Context, r delta.EventResult) error {
	if s.fail {
		return errors.New("gone")
	}
	s.pushed = append(s.pushed, r)
	return nil
}

func (s *recordSink) Close() error { s.closed = true; return nil }

func TestServerEvent(t *testing.T) {
	d := NewDocument("x")
	clock := NewElementWithID("span", "clock")
	_ = d.Body().AppendChild(clock)

	if _, err := d.AddServerEventSink(&recordSink{}); !errors.Is(err, ErrServerEventsOff) {
		t.Fatalf("sink before ServerEventsOn: got %v", err)
	}
	d.ServerEventsOn()
	d.ServerEventsOn()
	wantTypes(t, d.Drain(), delta.TypeServerEvents)

	good, bad := &recordSink{}, &recordSink{fail: true}
	if _, err := d.AddServerEventSink(good); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddServerEventSink(bad); err != nil {
		t.Fatal(err)
	}

	err := d.ServerEvent(context.Background(), func() error {
		clock.SetInnerText("12:00")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(good.pushed) != 1 || len(good.pushed[0].List) != 1 {
		t.Fatalf("pushed: got %+v", good.pushed)
	}
	if !bad.closed || d.ServerEventSinks() != 1 {
		t.Errorf("failing sink must be dropped and closed")
	}

	d.Discard()
	if !good.closed {
		t.Error("Discard must close sinks")
	}
	if err := d.ServerEvent(context.Background(), func() error { return nil }); !errors.Is(err, ErrDiscarded) {
		t.Errorf("ServerEvent after discard: got %v", err)
	}
}

func TestDiscardHooks(t *testing.T) {
	d := NewDocument("x")
	calls := 0
	d.OnDiscard(func() { calls++ })
	d.Discard()
	d.Discard()
	if calls != 1 || !d.Discarded() {
		t.Fatalf("hooks: got %d calls, discarded %v", calls, d.Discarded())
	}
}

func TestFocusAndSubmitJSQueuedOnGet(t *testing.T) {
	d := NewDocument("x")
	in := NewElementWithID("input", "q")
	_ = d.Body().AppendChild(in)
	in.Focus()
	d.SubmitJS("console.log(1)", "")
	wantTypes(t, d.Drain(), delta.TypeFocus, delta.TypeSubmitJS)
}
