package dom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/domsync/delta"
)

// Handler reacts to a client event. Mutations it makes are recorded and
// returned to the client once it completes.
type Handler func(ev *Event) error

// File is an upload carried with an event.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Event is passed explicitly to every handler.
type Event struct {
	ctx      context.Context
	Document *Document
	Target   *Element
	Name     string
	Message  string
	Files    []File
	flush    func() error
}

// Context returns the context of the request that carried the event.
func (ev *Event) Context() context.Context {
	if ev.ctx == nil {
		return context.Background()
	}
	return ev.ctx
}

// FlushPartialChanges sends the deltas recorded so far without ending the
// event. Only long-running events carried over a channel support it.
func (ev *Event) FlushPartialChanges() error {
	if ev.flush == nil {
		return ErrFlushUnavailable
	}
	return ev.flush()
}

// EventRequest is what the transport knows about an incoming event.
type EventRequest struct {
	ElementID string
	Name      string
	Message   string
	Files     []File
	// Flush, when set, backs Event.FlushPartialChanges.
	Flush func() error
}

type listener struct {
	opts     delta.PlugOptions
	debounce time.Duration
	filter   string
	handler  Handler
}

func (l *listener) subscribe(elementID string) delta.Subscribe {
	s := delta.NewSubscribe(elementID, l.opts)
	s.DebounceInterval = int(l.debounce / time.Millisecond)
	s.EvalFilter = l.filter
	return s
}

// SubscribeOption tunes a subscription made with OnWith.
type SubscribeOption func(*listener)

// WithDebounce coalesces client events fired within d.
func WithDebounce(d time.Duration) SubscribeOption {
	return func(l *listener) { l.debounce = d }
}

// WithFilter sets a client-side expression that must be true for the event
// to be sent.
func WithFilter(expr string) SubscribeOption {
	return func(l *listener) { l.filter = expr }
}

// On subscribes h to the named DOM event with default options.
func (e *Element) On(name string, h Handler) {
	e.OnWith(delta.PlugOptions{EventName: name}, h)
}

// OnWith subscribes h with explicit client options. A second subscription
// to the same event replaces the first.
func (e *Element) OnWith(opts delta.PlugOptions, h Handler, mods ...SubscribeOption) {
	l := &listener{opts: opts, handler: h}
	for _, m := range mods {
		m(l)
	}
	replaced := false
	for i, x := range e.listeners {
		if x.opts.EventName == opts.EventName {
			e.listeners[i] = l
			replaced = true
			break
		}
	}
	if !replaced {
		e.listeners = append(e.listeners, l)
	}
	if d := e.director(); d != nil {
		d.direct(l.subscribe(e.id))
	}
}

// Off removes the subscription to the named event.
func (e *Element) Off(name string) {
	for i, l := range e.listeners {
		if l.opts.EventName != name {
			continue
		}
		e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
		if d := e.director(); d != nil {
			d.direct(delta.NewUnsubscribe(e.id, name))
		}
		return
	}
}

// Subscriptions returns the client options of every subscribed event.
func (e *Element) Subscriptions() []delta.PlugOptions {
	out := make([]delta.PlugOptions, 0, len(e.listeners))
	for _, l := range e.listeners {
		out = append(out, l.opts)
	}
	return out
}

func (e *Element) listenerFor(name string) *listener {
	for _, l := range e.listeners {
		if l.opts.EventName == name {
			return l
		}
	}
	return nil
}

// Focus moves client focus to e.
func (e *Element) Focus() {
	if d := e.director(); d != nil {
		d.direct(delta.NewFocus(e.id))
	}
}

// announce queues subscriptions for a subtree that just appeared on the
// client.
func announce(n Node) {
	el, ok := n.(*Element)
	if !ok {
		return
	}
	d := el.director()
	if d == nil {
		return
	}
	var visit func(*Element)
	visit = func(x *Element) {
		if x.unrendered {
			return
		}
		for _, l := range x.listeners {
			d.direct(l.subscribe(x.id))
		}
		for _, c := range x.children {
			if ce, ok := c.(*Element); ok {
				visit(ce)
			}
		}
	}
	visit(el)
}

// OnMessage registers a document-level handler reached by event name
// "_"+key with no element id.
func (d *Document) OnMessage(key string, h Handler) {
	d.messages[key] = h
}

// Dispatch runs the handler subscribed to req on its target. An unknown
// target yields ErrNoElement; a target without a matching handler is a
// no-op. A panicking handler is reported as an error.
func (d *Document) Dispatch(ctx context.Context, req EventRequest) (err error) {
	ev := &Event{
		ctx:      ctx,
		Document: d,
		Name:     req.Name,
		Message:  req.Message,
		Files:    req.Files,
		flush:    req.Flush,
	}

	var h Handler
	if req.ElementID == "" && strings.HasPrefix(req.Name, "_") {
		h = d.messages[strings.TrimPrefix(req.Name, "_")]
	} else {
		el, ok := d.ids[req.ElementID]
		if !ok {
			return ErrNoElement
		}
		ev.Target = el
		if l := el.listenerFor(req.Name); l != nil {
			h = l.handler
		}
	}
	if h == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dom: handler %q panicked: %v", req.Name, r)
		}
	}()
	return h(ev)
}
