package dom

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/sequence"
)

// ServerEventSink receives results pushed outside any client event.
type ServerEventSink interface {
	Push(ctx context.Context, result delta.EventResult) error
	Close() error
}

// ClientValue is an input state reported by the client with an event.
type ClientValue struct {
	ElementID string
	Value     *string
	Checked   *bool
}

// Document is one page instance: an html root with head and body, the
// identifier index, the delta log and the per-document event sequencer.
//
// Tree mutation is not synchronised. Callers hold Lock while handling an
// event or pushing a server event.
type Document struct {
	mu sync.Mutex

	id               string
	root, head, body *Element
	ids              map[string]*Element
	autoID           uint64

	log       delta.Log
	recording atomic.Bool
	seq       *sequence.Sequencer
	lastSeen  atomic.Int64

	messages map[string]Handler

	stateMu      sync.Mutex
	serverEvents bool
	sinks        []ServerEventSink
	redirect     string
	discarded    bool
	onDiscard    []func()
}

// NewDocument returns an empty document identified by id, not yet recording.
func NewDocument(id string) *Document {
	d := &Document{
		id:       id,
		ids:      make(map[string]*Element),
		seq:      sequence.New(),
		messages: make(map[string]Handler),
	}
	d.root = NewElement("html")
	d.head = NewElement("head")
	d.body = NewElement("body")
	for _, c := range []*Element{d.head, d.body} {
		d.root.children = append(d.root.children, c)
		c.setParent(d.root)
	}
	d.attach(d.root)
	d.Touch()
	return d
}

// ID returns the virtual id the client uses to address this document.
func (d *Document) ID() string { return d.id }

func (d *Document) Root() *Element { return d.root }
func (d *Document) Head() *Element { return d.head }
func (d *Document) Body() *Element { return d.body }

// Lock serialises event processing on the document.
func (d *Document) Lock()   { d.mu.Lock() }
func (d *Document) Unlock() { d.mu.Unlock() }

// OpenEventQueue starts recording deltas. Recording stays on for the life of
// the document.
func (d *Document) OpenEventQueue() { d.recording.Store(true) }

func (d *Document) Recording() bool { return d.recording.Load() }

// Enqueue appends dl to the log when the document is recording.
func (d *Document) Enqueue(dl delta.Delta) {
	if d.Recording() {
		d.log.Append(dl)
	}
}

func (d *Document) record(dl delta.Delta) { d.Enqueue(dl) }

// direct queues a directive delta whether or not the document is recording.
func (d *Document) direct(dl delta.Delta) {
	if d.Discarded() {
		return
	}
	d.log.Append(dl)
}

// Drain returns the pending deltas in order and empties the log.
func (d *Document) Drain() []delta.Delta { return d.log.Drain() }

func (d *Document) HasPendingChanges() bool { return d.log.Len() > 0 }

// WaitForTurn blocks until event n may run. See sequence.Sequencer.Wait.
func (d *Document) WaitForTurn(ctx context.Context, n uint64) error {
	return d.seq.Wait(ctx, n)
}

// TurnDone completes event n.
func (d *Document) TurnDone(n uint64) { d.seq.Done(n) }

// Touch records activity now.
func (d *Document) Touch() { d.lastSeen.Store(time.Now().UnixNano()) }

func (d *Document) LastActivity() time.Time {
	return time.Unix(0, d.lastSeen.Load())
}

// SetLastActivity overrides the activity timestamp.
func (d *Document) SetLastActivity(t time.Time) { d.lastSeen.Store(t.UnixNano()) }

// Navigate sends the client to location. Before recording starts it sets a
// redirect for the page response instead.
func (d *Document) Navigate(location string) {
	if d.Recording() {
		d.log.Append(delta.NewReplace(location))
		return
	}
	d.stateMu.Lock()
	d.redirect = location
	d.stateMu.Unlock()
}

// Redirect returns the location set by Navigate before recording started.
func (d *Document) Redirect() string {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.redirect
}

// SubmitJS asks the client to evaluate code with an optional payload.
func (d *Document) SubmitJS(code, payload string) {
	d.direct(delta.NewSubmitJS(code, payload))
}

// ApplyClientValues stores input state sent along with an event.
func (d *Document) ApplyClientValues(values []ClientValue) {
	for _, v := range values {
		el, ok := d.ids[v.ElementID]
		if !ok {
			continue
		}
		if v.Value != nil {
			el.notifyValue(*v.Value)
		}
		if v.Checked != nil {
			el.notifyChecked(*v.Checked)
		}
	}
}

// ServerEventsOn asks the client to open its server-push channel.
func (d *Document) ServerEventsOn() {
	d.stateMu.Lock()
	already := d.serverEvents
	d.serverEvents = true
	d.stateMu.Unlock()
	if !already {
		d.direct(delta.NewServerEvents())
	}
}

// ServerEventsOff closes every server-push channel.
func (d *Document) ServerEventsOff() {
	d.stateMu.Lock()
	d.serverEvents = false
	sinks := d.sinks
	d.sinks = nil
	d.stateMu.Unlock()
	for _, s := range sinks {
		_ = s.Close()
	}
}

func (d *Document) ServerEventsEnabled() bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.serverEvents
}

// AddServerEventSink registers s for pushed results. The returned function
// unregisters it without closing it.
func (d *Document) AddServerEventSink(s ServerEventSink) (func(), error) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.discarded {
		return nil, ErrDiscarded
	}
	if !d.serverEvents {
		return nil, ErrServerEventsOff
	}
	d.sinks = append(d.sinks, s)
	return func() { d.removeSink(s) }, nil
}

func (d *Document) removeSink(s ServerEventSink) bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	for i, x := range d.sinks {
		if x == s {
			d.sinks = append(d.sinks[:i], d.sinks[i+1:]...)
			return true
		}
	}
	return false
}

// ServerEventSinks returns the number of registered push channels.
func (d *Document) ServerEventSinks() int {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return len(d.sinks)
}

// ServerEvent runs fn under the document lock with recording on and pushes
// the resulting deltas to every sink. A sink that fails is dropped and
// closed. Deltas recorded before fn fails are still pushed.
func (d *Document) ServerEvent(ctx context.Context, fn func() error) error {
	d.Lock()
	defer d.Unlock()
	if d.Discarded() {
		return ErrDiscarded
	}
	d.OpenEventQueue()
	err := fn()
	list := d.Drain()
	if len(list) == 0 {
		return err
	}

	d.stateMu.Lock()
	sinks := append([]ServerEventSink(nil), d.sinks...)
	d.stateMu.Unlock()

	result := delta.Result(list)
	for _, s := range sinks {
		if perr := s.Push(ctx, result); perr != nil {
			if d.removeSink(s) {
				_ = s.Close()
			}
		}
	}
	return err
}

// OnDiscard registers fn to run once when the document is discarded.
func (d *Document) OnDiscard(fn func()) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.onDiscard = append(d.onDiscard, fn)
}

// Discard releases the document: pending deltas are dropped, events waiting
// for their turn are released, push channels closed and discard hooks run.
// Later calls do nothing.
func (d *Document) Discard() {
	d.stateMu.Lock()
	if d.discarded {
		d.stateMu.Unlock()
		return
	}
	d.discarded = true
	sinks, hooks := d.sinks, d.onDiscard
	d.sinks, d.onDiscard = nil, nil
	d.stateMu.Unlock()

	d.log.Reset()
	d.seq.Reset()
	for _, s := range sinks {
		_ = s.Close()
	}
	for _, fn := range hooks {
		fn()
	}
}

func (d *Document) Discarded() bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.discarded
}
