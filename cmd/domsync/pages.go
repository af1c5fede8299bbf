package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/transport"
)

// publishDemo registers the demo pages. Background work started by a page
// ends when its document is discarded or ctx is done.
func publishDemo(ctx context.Context, srv *transport.Server) {
	srv.Publish("/", func() transport.Page { return transport.PageFunc(indexPage) })
	srv.Publish("/counter", func() transport.Page { return transport.PageFunc(counterPage) })
	srv.Publish("/clock", func() transport.Page { return &clockPage{root: ctx, tick: time.Second} })
	srv.Publish("/notes", func() transport.Page { return transport.PageFunc(notesPage) })
}

func title(doc *dom.Document, s string) error {
	return dom.NewBuilder(doc.Head()).Push("title").Text(s).Pop().Err()
}

func indexPage(_ context.Context, doc *dom.Document) error {
	if err := title(doc, "domsync"); err != nil {
		return err
	}
	b := dom.NewBuilder(doc.Body())
	b.Push("h1").Text("domsync demo").Pop()
	b.Push("ul", "id", "pages")
	for _, p := range []string{"counter", "clock", "notes"} {
		b.Push("li").Push("a", "href", "/"+p).Text(p).Pop().Pop()
	}
	return b.Pop().Err()
}

func counterPage(_ context.Context, doc *dom.Document) error {
	if err := title(doc, "counter"); err != nil {
		return err
	}
	count := 0
	show := func(d *dom.Document) {
		span, _ := d.ElementByID("count")
		span.SetInnerText(strconv.Itoa(count))
	}
	step := func(d *dom.Document) int {
		in, _ := d.ElementByID("step")
		n, err := strconv.Atoi(in.Value())
		if err != nil {
			return 1
		}
		return n
	}

	b := dom.NewBuilder(doc.Body())
	b.Push("label").Text("step ").Push("input", "id", "step", "type", "number", "value", "1").Pop().Pop()
	b.Push("span", "id", "count").Text("0").Pop()
	b.Push("button", "id", "dec").Text("-").On("click", func(ev *dom.Event) error {
		count -= step(ev.Document)
		show(ev.Document)
		return nil
	}).Pop()
	b.Push("button", "id", "inc").Text("+").On("click", func(ev *dom.Event) error {
		count += step(ev.Document)
		show(ev.Document)
		return nil
	}).Pop()
	b.Push("button", "id", "reset").Text("reset").On("click", func(ev *dom.Event) error {
		count = 0
		show(ev.Document)
		ev.Target.Focus()
		return nil
	}).Pop()

	b.Push("div", "id", "progress").Pop()
	b.Push("button", "id", "slow").Text("count to ten")
	b.Current().OnWith(delta.PlugOptions{EventName: "click", LongRunning: true}, func(ev *dom.Event) error {
		progress, _ := ev.Document.ElementByID("progress")
		for i := 1; i <= 10; i++ {
			count++
			show(ev.Document)
			progress.SetInnerText(strconv.Itoa(i*10) + "%")
			if err := ev.FlushPartialChanges(); err != nil {
				return err
			}
			select {
			case <-ev.Context().Done():
				return ev.Context().Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
		progress.SetInnerText("done")
		return nil
	})
	b.Pop()

	doc.OnMessage("set", func(ev *dom.Event) error {
		n, err := strconv.Atoi(ev.Message)
		if err != nil {
			return nil
		}
		count = n
		show(ev.Document)
		return nil
	})
	return b.Err()
}

// clockPage pushes the time to the browser every tick.
type clockPage struct {
	root context.Context
	tick time.Duration
}

func (p *clockPage) OnGet(_ context.Context, doc *dom.Document) error {
	if err := title(doc, "clock"); err != nil {
		return err
	}
	b := dom.NewBuilder(doc.Body())
	b.Push("span", "id", "time").Text(time.Now().Format(time.TimeOnly)).Pop()
	b.Push("button", "id", "pause").Text("pause").On("click", func(ev *dom.Event) error {
		if ev.Document.ServerEventsEnabled() {
			ev.Document.ServerEventsOff()
			ev.Target.SetInnerText("resume")
			return nil
		}
		ev.Document.ServerEventsOn()
		ev.Target.SetInnerText("pause")
		return nil
	}).Pop()
	if err := b.Err(); err != nil {
		return err
	}
	doc.ServerEventsOn()

	ctx, cancel := context.WithCancel(p.root)
	doc.OnDiscard(cancel)
	go p.run(ctx, doc)
	return nil
}

func (p *clockPage) run(ctx context.Context, doc *dom.Document) {
	t := time.NewTicker(p.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			err := doc.ServerEvent(ctx, func() error {
				span, ok := doc.ElementByID("time")
				if !ok {
					return dom.ErrNoElement
				}
				span.SetInnerText(now.Format(time.TimeOnly))
				return nil
			})
			if errors.Is(err, dom.ErrDiscarded) {
				return
			}
		}
	}
}

// notesPage appends user-supplied markup, sanitised, to a list.
func notesPage(_ context.Context, doc *dom.Document) error {
	if err := title(doc, "notes"); err != nil {
		return err
	}
	b := dom.NewBuilder(doc.Body())
	b.Push("textarea", "id", "note").Pop()
	b.Push("label").Push("input", "id", "pin", "type", "checkbox").Pop().Text(" pin").Pop()
	b.Push("button", "id", "add").Text("add").On("click", func(ev *dom.Event) error {
		note, _ := ev.Document.ElementByID("note")
		pin, _ := ev.Document.ElementByID("pin")
		list, _ := ev.Document.ElementByID("notes")
		if note.Value() == "" {
			note.Focus()
			return nil
		}
		li := dom.NewElement("li")
		if pin.Checked() {
			if err := list.InsertChild(0, li); err != nil {
				return err
			}
		} else if err := list.AppendChild(li); err != nil {
			return err
		}
		if err := li.AppendHTML(note.Value()); err != nil {
			return err
		}
		note.SetValue("")
		pin.SetChecked(false)
		return nil
	}).Pop()
	b.Push("button", "id", "clear").Text("clear").On("click", func(ev *dom.Event) error {
		list, _ := ev.Document.ElementByID("notes")
		list.ClearChildren()
		return nil
	}).Pop()
	b.Push("ul", "id", "notes").Pop()
	return b.Err()
}
