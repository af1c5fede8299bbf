package client

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/dom"
)

func recordingDoc(t *testing.T) *dom.Document {
	t.Helper()
	d := dom.NewDocument("doc")
	d.OpenEventQueue()
	return d
}

func TestRoundTripEmptiesMirror(t *testing.T) {
	d := recordingDoc(t)
	box := dom.NewElementWithID("div", "box")
	assert.Equal(t, d.Body().AppendChild(box), nil)
	d.Drain()

	span := dom.NewElementWithID("span", "a")
	assert.Equal(t, box.AppendChild(span), nil)
	span.SetInnerText("x")
	assert.Equal(t, box.RemoveAt(0), nil)

	list := d.Drain()
	assert.Equal(t, len(list), 3)
	assert.Equal(t, list[0].DeltaType(), delta.TypeAppend)
	assert.Equal(t, list[1].DeltaType(), delta.TypeTextModified)
	assert.Equal(t, list[2].DeltaType(), delta.TypeRemove)

	m := NewMirror("div", "box")
	a := NewApplier(m)
	assert.Equal(t, a.Apply(list[:2]), nil)
	n, ok := m.ElementByID("a")
	assert.Equal(t, ok, true)
	assert.Equal(t, n.InnerText(), "x")

	assert.Equal(t, a.Apply(list[2:]), nil)
	assert.Equal(t, len(m.Root().Children), 0)
	_, ok = m.ElementByID("a")
	assert.Equal(t, ok, false)
}

func render(t *testing.T, d *dom.Document) string {
	t.Helper()
	var b bytes.Buffer
	assert.Equal(t, d.Render(&b), nil)
	return b.String()
}

func TestMirrorTracksDocument(t *testing.T) {
	d := dom.NewDocument("doc")
	b := dom.NewBuilder(d.Body())
	b.Push("ul", "id", "list").
		Push("li", "id", "one").Text("one").Pop().
		Push("li", "id", "two").Text("a < b").Pop().
		Push("li", "id", "hidden").Text("secret").Pop().
		Pop()
	b.Push("p", "id", "para", "class", "x").Text("hello").Pop()
	assert.Equal(t, b.Err(), nil)
	hidden, _ := d.ElementByID("hidden")
	hidden.SetRendered(false)

	page := render(t, d)
	m, meta, err := ParseMirror(strings.NewReader(page))
	assert.Equal(t, err, nil)
	assert.Equal(t, len(meta), 0)
	assert.Equal(t, m.HTML(), page)
	d.OpenEventQueue()

	list, _ := d.ElementByID("list")
	para, _ := d.ElementByID("para")
	one, _ := d.ElementByID("one")
	assert.Equal(t, list.SwapChildren(0, 1), nil)
	assert.Equal(t, list.InsertChild(1, dom.NewElementWithID("li", "mid")), nil)
	assert.Equal(t, para.SetAttribute("class", "y"), nil)
	assert.Equal(t, para.SetAttribute("title", "t"), nil)
	assert.Equal(t, para.RemoveAttribute("class"), nil)
	assert.Equal(t, one.SetID("first"), nil)
	hidden.SetRendered(true)
	assert.Equal(t, para.AppendText(" world"), nil)
	assert.Equal(t, list.ReplaceChild(0, dom.NewElementWithID("li", "two-b")), nil)
	one.Remove()
	para.SetInnerText("bye")

	a := NewApplier(m)
	assert.Equal(t, a.Apply(d.Drain()), nil)
	assert.Equal(t, m.HTML(), render(t, d))

	list.ClearChildren()
	hidden.SetRendered(false)
	assert.Equal(t, a.Apply(d.Drain()), nil)
	assert.Equal(t, m.HTML(), render(t, d))
}

func TestApplierDirectives(t *testing.T) {
	m := NewMirror("div", "root")
	a := NewApplier(m)
	var scripts []string
	var nav string
	push := false
	a.OnScript = func(s delta.SubmitJS) { scripts = append(scripts, s.Code) }
	a.OnNavigate = func(loc string) { nav = loc }
	a.OnServerEvents = func() { push = true }

	input := delta.ContentNode{
		Type:       delta.ContentElement,
		TagName:    "input",
		Attributes: []delta.ContentAttribute{{Attribute: "id", Value: "in"}, {Attribute: "type", Value: "checkbox"}},
	}
	err := a.Apply([]delta.Delta{
		delta.NewAppend("root", input),
		delta.NewSubscribe("in", delta.PlugOptions{EventName: "change", LongRunning: true}),
		delta.NewFocus("in"),
		delta.NewSetChecked("in", true),
		delta.NewSetValue("in", "v"),
		delta.NewSubmitJS("alert(1)", ""),
		delta.NewServerEvents(),
		delta.NewReplace("/next"),
	})
	assert.Equal(t, err, nil)

	assert.Equal(t, m.Focused(), "in")
	sub, ok := m.Subscription("in", "change")
	assert.Equal(t, ok, true)
	assert.Equal(t, sub.Settings.LongRunning, true)
	assert.Equal(t, m.Values()["in#checked"], "true")
	assert.Equal(t, scripts, []string{"alert(1)"})
	assert.Equal(t, nav, "/next")
	assert.Equal(t, m.Location(), "/next")
	assert.Equal(t, push, true)
	assert.Equal(t, m.ServerEvents(), true)

	assert.Equal(t, a.Apply([]delta.Delta{delta.NewSetID("in", "box")}), nil)
	assert.Equal(t, m.Focused(), "box")
	assert.Equal(t, m.Subscriptions("box"), []string{"change"})

	assert.Equal(t, a.Apply([]delta.Delta{delta.NewUnsubscribe("box", "change"), delta.NewRemoveElement("box")}), nil)
	assert.Equal(t, m.Focused(), "")
	assert.Equal(t, len(m.Subscriptions("box")), 0)
}

func TestApplierStopsAtMismatch(t *testing.T) {
	m := NewMirror("div", "root")
	a := NewApplier(m)
	err := a.Apply([]delta.Delta{
		delta.NewTextModified("root", 0, "kept"),
		delta.NewRemove("root", 5),
		delta.NewTextModified("root", 1, "never"),
	})
	var aerr *ApplyError
	assert.Equal(t, errors.As(err, &aerr), true)
	assert.Equal(t, aerr.Index, 1)
	assert.Equal(t, m.Root().InnerText(), "kept")

	err = a.Apply([]delta.Delta{delta.NewAttributeEdited("ghost", "class", "x")})
	assert.NotEqual(t, err, nil)
}
