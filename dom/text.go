package dom

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/domsync/delta"
)

// Text is a text node. Its data is raw HTML: NewText and SetText encode,
// NewRawText and SetData do not.
type Text struct {
	links
	data string
}

func NewText(s string) *Text { return &Text{data: html.EscapeString(s)} }

func NewRawText(data string) *Text { return &Text{data: data} }

// Data returns the raw (encoded) content.
func (t *Text) Data() string { return t.data }

// Text returns the decoded content.
func (t *Text) Text() string { return html.UnescapeString(t.data) }

func (t *Text) SetText(s string) { t.SetData(html.EscapeString(s)) }

// SetData replaces the raw content.
func (t *Text) SetData(data string) {
	if data == t.data {
		return
	}
	t.data = data
	p := t.Parent()
	if p == nil {
		return
	}
	if rec := p.recorder(); rec != nil {
		rec.record(delta.NewTextModified(p.id, p.IndexOf(t), data))
	}
}

// Remove detaches t from its parent.
func (t *Text) Remove() {
	if p := t.Parent(); p != nil {
		if i := p.IndexOf(t); i >= 0 {
			p.detach(i, false)
		}
	}
}
