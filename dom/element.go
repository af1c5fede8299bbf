package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domsync/delta"
)

// Element is a tagged node with an identifier, attributes, ordered children
// and event subscriptions.
type Element struct {
	links
	tag        string
	id         string
	attrs      []Attr
	children   []Node
	listeners  []*listener
	unrendered bool
}

// Attr is one attribute other than id.
type Attr struct {
	Name  string
	Value string
}

// NewElement returns a detached element. Tag names are lower-cased.
func NewElement(tag string) *Element {
	return &Element{tag: strings.ToLower(tag)}
}

// NewElementWithID returns a detached element carrying id.
func NewElementWithID(tag, id string) *Element {
	e := NewElement(tag)
	e.id = id
	return e
}

func (e *Element) Tag() string { return e.tag }
func (e *Element) ID() string  { return e.id }

// Children returns a copy of the child list.
func (e *Element) Children() []Node { return slices.Clone(e.children) }

func (e *Element) ChildCount() int { return len(e.children) }

// Child returns the child at index, or nil when index is out of range.
func (e *Element) Child(index int) Node {
	if index < 0 || index >= len(e.children) {
		return nil
	}
	return e.children[index]
}

// IndexOf returns the position of n among the children, or -1.
func (e *Element) IndexOf(n Node) int {
	for i, c := range e.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Contains reports whether n is e or one of its descendants.
func (e *Element) Contains(n Node) bool {
	for p := n; p != nil; {
		if el, ok := p.(*Element); ok && el == e {
			return true
		}
		parent := p.Parent()
		if parent == nil {
			return false
		}
		p = parent
	}
	return false
}

// mirrored reports whether the client holds a live copy of e: e is attached
// to a document and neither e nor an ancestor is unrendered.
func (e *Element) mirrored() bool {
	if e.Document() == nil {
		return false
	}
	for p := e; p != nil; p = p.Parent() {
		if p.unrendered {
			return false
		}
	}
	return true
}

// recorder returns the document to record structural deltas on, or nil.
func (e *Element) recorder() *Document {
	d := e.Document()
	if d == nil || !d.Recording() || !e.mirrored() {
		return nil
	}
	return d
}

// director returns the document to queue directive deltas on, or nil.
func (e *Element) director() *Document {
	if !e.mirrored() {
		return nil
	}
	return e.Document()
}

// AppendChild adds n as the last child. A node that already has a parent is
// moved.
func (e *Element) AppendChild(n Node) error {
	return e.insert(-1, n)
}

// InsertChild places n at index among the children.
func (e *Element) InsertChild(index int, n Node) error {
	if index < 0 {
		return &IndexError{Op: "insert", Index: index, Len: len(e.children)}
	}
	return e.insert(index, n)
}

func (e *Element) insert(index int, n Node) error {
	if n == nil {
		return ErrNilNode
	}
	max := len(e.children)
	if n.Parent() == e {
		max--
	}
	appending := index < 0
	if appending {
		index = max
	}
	if index > max {
		return &IndexError{Op: "insert", Index: index, Len: max}
	}
	if err := e.canAdopt(n, nil); err != nil {
		return err
	}

	if p := n.Parent(); p != nil {
		p.detach(p.IndexOf(n), false)
	}
	e.children = slices.Insert(e.children, index, n)
	e.adopt(n)

	if rec := e.recorder(); rec != nil {
		if appending {
			rec.record(delta.NewAppend(e.id, contentOf(n)))
		} else {
			rec.record(delta.NewInsert(e.id, index, contentOf(n)))
		}
	}
	announce(n)
	return nil
}

// canAdopt validates a move of n under e without mutating anything.
// Identifiers held inside replaced do not count as taken.
func (e *Element) canAdopt(n, replaced Node) error {
	if el, ok := n.(*Element); ok {
		if el.Contains(e) {
			return ErrCycle
		}
		if d := el.Document(); d != nil && d.root == el {
			return ErrRootNode
		}
	}
	if d := e.Document(); d != nil {
		return d.checkIDs(n, replaced)
	}
	return nil
}

func (e *Element) adopt(n Node) {
	n.link().setParent(e)
	if d := e.Document(); d != nil {
		d.attach(n)
	}
}

// detach unlinks the child at index and records its removal. byID records a
// RemoveElement delta instead of a positional Remove.
func (e *Element) detach(index int, byID bool) Node {
	n := e.children[index]
	rec := e.recorder()
	e.children = slices.Delete(e.children, index, index+1)
	if rec != nil {
		el, isEl := n.(*Element)
		if byID && isEl && !el.unrendered {
			rec.record(delta.NewRemoveElement(el.id))
		} else {
			rec.record(delta.NewRemove(e.id, index))
		}
	}
	release(n)
	return n
}

// release unlinks n from its parent and document.
func release(n Node) {
	n.link().setParent(nil)
	if d := n.Document(); d != nil {
		d.detachTree(n)
	}
}

// RemoveAt removes the child at index.
func (e *Element) RemoveAt(index int) error {
	if index < 0 || index >= len(e.children) {
		return &IndexError{Op: "remove", Index: index, Len: len(e.children)}
	}
	e.detach(index, false)
	return nil
}

// RemoveChild removes n from the children.
func (e *Element) RemoveChild(n Node) error {
	i := e.IndexOf(n)
	if i < 0 {
		return ErrNotChild
	}
	e.detach(i, false)
	return nil
}

// Remove detaches e from its parent, addressing it by id on the client.
func (e *Element) Remove() {
	p := e.Parent()
	if p == nil {
		return
	}
	if i := p.IndexOf(e); i >= 0 {
		p.detach(i, true)
	}
}

// ReplaceChild puts n in place of the child at index.
func (e *Element) ReplaceChild(index int, n Node) error {
	if n == nil {
		return ErrNilNode
	}
	if index < 0 || index >= len(e.children) {
		return &IndexError{Op: "replace", Index: index, Len: len(e.children)}
	}
	if e.children[index] == n {
		return nil
	}
	if err := e.canAdopt(n, e.children[index]); err != nil {
		return err
	}

	if p := n.Parent(); p != nil {
		j := p.IndexOf(n)
		p.detach(j, false)
		if p == e && j < index {
			index--
		}
	}
	old := e.children[index]
	e.children[index] = n
	release(old)
	e.adopt(n)

	if rec := e.recorder(); rec != nil {
		rec.record(delta.NewRender(delta.ChildLocator(e.id, index), contentOf(n)))
	}
	announce(n)
	return nil
}

// ClearChildren removes every child.
func (e *Element) ClearChildren() {
	if len(e.children) == 0 {
		return
	}
	rec := e.recorder()
	old := e.children
	e.children = nil
	for _, c := range old {
		release(c)
	}
	if rec != nil {
		rec.record(delta.NewClearChildren(e.id))
	}
}

// SwapChildren exchanges the children at i and j.
func (e *Element) SwapChildren(i, j int) error {
	for _, idx := range []int{i, j} {
		if idx < 0 || idx >= len(e.children) {
			return &IndexError{Op: "swap", Index: idx, Len: len(e.children)}
		}
	}
	if i == j {
		return nil
	}
	e.children[i], e.children[j] = e.children[j], e.children[i]
	if rec := e.recorder(); rec != nil {
		rec.record(delta.NewSwapChildren(e.id, i, j))
	}
	return nil
}

// InnerText returns the decoded text of every descendant text node.
func (e *Element) InnerText() string {
	var b strings.Builder
	walk(e, func(n Node) {
		if t, ok := n.(*Text); ok {
			b.WriteString(html.UnescapeString(t.data))
		}
	})
	return b.String()
}

// SetInnerText replaces the content of e with a single text node holding s.
func (e *Element) SetInnerText(s string) {
	data := html.EscapeString(s)
	if len(e.children) == 1 {
		if t, ok := e.children[0].(*Text); ok {
			t.SetData(data)
			return
		}
	}
	e.ClearChildren()
	t := &Text{data: data}
	e.children = append(e.children, t)
	e.adopt(t)
	if rec := e.recorder(); rec != nil {
		rec.record(delta.NewTextModified(e.id, 0, data))
	}
}

// AppendText appends a new text node holding s.
func (e *Element) AppendText(s string) error {
	return e.AppendChild(NewText(s))
}

// Rendered reports whether e is mirrored as itself rather than a placeholder.
func (e *Element) Rendered() bool { return !e.unrendered }

// SetRendered shows or hides e on the client. A hidden element keeps its
// server state and occupies its slot as an empty placeholder.
func (e *Element) SetRendered(on bool) {
	if e.unrendered == !on {
		return
	}
	p := e.Parent()
	var rec *Document
	if p != nil {
		rec = p.recorder()
	}
	e.unrendered = !on
	if rec == nil {
		return
	}
	loc := delta.ChildLocator(p.id, p.IndexOf(e))
	if on {
		rec.record(delta.NewRender(loc, contentOf(e)))
		announce(e)
	} else {
		rec.record(delta.NewUnRender(loc))
	}
}
