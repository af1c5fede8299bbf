// Package client keeps a local mirror of a served Document and drives it the
// way a browser would: it loads the page, fires events over HTTP or a
// websocket, and applies the returned deltas in event order.
package client

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/transport"
)

// Kind tells mirror nodes apart.
type Kind int

const (
	ElementNode Kind = iota + 1
	TextNode
	// PlaceholderNode stands in for an element the server does not render.
	PlaceholderNode
)

// Node is one node of the mirror tree.
type Node struct {
	Kind  Kind
	Tag   string
	Attrs []html.Attribute
	// Data holds text as it travels on the wire: HTML-encoded.
	Data     string
	Children []*Node

	// Value and Checked are the live input state, seeded from the
	// attributes and changed by SetValue/SetChecked deltas or user input.
	Value   string
	Checked bool

	parent *Node
}

func (n *Node) Parent() *Node { return n.parent }

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) ID() string {
	id, _ := n.Attr("id")
	return id
}

func (n *Node) setAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Key == name {
			n.Attrs[i].Val = value
			return
		}
	}
	n.Attrs = append(n.Attrs, html.Attribute{Key: name, Val: value})
}

func (n *Node) removeAttr(name string) {
	n.Attrs = slices.DeleteFunc(n.Attrs, func(a html.Attribute) bool { return a.Key == name })
}

// InnerText returns the decoded text of every descendant text node.
func (n *Node) InnerText() string {
	var b strings.Builder
	var visit func(*Node)
	visit = func(x *Node) {
		if x.Kind == TextNode {
			b.WriteString(html.UnescapeString(x.Data))
		}
		for _, c := range x.Children {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// OuterHTML renders n.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	_ = html.Render(&b, n.toHTML())
	return b.String()
}

func (n *Node) toHTML() *html.Node {
	switch n.Kind {
	case TextNode:
		return &html.Node{Type: html.RawNode, Data: n.Data}
	case PlaceholderNode:
		return &html.Node{Type: html.CommentNode}
	}
	hn := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	for _, a := range n.Attrs {
		if isInput(n.Tag) && (a.Key == "value" || a.Key == "checked") {
			continue
		}
		hn.Attr = append(hn.Attr, a)
	}
	if isInput(n.Tag) {
		if n.Value != "" {
			hn.Attr = append(hn.Attr, html.Attribute{Key: "value", Val: n.Value})
		}
		if n.Checked {
			hn.Attr = append(hn.Attr, html.Attribute{Key: "checked"})
		}
	}
	for _, c := range n.Children {
		hn.AppendChild(c.toHTML())
	}
	return hn
}

func isInput(tag string) bool {
	switch tag {
	case "input", "textarea", "select", "option":
		return true
	}
	return false
}

func isCheckable(n *Node) bool {
	if n.Tag != "input" {
		return false
	}
	t, _ := n.Attr("type")
	return t == "checkbox" || t == "radio"
}

// Mirror is the client-side copy of a Document together with the client
// behaviour the server asked for. It is not synchronised; Applier and Client
// serialise access.
type Mirror struct {
	root         *Node
	ids          map[string]*Node
	focused      string
	subs         map[string]map[string]delta.Subscribe
	serverEvents bool
	location     string
	scripts      []delta.SubmitJS
}

// NewMirror returns a mirror rooted at a single element, for tests and tools
// that track a fragment rather than a page.
func NewMirror(tag, id string) *Mirror {
	root := &Node{Kind: ElementNode, Tag: tag}
	if id != "" {
		root.Attrs = []html.Attribute{{Key: "id", Val: id}}
	}
	m := &Mirror{subs: make(map[string]map[string]delta.Subscribe), ids: make(map[string]*Node)}
	m.root = root
	m.index(root)
	return m
}

// ParseMirror builds a mirror from a served page. Attributes on <head> that
// start with "data-domsync-" are returned separately and left out of the
// mirror. When the page embeds its tree the mirror is built from that tree,
// since the HTML parser reshapes some markup (tables gain a tbody, adjacent
// text nodes merge).
func ParseMirror(r io.Reader) (*Mirror, map[string]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("client: parse page: %w", err)
	}
	var htmlNode *html.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			htmlNode = c
			break
		}
	}
	if htmlNode == nil {
		return nil, nil, fmt.Errorf("client: page has no html element")
	}

	meta := make(map[string]string)
	for c := htmlNode.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom != atom.Head {
			continue
		}
		kept := c.Attr[:0]
		for _, a := range c.Attr {
			if strings.HasPrefix(a.Key, "data-domsync-") {
				meta[a.Key] = a.Val
				continue
			}
			kept = append(kept, a)
		}
		c.Attr = kept
	}

	m := &Mirror{subs: make(map[string]map[string]delta.Subscribe), ids: make(map[string]*Node)}
	if raw, ok := meta[transport.AttrContent]; ok {
		delete(meta, transport.AttrContent)
		tree, err := delta.UnmarshalContent([]byte(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("client: page tree: %w", err)
		}
		if tree.Type != delta.ContentElement {
			return nil, nil, fmt.Errorf("client: page tree is not an element")
		}
		m.root = fromContent(tree)
	} else {
		m.root = fromHTML(htmlNode, false)
	}
	m.index(m.root)
	return m, meta, nil
}

func fromHTML(hn *html.Node, rawText bool) *Node {
	switch hn.Type {
	case html.TextNode:
		if rawText {
			return &Node{Kind: TextNode, Data: hn.Data}
		}
		return &Node{Kind: TextNode, Data: html.EscapeString(hn.Data)}
	case html.CommentNode:
		return &Node{Kind: PlaceholderNode}
	case html.ElementNode:
		n := &Node{Kind: ElementNode, Tag: hn.Data, Attrs: slices.Clone(hn.Attr)}
		n.seedState()
		raw := hn.DataAtom == atom.Script || hn.DataAtom == atom.Style
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if child := fromHTML(c, raw); child != nil {
				child.parent = n
				n.Children = append(n.Children, child)
			}
		}
		return n
	}
	return nil
}

func fromContent(c delta.ContentNode) *Node {
	switch c.Type {
	case delta.ContentText:
		return &Node{Kind: TextNode, Data: c.Data}
	case delta.ContentPlaceholder:
		return &Node{Kind: PlaceholderNode}
	}
	n := &Node{Kind: ElementNode, Tag: c.TagName}
	for _, a := range c.Attributes {
		n.Attrs = append(n.Attrs, html.Attribute{Key: a.Attribute, Val: a.Value})
	}
	n.seedState()
	for _, cc := range c.Children {
		child := fromContent(cc)
		child.parent = n
		n.Children = append(n.Children, child)
	}
	return n
}

func (n *Node) seedState() {
	n.Value, _ = n.Attr("value")
	_, n.Checked = n.Attr("checked")
}

func (m *Mirror) index(n *Node) {
	if n.Kind == ElementNode {
		if id := n.ID(); id != "" {
			m.ids[id] = n
		}
	}
	for _, c := range n.Children {
		m.index(c)
	}
}

func (m *Mirror) unindex(n *Node) {
	if n.Kind == ElementNode {
		if id := n.ID(); id != "" && m.ids[id] == n {
			delete(m.ids, id)
			delete(m.subs, id)
			if m.focused == id {
				m.focused = ""
			}
		}
	}
	for _, c := range n.Children {
		m.unindex(c)
	}
}

func (m *Mirror) Root() *Node { return m.root }

// ElementByID returns the mirrored element carrying id.
func (m *Mirror) ElementByID(id string) (*Node, bool) {
	n, ok := m.ids[id]
	return n, ok
}

// Body returns the body element of a page mirror.
func (m *Mirror) Body() *Node {
	for _, c := range m.root.Children {
		if c.Kind == ElementNode && c.Tag == "body" {
			return c
		}
	}
	return nil
}

// Focused returns the id of the element last focused by the server.
func (m *Mirror) Focused() string { return m.focused }

// ServerEvents reports whether the server asked for a push channel.
func (m *Mirror) ServerEvents() bool { return m.serverEvents }

// Location returns the last navigation target sent by the server.
func (m *Mirror) Location() string { return m.location }

// Scripts returns the scripts submitted so far, oldest first.
func (m *Mirror) Scripts() []delta.SubmitJS { return slices.Clone(m.scripts) }

// Subscription returns how the server wants event on id to be sent.
func (m *Mirror) Subscription(id, event string) (delta.Subscribe, bool) {
	s, ok := m.subs[id][event]
	return s, ok
}

// Subscriptions lists the events subscribed on id, sorted by name.
func (m *Mirror) Subscriptions(id string) []string {
	var names []string
	for name := range m.subs[id] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetValue changes an input value the way a user typing would: no delta,
// sent with the next event.
func (m *Mirror) SetValue(id, value string) error {
	n, ok := m.ids[id]
	if !ok {
		return fmt.Errorf("client: no element %q", id)
	}
	n.Value = value
	return nil
}

// SetChecked ticks or clears a checkbox or radio button.
func (m *Mirror) SetChecked(id string, on bool) error {
	n, ok := m.ids[id]
	if !ok {
		return fmt.Errorf("client: no element %q", id)
	}
	n.Checked = on
	return nil
}

// Values collects the input state sent with every event: the value of each
// input element and the checked state of checkboxes and radio buttons.
func (m *Mirror) Values() map[string]string {
	out := make(map[string]string)
	for id, n := range m.ids {
		if !isInput(n.Tag) || n.Tag == "option" {
			continue
		}
		if isCheckable(n) {
			out[id+"#checked"] = fmt.Sprint(n.Checked)
			continue
		}
		out[id] = n.Value
	}
	return out
}

// Render writes the mirror as an HTML page.
func (m *Mirror) Render(w io.Writer) error {
	if m.root.Tag == "html" {
		if _, err := io.WriteString(w, "<!DOCTYPE html>"); err != nil {
			return err
		}
	}
	return html.Render(w, m.root.toHTML())
}

// HTML returns the rendered mirror.
func (m *Mirror) HTML() string {
	var b strings.Builder
	_ = m.Render(&b)
	return b.String()
}
