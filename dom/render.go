package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Render writes the document as a complete HTML page. headAttrs are added to
// the rendered head element only; the tree is not modified.
func (d *Document) Render(w io.Writer, headAttrs ...html.Attribute) error {
	root := toHTML(d.root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Head {
			c.Attr = append(c.Attr, headAttrs...)
			break
		}
	}
	if _, err := io.WriteString(w, "<!DOCTYPE html>"); err != nil {
		return err
	}
	return html.Render(w, root)
}

// RenderNode writes n as HTML.
func RenderNode(w io.Writer, n Node) error {
	return html.Render(w, toHTML(n))
}

// OuterHTML returns e rendered as HTML.
func (e *Element) OuterHTML() string {
	var b strings.Builder
	_ = RenderNode(&b, e)
	return b.String()
}

// InnerHTML returns the children of e rendered as HTML.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	for _, c := range e.children {
		_ = RenderNode(&b, c)
	}
	return b.String()
}

// toHTML converts n to an x/net/html tree. Text data is already encoded, so
// it travels as a raw node. Unrendered elements become empty comments.
func toHTML(n Node) *html.Node {
	switch n := n.(type) {
	case *Text:
		return &html.Node{Type: html.RawNode, Data: n.data}
	case *Element:
		if n.unrendered {
			return &html.Node{Type: html.CommentNode}
		}
		hn := &html.Node{
			Type:     html.ElementNode,
			Data:     n.tag,
			DataAtom: atom.Lookup([]byte(n.tag)),
		}
		if n.id != "" {
			hn.Attr = append(hn.Attr, html.Attribute{Key: "id", Val: n.id})
		}
		for _, a := range n.attrs {
			hn.Attr = append(hn.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
		for _, c := range n.children {
			hn.AppendChild(toHTML(c))
		}
		return hn
	}
	return &html.Node{Type: html.CommentNode}
}
