// Package dom is the server-side document model. Every mutation made while
// a document is recording appends a delta describing it, so the client can
// replay the same change on its mirror.
package dom

import (
	"weak"

	"github.com/hazyhaar/domsync/delta"
)

// Node is an Element or a Text. The interface is sealed.
type Node interface {
	Parent() *Element
	Document() *Document
	link() *links
}

// links holds the non-owning back references of a node. Children are owned
// by their parent's slice and the root by its Document.
type links struct {
	parent weak.Pointer[Element]
	doc    weak.Pointer[Document]
}

// Parent returns the parent element, or nil for a detached node.
func (l *links) Parent() *Element { return l.parent.Value() }

// Document returns the owning document, or nil for a node outside any tree.
func (l *links) Document() *Document { return l.doc.Value() }

func (l *links) link() *links { return l }

func (l *links) setParent(p *Element) {
	if p == nil {
		l.parent = weak.Pointer[Element]{}
		return
	}
	l.parent = weak.Make(p)
}

func (l *links) setDocument(d *Document) {
	if d == nil {
		l.doc = weak.Pointer[Document]{}
		return
	}
	l.doc = weak.Make(d)
}

// walk visits n and its descendants depth first.
func walk(n Node, fn func(Node)) {
	fn(n)
	if el, ok := n.(*Element); ok {
		for _, c := range el.children {
			walk(c, fn)
		}
	}
}

// contentOf serialises n for Append, Insert and Render deltas. Unrendered
// elements travel as placeholders.
func contentOf(n Node) delta.ContentNode {
	switch n := n.(type) {
	case *Text:
		return delta.ContentNode{Type: delta.ContentText, Data: n.data}
	case *Element:
		if n.unrendered {
			return delta.ContentNode{Type: delta.ContentPlaceholder}
		}
		c := delta.ContentNode{Type: delta.ContentElement, TagName: n.tag}
		if n.id != "" {
			c.Attributes = append(c.Attributes, delta.ContentAttribute{Attribute: "id", Value: n.id})
		}
		for _, a := range n.attrs {
			c.Attributes = append(c.Attributes, delta.ContentAttribute{Attribute: a.Name, Value: a.Value})
		}
		for _, ch := range n.children {
			c.Children = append(c.Children, contentOf(ch))
		}
		return c
	}
	return delta.ContentNode{}
}

// Content returns the serialized form of n as carried by deltas.
func Content(n Node) delta.ContentNode { return contentOf(n) }
