package dom

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ugcPolicy = bluemonday.UGCPolicy()

// SanitizeHTML strips markup unsafe to show to other users.
func SanitizeHTML(fragment string) string {
	return ugcPolicy.Sanitize(fragment)
}

// ParseHTML parses a body fragment into detached nodes. Comments are
// dropped. The input is trusted; see SanitizeHTML.
func ParseHTML(fragment string) ([]Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	var out []Node
	for _, hn := range parsed {
		if n := fromHTML(hn); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func fromHTML(hn *html.Node) Node {
	switch hn.Type {
	case html.TextNode:
		return NewText(hn.Data)
	case html.ElementNode:
		el := NewElement(hn.Data)
		for _, a := range hn.Attr {
			if a.Namespace != "" {
				continue
			}
			if a.Key == "id" {
				el.id = a.Val
				continue
			}
			el.putAttr(strings.ToLower(a.Key), a.Val)
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if n := fromHTML(c); n != nil {
				el.children = append(el.children, n)
				n.link().setParent(el)
			}
		}
		return el
	}
	return nil
}

// AppendHTML sanitises fragment and appends the resulting nodes.
func (e *Element) AppendHTML(fragment string) error {
	return e.AppendTrustedHTML(SanitizeHTML(fragment))
}

// AppendTrustedHTML appends the nodes of fragment without sanitising it.
// Identifiers are validated for the whole fragment before anything is
// appended.
func (e *Element) AppendTrustedHTML(fragment string) error {
	nodes, err := ParseHTML(fragment)
	if err != nil {
		return err
	}
	if d := e.Document(); d != nil {
		holder := &Element{tag: "template", children: nodes}
		if err := d.checkIDs(holder, nil); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		if err := e.AppendChild(n); err != nil {
			return err
		}
	}
	return nil
}
