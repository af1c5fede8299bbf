package dom

import "strings"

// Builder appends nested markup under an element with a push/pop cursor.
// The first error sticks and turns later calls into no-ops.
//
//	b := dom.NewBuilder(doc.Body())
//	b.Push("div", "class", "row").Push("button", "id", "inc").Text("+").On("click", h).Pop().Pop()
//	if err := b.Err(); err != nil { ... }
type Builder struct {
	stack []*Element
	err   error
}

func NewBuilder(root *Element) *Builder {
	return &Builder{stack: []*Element{root}}
}

// Current returns the element under the cursor.
func (b *Builder) Current() *Element { return b.stack[len(b.stack)-1] }

func (b *Builder) Err() error { return b.err }

// Push appends a new element and moves the cursor into it. attrs are
// name/value pairs; "id" sets the identifier.
func (b *Builder) Push(tag string, attrs ...string) *Builder {
	if b.err != nil {
		return b
	}
	el := NewElement(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == "id" {
			el.id = attrs[i+1]
		} else {
			el.putAttr(strings.ToLower(attrs[i]), attrs[i+1])
		}
	}
	if err := b.Current().AppendChild(el); err != nil {
		b.err = err
		return b
	}
	b.stack = append(b.stack, el)
	return b
}

// Pop moves the cursor back to the parent. The root is never popped.
func (b *Builder) Pop() *Builder {
	if len(b.stack) > 1 {
		b.stack = b.stack[:len(b.stack)-1]
	}
	return b
}

// Text appends a text node to the current element.
func (b *Builder) Text(s string) *Builder {
	if b.err == nil {
		b.err = b.Current().AppendText(s)
	}
	return b
}

// Attr sets an attribute on the current element.
func (b *Builder) Attr(name, value string) *Builder {
	if b.err == nil {
		b.err = b.Current().SetAttribute(name, value)
	}
	return b
}

// On subscribes h on the current element.
func (b *Builder) On(name string, h Handler) *Builder {
	if b.err == nil {
		b.Current().On(name, h)
	}
	return b
}
