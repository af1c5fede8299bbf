package client

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hazyhaar/domsync/delta"
)

// ErrMissingNode is wrapped by ApplyError when a delta addresses a node the
// mirror does not have.
var ErrMissingNode = errors.New("client: node not in mirror")

// ApplyError reports the delta that could not be applied. The mirror keeps
// the effects of every delta before it.
type ApplyError struct {
	Index int
	Delta delta.Delta
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("client: apply delta %d (%s): %v", e.Index, e.Delta.DeltaType(), e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Applier applies delta lists to a Mirror, one list at a time.
type Applier struct {
	mu sync.Mutex
	m  *Mirror

	// OnScript runs for each SubmitJS delta.
	OnScript func(delta.SubmitJS)
	// OnNavigate runs for each Replace delta.
	OnNavigate func(location string)
	// OnServerEvents runs when the server asks for a push channel.
	OnServerEvents func()
}

func NewApplier(m *Mirror) *Applier { return &Applier{m: m} }

func (a *Applier) Mirror() *Mirror { return a.m }

// Apply applies list in order and stops at the first delta that does not
// fit the mirror.
func (a *Applier) Apply(list []delta.Delta) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, d := range list {
		if err := a.apply(d); err != nil {
			return &ApplyError{Index: i, Delta: d, Err: err}
		}
	}
	return nil
}

// With runs fn with exclusive access to the mirror.
func (a *Applier) With(fn func(m *Mirror)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.m)
}

func (a *Applier) apply(d delta.Delta) error {
	m := a.m
	switch d := d.(type) {
	case delta.Append:
		p, err := m.element(d.ParentID)
		if err != nil {
			return err
		}
		return m.insert(p, len(p.Children), fromContent(d.Node))
	case delta.Insert:
		p, err := m.element(d.ParentElementID)
		if err != nil {
			return err
		}
		return m.insert(p, d.Index, fromContent(d.ContentNode))
	case delta.TextModified:
		p, err := m.element(d.ParentElementID)
		if err != nil {
			return err
		}
		if d.ChildNodeIndex == len(p.Children) {
			return m.insert(p, d.ChildNodeIndex, &Node{Kind: TextNode, Data: d.Text})
		}
		c, err := child(p, d.ChildNodeIndex)
		if err != nil {
			return err
		}
		if c.Kind != TextNode {
			return fmt.Errorf("child %d of %q is not text", d.ChildNodeIndex, d.ParentElementID)
		}
		c.Data = d.Text
	case delta.Remove:
		p, err := m.element(d.ParentID)
		if err != nil {
			return err
		}
		if _, err := child(p, d.ChildIndex); err != nil {
			return err
		}
		m.detach(p, d.ChildIndex)
	case delta.AttributeEdited:
		el, err := m.element(d.ElementID)
		if err != nil {
			return err
		}
		el.setAttr(d.Attribute, d.Value)
	case delta.AttributeRemoved:
		el, err := m.element(d.ElementID)
		if err != nil {
			return err
		}
		el.removeAttr(d.Attribute)
	case delta.Focus:
		if _, err := m.element(d.ElementID); err != nil {
			return err
		}
		m.focused = d.ElementID
	case delta.SetID:
		el, err := m.element(d.OldID)
		if err != nil {
			return err
		}
		if other, taken := m.ids[d.NewID]; taken && other != el {
			return fmt.Errorf("id %q already in mirror", d.NewID)
		}
		delete(m.ids, d.OldID)
		el.setAttr("id", d.NewID)
		m.ids[d.NewID] = el
		if subs, ok := m.subs[d.OldID]; ok {
			delete(m.subs, d.OldID)
			m.subs[d.NewID] = subs
		}
		if m.focused == d.OldID {
			m.focused = d.NewID
		}
	case delta.SetValue:
		el, err := m.element(d.ElementID)
		if err != nil {
			return err
		}
		el.Value = d.Value
	case delta.SubmitJS:
		m.scripts = append(m.scripts, d)
		if a.OnScript != nil {
			a.OnScript(d)
		}
	case delta.SetChecked:
		el, err := m.element(d.ElementID)
		if err != nil {
			return err
		}
		el.Checked = d.Checked
	case delta.ClearChildren:
		el, err := m.element(d.ElementID)
		if err != nil {
			return err
		}
		for _, c := range el.Children {
			m.unindex(c)
			c.parent = nil
		}
		el.Children = nil
	case delta.Replace:
		m.location = d.Location
		if a.OnNavigate != nil {
			a.OnNavigate(d.Location)
		}
	case delta.ServerEvents:
		m.serverEvents = true
		if a.OnServerEvents != nil {
			a.OnServerEvents()
		}
	case delta.SwapChildren:
		p, err := m.element(d.ParentID)
		if err != nil {
			return err
		}
		if _, err := child(p, d.Index1); err != nil {
			return err
		}
		if _, err := child(p, d.Index2); err != nil {
			return err
		}
		p.Children[d.Index1], p.Children[d.Index2] = p.Children[d.Index2], p.Children[d.Index1]
	case delta.Subscribe:
		if _, err := m.element(d.ElementID); err != nil {
			return err
		}
		if m.subs[d.ElementID] == nil {
			m.subs[d.ElementID] = make(map[string]delta.Subscribe)
		}
		m.subs[d.ElementID][d.Settings.EventName] = d
	case delta.Unsubscribe:
		delete(m.subs[d.ElementID], d.EventName)
	case delta.RemoveElement:
		el, err := m.element(d.ElementID)
		if err != nil {
			return err
		}
		p := el.parent
		if p == nil {
			return fmt.Errorf("cannot remove root %q", d.ElementID)
		}
		m.detach(p, slices.Index(p.Children, el))
	case delta.Render:
		return m.replaceAt(d.Locator, fromContent(d.Node))
	case delta.UnRender:
		return m.replaceAt(d.Locator, &Node{Kind: PlaceholderNode})
	default:
		return fmt.Errorf("unsupported delta type %d", d.DeltaType())
	}
	return nil
}

func (m *Mirror) element(id string) (*Node, error) {
	n, ok := m.ids[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingNode, id)
	}
	return n, nil
}

func child(p *Node, index int) (*Node, error) {
	if index < 0 || index >= len(p.Children) {
		return nil, fmt.Errorf("%w: child %d of %q (has %d)", ErrMissingNode, index, p.ID(), len(p.Children))
	}
	return p.Children[index], nil
}

func (m *Mirror) insert(p *Node, index int, n *Node) error {
	if index < 0 || index > len(p.Children) {
		return fmt.Errorf("index %d out of range for %q (has %d)", index, p.ID(), len(p.Children))
	}
	n.parent = p
	p.Children = slices.Insert(p.Children, index, n)
	m.index(n)
	return nil
}

func (m *Mirror) detach(p *Node, index int) {
	c := p.Children[index]
	p.Children = slices.Delete(p.Children, index, index+1)
	c.parent = nil
	m.unindex(c)
}

// replaceAt swaps the node addressed by loc for n.
func (m *Mirror) replaceAt(loc delta.Locator, n *Node) error {
	target, err := m.element(loc.StartingID)
	if err != nil {
		return err
	}
	var p *Node
	var index int
	if loc.ChildIndex != nil {
		if _, err := child(target, *loc.ChildIndex); err != nil {
			return err
		}
		p, index = target, *loc.ChildIndex
	} else {
		p = target.parent
		if p == nil {
			return fmt.Errorf("cannot replace root %q", loc.StartingID)
		}
		index = slices.Index(p.Children, target)
	}
	m.detach(p, index)
	return m.insert(p, index, n)
}
