package dom

import (
	"slices"
	"strings"

	"github.com/hazyhaar/domsync/delta"
)

// Attribute returns the value of name. The id is not an attribute here; use
// ID.
func (e *Element) Attribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *Element) HasAttribute(name string) bool {
	_, ok := e.Attribute(name)
	return ok
}

// Attributes returns a copy of the attributes in insertion order.
func (e *Element) Attributes() []Attr { return slices.Clone(e.attrs) }

// SetAttribute writes name=value. Writing the current value records nothing.
// id goes through SetID, value records SetValue and checked records
// SetChecked.
func (e *Element) SetAttribute(name, value string) error {
	name = strings.ToLower(name)
	switch name {
	case "id":
		return e.SetID(value)
	case "checked":
		e.SetChecked(true)
		return nil
	}
	if cur, ok := e.Attribute(name); ok && cur == value {
		return nil
	}
	e.putAttr(name, value)
	if rec := e.recorder(); rec != nil {
		if name == "value" {
			rec.record(delta.NewSetValue(e.id, value))
		} else {
			rec.record(delta.NewAttributeEdited(e.id, name, value))
		}
	}
	return nil
}

// RemoveAttribute deletes name. Removing an absent attribute records
// nothing.
func (e *Element) RemoveAttribute(name string) error {
	name = strings.ToLower(name)
	switch name {
	case "id":
		return e.ClearID()
	case "checked":
		e.SetChecked(false)
		return nil
	}
	if !e.dropAttr(name) {
		return nil
	}
	if rec := e.recorder(); rec != nil {
		rec.record(delta.NewAttributeRemoved(e.id, name))
	}
	return nil
}

// SetFlagAttribute adds or removes a boolean attribute such as disabled.
func (e *Element) SetFlagAttribute(name string, on bool) error {
	if !on {
		return e.RemoveAttribute(name)
	}
	if e.HasAttribute(name) {
		return nil
	}
	return e.SetAttribute(name, "")
}

// Value returns the value attribute.
func (e *Element) Value() string {
	v, _ := e.Attribute("value")
	return v
}

func (e *Element) SetValue(v string) {
	_ = e.SetAttribute("value", v)
}

func (e *Element) Checked() bool { return e.HasAttribute("checked") }

func (e *Element) SetChecked(on bool) {
	if e.Checked() == on {
		return
	}
	if on {
		e.putAttr("checked", "")
	} else {
		e.dropAttr("checked")
	}
	if rec := e.recorder(); rec != nil {
		rec.record(delta.NewSetChecked(e.id, on))
	}
}

// notifyValue and notifyChecked store state reported by the client. The
// client already shows it, so nothing is recorded.
func (e *Element) notifyValue(v string) { e.putAttr("value", v) }

func (e *Element) notifyChecked(on bool) {
	if on {
		e.putAttr("checked", "")
	} else {
		e.dropAttr("checked")
	}
}

func (e *Element) putAttr(name, value string) {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
}

func (e *Element) dropAttr(name string) bool {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs = slices.Delete(e.attrs, i, i+1)
			return true
		}
	}
	return false
}

// SetID changes the identifier. On an attached element the new id must not
// belong to another element; the check happens before anything changes.
func (e *Element) SetID(id string) error {
	if id == e.id {
		return nil
	}
	d := e.Document()
	if d == nil {
		e.id = id
		return nil
	}
	if id == "" {
		return e.ClearID()
	}
	if other, ok := d.ids[id]; ok && other != e {
		return &DuplicateIDError{ID: id}
	}
	old := e.id
	d.changeID(e, old, id)
	if rec := e.recorder(); rec != nil {
		rec.record(delta.NewSetID(old, id))
	}
	return nil
}

// ClearID drops a user-chosen id. Attached elements always carry an id, so
// they receive a generated one instead.
func (e *Element) ClearID() error {
	d := e.Document()
	if d == nil {
		e.id = ""
		return nil
	}
	return e.SetID(d.newID())
}
