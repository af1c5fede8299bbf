package delta

// Delta is one change record. The set of implementations is closed: every
// delta is one of the concrete types in this file.
type Delta interface {
	DeltaType() Type
	isDelta()
}

type Append struct {
	Type     Type        `json:"Type"`
	ParentID string      `json:"ParentId"`
	Node     ContentNode `json:"Node"`
}

type Insert struct {
	Type            Type        `json:"Type"`
	ParentElementID string      `json:"ParentElementId"`
	Index           int         `json:"Index"`
	ContentNode     ContentNode `json:"ContentNode"`
}

// TextModified replaces the data of the text child at ChildNodeIndex. An index
// equal to the parent's child count appends a new text node.
type TextModified struct {
	Type            Type   `json:"Type"`
	ParentElementID string `json:"ParentElementId"`
	ChildNodeIndex  int    `json:"ChildNodeIndex"`
	Text            string `json:"Text"`
}

type Remove struct {
	Type       Type   `json:"Type"`
	ParentID   string `json:"ParentId"`
	ChildIndex int    `json:"ChildIndex"`
}

type AttributeEdited struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
	Attribute string `json:"Attribute"`
	Value     string `json:"Value"`
}

type AttributeRemoved struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
	Attribute string `json:"Attribute"`
}

type Focus struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
}

type SetID struct {
	Type  Type   `json:"Type"`
	OldID string `json:"OldId"`
	NewID string `json:"NewId"`
}

type SetValue struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
	Value     string `json:"Value"`
}

type SubmitJS struct {
	Type    Type   `json:"Type"`
	Code    string `json:"Code"`
	Payload string `json:"Payload,omitempty"`
}

type SetChecked struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
	Checked   bool   `json:"Checked"`
}

type ClearChildren struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
}

// Replace navigates the client to Location.
type Replace struct {
	Type     Type   `json:"Type"`
	Location string `json:"Location"`
}

// ServerEvents asks the client to open the server-push channel.
type ServerEvents struct {
	Type Type `json:"Type"`
}

type SwapChildren struct {
	Type     Type   `json:"Type"`
	ParentID string `json:"ParentId"`
	Index1   int    `json:"Index1"`
	Index2   int    `json:"Index2"`
}

type Subscribe struct {
	Type             Type        `json:"Type"`
	ElementID        string      `json:"ElementId"`
	Settings         PlugOptions `json:"Settings"`
	DebounceInterval int         `json:"DebounceInterval,omitempty"`
	EvalFilter       string      `json:"EvalFilter,omitempty"`
}

type Unsubscribe struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
	EventName string `json:"EventName"`
}

// RemoveElement removes the element with ElementID from wherever it sits.
type RemoveElement struct {
	Type      Type   `json:"Type"`
	ElementID string `json:"ElementId"`
}

// Render replaces the node addressed by Locator with Node.
type Render struct {
	Type    Type        `json:"Type"`
	Locator Locator     `json:"Locator"`
	Node    ContentNode `json:"Node"`
}

// UnRender replaces the node addressed by Locator with an empty placeholder.
type UnRender struct {
	Type    Type    `json:"Type"`
	Locator Locator `json:"Locator"`
}

func (Append) DeltaType() Type           { return TypeAppend }
func (Insert) DeltaType() Type           { return TypeInsert }
func (TextModified) DeltaType() Type     { return TypeTextModified }
func (Remove) DeltaType() Type           { return TypeRemove }
func (AttributeEdited) DeltaType() Type  { return TypeAttributeEdited }
func (AttributeRemoved) DeltaType() Type { return TypeAttributeRemoved }
func (Focus) DeltaType() Type            { return TypeFocus }
func (SetID) DeltaType() Type            { return TypeSetID }
func (SetValue) DeltaType() Type         { return TypeSetValue }
func (SubmitJS) DeltaType() Type         { return TypeSubmitJS }
func (SetChecked) DeltaType() Type       { return TypeSetChecked }
func (ClearChildren) DeltaType() Type    { return TypeClearChildren }
func (Replace) DeltaType() Type          { return TypeReplace }
func (ServerEvents) DeltaType() Type     { return TypeServerEvents }
func (SwapChildren) DeltaType() Type     { return TypeSwapChildren }
func (Subscribe) DeltaType() Type        { return TypeSubscribe }
func (Unsubscribe) DeltaType() Type      { return TypeUnsubscribe }
func (RemoveElement) DeltaType() Type    { return TypeRemoveElement }
func (Render) DeltaType() Type           { return TypeRender }
func (UnRender) DeltaType() Type         { return TypeUnRender }

func (Append) isDelta()           {}
func (Insert) isDelta()           {}
func (TextModified) isDelta()     {}
func (Remove) isDelta()           {}
func (AttributeEdited) isDelta()  {}
func (AttributeRemoved) isDelta() {}
func (Focus) isDelta()            {}
func (SetID) isDelta()            {}
func (SetValue) isDelta()         {}
func (SubmitJS) isDelta()         {}
func (SetChecked) isDelta()       {}
func (ClearChildren) isDelta()    {}
func (Replace) isDelta()          {}
func (ServerEvents) isDelta()     {}
func (SwapChildren) isDelta()     {}
func (Subscribe) isDelta()        {}
func (Unsubscribe) isDelta()      {}
func (RemoveElement) isDelta()    {}
func (Render) isDelta()           {}
func (UnRender) isDelta()         {}

// Constructors stamp the wire discriminant. Deltas are values and are never
// mutated once built.

func NewAppend(parentID string, node ContentNode) Append {
	return Append{Type: TypeAppend, ParentID: parentID, Node: node}
}

func NewInsert(parentID string, index int, node ContentNode) Insert {
	return Insert{Type: TypeInsert, ParentElementID: parentID, Index: index, ContentNode: node}
}

func NewTextModified(parentID string, index int, text string) TextModified {
	return TextModified{Type: TypeTextModified, ParentElementID: parentID, ChildNodeIndex: index, Text: text}
}

func NewRemove(parentID string, index int) Remove {
	return Remove{Type: TypeRemove, ParentID: parentID, ChildIndex: index}
}

func NewAttributeEdited(elementID, attr, value string) AttributeEdited {
	return AttributeEdited{Type: TypeAttributeEdited, ElementID: elementID, Attribute: attr, Value: value}
}

func NewAttributeRemoved(elementID, attr string) AttributeRemoved {
	return AttributeRemoved{Type: TypeAttributeRemoved, ElementID: elementID, Attribute: attr}
}

func NewFocus(elementID string) Focus {
	return Focus{Type: TypeFocus, ElementID: elementID}
}

func NewSetID(oldID, newID string) SetID {
	return SetID{Type: TypeSetID, OldID: oldID, NewID: newID}
}

func NewSetValue(elementID, value string) SetValue {
	return SetValue{Type: TypeSetValue, ElementID: elementID, Value: value}
}

func NewSubmitJS(code, payload string) SubmitJS {
	return SubmitJS{Type: TypeSubmitJS, Code: code, Payload: payload}
}

func NewSetChecked(elementID string, checked bool) SetChecked {
	return SetChecked{Type: TypeSetChecked, ElementID: elementID, Checked: checked}
}

func NewClearChildren(elementID string) ClearChildren {
	return ClearChildren{Type: TypeClearChildren, ElementID: elementID}
}

func NewReplace(location string) Replace {
	return Replace{Type: TypeReplace, Location: location}
}

func NewServerEvents() ServerEvents {
	return ServerEvents{Type: TypeServerEvents}
}

func NewSwapChildren(parentID string, index1, index2 int) SwapChildren {
	return SwapChildren{Type: TypeSwapChildren, ParentID: parentID, Index1: index1, Index2: index2}
}

func NewSubscribe(elementID string, settings PlugOptions) Subscribe {
	return Subscribe{Type: TypeSubscribe, ElementID: elementID, Settings: settings}
}

func NewUnsubscribe(elementID, eventName string) Unsubscribe {
	return Unsubscribe{Type: TypeUnsubscribe, ElementID: elementID, EventName: eventName}
}

func NewRemoveElement(elementID string) RemoveElement {
	return RemoveElement{Type: TypeRemoveElement, ElementID: elementID}
}

func NewRender(loc Locator, node ContentNode) Render {
	return Render{Type: TypeRender, Locator: loc, Node: node}
}

func NewUnRender(loc Locator) UnRender {
	return UnRender{Type: TypeUnRender, Locator: loc}
}
