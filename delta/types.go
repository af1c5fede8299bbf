// Package delta defines the change records exchanged between a server-side
// document and its client mirror, the per-document delta log, and the
// EventResult envelope that carries them.
package delta

import "fmt"

// Type is the wire discriminant of a delta. Values are fixed by the client
// protocol and must never be renumbered.
type Type int

const (
	TypeAppend           Type = 1
	TypeInsert           Type = 2
	TypeTextModified     Type = 3
	TypeRemove           Type = 4
	TypeAttributeEdited  Type = 5
	TypeAttributeRemoved Type = 6
	TypeFocus            Type = 7
	TypeSetID            Type = 8
	TypeSetValue         Type = 9
	TypeSubmitJS         Type = 10
	TypeSetChecked       Type = 11
	TypeClearChildren    Type = 12
	TypeReplace          Type = 13
	TypeServerEvents     Type = 14
	TypeSwapChildren     Type = 15
	TypeSubscribe        Type = 16
	TypeUnsubscribe      Type = 17
	TypeRemoveElement    Type = 18
	TypeRender           Type = 19
	TypeUnRender         Type = 20
)

var typeNames = map[Type]string{
	TypeAppend:           "Append",
	TypeInsert:           "Insert",
	TypeTextModified:     "TextModified",
	TypeRemove:           "Remove",
	TypeAttributeEdited:  "EditAttribute",
	TypeAttributeRemoved: "RemoveAttribute",
	TypeFocus:            "Focus",
	TypeSetID:            "SetId",
	TypeSetValue:         "SetValue",
	TypeSubmitJS:         "SubmitJS",
	TypeSetChecked:       "SetChecked",
	TypeClearChildren:    "ClearChildren",
	TypeReplace:          "Replace",
	TypeServerEvents:     "ServerEvents",
	TypeSwapChildren:     "SwapChildren",
	TypeSubscribe:        "Subscribe",
	TypeUnsubscribe:      "Unsubscribe",
	TypeRemoveElement:    "RemoveElementId",
	TypeRender:           "Render",
	TypeUnRender:         "UnRender",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known discriminant.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ResultType is the outcome of one event cycle.
type ResultType int

const (
	Success       ResultType = 0
	NoSession     ResultType = 1
	NoElement     ResultType = 2
	OutOfSequence ResultType = 3
)

func (r ResultType) String() string {
	switch r {
	case Success:
		return "Success"
	case NoSession:
		return "NoSession"
	case NoElement:
		return "NoElement"
	case OutOfSequence:
		return "OutOfSequence"
	}
	return fmt.Sprintf("ResultType(%d)", int(r))
}

// Propagation controls DOM event propagation on the client.
type Propagation int

const (
	PropagationPropagate       Propagation = 0
	PropagationStopImmediately Propagation = 1
	PropagationStopPropagation Propagation = 2
)

// PlugOptions describes how the client wires one subscribed DOM event.
type PlugOptions struct {
	EventName      string      `json:"EventName"`
	Block          bool        `json:"Block,omitempty"`
	BlockElementID string      `json:"BlockElementId,omitempty"`
	BlockHTML      string      `json:"BlockHTML,omitempty"`
	BlockShownID   string      `json:"BlockShownId,omitempty"`
	ExtraData      string      `json:"ExtraData,omitempty"`
	LongRunning    bool        `json:"LongRunning,omitempty"`
	IgnoreSequence bool        `json:"IgnoreSequence,omitempty"`
	Propagation    Propagation `json:"Propagation,omitempty"`
	PreventDefault bool        `json:"PreventDefault,omitempty"`
	UploadFiles    bool        `json:"UploadFiles,omitempty"`
}

// ContentType discriminates serialized nodes.
type ContentType int

const (
	ContentElement     ContentType = 1
	ContentText        ContentType = 3
	ContentPlaceholder ContentType = 8
)

// ContentAttribute is one attribute of a serialized element.
type ContentAttribute struct {
	Attribute string `json:"Attribute"`
	Value     string `json:"Value"`
}

// ContentNode is the wire form of a subtree carried by Append, Insert and
// Render deltas. Text data is raw (already HTML-encoded).
type ContentNode struct {
	Type       ContentType        `json:"Type"`
	TagName    string             `json:"TagName,omitempty"`
	Attributes []ContentAttribute `json:"Attributes,omitempty"`
	Children   []ContentNode      `json:"Children,omitempty"`
	Data       string             `json:"Data,omitempty"`
}

// Attr returns the value of the named attribute of an element node.
func (c ContentNode) Attr(name string) (string, bool) {
	for _, a := range c.Attributes {
		if a.Attribute == name {
			return a.Value, true
		}
	}
	return "", false
}

// Locator addresses a node: the element StartingID itself, or its child at
// ChildIndex when set.
type Locator struct {
	StartingID string `json:"StartingId"`
	ChildIndex *int   `json:"ChildIndex,omitempty"`
}

// ChildLocator addresses the child at index of the element parentID.
func ChildLocator(parentID string, index int) Locator {
	return Locator{StartingID: parentID, ChildIndex: &index}
}
