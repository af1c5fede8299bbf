package delta

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned when a payload carries a discriminant outside
// the known set.
var ErrUnknownType = errors.New("delta: unknown type")

// EventResult is the terminal outcome of one event cycle. List is only
// populated for Success.
type EventResult struct {
	ResultType ResultType `json:"ResultType"`
	List       []Delta    `json:"List,omitempty"`
}

// Result builds a Success result carrying list.
func Result(list []Delta) EventResult {
	return EventResult{ResultType: Success, List: list}
}

// Outcome builds a result without deltas.
func Outcome(rt ResultType) EventResult {
	return EventResult{ResultType: rt}
}

// UnmarshalJSON decodes List through Decode so each entry comes back as its
// concrete type.
func (r *EventResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		ResultType ResultType        `json:"ResultType"`
		List       []json.RawMessage `json:"List"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ResultType = raw.ResultType
	r.List = nil
	if len(raw.List) == 0 {
		return nil
	}
	r.List = make([]Delta, 0, len(raw.List))
	for i, msg := range raw.List {
		d, err := Decode(msg)
		if err != nil {
			return fmt.Errorf("delta: list[%d]: %w", i, err)
		}
		r.List = append(r.List, d)
	}
	return nil
}

// MarshalResult serialises an EventResult to JSON.
func MarshalResult(r EventResult) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalResult deserialises an EventResult from JSON.
func UnmarshalResult(data []byte) (*EventResult, error) {
	var r EventResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalContent serialises a subtree the way Append and Render carry it.
func MarshalContent(c ContentNode) ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalContent deserialises a subtree written by MarshalContent.
func UnmarshalContent(data []byte) (ContentNode, error) {
	var c ContentNode
	if err := json.Unmarshal(data, &c); err != nil {
		return ContentNode{}, err
	}
	return c, nil
}

// Decode reads the Type discriminant of one serialized delta and decodes the
// payload into the matching concrete type.
func Decode(data []byte) (Delta, error) {
	var head struct {
		Type Type `json:"Type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case TypeAppend:
		return decodeAs[Append](data)
	case TypeInsert:
		return decodeAs[Insert](data)
	case TypeTextModified:
		return decodeAs[TextModified](data)
	case TypeRemove:
		return decodeAs[Remove](data)
	case TypeAttributeEdited:
		return decodeAs[AttributeEdited](data)
	case TypeAttributeRemoved:
		return decodeAs[AttributeRemoved](data)
	case TypeFocus:
		return decodeAs[Focus](data)
	case TypeSetID:
		return decodeAs[SetID](data)
	case TypeSetValue:
		return decodeAs[SetValue](data)
	case TypeSubmitJS:
		return decodeAs[SubmitJS](data)
	case TypeSetChecked:
		return decodeAs[SetChecked](data)
	case TypeClearChildren:
		return decodeAs[ClearChildren](data)
	case TypeReplace:
		return decodeAs[Replace](data)
	case TypeServerEvents:
		return decodeAs[ServerEvents](data)
	case TypeSwapChildren:
		return decodeAs[SwapChildren](data)
	case TypeSubscribe:
		return decodeAs[Subscribe](data)
	case TypeUnsubscribe:
		return decodeAs[Unsubscribe](data)
	case TypeRemoveElement:
		return decodeAs[RemoveElement](data)
	case TypeRender:
		return decodeAs[Render](data)
	case TypeUnRender:
		return decodeAs[UnRender](data)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(head.Type))
}

func decodeAs[T Delta](data []byte) (Delta, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
