package dom

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange       = errors.New("dom: index out of range")
	ErrDuplicateID      = errors.New("dom: duplicate id")
	ErrNoElement        = errors.New("dom: no such element")
	ErrCycle            = errors.New("dom: node is an ancestor of the target")
	ErrNilNode          = errors.New("dom: nil node")
	ErrNotChild         = errors.New("dom: node is not a child of the target")
	ErrRootNode         = errors.New("dom: document root cannot be moved")
	ErrDiscarded        = errors.New("dom: document discarded")
	ErrFlushUnavailable = errors.New("dom: partial flush unavailable for this event")
	ErrServerEventsOff  = errors.New("dom: server events not enabled")
)

// IndexError reports an index outside the valid range of an operation.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("dom: %s: index %d out of range [0,%d]", e.Op, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrOutOfRange }

// DuplicateIDError reports an identifier already held by another element of
// the document.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("dom: duplicate id %q", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }
