package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by event methods before the first Load.
	ErrNotLoaded = errors.New("client: no page loaded")

	// ErrNoSession means the server no longer knows the document.
	ErrNoSession = errors.New("client: session lost")

	// ErrNoElement means the server did not find the event target.
	ErrNoElement = errors.New("client: event target not found")

	// ErrReload is matched by every ReloadError.
	ErrReload = errors.New("client: page reloaded")
)

// StatusError is a non-success HTTP status from the server.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s: HTTP %d", e.Op, e.Status)
}

// ReloadError reports that local state was abandoned after Cause. When
// automatic reload is on, the page has been fetched again and ReloadErr
// holds the outcome of that fetch.
type ReloadError struct {
	Cause     error
	Reloaded  bool
	ReloadErr error
}

func (e *ReloadError) Error() string {
	switch {
	case e.Reloaded:
		return fmt.Sprintf("client: page reloaded after: %v", e.Cause)
	case e.ReloadErr != nil:
		return fmt.Sprintf("client: reload after %v failed: %v", e.Cause, e.ReloadErr)
	}
	return fmt.Sprintf("client: page must be reloaded: %v", e.Cause)
}

func (e *ReloadError) Unwrap() []error { return []error{ErrReload, e.Cause} }
