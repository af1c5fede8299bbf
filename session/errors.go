package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when a connection or document lookup fails.
	ErrNoSession = errors.New("session: no such session")

	// ErrConnectionClosed is returned when creating a document on a
	// connection that has already been discarded.
	ErrConnectionClosed = errors.New("session: connection discarded")
)

// LookupError tells which part of a (connection, document) pair was missing.
type LookupError struct {
	ConnectionID string
	DocumentID   string
	Missing      string // "connection" or "document"
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("session: %s not found (conn=%s doc=%s)", e.Missing, e.ConnectionID, e.DocumentID)
}

func (e *LookupError) Is(target error) bool { return target == ErrNoSession }
