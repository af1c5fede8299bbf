package session

import "github.com/hazyhaar/domsync/dom"

// Reason explains why a document or connection left the registry.
type Reason string

const (
	ReasonClient  Reason = "client"  // discard beacon or explicit call
	ReasonExpired Reason = "expired" // stale collector
	ReasonEmpty   Reason = "empty"   // connection left without documents
)

// Observer is notified of registry lifecycle changes. Calls happen outside
// registry locks and must not block for long.
type Observer interface {
	ConnectionCreated(c *Connection)
	ConnectionDiscarded(c *Connection, reason Reason)
	DocumentCreated(c *Connection, d *dom.Document)
	DocumentDiscarded(c *Connection, d *dom.Document, reason Reason)
}

type nopObserver struct{}

func (nopObserver) ConnectionCreated(*Connection)                        {}
func (nopObserver) ConnectionDiscarded(*Connection, Reason)              {}
func (nopObserver) DocumentCreated(*Connection, *dom.Document)           {}
func (nopObserver) DocumentDiscarded(*Connection, *dom.Document, Reason) {}
