package session

import (
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/domsync/dom"
)

// Connection is one client origin and the documents it has open.
type Connection struct {
	id         string
	remoteAddr string
	created    time.Time
	owner      *Connections
	storage    *Storage

	mu     sync.RWMutex
	docs   map[string]*dom.Document
	closed bool
}

func (c *Connection) ID() string         { return c.id }
func (c *Connection) RemoteAddr() string { return c.remoteAddr }
func (c *Connection) Storage() *Storage  { return c.storage }
func (c *Connection) Created() time.Time { return c.created }

// CreateDocument registers a new document on the connection.
func (c *Connection) CreateDocument() (*dom.Document, error) {
	d := dom.NewDocument(c.owner.newID())
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.docs[d.ID()] = d
	c.mu.Unlock()
	c.owner.logger.Debug("session: document created", "conn", c.id, "doc", d.ID())
	c.owner.obs.DocumentCreated(c, d)
	return d, nil
}

// Document returns the document with id.
func (c *Connection) Document(id string) (*dom.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[id]
	return d, ok
}

// Discard removes and releases one document. The connection itself stays
// until the collector finds it empty.
func (c *Connection) Discard(id string) bool {
	return c.discard(id, ReasonClient)
}

func (c *Connection) discard(id string, reason Reason) bool {
	c.mu.Lock()
	d, ok := c.docs[id]
	if ok {
		delete(c.docs, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	d.Discard()
	c.owner.logger.Debug("session: document discarded", "conn", c.id, "doc", id, "reason", reason)
	c.owner.obs.DocumentDiscarded(c, d, reason)
	return true
}

// close marks the connection discarded and hands back its documents.
func (c *Connection) close() []*dom.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := make([]*dom.Document, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, d)
	}
	c.docs = make(map[string]*dom.Document)
	return out
}

func (c *Connection) IsEmpty() bool { return c.Len() == 0 }

func (c *Connection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Documents returns a snapshot of the open documents ordered by id.
func (c *Connection) Documents() []*dom.Document {
	c.mu.RLock()
	out := make([]*dom.Document, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, d)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
