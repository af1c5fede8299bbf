// Package session is the registry of live client state: connections, the
// documents each one has open, per-connection storage, and the collector
// that discards what clients stopped using.
package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/idgen"
)

// Connections maps connection ids to live connections. Ids come from a
// crypto-random generator; the client presents them back as capabilities.
type Connections struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	newID  idgen.Generator
	logger *slog.Logger
	obs    Observer
}

// Option configures a Connections registry.
type Option func(*Connections)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connections) { c.logger = l }
}

// WithIDGenerator replaces the id generator used for connections and
// documents. Production code should keep the default idgen.Random.
func WithIDGenerator(g idgen.Generator) Option {
	return func(c *Connections) { c.newID = g }
}

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(c *Connections) { c.obs = o }
}

// New returns an empty registry.
func New(opts ...Option) *Connections {
	c := &Connections{
		conns:  make(map[string]*Connection),
		newID:  idgen.Random(),
		logger: slog.Default(),
		obs:    nopObserver{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create registers a new connection for a client at remoteAddr.
func (c *Connections) Create(remoteAddr string) *Connection {
	conn := &Connection{
		id:         c.newID(),
		remoteAddr: remoteAddr,
		created:    time.Now(),
		owner:      c,
		docs:       make(map[string]*dom.Document),
		storage:    newStorage(),
	}
	c.mu.Lock()
	c.conns[conn.id] = conn
	c.mu.Unlock()
	c.logger.Debug("session: connection created", "conn", conn.id, "remote", remoteAddr)
	c.obs.ConnectionCreated(conn)
	return conn
}

// Get returns the connection with id.
func (c *Connections) Get(id string) (*Connection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.conns[id]
	return conn, ok
}

// Resolve finds a document by connection and document id. Any miss is
// reported as ErrNoSession.
func (c *Connections) Resolve(connID, docID string) (*Connection, *dom.Document, error) {
	conn, ok := c.Get(connID)
	if !ok {
		return nil, nil, &LookupError{ConnectionID: connID, DocumentID: docID, Missing: "connection"}
	}
	doc, ok := conn.Document(docID)
	if !ok {
		return conn, nil, &LookupError{ConnectionID: connID, DocumentID: docID, Missing: "document"}
	}
	return conn, doc, nil
}

// Discard removes a connection and every document it holds.
func (c *Connections) Discard(id string) bool {
	c.mu.Lock()
	conn, ok := c.conns[id]
	if ok {
		delete(c.conns, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	for _, d := range conn.close() {
		d.Discard()
		c.obs.DocumentDiscarded(conn, d, ReasonClient)
	}
	c.logger.Debug("session: connection discarded", "conn", id)
	c.obs.ConnectionDiscarded(conn, ReasonClient)
	return true
}

// discardIfEmpty removes conn when it holds no document. The emptiness check
// and the removal happen under both locks so a concurrent CreateDocument
// either lands first or fails with ErrConnectionClosed.
func (c *Connections) discardIfEmpty(conn *Connection) bool {
	c.mu.Lock()
	if c.conns[conn.id] != conn {
		c.mu.Unlock()
		return false
	}
	conn.mu.Lock()
	empty := len(conn.docs) == 0
	if empty {
		conn.closed = true
		delete(c.conns, conn.id)
	}
	conn.mu.Unlock()
	c.mu.Unlock()
	if empty {
		c.logger.Debug("session: empty connection discarded", "conn", conn.id)
		c.obs.ConnectionDiscarded(conn, ReasonEmpty)
	}
	return empty
}

// Len returns the number of live connections.
func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

// Connections returns a snapshot of the live connections ordered by id.
func (c *Connections) Connections() []*Connection {
	c.mu.RLock()
	out := make([]*Connection, 0, len(c.conns))
	for _, conn := range c.conns {
		out = append(out, conn)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// DocumentCount returns the number of documents across all connections.
func (c *Connections) DocumentCount() int {
	n := 0
	for _, conn := range c.Connections() {
		n += conn.Len()
	}
	return n
}

// FindDocument locates a document by id alone, for administrative use.
func (c *Connections) FindDocument(docID string) (*Connection, *dom.Document, bool) {
	for _, conn := range c.Connections() {
		if d, ok := conn.Document(docID); ok {
			return conn, d, true
		}
	}
	return nil, nil, false
}
