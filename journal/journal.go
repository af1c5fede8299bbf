// Package journal records connection and document lifecycle changes in
// SQLite. A Journal is a session.Observer: pass it to session.WithObserver
// and every creation and discard becomes a row in lifecycle_events.
//
// Writes are best-effort. A failing store is logged and never blocks the
// registry.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domsync/dbopen"
	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/idgen"
	"github.com/hazyhaar/domsync/session"
)

// Schema creates the lifecycle_events table.
const Schema = `
CREATE TABLE IF NOT EXISTS lifecycle_events (
	event_id      TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	connection_id TEXT NOT NULL,
	document_id   TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL DEFAULT '',
	remote_addr   TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_created ON lifecycle_events(created_at);
CREATE INDEX IF NOT EXISTS idx_lifecycle_connection ON lifecycle_events(connection_id);
`

// Kind names a lifecycle transition.
type Kind string

const (
	ConnectionCreated   Kind = "connection_created"
	ConnectionDiscarded Kind = "connection_discarded"
	DocumentCreated     Kind = "document_created"
	DocumentDiscarded   Kind = "document_discarded"
)

// Event is one journal row.
type Event struct {
	ID           string    `json:"event_id"`
	Kind         Kind      `json:"kind"`
	ConnectionID string    `json:"connection_id"`
	DocumentID   string    `json:"document_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	RemoteAddr   string    `json:"remote_addr,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Init applies Schema to db.
func Init(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("journal: init schema: %w", err)
	}
	return nil
}

// Journal writes lifecycle events.
type Journal struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
	now    func() time.Time
	write  time.Duration
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDGenerator sets the event id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(j *Journal) { j.newID = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// WithClock replaces time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// New returns a journal over db. The schema must already exist; see Init.
func New(db *sql.DB, opts ...Option) *Journal {
	j := &Journal{
		db:     db,
		newID:  idgen.Prefixed("evt_", idgen.Default),
		logger: slog.Default(),
		now:    time.Now,
		write:  5 * time.Second,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

var _ session.Observer = (*Journal)(nil)

// Record inserts ev. ID and CreatedAt are filled when empty.
func (j *Journal) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = j.newID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = j.now()
	}
	_, err := dbopen.Exec(ctx, j.db, `
		INSERT INTO lifecycle_events (
			event_id, kind, connection_id, document_id, reason, remote_addr, created_at
		) VALUES (?,?,?,?,?,?,?)`,
		ev.ID, string(ev.Kind), ev.ConnectionID, ev.DocumentID, ev.Reason, ev.RemoteAddr,
		ev.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", ev.Kind, err)
	}
	return nil
}

func (j *Journal) record(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), j.write)
	defer cancel()
	if err := j.Record(ctx, ev); err != nil {
		j.logger.Error("journal: write failed", "error", err, "kind", ev.Kind,
			"connection_id", ev.ConnectionID, "document_id", ev.DocumentID)
	}
}

func (j *Journal) ConnectionCreated(c *session.Connection) {
	j.record(Event{Kind: ConnectionCreated, ConnectionID: c.ID(), RemoteAddr: c.RemoteAddr()})
}

func (j *Journal) ConnectionDiscarded(c *session.Connection, reason session.Reason) {
	j.record(Event{Kind: ConnectionDiscarded, ConnectionID: c.ID(), Reason: string(reason), RemoteAddr: c.RemoteAddr()})
}

func (j *Journal) DocumentCreated(c *session.Connection, d *dom.Document) {
	j.record(Event{Kind: DocumentCreated, ConnectionID: c.ID(), DocumentID: d.ID()})
}

func (j *Journal) DocumentDiscarded(c *session.Connection, d *dom.Document, reason session.Reason) {
	j.record(Event{Kind: DocumentDiscarded, ConnectionID: c.ID(), DocumentID: d.ID(), Reason: string(reason)})
}

// Filter narrows Recent.
type Filter struct {
	ConnectionID string
	Kind         Kind
	Limit        int
}

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Recent returns the newest events first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	q := `SELECT event_id, kind, connection_id, document_id, reason, remote_addr, created_at
		FROM lifecycle_events WHERE 1=1`
	var args []any
	if f.ConnectionID != "" {
		q += " AND connection_id = ?"
		args = append(args, f.ConnectionID)
	}
	if f.Kind != "" {
		q += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	q += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var kind string
		var ms int64
		if err := rows.Scan(&ev.ID, &kind, &ev.ConnectionID, &ev.DocumentID, &ev.Reason, &ev.RemoteAddr, &ms); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		ev.Kind = Kind(kind)
		ev.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than the retention and returns how many rows
// were removed. A non-positive retention keeps everything.
func (j *Journal) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := j.now().Add(-retention).UnixMilli()
	res, err := dbopen.Exec(ctx, j.db, "DELETE FROM lifecycle_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal: cleanup: %w", err)
	}
	return res.RowsAffected()
}

// RunCleanup calls Cleanup every interval until ctx ends.
func (j *Journal) RunCleanup(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := j.Cleanup(ctx, retention)
			if err != nil {
				j.logger.Warn("journal: cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				j.logger.Info("journal: cleanup", "deleted", n)
			}
		}
	}
}
