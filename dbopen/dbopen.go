// Package dbopen opens the SQLite databases used by domsync. Pragmas travel
// in the DSN so every pooled connection carries them:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//
// The caller blank-imports the driver:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("data/journal.db", dbopen.WithMkdirAll(), dbopen.WithSchema(journal.Schema))
//
// In tests:
//
//	db := dbopen.OpenMemory(t, dbopen.WithSchema(journal.Schema))
package dbopen

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

const memory = ":memory:"

type settings struct {
	busyMS   int
	sync     string
	txLock   string
	mkdir    bool
	ddl      []string
	skipPing bool
}

// Option customises Open.
type Option func(*settings)

// WithBusyTimeout sets busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option { return func(s *settings) { s.busyMS = ms } }

// WithSynchronous sets the synchronous pragma (OFF, NORMAL, FULL).
func WithSynchronous(mode string) Option { return func(s *settings) { s.sync = mode } }

// WithImmediateTx makes BEGIN take the write lock up front.
func WithImmediateTx() Option { return func(s *settings) { s.txLock = "immediate" } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(s *settings) { s.mkdir = true } }

// WithSchema queues DDL to run after opening. Statements must be idempotent.
func WithSchema(ddl string) Option { return func(s *settings) { s.ddl = append(s.ddl, ddl) } }

func WithoutPing() Option { return func(s *settings) { s.skipPing = true } }

// DSN builds the modernc.org/sqlite data source name for path.
func DSN(path string, opts ...Option) string {
	s := apply(opts)
	return s.dsn(path)
}

func apply(opts []Option) settings {
	s := settings{busyMS: 10_000, sync: "NORMAL"}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (s settings) dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	if path != memory {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Add("_pragma", "busy_timeout("+strconv.Itoa(s.busyMS)+")")
	q.Add("_pragma", "synchronous("+s.sync+")")
	if s.txLock != "" {
		q.Set("_txlock", s.txLock)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open opens the database at path and runs the queued schemas.
func Open(path string, opts ...Option) (*sql.DB, error) {
	s := apply(opts)
	if s.mkdir && path != memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: create dir for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", s.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("dbopen: %s: %w", path, err)
	}
	if path == memory {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	for _, ddl := range s.ddl {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: schema: %w", err)
		}
	}
	if !s.skipPing {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
		}
	}
	return db, nil
}

// OpenMemory opens an in-memory database closed when the test ends.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(memory, opts...)
	if err != nil {
		t.Fatalf("dbopen: in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
