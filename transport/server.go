// Package transport serves published pages and carries client events to
// their Documents over single-shot POST requests and websocket channels.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/hazyhaar/domsync/auth"
	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/horosafe"
	"github.com/hazyhaar/domsync/session"
	"github.com/hazyhaar/domsync/shield"
)

// Endpoint paths and head attributes understood by clients.
const (
	EventPath     = "/_event"
	DiscardPath   = "/_discard"
	KeepAlivePath = "/_keepAlive"

	AttrDocument     = "data-domsync-doc"
	AttrInitialDelta = "data-domsync-initialdelta"
	AttrKeepAlive    = "data-domsync-keepalive"
	AttrContent      = "data-domsync-content" // root ContentNode, JSON

	// ServerEventName marks the channel a client opens to receive pushed
	// results instead of sending an event.
	ServerEventName = "_server_event"
)

// Page builds the initial state of a freshly created Document.
type Page interface {
	OnGet(ctx context.Context, doc *dom.Document) error
}

// PageFunc adapts a function to Page.
type PageFunc func(ctx context.Context, doc *dom.Document) error

func (f PageFunc) OnGet(ctx context.Context, doc *dom.Document) error { return f(ctx, doc) }

// Config holds the transport settings.
type Config struct {
	// Secret signs the connection cookie. At least horosafe.MinSecretLen bytes.
	Secret         []byte
	CookieLifetime time.Duration
	SecureCookies  bool
	// KeepAlive is the interval advertised to clients; zero disables it.
	KeepAlive time.Duration
	MaxBody   int64
	// WriteTimeout bounds every websocket write.
	WriteTimeout time.Duration
	// PingPeriod is the heartbeat on server-event channels.
	PingPeriod time.Duration
}

func (c *Config) applyDefaults() {
	if c.CookieLifetime <= 0 {
		c.CookieLifetime = 24 * time.Hour
	}
	if c.MaxBody <= 0 {
		c.MaxBody = 1 << 20
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = 30 * time.Second
	}
}

// Server routes page and event requests to the connection registry.
type Server struct {
	conns    *session.Connections
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	pages map[string]func() Page
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCheckOrigin replaces the websocket origin check (same host by default).
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// New creates a Server on top of conns.
func New(conns *session.Connections, cfg Config, opts ...Option) (*Server, error) {
	if err := horosafe.ValidateSecret(cfg.Secret); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	cfg.applyDefaults()
	s := &Server{
		conns:  conns,
		cfg:    cfg,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		pages: make(map[string]func() Page),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Publish serves a new Page from factory at path. Publishing the same path
// again replaces the factory.
func (s *Server) Publish(path string, factory func() Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[normalizePath(path)] = factory
}

// Unpublish stops serving path.
func (s *Server) Unpublish(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, normalizePath(path))
}

func (s *Server) page(path string) (func() Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.pages[normalizePath(path)]
	return f, ok
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// RegisterHTTP mounts the event endpoints and the page catch-all on r.
// r must already carry auth.Middleware.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post(EventPath, s.handleEvent)
	r.Get(EventPath, s.handleSocket)
	r.Post(DiscardPath, s.handleDiscard)
	r.Post(KeepAlivePath, s.handleKeepAlive)
	r.Get("/", s.handlePage)
	r.Get("/*", s.handlePage)
}

// Handler returns a router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultStack(s.cfg.MaxBody) {
		r.Use(mw)
	}
	r.Use(auth.Middleware(s.cfg.Secret))
	s.RegisterHTTP(r)
	return r
}
