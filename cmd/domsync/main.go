// Command domsync serves demo pages kept in sync with the browser by the
// domsync engine.
//
// Usage:
//
//	domsync                          # defaults, random cookie secret
//	domsync -config domsync.yaml     # run with config file
//	domsync -addr :9000 -log-level debug
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domsync/auth"
	"github.com/hazyhaar/domsync/dbopen"
	"github.com/hazyhaar/domsync/internal/config"
	"github.com/hazyhaar/domsync/journal"
	"github.com/hazyhaar/domsync/kit"
	"github.com/hazyhaar/domsync/session"
	"github.com/hazyhaar/domsync/transport"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to domsync.yaml config file")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	journalPath := flag.String("journal", "", "path to the lifecycle journal database (overrides journal.path)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := resolveConfig(*configPath, *addr, *journalPath, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "domsync:", err)
		os.Exit(2)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("domsync: fatal", "error", err)
		os.Exit(1)
	}
}

func resolveConfig(path, addr, journalPath, level string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if journalPath != "" {
		cfg.Journal.Path = journalPath
	}
	if level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired components of a running server.
type app struct {
	conns     *session.Connections
	collector *session.Collector
	journal   *journal.Journal
	server    *transport.Server
	handler   http.Handler
}

func build(ctx context.Context, logger *slog.Logger, cfg *config.Config, jr *journal.Journal) (*app, error) {
	secret, err := cfg.Secret()
	if err != nil {
		return nil, err
	}
	if cfg.Session.CookieSecret == "" {
		logger.Warn("domsync: no session.cookie_secret, cookies will not survive a restart")
	}

	opts := []session.Option{session.WithLogger(logger)}
	if jr != nil {
		opts = append(opts, session.WithObserver(jr))
	}
	conns := session.New(opts...)
	collector := session.NewCollector(conns,
		session.WithInterval(cfg.Session.CollectInterval),
		session.WithExpiration(cfg.Session.Expiration),
		session.WithCollectorLogger(logger),
	)

	srv, err := transport.New(conns, transport.Config{
		Secret:         secret,
		CookieLifetime: cfg.Session.CookieLifetime,
		SecureCookies:  cfg.Server.SecureCookies,
		KeepAlive:      cfg.Session.KeepAlive,
		MaxBody:        cfg.Server.MaxBody,
		WriteTimeout:   cfg.Server.WriteTimeout,
		PingPeriod:     cfg.Server.PingPeriod,
	}, transport.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	publishDemo(ctx, srv)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"connections": conns.Len(),
			"documents":   conns.DocumentCount(),
		})
	})
	if cfg.MCP.Enabled() {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "domsync", Version: version}, nil)
		mw := kit.Chain(kit.Logging(logger), kit.Recovery(logger))
		conns.RegisterMCP(mcpSrv, mw)
		if jr != nil {
			jr.RegisterMCP(mcpSrv, mw)
		}
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)
		r.With(auth.RequireBearer(cfg.MCP.Token)).Handle(cfg.MCP.Path, h)
	}
	r.Mount("/", srv.Handler())

	return &app{conns: conns, collector: collector, journal: jr, server: srv, handler: r}, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	var jr *journal.Journal
	if cfg.Journal.Path != "" {
		db, err := dbopen.Open(cfg.Journal.Path, dbopen.WithMkdirAll(), dbopen.WithSchema(journal.Schema))
		if err != nil {
			return fmt.Errorf("journal db: %w", err)
		}
		defer db.Close()
		jr = journal.New(db, journal.WithLogger(logger))
		go jr.RunCleanup(ctx, cfg.Journal.CleanupInterval, cfg.Retention())
	}

	a, err := build(ctx, logger, cfg, jr)
	if err != nil {
		return err
	}
	go a.collector.Run(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("domsync: listening", "addr", cfg.Server.Addr, "journal", cfg.Journal.Path, "mcp", cfg.MCP.Enabled())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("domsync: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("domsync: shutdown", "error", err)
	}
	for _, c := range a.conns.Connections() {
		a.conns.Discard(c.ID())
	}
	logger.Info("domsync: stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
