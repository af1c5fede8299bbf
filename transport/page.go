package transport

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domsync/auth"
	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/kit"
	"github.com/hazyhaar/domsync/session"
	"github.com/hazyhaar/domsync/shield"
)

// handlePage creates a Document for a published path, lets the Page build
// it, and renders it with the bootstrap attributes in <head>.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	factory, ok := s.page(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if shield.IsHead(r.Context()) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	log := shield.GetLogger(r.Context())

	conn := s.connection(w, r)
	doc, err := conn.CreateDocument()
	if errors.Is(err, session.ErrConnectionClosed) {
		// Collected between lookup and creation.
		conn = s.newConnection(w, r)
		doc, err = conn.CreateDocument()
	}
	if err != nil {
		log.Error("transport: create document", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	ctx := kit.WithDocumentID(kit.WithConnectionID(r.Context(), conn.ID()), doc.ID())

	doc.Lock()
	if err := factory().OnGet(ctx, doc); err != nil {
		doc.Unlock()
		conn.Discard(doc.ID())
		log.Error("transport: page OnGet", "document_id", doc.ID(), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if loc := doc.Redirect(); loc != "" {
		doc.Unlock()
		conn.Discard(doc.ID())
		http.Redirect(w, r, loc, http.StatusSeeOther)
		return
	}

	tree, err := delta.MarshalContent(dom.Content(doc.Root()))
	if err != nil {
		doc.Unlock()
		conn.Discard(doc.ID())
		log.Error("transport: encode document tree", "document_id", doc.ID(), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	head := []html.Attribute{
		{Key: AttrDocument, Val: doc.ID()},
		{Key: AttrContent, Val: string(tree)},
	}
	if s.cfg.KeepAlive > 0 {
		head = append(head, html.Attribute{
			Key: AttrKeepAlive,
			Val: strconv.FormatInt(s.cfg.KeepAlive.Milliseconds(), 10),
		})
	}
	if initial := doc.Drain(); len(initial) > 0 {
		data, err := delta.MarshalResult(delta.Result(initial))
		if err != nil {
			doc.Unlock()
			conn.Discard(doc.ID())
			log.Error("transport: encode initial deltas", "document_id", doc.ID(), "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		head = append(head, html.Attribute{Key: AttrInitialDelta, Val: string(data)})
	}

	var buf bytes.Buffer
	err = doc.Render(&buf, head...)
	doc.OpenEventQueue()
	doc.Unlock()
	if err != nil {
		conn.Discard(doc.ID())
		log.Error("transport: render document", "document_id", doc.ID(), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Debug("transport: document served", "connection_id", conn.ID(), "document_id", doc.ID())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// connection returns the connection named by the request cookie, or a new
// one with a fresh cookie.
func (s *Server) connection(w http.ResponseWriter, r *http.Request) *session.Connection {
	if id := kit.GetConnectionID(r.Context()); id != "" {
		if c, ok := s.conns.Get(id); ok {
			return c
		}
	}
	return s.newConnection(w, r)
}

func (s *Server) newConnection(w http.ResponseWriter, r *http.Request) *session.Connection {
	c := s.conns.Create(r.RemoteAddr)
	token, err := auth.GenerateToken(s.cfg.Secret, c.ID(), s.cfg.CookieLifetime)
	if err != nil {
		shield.GetLogger(r.Context()).Error("transport: sign connection cookie", "error", err)
		return c
	}
	auth.SetConnectionCookie(w, token, s.cfg.CookieLifetime, s.cfg.SecureCookies)
	return c
}
