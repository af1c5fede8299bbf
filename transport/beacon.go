package transport

import (
	"net/http"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/kit"
	"github.com/hazyhaar/domsync/shield"
)

// handleDiscard releases a document the client has left:
// POST /_discard?doc=.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc")
	conn, _, err := s.resolve(r.Context(), docID)
	if err != nil {
		writeResult(w, delta.Outcome(delta.NoSession))
		return
	}
	conn.Discard(docID)
	shield.GetLogger(r.Context()).Debug("transport: document discarded by client",
		"connection_id", conn.ID(), "document_id", docID)
	writeResult(w, delta.Outcome(delta.Success))
}

// handleKeepAlive refreshes the activity of a document:
// POST /_keepAlive?doc=.
func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	_, doc, err := s.resolve(r.Context(), r.URL.Query().Get("doc"))
	if err != nil {
		shield.GetLogger(r.Context()).Debug("transport: keep-alive without session",
			"connection_id", kit.GetConnectionID(r.Context()), "error", err)
		writeResult(w, delta.Outcome(delta.NoSession))
		return
	}
	doc.Touch()
	writeResult(w, delta.Outcome(delta.Success))
}
