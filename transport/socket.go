package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/kit"
	"github.com/hazyhaar/domsync/shield"
)

// SocketParameters is the first message a client sends on an event channel.
// SocketFiles binary frames follow it, one per uploaded file.
type SocketParameters struct {
	DocumentID  string            `json:"DocumentId"`
	ElementID   string            `json:"ElementId"`
	EventName   string            `json:"EventName"`
	EventNumber uint64            `json:"EventNumber"`
	Message     string            `json:"Message"`
	SocketFiles int               `json:"SocketFiles"`
	Values      map[string]string `json:"Values,omitempty"`
}

const (
	parametersTimeout = 30 * time.Second
	maxSocketFiles    = 32
)

// handleSocket upgrades GET /_event and serves either one long-running
// event or, for ServerEventName, a server-push channel.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("transport: websocket upgrade", "error", err)
		return
	}
	sock := newSocket(conn, s.cfg.WriteTimeout)
	defer sock.Close()
	conn.SetReadLimit(s.cfg.MaxBody)

	_ = conn.SetReadDeadline(time.Now().Add(parametersTimeout))
	var p SocketParameters
	if err := conn.ReadJSON(&p); err != nil {
		log.Debug("transport: socket parameters", "error", err)
		_ = sock.closeWith(websocket.CloseUnsupportedData, "bad parameters")
		return
	}
	if p.SocketFiles < 0 || p.SocketFiles > maxSocketFiles {
		_ = sock.closeWith(websocket.ClosePolicyViolation, "too many files")
		return
	}
	files := make([]dom.File, 0, p.SocketFiles)
	for range p.SocketFiles {
		mt, data, err := conn.ReadMessage()
		if err != nil || mt != websocket.BinaryMessage {
			_ = sock.closeWith(websocket.CloseUnsupportedData, "bad file frame")
			return
		}
		files = append(files, dom.File{Data: data})
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx := kit.WithTransport(r.Context(), "socket")
	_, doc, err := s.resolve(ctx, p.DocumentID)
	if err != nil {
		_ = sock.send(delta.Outcome(delta.NoSession))
		return
	}
	ctx = kit.WithDocumentID(ctx, doc.ID())

	if p.EventName == ServerEventName {
		s.serveServerEvents(ctx, sock, doc)
		return
	}

	req := eventRequest{
		EventRequest: dom.EventRequest{
			ElementID: p.ElementID,
			Name:      p.EventName,
			Message:   p.Message,
			Files:     files,
			Flush: func() error {
				list := doc.Drain()
				if len(list) == 0 {
					return nil
				}
				return sock.send(delta.Result(list))
			},
		},
		Seq:    p.EventNumber,
		Values: valuesFromMap(p.Values),
	}
	result, err := s.process(ctx, doc, req)
	if err != nil {
		log.Error("transport: event handler failed",
			"document_id", doc.ID(), "element_id", p.ElementID, "event", p.EventName, "error", err)
		_ = sock.closeWith(websocket.CloseInternalServerErr, "internal error")
		return
	}
	if err := sock.send(result); err != nil {
		log.Debug("transport: socket result", "document_id", doc.ID(), "error", err)
	}
}

// serveServerEvents keeps sock registered on doc until the client goes away
// or the document stops accepting pushes.
func (s *Server) serveServerEvents(ctx context.Context, sock *socket, doc *dom.Document) {
	remove, err := doc.AddServerEventSink(sock)
	if err != nil {
		shield.GetLogger(ctx).Debug("transport: server events refused", "document_id", doc.ID(), "error", err)
		return
	}
	defer remove()

	conn := sock.conn
	pongWait := s.cfg.PingPeriod * 2
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		doc.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(s.cfg.PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sock.ping(); err != nil {
					return
				}
			case <-sock.done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func valuesFromMap(m map[string]string) []dom.ClientValue {
	if len(m) == 0 {
		return nil
	}
	form := make(map[string][]string, len(m))
	for k, v := range m {
		form[k] = []string{v}
	}
	return ParseValues(form)
}

// socket serialises writes on a websocket and implements
// dom.ServerEventSink.
type socket struct {
	conn    *websocket.Conn
	timeout time.Duration

	mu   sync.Mutex
	once sync.Once
	done chan struct{}
}

func newSocket(conn *websocket.Conn, timeout time.Duration) *socket {
	return &socket{conn: conn, timeout: timeout, done: make(chan struct{})}
}

var errSocketClosed = errors.New("transport: socket closed")

func (s *socket) send(result delta.EventResult) error {
	data, err := delta.MarshalResult(result)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return errSocketClosed
	default:
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.timeout))
}

// Push sends a server-initiated result.
func (s *socket) Push(_ context.Context, result delta.EventResult) error {
	return s.send(result)
}

// Close ends the channel with a normal closure.
func (s *socket) Close() error {
	return s.closeWith(websocket.CloseNormalClosure, "")
}

func (s *socket) closeWith(code int, reason string) error {
	err := errSocketClosed
	s.once.Do(func() {
		s.mu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(s.timeout))
		close(s.done)
		s.mu.Unlock()
		err = s.conn.Close()
	})
	return err
}
