package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/horosafe"
	"github.com/hazyhaar/domsync/kit"
	"github.com/hazyhaar/domsync/sequence"
	"github.com/hazyhaar/domsync/session"
	"github.com/hazyhaar/domsync/shield"
)

// Form field conventions of the single-shot event body.
const (
	FieldMessage  = "_message"
	checkedSuffix = "#checked"
)

type eventRequest struct {
	dom.EventRequest
	Seq    uint64
	Values []dom.ClientValue
}

// handleEvent processes a single-shot event:
// POST /_event?doc=&el=&ev=&seq= with the input state as form body.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seq, err := strconv.ParseUint(q.Get("seq"), 10, 64)
	if err != nil {
		http.Error(w, "bad event number", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form body", http.StatusBadRequest)
		return
	}
	log := shield.GetLogger(r.Context())

	_, doc, err := s.resolve(r.Context(), q.Get("doc"))
	if err != nil {
		log.Debug("transport: event without session", "error", err)
		writeResult(w, delta.Outcome(delta.NoSession))
		return
	}
	ctx := kit.WithDocumentID(r.Context(), doc.ID())

	req := eventRequest{
		EventRequest: dom.EventRequest{
			ElementID: q.Get("el"),
			Name:      q.Get("ev"),
			Message:   r.PostForm.Get(FieldMessage),
		},
		Seq:    seq,
		Values: ParseValues(r.PostForm),
	}
	result, err := s.process(ctx, doc, req)
	if err != nil {
		log.Error("transport: event handler failed",
			"document_id", doc.ID(), "element_id", req.ElementID, "event", req.Name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeResult(w, result)
}

// resolve maps the request connection and a document id to a live Document.
func (s *Server) resolve(ctx context.Context, docID string) (*session.Connection, *dom.Document, error) {
	connID := kit.GetConnectionID(ctx)
	if connID == "" {
		return nil, nil, &session.LookupError{DocumentID: docID, Missing: "connection"}
	}
	if err := horosafe.ValidateIdentifier(docID); err != nil {
		return nil, nil, &session.LookupError{ConnectionID: connID, DocumentID: docID, Missing: "document"}
	}
	return s.conns.Resolve(connID, docID)
}

// process runs one event cycle: wait for its turn, apply the client input
// state, dispatch and drain. A returned error means the handler failed and
// the client should reload.
func (s *Server) process(ctx context.Context, doc *dom.Document, req eventRequest) (delta.EventResult, error) {
	if err := doc.WaitForTurn(ctx, req.Seq); err != nil {
		if errors.Is(err, sequence.ErrTurnPassed) {
			return delta.Outcome(delta.OutOfSequence), nil
		}
		return delta.EventResult{}, err
	}
	defer doc.TurnDone(req.Seq)

	doc.Lock()
	defer doc.Unlock()
	if doc.Discarded() {
		return delta.Outcome(delta.NoSession), nil
	}
	doc.Touch()
	doc.OpenEventQueue()
	doc.ApplyClientValues(req.Values)

	err := doc.Dispatch(ctx, req.EventRequest)
	switch {
	case errors.Is(err, dom.ErrNoElement):
		doc.Drain()
		return delta.Outcome(delta.NoElement), nil
	case err != nil:
		doc.Drain()
		return delta.EventResult{}, err
	}
	return delta.Result(doc.Drain()), nil
}

// ParseValues decodes the input state fields of an event body:
// "<id>" carries a value and "<id>#checked" a checked state.
func ParseValues(form url.Values) []dom.ClientValue {
	keys := make([]string, 0, len(form))
	for k := range form {
		if k != FieldMessage && k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	byID := make(map[string]int)
	var out []dom.ClientValue
	entry := func(id string) *dom.ClientValue {
		i, ok := byID[id]
		if !ok {
			i = len(out)
			byID[id] = i
			out = append(out, dom.ClientValue{ElementID: id})
		}
		return &out[i]
	}
	for _, k := range keys {
		v := form.Get(k)
		if id, ok := strings.CutSuffix(k, checkedSuffix); ok {
			checked := v == "true"
			entry(id).Checked = &checked
			continue
		}
		entry(k).Value = &v
	}
	return out
}

// EncodeValues is the inverse of ParseValues.
func EncodeValues(values []dom.ClientValue) url.Values {
	form := url.Values{}
	for _, v := range values {
		if v.Value != nil {
			form.Set(v.ElementID, *v.Value)
		}
		if v.Checked != nil {
			form.Set(v.ElementID+checkedSuffix, strconv.FormatBool(*v.Checked))
		}
	}
	return form
}

func writeResult(w http.ResponseWriter, result delta.EventResult) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(result)
}
