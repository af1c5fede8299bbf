package journal

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domsync/dbopen"
	"github.com/hazyhaar/domsync/idgen"
	"github.com/hazyhaar/domsync/session"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newJournal(t *testing.T) (*Journal, *fakeClock) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(db, WithIDGenerator(idgen.Sequential("evt_")), WithClock(clock.now)), clock
}

func TestObserverWritesLifecycle(t *testing.T) {
	j, _ := newJournal(t)
	conns := session.New(session.WithObserver(j))

	conn := conns.Create("10.0.0.1:5000")
	doc, err := conn.CreateDocument()
	if err != nil {
		t.Fatal(err)
	}
	conn.Discard(doc.ID())
	conns.Discard(conn.ID())

	events, err := j.Recent(context.Background(), Filter{ConnectionID: conn.ID()})
	if err != nil {
		t.Fatal(err)
	}
	var kinds []Kind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []Kind{ConnectionDiscarded, DocumentDiscarded, DocumentCreated, ConnectionCreated}
	if len(kinds) != len(want) {
		t.Fatalf("kinds: got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds: got %v, want %v", kinds, want)
		}
	}
	if events[1].DocumentID != doc.ID() || events[1].Reason != string(session.ReasonClient) {
		t.Errorf("document discard row: %+v", events[1])
	}
	if events[3].RemoteAddr != "10.0.0.1:5000" {
		t.Errorf("remote addr: got %q", events[3].RemoteAddr)
	}
	if !strings.HasPrefix(events[0].ID, "evt_") {
		t.Errorf("event id: got %q", events[0].ID)
	}
}

func TestRecentFilterAndLimit(t *testing.T) {
	j, _ := newJournal(t)
	ctx := context.Background()
	for i := range 5 {
		kind := DocumentCreated
		if i%2 == 0 {
			kind = DocumentDiscarded
		}
		if err := j.Record(ctx, Event{Kind: kind, ConnectionID: "c1", DocumentID: "d"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := j.Recent(ctx, Filter{Kind: DocumentDiscarded})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("filtered: got %d rows, want 3", len(got))
	}
	got, err = j.Recent(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("limited: got %d rows, want 2", len(got))
	}
}

func TestCleanupRetention(t *testing.T) {
	j, clock := newJournal(t)
	ctx := context.Background()
	old := clock.t.Add(-10 * 24 * time.Hour)
	if err := j.Record(ctx, Event{Kind: ConnectionCreated, ConnectionID: "old", CreatedAt: old}); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, Event{Kind: ConnectionCreated, ConnectionID: "new"}); err != nil {
		t.Fatal(err)
	}

	n, err := j.Cleanup(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("deleted: got %d, want 1", n)
	}
	if n, _ := j.Cleanup(ctx, 0); n != 0 {
		t.Fatalf("zero retention deleted %d rows", n)
	}
	rest, _ := j.Recent(ctx, Filter{})
	if len(rest) != 1 || rest[0].ConnectionID != "new" {
		t.Fatalf("remaining: %+v", rest)
	}
}

func TestWriteFailureDoesNotPanic(t *testing.T) {
	db := dbopen.OpenMemory(t)
	j := New(db)
	conns := session.New(session.WithObserver(j))
	conns.Create("x")
	if _, err := j.Recent(context.Background(), Filter{}); err == nil {
		t.Fatal("query without schema should fail")
	}
}

func TestMCPRecent(t *testing.T) {
	j, _ := newJournal(t)
	ctx := context.Background()
	if err := j.Record(ctx, Event{Kind: ConnectionCreated, ConnectionID: "c9"}); err != nil {
		t.Fatal(err)
	}

	impl := &mcp.Implementation{Name: "journal-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	j.RegisterMCP(srv)
	serverT, clientT := mcp.NewInMemoryTransports()
	go func() { _ = srv.Run(ctx, serverT) }()
	cs, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "domsync_journal_recent", Arguments: map[string]any{"limit": 10}})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	var out struct {
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Events) != 1 || out.Events[0].ConnectionID != "c9" {
		t.Fatalf("events: %+v", out.Events)
	}
}
