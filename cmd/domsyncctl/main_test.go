package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/domsync/dom"
	"github.com/hazyhaar/domsync/session"
	"github.com/hazyhaar/domsync/transport"
)

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := transport.New(session.New(), transport.Config{Secret: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatal(err)
	}
	srv.Publish("/", func() transport.Page {
		return transport.PageFunc(func(_ context.Context, doc *dom.Document) error {
			n := 0
			b := dom.NewBuilder(doc.Body())
			b.Push("h1").Text("Tally").Pop()
			b.Push("input", "id", "by", "value", "1").Pop()
			b.Push("p", "id", "n").Text("0").Pop()
			b.Push("button", "id", "add").Text("add").On("click", func(ev *dom.Event) error {
				by, _ := ev.Document.ElementByID("by")
				k, _ := strconv.Atoi(by.Value())
				n += k
				p, _ := ev.Document.ElementByID("n")
				p.SetInnerText(strconv.Itoa(n))
				return nil
			}).Pop()
			doc.OnMessage("set", func(ev *dom.Event) error {
				p, _ := ev.Document.ElementByID("n")
				p.SetInnerText(ev.Message)
				return nil
			})
			return b.Err()
		})
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCtl(t *testing.T, o options) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var out bytes.Buffer
	err := run(ctx, &out, slog.New(slog.NewTextHandler(io.Discard, nil)), o)
	return out.String(), err
}

func TestRunHTML(t *testing.T) {
	base := startServer(t)
	out, err := runCtl(t, options{base: base, path: "/", format: "html",
		steps: steps{"value:by=4", "click:add", "click:add"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<p id="n">8</p>`) {
		t.Fatalf("html output: %s", out)
	}
}

func TestRunMarkdown(t *testing.T) {
	base := startServer(t)
	out, err := runCtl(t, options{base: base, path: "/", format: "markdown", steps: steps{"msg:set=42"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "# Tally") || !strings.Contains(out, "42") {
		t.Fatalf("markdown output: %s", out)
	}
}

func TestRunDiff(t *testing.T) {
	base := startServer(t)
	out, err := runCtl(t, options{base: base, path: "/", format: "diff", color: "never", steps: steps{"click:add"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "- 0") || !strings.Contains(out, "+ 1") {
		t.Fatalf("diff output: %s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("colour codes with -color never")
	}

	out, err = runCtl(t, options{base: base, path: "/", format: "diff", color: "never"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "no change" {
		t.Fatalf("empty diff: %q", out)
	}
}

func TestRunRejectsBadSteps(t *testing.T) {
	base := startServer(t)
	for _, s := range []string{"nocolon", "dance:x", "event:add", "check:by=maybe", "wait:soon"} {
		if _, err := runCtl(t, options{base: base, path: "/", format: "html", steps: steps{s}}); err == nil {
			t.Errorf("step %q accepted", s)
		}
	}
	if _, err := runCtl(t, options{base: base, path: "/", format: "pdf"}); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(`<p id="a">x</p><b>y</b>`)
	want := "<p id=\"a\">\nx\n</p>\n<b>\ny\n</b>\n"
	if got != want {
		t.Fatalf("splitTags: got %q, want %q", got, want)
	}
}
