package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/domsync/kit"
)

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDefaultStack(t *testing.T) {
	var traceID string
	var head bool
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = kit.GetTraceID(r.Context())
		head = IsHead(r.Context())
		if r.Method != http.MethodGet {
			t.Errorf("method: got %s, want GET", r.Method)
		}
		GetLogger(r.Context()).Info("inside")
	})
	stack := DefaultStack(1024)
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}

	rec := serve(h, httptest.NewRequest(http.MethodHead, "/page", nil))
	if !head {
		t.Error("IsHead: want true for HEAD")
	}
	if len(traceID) != 26 || rec.Header().Get("X-Trace-ID") != traceID {
		t.Errorf("trace id: context %q header %q", traceID, rec.Header().Get("X-Trace-ID"))
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" || !strings.Contains(rec.Header().Get("Content-Security-Policy"), "connect-src 'self'") {
		t.Errorf("security headers missing: %v", rec.Header())
	}

	serve(h, httptest.NewRequest(http.MethodGet, "/page", nil))
	if head {
		t.Error("IsHead: want false for GET")
	}
}

func TestMaxFormBody(t *testing.T) {
	var readErr error
	h := MaxFormBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		readErr = r.ParseForm()
	}))
	req := httptest.NewRequest(http.MethodPost, "/_event", strings.NewReader("a=0123456789"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	serve(h, req)
	if readErr == nil {
		t.Fatal("oversized form: want error")
	}

	req = httptest.NewRequest(http.MethodPost, "/_event", strings.NewReader("a=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	serve(h, req)
	if readErr != nil {
		t.Fatalf("small form: %v", readErr)
	}
}

func TestGetLoggerDefault(t *testing.T) {
	if GetLogger(httptest.NewRequest(http.MethodGet, "/", nil).Context()) == nil {
		t.Fatal("GetLogger must never return nil")
	}
}
