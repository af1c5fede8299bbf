package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/horosafe"
	"github.com/hazyhaar/domsync/sequence"
	"github.com/hazyhaar/domsync/transport"
)

// page is the state of one loaded document. A reload replaces it as a whole,
// so results that arrive for an older page are dropped.
type page struct {
	path      string
	docID     string
	keepAlive time.Duration
	applier   *Applier
	seq       *sequence.Sequencer
	events    atomic.Uint64
	broken    atomic.Pointer[error]
}

// abandon marks p unusable once one of its turns can no longer complete, and
// releases the events parked behind that turn.
func (p *page) abandon(cause error) {
	if p.broken.CompareAndSwap(nil, &cause) {
		p.seq.Close()
	}
}

// brokenBy returns the cause passed to abandon, or nil.
func (p *page) brokenBy() error {
	if e := p.broken.Load(); e != nil {
		return *e
	}
	return nil
}

// Client loads pages from a domsync server and keeps their mirror in sync.
type Client struct {
	base       *url.URL
	http       *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger
	autoReload bool
	hooks      func(*Applier)

	mu  sync.Mutex
	cur *page
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. A cookie jar is added when it has
// none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAutoReload controls whether a lost session or a transport failure
// fetches the page again (default true).
func WithAutoReload(on bool) Option {
	return func(c *Client) { c.autoReload = on }
}

// WithApplierHooks runs fn on the Applier of every loaded page, to install
// OnScript, OnNavigate or OnServerEvents.
func WithApplierHooks(fn func(*Applier)) Option {
	return func(c *Client) { c.hooks = fn }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url must be http or https, got %q", u.Scheme)
	}
	c := &Client{
		base:       u,
		http:       &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
		logger:     slog.Default(),
		autoReload: true,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) current() (*page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil, ErrNotLoaded
	}
	return c.cur, nil
}

// DocumentID returns the id of the loaded document.
func (c *Client) DocumentID() string {
	p, err := c.current()
	if err != nil {
		return ""
	}
	return p.docID
}

// KeepAliveInterval returns the interval the server advertised, zero when
// it asked for none.
func (c *Client) KeepAliveInterval() time.Duration {
	p, err := c.current()
	if err != nil {
		return 0
	}
	return p.keepAlive
}

// View runs fn with exclusive access to the current mirror.
func (c *Client) View(fn func(m *Mirror)) error {
	p, err := c.current()
	if err != nil {
		return err
	}
	p.applier.With(fn)
	return nil
}

// Load fetches path, builds a fresh mirror from it and applies the initial
// deltas embedded in the page.
func (c *Client) Load(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path, nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: load %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "load " + path, Status: resp.StatusCode}
	}

	body, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return fmt.Errorf("client: load %s: %w", path, err)
	}
	m, meta, err := ParseMirror(bytes.NewReader(body))
	if err != nil {
		return err
	}
	docID := meta[transport.AttrDocument]
	if docID == "" {
		return fmt.Errorf("client: %s is not a domsync page", path)
	}

	p := &page{
		path:    resp.Request.URL.Path,
		docID:   docID,
		applier: NewApplier(m),
		seq:     sequence.New(),
	}
	if ms, err := strconv.ParseInt(meta[transport.AttrKeepAlive], 10, 64); err == nil && ms > 0 {
		p.keepAlive = time.Duration(ms) * time.Millisecond
	}
	if c.hooks != nil {
		c.hooks(p.applier)
	}
	if raw := meta[transport.AttrInitialDelta]; raw != "" {
		res, err := delta.UnmarshalResult([]byte(raw))
		if err != nil {
			return fmt.Errorf("client: initial deltas: %w", err)
		}
		if err := p.applier.Apply(res.List); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.cur = p
	c.mu.Unlock()
	c.logger.Debug("client: page loaded", "path", p.path, "document_id", docID)
	return nil
}

// Trigger fires event on elementID with the current input state and applies
// the result. The subscription decides the transport: long-running events
// use a websocket, and IgnoreSequence events bypass ordering.
func (c *Client) Trigger(ctx context.Context, elementID, event, message string) error {
	p, err := c.current()
	if err != nil {
		return err
	}
	if cause := p.brokenBy(); cause != nil {
		return c.fail(ctx, p, cause)
	}
	var opts delta.PlugOptions
	p.applier.With(func(m *Mirror) {
		if s, ok := m.Subscription(elementID, event); ok {
			opts = s.Settings
		}
	})
	if opts.LongRunning {
		return c.triggerSocket(ctx, p, elementID, event, message, opts.IgnoreSequence, nil)
	}
	n := p.nextEvent(opts.IgnoreSequence)
	res, err := c.post(ctx, p, elementID, event, message, n)
	return c.finish(ctx, p, n, res, err)
}

// TriggerLong fires event over a websocket whatever the subscription says.
// files are sent as binary frames after the parameters.
func (c *Client) TriggerLong(ctx context.Context, elementID, event, message string, files ...[]byte) error {
	p, err := c.current()
	if err != nil {
		return err
	}
	if cause := p.brokenBy(); cause != nil {
		return c.fail(ctx, p, cause)
	}
	return c.triggerSocket(ctx, p, elementID, event, message, false, files)
}

// Message sends a document-level message handled by Document.OnMessage.
func (c *Client) Message(ctx context.Context, key, message string) error {
	return c.Trigger(ctx, "", "_"+key, message)
}

func (p *page) nextEvent(unordered bool) uint64 {
	if unordered {
		return 0
	}
	return p.events.Add(1)
}

func (c *Client) post(ctx context.Context, p *page, elementID, event, message string, n uint64) (*delta.EventResult, error) {
	form := url.Values{}
	p.applier.With(func(m *Mirror) {
		for k, v := range m.Values() {
			form.Set(k, v)
		}
	})
	if message != "" {
		form.Set(transport.FieldMessage, message)
	}
	q := url.Values{
		"doc": {p.docID},
		"el":  {elementID},
		"ev":  {event},
		"seq": {strconv.FormatUint(n, 10)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(transport.EventPath, q), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: event %s/%s: %w", elementID, event, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "event " + elementID + "/" + event, Status: resp.StatusCode}
	}
	data, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return nil, err
	}
	return delta.UnmarshalResult(data)
}

// finish waits for turn n, applies res and releases the turn. A request that
// failed still releases its turn. If the wait itself fails the turn can never
// be released, so the page is abandoned and every later event on it fails.
func (c *Client) finish(ctx context.Context, p *page, n uint64, res *delta.EventResult, err error) error {
	if werr := p.seq.Wait(ctx, n); werr != nil {
		if err == nil {
			err = werr
		}
		p.abandon(err)
		return c.fail(ctx, p, p.brokenBy())
	}
	if cause := p.brokenBy(); cause != nil {
		return c.fail(ctx, p, cause)
	}
	defer p.seq.Done(n)
	if err != nil {
		return c.fail(ctx, p, err)
	}
	return c.handle(ctx, p, res)
}

// handle applies one result and maps its outcome to an error.
func (c *Client) handle(ctx context.Context, p *page, res *delta.EventResult) error {
	switch res.ResultType {
	case delta.Success:
		if err := p.applier.Apply(res.List); err != nil {
			return c.fail(ctx, p, err)
		}
		return nil
	case delta.NoSession:
		return c.fail(ctx, p, ErrNoSession)
	case delta.NoElement:
		return ErrNoElement
	case delta.OutOfSequence:
		c.logger.Debug("client: stale result dropped", "document_id", p.docID)
		return nil
	}
	return fmt.Errorf("client: unknown result type %d", res.ResultType)
}

// fail abandons the page after cause and reloads it when enabled.
func (c *Client) fail(ctx context.Context, p *page, cause error) error {
	rerr := &ReloadError{Cause: cause}
	c.mu.Lock()
	stale := c.cur != p
	c.mu.Unlock()
	if stale || !c.autoReload {
		return rerr
	}
	c.logger.Info("client: reloading page", "path", p.path, "document_id", p.docID, "cause", cause)
	if err := c.Load(ctx, p.path); err != nil {
		rerr.ReloadErr = err
		return rerr
	}
	rerr.Reloaded = true
	return rerr
}

// KeepAlive tells the server the page is still open.
func (c *Client) KeepAlive(ctx context.Context) error {
	p, err := c.current()
	if err != nil {
		return err
	}
	res, err := c.beacon(ctx, transport.KeepAlivePath, p.docID)
	if err != nil {
		return c.fail(ctx, p, err)
	}
	if res.ResultType == delta.NoSession {
		return c.fail(ctx, p, ErrNoSession)
	}
	return nil
}

// RunKeepAlive sends keep-alive beacons at the advertised interval until ctx
// ends. It returns at once when the server advertised none.
func (c *Client) RunKeepAlive(ctx context.Context) error {
	every := c.KeepAliveInterval()
	if every <= 0 {
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := c.KeepAlive(ctx); err != nil && !errors.Is(err, ErrReload) {
				return err
			}
		}
	}
}

// Close tells the server the page is gone and forgets it locally.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	p := c.cur
	c.cur = nil
	c.mu.Unlock()
	if p == nil {
		return nil
	}
	_, err := c.beacon(ctx, transport.DiscardPath, p.docID)
	return err
}

func (c *Client) beacon(ctx context.Context, path, docID string) (*delta.EventResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path, url.Values{"doc": {docID}}), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: path, Status: resp.StatusCode}
	}
	data, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return nil, err
	}
	return delta.UnmarshalResult(data)
}

func (c *Client) resolve(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = q.Encode()
	return u.String()
}
