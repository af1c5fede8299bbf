package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/domsync/delta"
	"github.com/hazyhaar/domsync/transport"
)

// errNoResult is the cause when a channel closes before sending anything.
var errNoResult = errors.New("client: channel closed before any result")

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(c.base.Path, "/") + transport.EventPath

	header := http.Header{}
	for _, ck := range c.http.Jar.Cookies(c.base) {
		header.Add("Cookie", (&http.Cookie{Name: ck.Name, Value: ck.Value}).String())
	}
	header.Set("Origin", c.base.Scheme+"://"+c.base.Host)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &StatusError{Op: "dial " + transport.EventPath, Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("client: dial: %w", err)
	}
	return conn, nil
}

// triggerSocket sends one event over a websocket. The first result waits
// for the event's turn; later partial results follow in arrival order and
// the turn is released when the channel closes.
func (c *Client) triggerSocket(ctx context.Context, p *page, elementID, event, message string, unordered bool, files [][]byte) error {
	n := p.nextEvent(unordered)
	conn, err := c.dial(ctx)
	if err != nil {
		return c.finish(ctx, p, n, nil, err)
	}
	defer conn.Close()

	params := transport.SocketParameters{
		DocumentID:  p.docID,
		ElementID:   elementID,
		EventName:   event,
		EventNumber: n,
		Message:     message,
		SocketFiles: len(files),
	}
	p.applier.With(func(m *Mirror) { params.Values = m.Values() })
	if err := conn.WriteJSON(params); err != nil {
		return c.finish(ctx, p, n, nil, fmt.Errorf("client: send parameters: %w", err))
	}
	for _, f := range files {
		if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			return c.finish(ctx, p, n, nil, fmt.Errorf("client: send file: %w", err))
		}
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var res delta.EventResult
	if err := conn.ReadJSON(&res); err != nil {
		return c.finish(ctx, p, n, nil, closeCause(err, false))
	}
	if err := p.seq.Wait(ctx, n); err != nil {
		p.abandon(err)
		return c.fail(ctx, p, p.brokenBy())
	}
	if cause := p.brokenBy(); cause != nil {
		return c.fail(ctx, p, cause)
	}
	defer p.seq.Done(n)

	for {
		if err := c.handle(ctx, p, &res); err != nil {
			return err
		}
		if err := conn.ReadJSON(&res); err != nil {
			if cause := closeCause(err, true); cause != nil {
				return c.fail(ctx, p, cause)
			}
			return nil
		}
	}
}

// closeCause maps the error ending a channel read to a failure, or nil for
// a normal closure after at least one result.
func closeCause(err error, gotResult bool) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		if gotResult {
			return nil
		}
		return errNoResult
	}
	return fmt.Errorf("client: channel: %w", err)
}

// ListenServerEvents opens the server-push channel for the current page and
// applies every pushed result until ctx ends or the server closes the
// channel. Pushed results are not sequenced.
func (c *Client) ListenServerEvents(ctx context.Context) error {
	p, err := c.current()
	if err != nil {
		return err
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return c.fail(ctx, p, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	if err := conn.WriteJSON(transport.SocketParameters{
		DocumentID: p.docID,
		EventName:  transport.ServerEventName,
	}); err != nil {
		return c.fail(ctx, p, err)
	}
	for {
		var res delta.EventResult
		if err := conn.ReadJSON(&res); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return c.fail(ctx, p, fmt.Errorf("client: server events: %w", err))
		}
		if err := c.handle(ctx, p, &res); err != nil {
			return err
		}
	}
}
