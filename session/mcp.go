package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domsync/kit"
)

// RegisterMCP registers registry introspection tools on an MCP server. mws wrap
// every tool endpoint, the first one outermost.
func (c *Connections) RegisterMCP(srv *mcp.Server, mws ...kit.Middleware) {
	c.registerStatsTool(srv, mws)
	c.registerDocumentsTool(srv, mws)
	c.registerDocumentHTMLTool(srv, mws)
}

// --- domsync_stats ---

type statsRequest struct{}

type statsResponse struct {
	Connections int `json:"connections"`
	Documents   int `json:"documents"`
}

func (c *Connections) registerStatsTool(srv *mcp.Server, mws []kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "domsync_stats",
		Description: "Count live connections and open documents.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return statsResponse{Connections: c.Len(), Documents: c.DocumentCount()}, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Wrap(endpoint, mws...), kit.DecodeArgs[statsRequest]())
}

// --- domsync_documents ---

type documentsRequest struct {
	ConnectionID string `json:"connection_id,omitempty"`
}

type documentInfo struct {
	ConnectionID string    `json:"connection_id"`
	DocumentID   string    `json:"document_id"`
	LastActivity time.Time `json:"last_activity"`
	Elements     int       `json:"elements"`
	ServerEvents bool      `json:"server_events"`
}

func (c *Connections) registerDocumentsTool(srv *mcp.Server, mws []kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "domsync_documents",
		Description: "List open documents with their last activity, optionally for one connection.",
		InputSchema: kit.InputSchema(map[string]any{
			"connection_id": map[string]any{"type": "string", "description": "Restrict to this connection"},
		}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*documentsRequest)
		var out []documentInfo
		for _, conn := range c.Connections() {
			if r.ConnectionID != "" && conn.ID() != r.ConnectionID {
				continue
			}
			for _, d := range conn.Documents() {
				d.Lock()
				info := documentInfo{
					ConnectionID: conn.ID(),
					DocumentID:   d.ID(),
					LastActivity: d.LastActivity().UTC(),
					Elements:     d.ElementCount(),
					ServerEvents: d.ServerEventsEnabled(),
				}
				d.Unlock()
				out = append(out, info)
			}
		}
		return out, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Wrap(endpoint, mws...), kit.DecodeArgs[documentsRequest]())
}

// --- domsync_document_html ---

type documentHTMLRequest struct {
	DocumentID string `json:"document_id"`
}

func (c *Connections) registerDocumentHTMLTool(srv *mcp.Server, mws []kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "domsync_document_html",
		Description: "Render the current server-side HTML of a document.",
		InputSchema: kit.InputSchema(map[string]any{
			"document_id": map[string]any{"type": "string", "description": "Document id"},
		}, "document_id"),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*documentHTMLRequest)
		_, d, ok := c.FindDocument(r.DocumentID)
		if !ok {
			return nil, fmt.Errorf("document %q not found", r.DocumentID)
		}
		var b strings.Builder
		d.Lock()
		err := d.Render(&b)
		d.Unlock()
		if err != nil {
			return nil, err
		}
		return map[string]string{"document_id": d.ID(), "html": b.String()}, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Wrap(endpoint, mws...), kit.DecodeArgs[documentHTMLRequest]())
}
