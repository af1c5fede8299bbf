package journal

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domsync/kit"
)

// RegisterMCP registers the journal tools on an MCP server. mws wrap
// every tool endpoint, the first one outermost.
func (j *Journal) RegisterMCP(srv *mcp.Server, mws ...kit.Middleware) {
	j.registerRecentTool(srv, mws)
	j.registerCleanupTool(srv, mws)
}

// --- domsync_journal_recent ---

type recentRequest struct {
	ConnectionID string `json:"connection_id,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

func (j *Journal) registerRecentTool(srv *mcp.Server, mws []kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "domsync_journal_recent",
		Description: "List recent connection and document lifecycle events, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"connection_id": map[string]any{"type": "string", "description": "Restrict to this connection"},
			"kind": map[string]any{
				"type": "string",
				"enum": []string{string(ConnectionCreated), string(ConnectionDiscarded), string(DocumentCreated), string(DocumentDiscarded)},
			},
			"limit": map[string]any{"type": "integer", "description": "Maximum rows (default 50)"},
		}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*recentRequest)
		events, err := j.Recent(ctx, Filter{ConnectionID: r.ConnectionID, Kind: Kind(r.Kind), Limit: r.Limit})
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []Event{}
		}
		return map[string]any{"events": events}, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Wrap(endpoint, mws...), kit.DecodeArgs[recentRequest]())
}

// --- domsync_journal_cleanup ---

type cleanupRequest struct {
	Days int `json:"days"`
}

func (j *Journal) registerCleanupTool(srv *mcp.Server, mws []kit.Middleware) {
	tool := &mcp.Tool{
		Name:        "domsync_journal_cleanup",
		Description: "Delete lifecycle events older than the given number of days.",
		InputSchema: kit.InputSchema(map[string]any{
			"days": map[string]any{"type": "integer", "description": "Retention in days"},
		}, "days"),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*cleanupRequest)
		n, err := j.Cleanup(ctx, time.Duration(r.Days)*24*time.Hour)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": n}, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Wrap(endpoint, mws...), kit.DecodeArgs[cleanupRequest]())
}
