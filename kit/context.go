// Package kit carries request-scoped values and the endpoint plumbing shared
// by the HTTP transport and the MCP admin tools.
package kit

import "context"

type contextKey string

const (
	TraceIDKey      contextKey = "kit_trace_id"
	ConnectionIDKey contextKey = "kit_connection_id"
	DocumentIDKey   contextKey = "kit_document_id"
	TransportKey    contextKey = "kit_transport" // "http", "socket", "mcp"
	RemoteAddrKey   contextKey = "kit_remote_addr"
	ToolKey         contextKey = "kit_tool"
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConnectionIDKey, id)
}
func GetConnectionID(ctx context.Context) string {
	v, _ := ctx.Value(ConnectionIDKey).(string)
	return v
}

func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, id)
}
func GetDocumentID(ctx context.Context) string {
	v, _ := ctx.Value(DocumentIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}

func WithTool(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ToolKey, name)
}
func GetTool(ctx context.Context) string {
	v, _ := ctx.Value(ToolKey).(string)
	return v
}
