// Package shield provides the HTTP middleware wrapped around every domsync
// endpoint: security headers, form body limits, HEAD handling and request
// tracing with a per-request logger.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(64 * 1024) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack, outermost first:
// HeadToGet → SecurityHeaders → MaxFormBody → TraceID.
func DefaultStack(maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxFormBody(maxBody),
		TraceID,
	}
}
