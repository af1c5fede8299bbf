package shield

import (
	"context"
	"net/http"
)

const headKey contextKey = "shield_head"

// HeadToGet routes HEAD requests through GET handlers. net/http drops the
// body of HEAD responses; handlers that allocate state per GET check IsHead.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
			r = r.WithContext(context.WithValue(r.Context(), headKey, true))
		}
		next.ServeHTTP(w, r)
	})
}

// IsHead reports whether the request arrived as HEAD.
func IsHead(ctx context.Context) bool {
	v, _ := ctx.Value(headKey).(bool)
	return v
}
