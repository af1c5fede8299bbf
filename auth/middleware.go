package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/hazyhaar/domsync/kit"
)

// Middleware validates the connection cookie and, when valid, stores the
// connection id in the request context (kit.GetConnectionID). Missing or
// invalid cookies are ignored here; the transport decides what that means
// for each endpoint.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := ValidateToken(secret, c.Value)
			if err != nil {
				ClearConnectionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			ctx := kit.WithConnectionID(r.Context(), claims.ConnectionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBearer refuses requests whose Authorization header does not carry
// "Bearer <token>". An empty token refuses everything.
func RequireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="domsync"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
