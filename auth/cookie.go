package auth

import (
	"net/http"
	"time"
)

// CookieName is the cookie carrying the connection token.
const CookieName = "domsync_cx"

// SetConnectionCookie writes the token as an HttpOnly cookie living for
// maxAge.
func SetConnectionCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// ClearConnectionCookie removes the connection cookie.
func ClearConnectionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
