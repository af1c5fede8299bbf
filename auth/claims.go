package auth

import "github.com/golang-jwt/jwt/v5"

// ConnectionClaims bind a browser to one registry connection. The signed
// cookie is the only way a client proves which connection it belongs to.
type ConnectionClaims struct {
	jwt.RegisteredClaims
	ConnectionID string `json:"cid"`
}
