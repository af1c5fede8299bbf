// Package auth signs and verifies the connection cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hazyhaar/domsync/horosafe"
)

// Issuer is stamped into every connection token.
const Issuer = "domsync"

// GenerateToken signs a connection token valid for expiry.
func GenerateToken(secret []byte, connectionID string, expiry time.Duration) (string, error) {
	if err := horosafe.ValidateSecret(secret); err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	now := time.Now()
	claims := &ConnectionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		ConnectionID: connectionID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken parses a connection token. The signing method is pinned to
// HS256.
func ValidateToken(secret []byte, tokenStr string) (*ConnectionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ConnectionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ConnectionClaims)
	if !ok || !token.Valid || claims.ConnectionID == "" {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}
