// Package session extracts the authenticated principal from the dashboard's
// signed session token. The session provider itself is an external
// collaborator; this layer only needs "who is calling" to enforce
// principal-scoped writes in the vault.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims carries the standard registered claims plus the principal id.
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID string `json:"principal_id"`
}

// Generate mints an HS256 session token for principalID. Used by the
// handler-side collaborators and in tests; validity is caller-chosen.
func Generate(principalID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		PrincipalID: principalID,
	})
	return token.SignedString(secretKey)
}

// Principal verifies tokenString and returns the principal id it carries.
func Principal(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid || claims.PrincipalID == "" {
		return "", ErrInvalidToken
	}

	return claims.PrincipalID, nil
}
