// Package identity verifies bearer credentials issued by the auth service.
// Token minting and session management live there; chat only checks signatures
// and extracts the user id.
package identity

import (
	"fmt"

	"linkup/backend/internal/apperr"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer credential into a verified user identifier.
type Verifier interface {
	Verify(token string) (userID string, err error)
}

// JWTVerifier validates HS256 tokens carrying the user id in the "sub" claim.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Wrap(err, apperr.Unauthenticated, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.New(apperr.Unauthenticated, "invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", apperr.New(apperr.Unauthenticated, "token missing subject")
	}
	return sub, nil
}
