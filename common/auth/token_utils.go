package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrNoSecret     = errors.New("jwt secret not configured")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenType    = errors.New("unexpected token type")
)

// Claims is the payload auth-service puts into its tokens.
type Claims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 tokens signed with the shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier with an empty secret rejects every token.
func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return &TokenVerifier{}
	}
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses tokenStr and, when expectedType is set, requires a matching
// "typ" claim so refresh tokens cannot be replayed as access tokens.
func (v *TokenVerifier) Verify(tokenStr, expectedType string) (*Claims, error) {
	if v.secret == nil {
		return nil, ErrNoSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if expectedType != "" && claims.Type != expectedType {
		return nil, ErrTokenType
	}
	return claims, nil
}
