package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrSecretNotConfigured = errors.New("JWT secret not configured")
	ErrInvalidToken        = errors.New("invalid or expired token")
)

// Identity is the caller resolved from an access token.
type Identity struct {
	UserID string
	Role   string
	Email  string
}

// TokenVerifier validates HMAC-signed access tokens issued by the auth service.
type TokenVerifier struct {
	secretKey []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenVerifier{}
	}
	return &TokenVerifier{secretKey: []byte(secret)}
}

// Enabled reports whether a signing secret is configured.
func (v *TokenVerifier) Enabled() bool {
	return v != nil && len(v.secretKey) > 0
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func (v *TokenVerifier) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if !v.Enabled() {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// IdentityFromToken validates an access token and extracts the caller.
func (v *TokenVerifier) IdentityFromToken(tokenStr string) (*Identity, error) {
	claims, err := v.ParseAndValidateToken(tokenStr, "access")
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return &Identity{UserID: sub, Role: role, Email: email}, nil
}
