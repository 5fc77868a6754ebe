package admin

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionCookie is the HttpOnly cookie carrying the admin session JWT.
const sessionCookie = "xmg_admin"

// sessionLifetime bounds how long a login lasts before the admin has to
// re-present credentials.
const sessionLifetime = 12 * time.Hour

// TokenService issues and validates admin session tokens.
//
// WHY JWT FOR A SINGLE-ADMIN SESSION?
// The token is stateless: everything needed to verify it (subject, expiry,
// signature) lives inside the token itself, so the board's dataset stays
// untouched by auth concerns and a server restart doesn't invalidate
// sessions. HS256 with a single shared secret is exactly right for a
// one-process deployment.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production,
// e.g. ADMIN_SESSION_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("admin: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate creates and signs a fresh session token.
func (s *TokenService) Generate() (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    "xmg-hall",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("admin: signing session token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, expiry, and subject of a session token.
// Returns nil only for a token this service issued and that is still live.
func (s *TokenService) Validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			// Reject any algorithm other than the one we sign with —
			// accepting the token's self-declared alg is a classic JWT
			// vulnerability ("alg":"none").
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil {
		return fmt.Errorf("admin: invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != "admin" {
		return errors.New("admin: unexpected session claims")
	}
	return nil
}

// SessionCookie builds the Set-Cookie value for a fresh login.
// HttpOnly keeps the token out of reach of page scripts; SameSite=Lax stops
// cross-site requests from riding the session.
func SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionLifetime / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie builds the Set-Cookie value that logs the admin out.
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
