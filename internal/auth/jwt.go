// Package auth provides session tokens, password hashing, cookie policy and
// the authentication middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User signs up or logs in with a password (POST /auth/signup, /auth/login)
//  2. Server issues a signed JWT and stores it in the pulsepy_session HttpOnly cookie
//     (the token is also returned in the body for clients that cannot use cookies)
//  3. On later calls, middleware reads the cookie (or an "Authorization: Bearer"
//     header), validates the JWT and puts the Identity in the request context
//
// WHY JWT?
// JWT is stateless: the server doesn't store session data. Everything needed
// (account id, display fields, expiry) is inside the signed token. The
// trade-off: logout only deletes the cookie; a copied token stays valid until
// it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/pulsepy/internal/model"
)

const tokenIssuer = "pulsepy"

// DefaultSessionTTL matches the cookie Max-Age (7 days).
const DefaultSessionTTL = 7 * 24 * time.Hour

// ErrTokenExpired is returned by Validate for a well-signed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: PULSEPY_JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. "sub" carries the account id; the display
// fields ride along so /auth/session needs no database lookup.
type claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// Generate signs a token for the identity with the service's TTL.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime.
// Used in tests (a zero or negative d yields an already-expired token).
func (s *TokenService) GenerateWithDuration(id model.Identity, d time.Duration) (string, error) {
	if id.AccountID == "" {
		return "", errors.New("auth: identity has no account id")
	}

	now := time.Now()
	c := claims{
		Email:    id.Email,
		Username: id.Username,
		FullName: id.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the Identity it carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none" tokens)
//   - Token is not expired and does carry an expiry
//   - Issuer matches "pulsepy"
func (s *TokenService) Validate(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, ErrTokenExpired
		}
		return model.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return model.Identity{}, errors.New("auth: token has no subject")
	}

	return model.Identity{
		AccountID: c.Subject,
		Email:     c.Email,
		Username:  c.Username,
		FullName:  c.FullName,
	}, nil
}
