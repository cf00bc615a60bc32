package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/pulsepy/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so only this package
// can read or write the identity stored in the context.
type contextKey string

const identityKey contextKey = "identity"

// ErrNoToken is returned by TokenFromRequest when neither the cookie nor the
// Authorization header carries a token.
var ErrNoToken = errors.New("auth: no session token")

// Validator is the part of the token service the middleware needs.
type Validator interface {
	Validate(token string) (model.Identity, error)
}

// UnauthorizedFunc writes the response for a request that failed authentication.
type UnauthorizedFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT (cookie first, then bearer header), validates it, and
// stores the Identity in the request context. If the token is missing or
// invalid, onFail writes the response and the chain stops.
func RequireAuth(tokens Validator, onFail UnauthorizedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authenticate(r, tokens)
			if err != nil {
				onFail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the Identity when a valid token is present, but never
// blocks the request.
func OptionalAuth(tokens Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := Authenticate(r, tokens); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves the request's session token to an Identity.
func Authenticate(r *http.Request, tokens Validator) (model.Identity, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return model.Identity{}, err
	}
	return tokens.Validate(token)
}

// TokenFromRequest returns the session token from the pulsepy_session cookie,
// falling back to an "Authorization: Bearer <token>" header for callers that
// cannot rely on cookies (cross-origin previews, scripts).
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, nil
		}
	}

	return "", ErrNoToken
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated identity, or (zero, false)
// for anonymous requests.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.AccountID != ""
}
