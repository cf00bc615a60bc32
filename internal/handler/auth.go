package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/pulsepy/internal/auth"
	"github.com/sakif/pulsepy/internal/model"
	"github.com/sakif/pulsepy/internal/service"
)

// DefaultRedirect is where the browser goes after signup or login.
const DefaultRedirect = "/index.html"

// Accounts is the part of service.AccountService the auth handler uses.
type Accounts interface {
	Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*service.AuthResult, error)
}

// AuthHandler serves signup, login, logout and the session probe.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup  → create an account, set the session cookie
//   - HandleLogin   → verify credentials, set the session cookie
//   - HandleLogout  → clear the session cookie
//   - HandleSession → return the identity behind the current session
//
// The session token is also returned in the JSON body. Static preview
// servers cannot share cookies with the backend, so those clients keep the
// token themselves and send it back as "Authorization: Bearer <token>".
type AuthHandler struct {
	accounts   Accounts
	cookies    auth.CookiePolicy
	redirectTo string
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(accounts Accounts, cookies auth.CookiePolicy, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		cookies:    cookies,
		redirectTo: DefaultRedirect,
		logger:     logger,
	}
}

// SessionResponse is the body of a successful signup or login.
type SessionResponse struct {
	Message      string `json:"message"`
	RedirectTo   string `json:"redirectTo"`
	SessionToken string `json:"sessionToken"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// HandleSignup creates an account.
//
// HTTP: POST /auth/signup
// 201 on success, 400 {"errors": [...]} for invalid fields, 409 for a taken
// email or username.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.Session(result.Token))
	writeJSON(w, http.StatusCreated, SessionResponse{
		Message:      "Account created.",
		RedirectTo:   h.redirectTo,
		SessionToken: result.Token,
	})
}

// HandleLogin signs an existing account in.
//
// HTTP: POST /auth/login
// 200 on success, 400 when a field is missing, 401 for bad credentials.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.Session(result.Token))
	writeJSON(w, http.StatusOK, SessionResponse{
		Message:      "Logged in.",
		RedirectTo:   h.redirectTo,
		SessionToken: result.Token,
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Since sessions are stateless JWTs, "logout" just means deleting the
// client-side cookie. The token stays valid until it expires, but without
// the cookie the browser can't send it. Always 204, logged in or not.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.Clear())
	w.WriteHeader(http.StatusNoContent)
}

// SessionUser is the body of GET /auth/session.
type SessionUser struct {
	User model.Identity `json:"user"`
}

// HandleSession returns the identity of the caller.
//
// HTTP: GET /auth/session
// Auth: Required (RequireAuth middleware sets the identity in context)
//
// The frontend calls this on page load to decide whether to show the
// dashboard or bounce to the login page.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Only reachable if the route was mounted without RequireAuth.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: service.MsgSessionExpired})
		return
	}
	writeJSON(w, http.StatusOK, SessionUser{User: id})
}
