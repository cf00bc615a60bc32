package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pulsepy/internal/auth"
	"github.com/sakif/pulsepy/internal/deploy"
	"github.com/sakif/pulsepy/internal/handler"
	"github.com/sakif/pulsepy/internal/model"
	"github.com/sakif/pulsepy/internal/repository/sqlite"
	"github.com/sakif/pulsepy/internal/service"
)

const testJWTSecret = "handler-test-secret-0123456789"

// newAuthRouter wires the real service stack over an in-memory database and
// mounts the auth routes the same way the server does.
func newAuthRouter(t *testing.T, mode deploy.Mode) http.Handler {
	t.Helper()
	return newAuthRouterAt(t, mode, ":memory:")
}

// newAuthRouterAt is newAuthRouter over the database at dbPath.
func newAuthRouterAt(t *testing.T, mode deploy.Mode, dbPath string) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testJWTSecret, time.Hour)
	require.NoError(t, err)

	accounts := service.NewAccountService(db, tokens, auth.NewPasswordServiceForTest(4), logger)
	h := handler.NewAuthHandler(accounts, auth.NewCookiePolicy(mode, tokens.TTL()), logger)

	r := chi.NewRouter()
	r.Post("/auth/signup", h.HandleSignup)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.With(auth.RequireAuth(accounts, handler.Unauthorized(logger))).Get("/auth/session", h.HandleSession)
	return r
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.SessionCookieName)
	return nil
}

const adaSignup = `{"fullName":"Ada Lovelace","email":"ada@example.com","username":"adal",` +
	`"password":"analytical1","confirmPassword":"analytical1"}`

func TestAuthHandler_Signup(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)

	rr := postJSON(t, h, "/auth/signup", adaSignup)

	require.Equal(t, http.StatusCreated, rr.Code)

	var body handler.SessionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "/index.html", body.RedirectTo)
	assert.NotEmpty(t, body.Message)
	assert.NotEmpty(t, body.SessionToken)

	c := sessionCookie(t, rr)
	assert.Equal(t, body.SessionToken, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestAuthHandler_SignupProductionCookie(t *testing.T) {
	h := newAuthRouter(t, deploy.Production)

	rr := postJSON(t, h, "/auth/signup", adaSignup)

	require.Equal(t, http.StatusCreated, rr.Code)
	c := sessionCookie(t, rr)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestAuthHandler_SignupValidationErrors(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)

	rr := postJSON(t, h, "/auth/signup",
		`{"fullName":"A","email":"nope","username":"ab","password":"short","confirmPassword":"x"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body handler.ErrorListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Len(t, body.Errors, 5)
	assert.Equal(t, "Please enter your full name.", body.Errors[0])
	assert.Empty(t, rr.Result().Cookies())
}

func TestAuthHandler_SignupConflicts(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)
	require.Equal(t, http.StatusCreated, postJSON(t, h, "/auth/signup", adaSignup).Code)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "email",
			body: `{"fullName":"Other","email":"ADA@example.com","username":"other","password":"analytical1","confirmPassword":"analytical1"}`,
			want: service.MsgEmailTaken,
		},
		{
			name: "username",
			body: `{"fullName":"Other","email":"other@example.com","username":"AdaL","password":"analytical1","confirmPassword":"analytical1"}`,
			want: service.MsgUsernameTaken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, h, "/auth/signup", tt.body)

			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rr.Body.String())
		})
	}
}

func TestAuthHandler_MalformedBody(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)

	for _, path := range []string{"/auth/signup", "/auth/login"} {
		rr := postJSON(t, h, path, `{"fullName":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.JSONEq(t, `{"error":"Invalid request body."}`, rr.Body.String(), path)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)
	require.Equal(t, http.StatusCreated, postJSON(t, h, "/auth/signup", adaSignup).Code)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"by username", `{"usernameOrEmail":"adal","password":"analytical1"}`, http.StatusOK, ""},
		{"by email any case", `{"usernameOrEmail":" ADA@Example.com ","password":"analytical1"}`, http.StatusOK, ""},
		{"wrong password", `{"usernameOrEmail":"adal","password":"analytical2"}`, http.StatusUnauthorized, service.MsgInvalidCredentials},
		{"unknown user", `{"usernameOrEmail":"grace","password":"analytical1"}`, http.StatusUnauthorized, service.MsgInvalidCredentials},
		{"missing password", `{"usernameOrEmail":"adal"}`, http.StatusBadRequest, service.MsgMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, h, "/auth/login", tt.body)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.JSONEq(t, `{"error":"`+tt.wantError+`"}`, rr.Body.String())
				return
			}
			var body handler.SessionResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.NotEmpty(t, body.SessionToken)
			assert.Equal(t, body.SessionToken, sessionCookie(t, rr).Value)
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)

	// Twice: logout is idempotent and needs no session.
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		header := rr.Header().Get("Set-Cookie")
		assert.True(t, strings.HasPrefix(header, auth.SessionCookieName+"=;"), header)
		assert.Contains(t, header, "Max-Age=0")
	}
}

func TestAuthHandler_Session(t *testing.T) {
	h := newAuthRouter(t, deploy.Local)
	signup := postJSON(t, h, "/auth/signup", adaSignup)
	require.Equal(t, http.StatusCreated, signup.Code)
	token := sessionCookie(t, signup).Value

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			User map[string]string `json:"user"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "adal", body.User["username"])
		assert.Equal(t, "ada@example.com", body.User["email"])
		assert.Equal(t, "Ada Lovelace", body.User["fullName"])
		assert.NotEmpty(t, body.User["accountId"])
		assert.NotContains(t, rr.Body.String(), "password")
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		var session struct {
			User model.Identity `json:"user"`
		}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&session))

		tokens, err := auth.NewTokenService(testJWTSecret, time.Hour)
		require.NoError(t, err)
		expired, err := tokens.GenerateWithDuration(session.User, -time.Minute)
		require.NoError(t, err)

		req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: expired})
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Session expired. Please log in again."}`, rr.Body.String())
	})

	for name, setup := range map[string]func(*http.Request){
		"no token":       func(*http.Request) {},
		"tampered token": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token+"x") },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
			setup(req)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, `{"error":"Session expired. Please log in again."}`, rr.Body.String())
		})
	}
}

// Concurrent signups against a file database: the pool opens several
// connections, and every one of them must wait for the write lock.
func TestAuthHandler_ConcurrentSignups(t *testing.T) {
	const n = 8

	signupBody := func(name string) string {
		return `{"fullName":"Racer","email":"` + name + `@example.com","username":"` + name +
			`","password":"analytical1","confirmPassword":"analytical1"}`
	}

	run := func(t *testing.T, h http.Handler, body func(i int) string) []int {
		t.Helper()
		codes := make([]int, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString(body(i)))
				rr := httptest.NewRecorder()
				h.ServeHTTP(rr, req)
				codes[i] = rr.Code
			}(i)
		}
		wg.Wait()
		return codes
	}

	t.Run("distinct accounts all succeed", func(t *testing.T) {
		h := newAuthRouterAt(t, deploy.Local, filepath.Join(t.TempDir(), "pulsepy.db"))

		codes := run(t, h, func(i int) string { return signupBody(fmt.Sprintf("racer%d", i)) })

		for i, code := range codes {
			assert.Equal(t, http.StatusCreated, code, "signup #%d", i)
		}
	})

	t.Run("same account succeeds once", func(t *testing.T) {
		h := newAuthRouterAt(t, deploy.Local, filepath.Join(t.TempDir(), "pulsepy.db"))

		codes := run(t, h, func(int) string { return signupBody("same") })

		created := 0
		for i, code := range codes {
			switch code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
			default:
				t.Errorf("signup #%d: status %d, want 201 or 409", i, code)
			}
		}
		assert.Equal(t, 1, created)
	})
}
