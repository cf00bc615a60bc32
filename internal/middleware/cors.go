package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// MsgOriginNotAllowed is the body of the 403 sent to unknown origins.
const MsgOriginNotAllowed = "This origin is not allowed."

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
	corsMaxAge       = "600"
)

// CORS returns a middleware that only lets the listed origins call the API
// with credentials.
//
// RULES:
//   - No Origin header (same-origin, curl, server-to-server): pass through.
//   - Allowed origin: echo it back with Allow-Credentials, so the browser
//     sends the session cookie. Preflight OPTIONS is answered 204 here and
//     never reaches the router.
//   - Anything else: 403 with a JSON error, preflight or not.
//
// Origins are compared case-insensitively without trailing slashes.
// "*" is not supported: browsers refuse a wildcard together with credentials.
// Rejected origins are logged at Warn.
func CORS(allowed []string, logger *slog.Logger) func(http.Handler) http.Handler {
	allow := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			allow[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			if !allow[normalizeOrigin(origin)] {
				logger.Warn("origin rejected",
					slog.String("origin", origin),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				rejectOrigin(w, logger)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rejectOrigin writes the 403 body. Headers are gone by the time an encode
// error can happen, so it is only logged.
func rejectOrigin(w http.ResponseWriter, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": MsgOriginNotAllowed}); err != nil {
		logger.Error("failed to encode CORS rejection", slog.String("error", err.Error()))
	}
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}
