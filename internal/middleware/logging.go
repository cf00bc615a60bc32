// Package middleware holds the HTTP middleware mounted in front of every
// PulsePy route: the access log and the cross-origin policy.
//
// Both follow the usual shape, a function taking the next handler and
// returning a wrapped one:
//
//	func(next http.Handler) http.Handler
//
// so chi's Router.Use can mount them directly.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// quietPaths are polled by the hosting platform and Prometheus every few
// seconds. Their successful hits are logged at Debug.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// statusRecorder remembers the status and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Logger writes one access-log line per request.
//
// FIELDS:
//
//	requestID  chi's RequestID (mount chimw.RequestID first)
//	method, path, status, duration, bytes
//	remote     client address after chimw.RealIP
//	origin     the browser's Origin header, when present
//
// LEVELS:
//
//	5xx                            → Error
//	4xx                            → Warn
//	2xx/3xx on /healthz, /metrics  → Debug
//	everything else                → Info
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("requestID", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", rec.bytes),
				slog.String("remote", r.RemoteAddr),
			}
			if origin := r.Header.Get("Origin"); origin != "" {
				attrs = append(attrs, slog.String("origin", origin))
			}

			logger.LogAttrs(r.Context(), accessLevel(r.URL.Path, rec.status), "request completed", attrs...)
		})
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
