package origin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sakif/pulsepy/internal/apperror"
)

// MsgAllUnreachable is the error message when no candidate answered.
const MsgAllUnreachable = "All API endpoints are unreachable."

// DefaultTimeout bounds a single attempt, so an all-unreachable walk finishes
// in at most len(targets) × DefaultTimeout.
const DefaultTimeout = 10 * time.Second

// FallbackRecorder counts moves to the next candidate.
type FallbackRecorder interface {
	OriginFallback()
}

// Request describes one outbound call. The same Request is replayed against
// every candidate, so Body must be re-readable (a struct, map, []byte or string).
type Request struct {
	Method string
	Header http.Header
	Query  url.Values
	Body   any
}

// Response is the answer of the first candidate that produced one.
type Response struct {
	// Target is the candidate base that answered; URL is the full URL called.
	Target     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends a request to candidate origins in order until one answers.
type Client struct {
	http      *resty.Client
	logger    *slog.Logger
	fallbacks FallbackRecorder
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithFallbackRecorder counts every fallback step with r.
func WithFallbackRecorder(r FallbackRecorder) ClientOption {
	return func(c *Client) { c.fallbacks = r }
}

// WithRestyClient replaces the underlying resty client (tests use this to
// point at an httptest transport).
func WithRestyClient(rc *resty.Client) ClientOption {
	return func(c *Client) { c.http = rc }
}

// NewClient creates a Client whose attempts each time out after timeout
// (DefaultTimeout when <= 0).
func NewClient(timeout time.Duration, logger *slog.Logger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetLogger(restyLogger{logger}),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestWithFallback tries targets in order.
//
// FALLBACK RULES:
//   - A transport failure (refused, DNS, TLS, timeout, bad URL) moves on to
//     the next target.
//   - Any HTTP response, including 4xx and 5xx, is returned as-is. A server
//     that answered is a server that is up; its verdict is final.
//   - When every target fails, the error is an apperror.Unreachable carrying
//     every attempt's error. No targets at all fails the same way.
//   - A cancelled ctx stops the walk immediately and returns ctx's error.
//
// There is no memory between calls: every call starts from the first target.
func (c *Client) RequestWithFallback(ctx context.Context, targets []string, path string, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var attempts []error
	for i, target := range Normalize(targets) {
		fullURL := makeURL(target, path)

		r := c.http.R().SetContext(ctx)
		for name, values := range req.Header {
			for _, v := range values {
				r.Header.Add(name, v)
			}
		}
		if len(req.Query) > 0 {
			r.SetQueryParamsFromValues(req.Query)
		}
		if req.Body != nil {
			r.SetBody(req.Body)
		}

		resp, err := r.Execute(method, fullURL)
		if err == nil {
			return &Response{
				Target:     target,
				URL:        fullURL,
				StatusCode: resp.StatusCode(),
				Header:     resp.Header(),
				Body:       resp.Body(),
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("origin: request to %s: %w", target, ctxErr)
		}

		attempts = append(attempts, fmt.Errorf("%s: %w", target, err))
		c.logger.Warn("origin unreachable, trying next candidate",
			slog.Int("attempt", i+1),
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		if c.fallbacks != nil {
			c.fallbacks.OriginFallback()
		}
	}

	return nil, apperror.Unreachable(MsgAllUnreachable, errors.Join(attempts...))
}

// makeURL joins base and path with exactly one slash between them.
func makeURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path = strings.TrimLeft(path, "/"); path != "" {
		path = "/" + path
	}
	return base + path
}

// restyLogger routes resty's own diagnostics into slog at debug level;
// RequestWithFallback already logs every failure that matters.
type restyLogger struct{ logger *slog.Logger }

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "resty"))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "resty"))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "resty"))
}
