package handler

import (
	"net/http"

	"github.com/sakif/pulsepy/internal/origin"
)

// OriginsResponse describes where a client on a given host should send API calls.
type OriginsResponse struct {
	Bases     []string `json:"bases"`
	Functions string   `json:"functions"`
	Priority  []string `json:"priority"`
	Primary   string   `json:"primary"`
	StaticDev bool     `json:"staticDev"`
}

// OriginsHandler serves the resolved origin candidates.
type OriginsHandler struct {
	defaults origin.Defaults
	mode     origin.APIMode
}

// NewOriginsHandler creates an OriginsHandler. defaults carries the
// deployment's remote bases; mode is used when the query doesn't name one.
func NewOriginsHandler(defaults origin.Defaults, mode origin.APIMode) *OriginsHandler {
	return &OriginsHandler{defaults: defaults, mode: mode}
}

// HandleOrigins resolves candidates for the calling page.
//
// HTTP: GET /api/origins?host=localhost:5500&apiBase=https://a,https://b&apiMode=functions
//
// host defaults to the request's Host header.
func (h *OriginsHandler) HandleOrigins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	host := q.Get("host")
	if host == "" {
		host = r.Host
	}
	mode := h.mode
	if q.Has("apiMode") {
		mode = origin.ParseAPIMode(q.Get("apiMode"))
	}

	c := origin.ResolveBases(origin.RuntimeContext{
		Host:      host,
		Overrides: q.Get("apiBase"),
		APIMode:   mode,
		Defaults:  h.defaults,
	})

	writeJSON(w, http.StatusOK, OriginsResponse{
		Bases:     c.Bases(),
		Functions: c.Functions(),
		Priority:  c.WithFunctions(),
		Primary:   c.Primary(),
		StaticDev: c.StaticDev(),
	})
}
