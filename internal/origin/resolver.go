// Package origin decides which backend origins a request should try, and in
// what order.
//
// PulsePy runs in very different places: a static preview server on a
// developer laptop, a local backend, serverless functions behind hosting
// rewrites, and a long-running server on Render. Rather than picking one base
// URL, the resolver computes an ordered candidate list once, and the Client
// walks it until an origin answers.
//
// ORDERING:
//
//	static dev host  → backends = [local emulator]
//	anywhere else    → backends = overrides ++ configured remotes ++ production default
//	priority list    → functions first when APIMode is "functions",
//	                   otherwise backends first and functions last
package origin

import (
	"net/url"
	"strings"

	"github.com/sakif/pulsepy/internal/deploy"
)

// Built-in origins.
const (
	LocalEmulatorBase    = "http://localhost:8080"
	FunctionsLocalBase   = "http://127.0.0.1:5001/ai-python-ide/us-central1/api"
	FunctionsRemoteBase  = "/api"
	ProductionRemoteBase = "https://pulsepy-backend.onrender.com"
)

// APIMode is the ordering hint between long-running server and serverless functions.
type APIMode string

const (
	APIModeServer    APIMode = ""
	APIModeFunctions APIMode = "functions"
)

// ParseAPIMode maps "functions" (any case) to APIModeFunctions and anything
// else to APIModeServer.
func ParseAPIMode(s string) APIMode {
	if strings.EqualFold(strings.TrimSpace(s), string(APIModeFunctions)) {
		return APIModeFunctions
	}
	return APIModeServer
}

// Defaults are the compiled-in origins. Zero fields are filled from the
// constants above by withFallbacks.
type Defaults struct {
	LocalEmulator    string
	FunctionsLocal   string
	FunctionsRemote  string
	ProductionRemote string

	// RemoteBases are deployment-configured origins tried before ProductionRemote.
	RemoteBases []string
}

// DefaultDefaults returns the built-in origins with no extra remote bases.
func DefaultDefaults() Defaults {
	return Defaults{}.withFallbacks()
}

func (d Defaults) withFallbacks() Defaults {
	if d.LocalEmulator == "" {
		d.LocalEmulator = LocalEmulatorBase
	}
	if d.FunctionsLocal == "" {
		d.FunctionsLocal = FunctionsLocalBase
	}
	if d.FunctionsRemote == "" {
		d.FunctionsRemote = FunctionsRemoteBase
	}
	if d.ProductionRemote == "" {
		d.ProductionRemote = ProductionRemoteBase
	}
	return d
}

// RuntimeContext is everything ResolveBases looks at.
type RuntimeContext struct {
	// Host is the host[:port] the client page was served from.
	Host string
	// Overrides is a comma-separated list of bases (e.g. the apiBase query parameter).
	Overrides string
	APIMode   APIMode
	Defaults  Defaults
}

// Candidates is an immutable, ordered, de-duplicated origin list.
type Candidates struct {
	backends  []string
	functions string
	mode      APIMode
	staticDev bool
}

// ResolveBases computes the candidate origins for rc.
//
// The returned Candidates' Bases() is the backend pool: on a static-dev host
// that is exactly the local emulator. WithFunctions() adds the serverless
// origin in the position APIMode asks for.
func ResolveBases(rc RuntimeContext) Candidates {
	d := rc.Defaults.withFallbacks()
	staticDev := deploy.IsStaticDevHost(rc.Host)

	var pool []string
	if staticDev {
		pool = []string{d.LocalEmulator}
	} else {
		pool = append(pool, ParseList(rc.Overrides)...)
		pool = append(pool, d.RemoteBases...)
		pool = append(pool, d.ProductionRemote)
	}

	backends := Normalize(pool)
	if len(backends) == 0 {
		backends = Normalize([]string{d.ProductionRemote})
	}

	functions := d.FunctionsRemote
	if staticDev {
		functions = d.FunctionsLocal
	}

	return Candidates{
		backends:  backends,
		functions: normalizeBase(functions),
		mode:      rc.APIMode,
		staticDev: staticDev,
	}
}

// Bases returns the backend pool in priority order.
func (c Candidates) Bases() []string {
	return append([]string(nil), c.backends...)
}

// Functions returns the serverless functions origin.
func (c Candidates) Functions() string {
	return c.functions
}

// StaticDev reports whether the candidates were computed for a static preview host.
func (c Candidates) StaticDev() bool {
	return c.staticDev
}

// WithFunctions returns the full priority list: backends plus the functions
// origin, first when APIMode is functions and last otherwise.
func (c Candidates) WithFunctions() []string {
	list := make([]string, 0, len(c.backends)+1)
	if c.mode == APIModeFunctions {
		list = append(list, c.functions)
		list = append(list, c.backends...)
	} else {
		list = append(list, c.backends...)
		list = append(list, c.functions)
	}
	return Normalize(list)
}

// Primary is the first origin of the priority list.
func (c Candidates) Primary() string {
	if list := c.WithFunctions(); len(list) > 0 {
		return list[0]
	}
	return ProductionRemoteBase
}

// Targets joins every priority origin with segment ("auth", "challenges",
// "mentorHint"). An empty segment returns the origins themselves.
func (c Candidates) Targets(segment string) []string {
	segment = strings.TrimLeft(segment, "/")

	bases := c.WithFunctions()
	targets := make([]string, 0, len(bases))
	for _, base := range bases {
		if segment == "" {
			targets = append(targets, base)
			continue
		}
		targets = append(targets, base+"/"+segment)
	}
	return Normalize(targets)
}

// PublicPath maps a frontend path to where the static server actually serves
// it. Static preview servers serve the repository root, so pages live under
// /public; everywhere else the path is used as-is. Absolute URLs pass through.
func (c Candidates) PublicPath(target string) string {
	if target == "" {
		target = "/"
	}
	if u, err := url.Parse(target); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	if !c.staticDev || strings.HasPrefix(target, "/public/") {
		return target
	}
	return "/public" + target
}

// ParseList splits a comma-separated list, trimming items and dropping empties.
func ParseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Normalize trims whitespace and trailing slashes, drops empties, and removes
// duplicates keeping the first occurrence.
func Normalize(bases []string) []string {
	seen := make(map[string]bool, len(bases))
	out := make([]string, 0, len(bases))
	for _, b := range bases {
		b = normalizeBase(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func normalizeBase(b string) string {
	return strings.TrimRight(strings.TrimSpace(b), "/")
}
