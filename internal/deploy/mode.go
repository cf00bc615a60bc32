// Package deploy names the environments PulsePy runs in.
//
// The mode is resolved once at startup (from configuration) and passed down.
// Business logic switches on the Mode value; it never sniffs hostnames itself.
package deploy

import (
	"fmt"
	"net"
	"strings"
)

// Mode is the deployment environment.
type Mode int

const (
	// Local is a developer machine running the full backend.
	Local Mode = iota
	// StaticDev is a static preview server (e.g. VS Code Live Server on :5500)
	// with no backend of its own; requests must go to the local emulator.
	StaticDev
	// Production is the public deployment over HTTPS.
	Production
)

func (m Mode) String() string {
	switch m {
	case Local:
		return "local"
	case StaticDev:
		return "static-dev"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by String (case-insensitive).
// An empty string means Local.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local", "development", "dev":
		return Local, nil
	case "static-dev", "staticdev", "static":
		return StaticDev, nil
	case "production", "prod":
		return Production, nil
	default:
		return Local, fmt.Errorf("deploy: unknown mode %q", s)
	}
}

// staticDevHosts are the host:port pairs of the static preview server.
var staticDevHosts = map[string]bool{
	"localhost:5500": true,
	"127.0.0.1:5500": true,
}

// IsStaticDevHost reports whether host (host[:port]) is a static preview server.
func IsStaticDevHost(host string) bool {
	return staticDevHosts[strings.ToLower(strings.TrimSpace(host))]
}

// ModeForHost classifies the host a page was served from.
// Static preview ports map to StaticDev, any other loopback address to Local,
// everything else to Production.
func ModeForHost(host string) Mode {
	if IsStaticDevHost(host) {
		return StaticDev
	}

	name := strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(name); err == nil {
		name = h
	}
	switch name {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return Local
	}
	return Production
}
