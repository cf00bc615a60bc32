package origin

import (
	"reflect"
	"testing"
)

func TestResolveBases_StaticDevIsLocalEmulatorOnly(t *testing.T) {
	for _, host := range []string{"localhost:5500", "127.0.0.1:5500"} {
		t.Run(host, func(t *testing.T) {
			c := ResolveBases(RuntimeContext{
				Host:      host,
				Overrides: "https://ignored.example.com",
				Defaults:  Defaults{RemoteBases: []string{"https://also-ignored.example.com"}},
			})

			if got, want := c.Bases(), []string{LocalEmulatorBase}; !reflect.DeepEqual(got, want) {
				t.Errorf("Bases() = %v, want %v", got, want)
			}
			if !c.StaticDev() {
				t.Error("StaticDev() = false, want true")
			}
			if c.Functions() != FunctionsLocalBase {
				t.Errorf("Functions() = %q, want %q", c.Functions(), FunctionsLocalBase)
			}
		})
	}
}

func TestResolveBases_RemoteOrdering(t *testing.T) {
	c := ResolveBases(RuntimeContext{
		Host:      "pulsepy.netlify.app",
		Overrides: " https://a.example.com/ , ,https://b.example.com//",
		Defaults:  Defaults{RemoteBases: []string{"https://meta.example.com", "https://a.example.com"}},
	})

	want := []string{
		"https://a.example.com",
		"https://b.example.com",
		"https://meta.example.com",
		ProductionRemoteBase,
	}
	if got := c.Bases(); !reflect.DeepEqual(got, want) {
		t.Errorf("Bases() = %v, want %v", got, want)
	}
}

func TestResolveBases_NoOverrides(t *testing.T) {
	c := ResolveBases(RuntimeContext{Host: "localhost:8080"})

	if got, want := c.Bases(), []string{ProductionRemoteBase}; !reflect.DeepEqual(got, want) {
		t.Errorf("Bases() = %v, want %v", got, want)
	}
	if c.Functions() != FunctionsRemoteBase {
		t.Errorf("Functions() = %q, want %q", c.Functions(), FunctionsRemoteBase)
	}
}

func TestResolveBases_EmptyPoolFallsBackToProduction(t *testing.T) {
	c := ResolveBases(RuntimeContext{
		Host:     "example.com",
		Defaults: Defaults{ProductionRemote: "https://prod.example.com///"},
	})

	if got, want := c.Bases(), []string{"https://prod.example.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Bases() = %v, want %v", got, want)
	}
}

func TestCandidates_WithFunctions(t *testing.T) {
	tests := []struct {
		name string
		rc   RuntimeContext
		want []string
	}{
		{
			name: "server mode puts functions last",
			rc:   RuntimeContext{Host: "example.com", Overrides: "https://a.example.com"},
			want: []string{"https://a.example.com", ProductionRemoteBase, FunctionsRemoteBase},
		},
		{
			name: "functions mode puts functions first",
			rc:   RuntimeContext{Host: "example.com", Overrides: "https://a.example.com", APIMode: APIModeFunctions},
			want: []string{FunctionsRemoteBase, "https://a.example.com", ProductionRemoteBase},
		},
		{
			name: "static dev functions mode",
			rc:   RuntimeContext{Host: "localhost:5500", APIMode: APIModeFunctions},
			want: []string{FunctionsLocalBase, LocalEmulatorBase},
		},
		{
			name: "override equal to functions origin is not repeated",
			rc:   RuntimeContext{Host: "example.com", Overrides: "/api/"},
			want: []string{FunctionsRemoteBase, ProductionRemoteBase},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ResolveBases(tt.rc)
			if got := c.WithFunctions(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WithFunctions() = %v, want %v", got, tt.want)
			}
			if c.Primary() != tt.want[0] {
				t.Errorf("Primary() = %q, want %q", c.Primary(), tt.want[0])
			}
		})
	}
}

func TestCandidates_Targets(t *testing.T) {
	c := ResolveBases(RuntimeContext{Host: "localhost:5500"})

	want := []string{LocalEmulatorBase + "/auth", FunctionsLocalBase + "/auth"}
	if got := c.Targets("/auth"); !reflect.DeepEqual(got, want) {
		t.Errorf("Targets(/auth) = %v, want %v", got, want)
	}
	if got := c.Targets(""); !reflect.DeepEqual(got, c.WithFunctions()) {
		t.Errorf("Targets(\"\") = %v, want %v", got, c.WithFunctions())
	}
}

func TestCandidates_BasesIsACopy(t *testing.T) {
	c := ResolveBases(RuntimeContext{Host: "example.com"})

	b := c.Bases()
	b[0] = "mutated"

	if c.Bases()[0] == "mutated" {
		t.Error("Bases() exposed internal state")
	}
}

func TestCandidates_PublicPath(t *testing.T) {
	static := ResolveBases(RuntimeContext{Host: "127.0.0.1:5500"})
	hosted := ResolveBases(RuntimeContext{Host: "pulsepy.netlify.app"})

	tests := []struct {
		name string
		c    Candidates
		in   string
		want string
	}{
		{"static relative", static, "index.html", "/public/index.html"},
		{"static absolute path", static, "/index.html", "/public/index.html"},
		{"static already public", static, "/public/login.html", "/public/login.html"},
		{"static empty", static, "", "/public/"},
		{"hosted", hosted, "index.html", "/index.html"},
		{"full url", static, "https://example.com/x", "https://example.com/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.PublicPath(tt.in); got != tt.want {
				t.Errorf("PublicPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" https://a.com/ ", "", "https://a.com", "https://b.com///", "   "})
	want := []string{"https://a.com", "https://b.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}
}

func TestParseAPIMode(t *testing.T) {
	if ParseAPIMode(" Functions ") != APIModeFunctions {
		t.Error(`ParseAPIMode(" Functions ") should be functions`)
	}
	if ParseAPIMode("server") != APIModeServer || ParseAPIMode("") != APIModeServer {
		t.Error("anything but functions should be server mode")
	}
}
