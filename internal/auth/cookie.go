package auth

import (
	"net/http"
	"time"

	"github.com/sakif/pulsepy/internal/deploy"
)

// SessionCookieName is the cookie that carries the session JWT.
const SessionCookieName = "pulsepy_session"

// CookiePolicy builds the session cookie for a deployment mode.
//
// SECURE / SAMESITE:
//   - Production: Secure + SameSite=None, so the frontend on a different site
//     (e.g. Netlify) can send the cookie with credentialed fetches over HTTPS.
//   - Everywhere else: not Secure + SameSite=Lax, because local development
//     runs over plain HTTP and browsers drop Secure cookies there.
type CookiePolicy struct {
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

// NewCookiePolicy returns the policy for mode with the given cookie lifetime.
func NewCookiePolicy(mode deploy.Mode, maxAge time.Duration) CookiePolicy {
	if maxAge <= 0 {
		maxAge = DefaultSessionTTL
	}
	p := CookiePolicy{
		sameSite: http.SameSiteLaxMode,
		maxAge:   maxAge,
	}
	if mode == deploy.Production {
		p.secure = true
		p.sameSite = http.SameSiteNoneMode
	}
	return p
}

// Session returns the cookie that stores token.
func (p CookiePolicy) Session(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	}
}

// Clear returns a cookie that deletes the session cookie.
// net/http writes MaxAge < 0 as "Max-Age=0".
func (p CookiePolicy) Clear() *http.Cookie {
	c := p.Session("")
	c.MaxAge = -1
	return c
}
