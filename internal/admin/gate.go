// Package admin implements the access gate guarding privileged operations
// (delete-any, publish-announcement, list-reports) plus the optional admin
// session tokens.
//
// TWO CREDENTIAL SCHEMES, CHOSEN AT DEPLOYMENT:
//
//   - Credential pair mode: when both ADMIN_USER and ADMIN_PASS are set, the
//     caller must present a matching pair via standard HTTP Basic auth.
//   - Shared-secret mode: otherwise, the caller must present ADMIN_KEY via
//     the X-Admin-Key header or the ?key= query parameter.
//
// If neither is configured, every privileged call fails closed. The gate is
// a pure predicate — it never writes state and never panics on malformed
// input; anything it cannot positively verify is simply not authorized.
package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// keyHeader is the header carrying the shared secret in fallback mode.
const keyHeader = "X-Admin-Key"

// Gate authorizes privileged requests. Stateless; safe for concurrent use.
type Gate struct {
	user   string
	pass   string
	key    string
	tokens *TokenService // nil when sessions are disabled
}

// NewGate builds a gate from the configured credentials. tokens may be nil,
// in which case session cookies are ignored and only the two header-based
// schemes apply.
func NewGate(user, pass, key string, tokens *TokenService) *Gate {
	return &Gate{user: user, pass: pass, key: key, tokens: tokens}
}

// Enabled reports whether any credential scheme is configured at all.
// Useful for logging a loud warning at startup when the admin surface is
// effectively sealed shut.
func (g *Gate) Enabled() bool {
	return (g.user != "" && g.pass != "") || g.key != ""
}

// Authorize reports whether the request may perform privileged operations.
//
// ORDER OF CHECKS:
// A valid session cookie wins first (it was only ever issued to a caller who
// already passed credential checks at login). Then the configured scheme is
// applied. Credential pair mode takes precedence over shared-secret mode
// when both happen to be configured.
func (g *Gate) Authorize(r *http.Request) bool {
	if g.tokens != nil {
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			if g.tokens.Validate(cookie.Value) == nil {
				return true
			}
		}
	}

	if g.user != "" && g.pass != "" {
		// r.BasicAuth handles scheme, base64, and separator parsing and
		// returns ok=false for anything malformed — exactly the fail-closed
		// behaviour we want.
		user, pass, ok := r.BasicAuth()
		if !ok {
			return false
		}
		return g.matchUser(user) && g.matchPassword(pass)
	}

	if g.key == "" {
		return false
	}
	presented := r.Header.Get(keyHeader)
	if presented == "" {
		presented = r.URL.Query().Get("key")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(g.key)) == 1
}

func (g *Gate) matchUser(user string) bool {
	return subtle.ConstantTimeCompare([]byte(user), []byte(g.user)) == 1
}

// matchPassword compares the presented password against the configured one.
//
// If ADMIN_PASS looks like a bcrypt hash ("$2a$...", "$2b$...", ...), it is
// verified with bcrypt so deployments can avoid keeping a plaintext password
// in the environment. Anything else is compared in constant time.
func (g *Gate) matchPassword(pass string) bool {
	if strings.HasPrefix(g.pass, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(g.pass), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(g.pass)) == 1
}
