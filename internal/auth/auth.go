// Package auth gates API access behind the shared device key. Field
// devices and research scripts send the key in the x-api-key header,
// matching the header API gateways use for usage-plan keys.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sensing-garden/backend/internal/pkg/httputil"
	"github.com/sensing-garden/backend/internal/pkg/logger"
)

// HeaderName is the request header carrying the API key.
const HeaderName = "x-api-key"

// Keyring validates request API keys.
type Keyring struct {
	key     string
	enabled bool
}

// NewKeyring builds a Keyring around key. An empty key disables
// authentication, which is only sensible against a local emulator.
func NewKeyring(key string) *Keyring {
	if key == "" {
		logger.Warn("api key auth disabled, all requests will be accepted")
	}
	return &Keyring{key: key, enabled: key != ""}
}

// Enabled reports whether requests must carry a key.
func (k *Keyring) Enabled() bool { return k.enabled }

// Valid reports whether candidate matches the configured key in
// constant time.
func (k *Keyring) Valid(candidate string) bool {
	if !k.enabled {
		return true
	}
	if len(candidate) != len(k.key) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(k.key)) == 1
}

// RequireKey is middleware that rejects requests without a valid API
// key. Health endpoints stay open so load balancers can probe them.
func (k *Keyring) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if !k.Valid(r.Header.Get(HeaderName)) {
			logger.Debug("rejected request with invalid api key",
				"method", r.Method,
				"path", r.URL.Path)
			httputil.Unauthorized(w, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}
