package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"chairbook/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadSlots       = "read:slots"
	permReadBookings    = "read:bookings"
	permExportCalendars = "export:calendar"
)

var (
	errMissingKey       = errors.New("missing api key headers")
	errInvalidKey       = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

type clientCtxKey struct{}

// clientFromContext returns the authenticated API client, if any.
func clientFromContext(ctx context.Context) (config.APIClientKey, bool) {
	c, ok := ctx.Value(clientCtxKey{}).(config.APIClientKey)
	return c, ok
}

// keyring resolves API keys to clients. Shared by the HTTP middleware and the gRPC interceptor.
type keyring struct {
	headerKey   string
	headerExtra string
	clients     map[string]config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}
	kr := &keyring{
		headerKey:   strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey)),
		headerExtra: strings.ToLower(strings.TrimSpace(cfg.HeaderExtra)),
		clients:     m,
	}
	if kr.headerKey == "" {
		kr.headerKey = apiKeyHeaderDefault
	}
	if kr.headerExtra == "" {
		kr.headerExtra = apiExtraHeaderDefault
	}
	return kr
}

func (k *keyring) authenticate(apiKey, extra string) (config.APIClientKey, error) {
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingKey
	}
	client, ok := k.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	return client, nil
}

// allowed treats an empty permission list as allow-all.
func allowed(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	enabled bool
	keys    *keyring
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		enabled: cfg.Auth.Enabled,
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

// Require returns middleware enforcing auth with the given permission.
func (a *HTTPAuth) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.enabled {
				client, err := a.keys.authenticate(
					strings.TrimSpace(r.Header.Get(a.keys.headerKey)),
					strings.TrimSpace(r.Header.Get(a.keys.headerExtra)),
				)
				if err != nil {
					writeError(w, http.StatusUnauthorized, err.Error())
					return
				}
				if !allowed(client, permission) {
					writeError(w, http.StatusForbidden, errPermissionDenied.Error())
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), clientCtxKey{}, client))
			}

			if !a.limiter.allow(a.clientKey(r)) {
				writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.headerKey)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}
