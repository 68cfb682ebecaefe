// Package auth adds API credentials to outgoing requests.
package auth

import (
	"fmt"
	"net/http"
)

// Authenticator decorates a request with credentials.
type Authenticator interface {
	SetAuthHeader(r *http.Request) error
}

// APIKey authenticates with HTTP basic auth, the key as user name and an
// empty password.
type APIKey struct {
	key string
}

func NewAPIKey(conf Conf) *APIKey {
	return &APIKey{key: conf.APIKey}
}

// Enabled reports whether a key is configured.
func (a *APIKey) Enabled() bool { return a != nil && a.key != "" }

// SetAuthHeader sets the Authorization header when a key is configured and
// leaves the request untouched otherwise.
func (a *APIKey) SetAuthHeader(r *http.Request) error {
	if r == nil {
		return fmt.Errorf("nil request")
	}
	if !a.Enabled() {
		return nil
	}
	r.SetBasicAuth(a.key, "")
	return nil
}

// Transport is a RoundTripper that authenticates every request.
type Transport struct {
	Base http.RoundTripper
	Auth Authenticator
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Auth == nil {
		return base.RoundTrip(r)
	}
	// RoundTrip must not modify the caller's request.
	clone := r.Clone(r.Context())
	if err := t.Auth.SetAuthHeader(clone); err != nil {
		return nil, fmt.Errorf("failed to set auth header: %w", err)
	}
	return base.RoundTrip(clone)
}
