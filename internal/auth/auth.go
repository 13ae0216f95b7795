// Package auth maps bearer credentials to client policies.
package auth

import (
	"fmt"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/audit"
)

// ClientPolicy is the per-credential configuration for one API client.
// Loaded once at startup and immutable for the process lifetime.
type ClientPolicy struct {
	ClientID       string `yaml:"client_id"`
	APIKey         string `yaml:"api_key"`
	SaveRecordings bool   `yaml:"save_recordings"`
	AllowCloud     bool   `yaml:"allow_cloud"`
}

// tokenPrefixLen bounds how much of a rejected token makes it into the audit
// log. The full secret must never be written anywhere.
const tokenPrefixLen = 8

// Registry holds the static client policy set, keyed by secret equality.
type Registry struct {
	clients []ClientPolicy
	audit   *audit.Logger
}

// NewRegistry creates a registry over the given policies.
func NewRegistry(clients []ClientPolicy, auditLog *audit.Logger) *Registry {
	return &Registry{clients: clients, audit: auditLog}
}

// Len returns the number of registered clients.
func (r *Registry) Len() int { return len(r.clients) }

// Authenticate resolves an opaque bearer token to its client policy.
// The registry is small and static, so an exact-match linear scan is enough.
// On a miss it audits a truncated prefix of the offending token against the
// "unknown" identity and returns an invalid-credential error.
func (r *Registry) Authenticate(token string) (*ClientPolicy, error) {
	for i := range r.clients {
		if r.clients[i].APIKey == token {
			return &r.clients[i], nil
		}
	}

	prefix := token
	if len(prefix) > tokenPrefixLen {
		prefix = prefix[:tokenPrefixLen]
	}
	if r.audit != nil {
		r.audit.Record("unknown", fmt.Sprintf("rejected bearer token with prefix %q", prefix))
	}
	return nil, apperrs.InvalidCredential()
}
