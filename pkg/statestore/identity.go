// Package statestore persists the per-identity reconciliation state that
// makes repeated runs cheap: cached remote identifiers and the fingerprint
// of the last pushed document.
package statestore

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var whitespace = regexp.MustCompile(`\s+`)

// Identity is the (domain, service, stage) tuple indexing local state.
type Identity struct {
	Domain  string
	Service string
	Stage   string
}

// Validate reports whether the identity is complete. All three components
// are required before any remote call is attempted.
func (id Identity) Validate() error {
	return validation.ValidateStruct(&id,
		validation.Field(&id.Domain, validation.Required),
		validation.Field(&id.Service, validation.Required),
		validation.Field(&id.Stage, validation.Required),
	)
}

// Key returns the state-file key for the identity. Components are
// whitespace-normalized before joining, so the key is stable across runs.
func (id Identity) Key() string {
	return strings.Join([]string{
		normalize(id.Domain),
		normalize(id.Service),
		normalize(id.Stage),
	}, ":")
}

func (id Identity) String() string {
	return id.Key()
}

// Equal reports whether two identities normalize to the same key.
func (id Identity) Equal(other Identity) bool {
	return id.Key() == other.Key()
}

func normalize(s string) string {
	return whitespace.ReplaceAllString(s, "_")
}

// ParseIdentity parses a "domain:service:stage" key back into an Identity.
func ParseIdentity(key string) (Identity, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("invalid identity key %q: expected domain:service:stage", key)
	}
	id := Identity{Domain: parts[0], Service: parts[1], Stage: parts[2]}
	if err := id.Validate(); err != nil {
		return Identity{}, fmt.Errorf("invalid identity key %q: %w", key, err)
	}
	return id, nil
}
