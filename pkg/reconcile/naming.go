// Package reconcile drives the resolution-and-reconciliation run: it
// resolves or creates the remote spec and collection for an identity, pushes
// changed content, and keeps the local state store current.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/specsync/specsync/pkg/envconfig"
	"github.com/specsync/specsync/pkg/statestore"
)

// AssetName is the shared display name of an identity's spec and its
// generated collection. Remote name lookups only hit when this exact
// convention is reproduced, so it is the single source of naming truth.
func AssetName(id statestore.Identity) string {
	return fmt.Sprintf("[%s] %s #main",
		strings.ToUpper(envconfig.SanitizeName(id.Domain)),
		envconfig.SanitizeName(id.Service))
}

// EnvironmentName is the display name of a per-environment variable set.
func EnvironmentName(id statestore.Identity, environment string) string {
	return fmt.Sprintf("[%s] %s #%s",
		envconfig.SanitizeName(id.Domain),
		envconfig.SanitizeName(id.Service),
		environment)
}
