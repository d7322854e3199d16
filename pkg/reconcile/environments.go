package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/specsync/specsync/pkg/envconfig"
	"github.com/specsync/specsync/pkg/remote"
	"github.com/specsync/specsync/pkg/statestore"
)

// environmentValues builds the variable set for one environment: the
// rendered base URL plus the raw template values.
func environmentValues(svc envconfig.Service, env envconfig.Environment) []remote.EnvironmentValue {
	baseURL := svc.URLTemplate
	baseURL = strings.ReplaceAll(baseURL, "{apiId}", env.APIID)
	baseURL = strings.ReplaceAll(baseURL, "{region}", env.Region)
	baseURL = strings.ReplaceAll(baseURL, "{stage}", env.Stage)

	return []remote.EnvironmentValue{
		{Key: "baseUrl", Value: baseURL, Enabled: true},
		{Key: "apiId", Value: env.APIID, Enabled: true},
		{Key: "region", Value: env.Region, Enabled: true},
		{Key: "stage", Value: env.Stage, Enabled: true},
	}
}

// upsertEnvironment resolves a remote environment by cached identifier,
// name, or creation, in that order. An update failure against a cached or
// looked-up identifier is a warning, not a run failure: creation is the
// safety net, so a stale identifier never blocks progress. Returns the
// identifier in effect after the call.
func (e *Engine) upsertEnvironment(ctx context.Context, name string, values []remote.EnvironmentValue, cachedUID string) (string, error) {
	uid := cachedUID
	if uid == "" {
		existing, err := e.client.FindEnvironmentByName(ctx, name)
		if err != nil {
			return "", fmt.Errorf("failed to look up environment %q: %w", name, err)
		}
		if existing != nil {
			uid = existing.UID
		}
	}

	if uid != "" {
		err := e.client.UpdateEnvironment(ctx, uid, name, values)
		if err == nil {
			return uid, nil
		}
		e.log.Warn("environment update failed, falling back to create",
			"name", name, "uid", uid, "error", err)
		if e.OnEnvironmentFallback != nil {
			e.OnEnvironmentFallback(name, err)
		}
	}

	created, err := e.client.CreateEnvironment(ctx, name, values)
	if err != nil {
		return "", fmt.Errorf("failed to create environment %q: %w", name, err)
	}
	return created, nil
}

// upsertEnvironments provisions one remote environment per enabled
// descriptor and merges the resulting identifiers into the state entry's
// environments map. Existing keys are preserved; changed keys overwritten.
func (e *Engine) upsertEnvironments(ctx context.Context, id statestore.Identity, svc envconfig.Service, entry *statestore.Entry) (map[string]string, error) {
	enabled := svc.EnabledEnvironments()
	if len(enabled) == 0 {
		return nil, nil
	}

	resolved := map[string]string{}
	for _, env := range enabled {
		name := EnvironmentName(id, env.Name)
		cached := ""
		if entry.Environments != nil {
			cached = entry.Environments[env.Name]
		}

		uid, err := e.upsertEnvironment(ctx, name, environmentValues(svc, env), cached)
		if err != nil {
			return nil, err
		}
		resolved[env.Name] = uid
	}

	if entry.Environments == nil {
		entry.Environments = map[string]string{}
	}
	for k, v := range resolved {
		entry.Environments[k] = v
	}
	return resolved, nil
}
