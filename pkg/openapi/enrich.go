package openapi

import (
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/specsync/specsync/pkg/envconfig"
)

// templated placeholders recognized in a service URL template, in the order
// their variables are attached to the server entry.
var templateVariables = []struct {
	placeholder string
	name        string
	collect     func(envconfig.Environment) string
}{
	{"{apiId}", "apiId", func(e envconfig.Environment) string { return e.APIID }},
	{"{region}", "region", func(e envconfig.Environment) string { return e.Region }},
	{"{stage}", "stage", func(e envconfig.Environment) string { return e.Stage }},
}

// Enricher rewrites a document's server block from a multi-environment
// service configuration.
type Enricher struct {
	log hclog.Logger
}

// NewEnricher creates an Enricher. A nil logger is replaced with a null
// logger.
func NewEnricher(log hclog.Logger) *Enricher {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Enricher{log: log.Named("enrich")}
}

// Enrich replaces doc's servers array with a single templated entry built
// from the service's enabled environments. Without a configuration entry or
// any enabled environment the document is returned unchanged.
//
// Multi-environment enrichment is exclusive with any previously derived
// server list: the entire servers array is replaced.
func (e *Enricher) Enrich(doc Document, service string, cfg *envconfig.Config) Document {
	svc, ok := cfg.Service(service)
	if !ok {
		e.log.Debug("no environment config for service, skipping enrichment",
			"service", service)
		return doc
	}
	enabled := svc.EnabledEnvironments()
	if len(enabled) == 0 {
		e.log.Debug("no enabled environments for service, skipping enrichment",
			"service", service)
		return doc
	}

	server := map[string]interface{}{"url": svc.URLTemplate}
	variables := map[string]interface{}{}

	for _, tv := range templateVariables {
		if !strings.Contains(svc.URLTemplate, tv.placeholder) {
			continue
		}
		values := distinctValues(enabled, tv.collect)
		if len(values) == 0 {
			continue
		}
		variable := map[string]interface{}{"default": values[0]}
		if len(values) > 1 {
			enum := make([]interface{}, len(values))
			for i, v := range values {
				enum[i] = v
			}
			variable["enum"] = enum
		}
		variables[tv.name] = variable
	}
	if len(variables) > 0 {
		server["variables"] = variables
	}

	e.log.Info("enriched servers from environment config",
		"service", service, "environments", len(enabled))
	doc["servers"] = []interface{}{server}
	return doc
}

// distinctValues returns the distinct non-empty values across environments
// in first-seen order, so the first entry is the variable default.
func distinctValues(envs []envconfig.Environment, collect func(envconfig.Environment) string) []string {
	var values []string
	seen := map[string]bool{}
	for _, env := range envs {
		v := collect(env)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}
