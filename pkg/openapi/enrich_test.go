package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specsync/specsync/pkg/envconfig"
)

func multiEnvConfig() *envconfig.Config {
	return &envconfig.Config{
		Services: map[string]envconfig.Service{
			"orders": {
				URLTemplate: "https://{apiId}.execute-api.{region}.amazonaws.com/{stage}",
				Environments: []envconfig.Environment{
					{Name: "dev", Region: "eu-west-1", Stage: "dev", APIID: "aaa111", Enabled: true},
					{Name: "prod", Region: "eu-central-1", Stage: "prod", APIID: "bbb222", Enabled: true},
					{Name: "legacy", Region: "us-east-1", Stage: "v0", APIID: "ccc333", Enabled: false},
				},
			},
		},
	}
}

func TestEnrich_ReplacesServers(t *testing.T) {
	doc := Document{
		"servers": []interface{}{
			map[string]interface{}{"url": "https://old.example.com"},
		},
	}

	out := NewEnricher(nil).Enrich(doc, "orders", multiEnvConfig())

	servers := out["servers"].([]interface{})
	require.Len(t, servers, 1)
	server := servers[0].(map[string]interface{})
	assert.Equal(t, "https://{apiId}.execute-api.{region}.amazonaws.com/{stage}", server["url"])

	variables := server["variables"].(map[string]interface{})
	for name, want := range map[string]struct {
		def  string
		enum []interface{}
	}{
		"apiId":  {"aaa111", []interface{}{"aaa111", "bbb222"}},
		"region": {"eu-west-1", []interface{}{"eu-west-1", "eu-central-1"}},
		"stage":  {"dev", []interface{}{"dev", "prod"}},
	} {
		variable := variables[name].(map[string]interface{})
		assert.Equal(t, want.def, variable["default"], name)
		assert.Equal(t, want.enum, variable["enum"], name)
	}
}

func TestEnrich_SingleValueHasNoEnum(t *testing.T) {
	cfg := &envconfig.Config{
		Services: map[string]envconfig.Service{
			"orders": {
				URLTemplate: "https://{apiId}.example.com/{stage}",
				Environments: []envconfig.Environment{
					{Name: "dev", Stage: "dev", APIID: "aaa111", Enabled: true},
				},
			},
		},
	}

	out := NewEnricher(nil).Enrich(Document{}, "orders", cfg)
	variables := out["servers"].([]interface{})[0].(map[string]interface{})["variables"].(map[string]interface{})

	apiID := variables["apiId"].(map[string]interface{})
	assert.Equal(t, "aaa111", apiID["default"])
	assert.NotContains(t, apiID, "enum")
	// region is not in the template and the environments carry no value
	assert.NotContains(t, variables, "region")
}

func TestEnrich_NoOpCases(t *testing.T) {
	doc := Document{"servers": []interface{}{map[string]interface{}{"url": "https://keep.me"}}}

	t.Run("nil config", func(t *testing.T) {
		out := NewEnricher(nil).Enrich(doc, "orders", nil)
		assert.Equal(t, "https://keep.me", out["servers"].([]interface{})[0].(map[string]interface{})["url"])
	})

	t.Run("unknown service", func(t *testing.T) {
		out := NewEnricher(nil).Enrich(doc, "payments", multiEnvConfig())
		assert.Equal(t, "https://keep.me", out["servers"].([]interface{})[0].(map[string]interface{})["url"])
	})

	t.Run("no enabled environments", func(t *testing.T) {
		cfg := &envconfig.Config{
			Services: map[string]envconfig.Service{
				"orders": {
					URLTemplate: "https://x",
					Environments: []envconfig.Environment{
						{Name: "off", Enabled: false},
					},
				},
			},
		}
		out := NewEnricher(nil).Enrich(doc, "orders", cfg)
		assert.Equal(t, "https://keep.me", out["servers"].([]interface{})[0].(map[string]interface{})["url"])
	})
}

func TestEnrich_LooksUpSanitizedServiceName(t *testing.T) {
	out := NewEnricher(nil).Enrich(Document{}, "orders", multiEnvConfig())
	require.Contains(t, out, "servers")

	// the raw service name is sanitized before the config lookup
	spaced := NewEnricher(nil).Enrich(Document{}, " orders", multiEnvConfig())
	assert.NotContains(t, spaced, "servers")
}
