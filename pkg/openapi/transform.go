package openapi

import (
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Vendor extension vocabulary of the gateway export.
const (
	extPolicy         = "x-amazon-apigateway-policy"
	extDocumentation  = "x-amazon-apigateway-documentation"
	extAnyMethod      = "x-amazon-apigateway-any-method"
	extIntegration    = "x-amazon-apigateway-integration"
	extAuth           = "x-amazon-apigateway-auth"
	extParamValidator = "x-amazon-apigateway-param-validator"
)

// reservedTagPrefixes mark gateway-internal tags that must not reach the
// documentation platform.
var reservedTagPrefixes = []string{"aws:", "amazon:"}

// httpMethods are the operation keys recognized on a path item.
var httpMethods = []string{
	"get", "put", "post", "delete", "options", "head", "patch", "trace",
}

// Transformer normalizes gateway-exported documents for the documentation
// platform.
type Transformer struct {
	log hclog.Logger
}

// NewTransformer creates a Transformer. A nil logger is replaced with a null
// logger.
func NewTransformer(log hclog.Logger) *Transformer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Transformer{log: log.Named("transform")}
}

// Transform returns a normalized deep copy of doc. The input is never
// mutated. Each normalization step tolerates missing or malformed fields
// independently; a step that finds nothing to do is a no-op.
func (t *Transformer) Transform(doc Document) Document {
	out := doc.DeepCopy()

	t.stripRootExtensions(out)
	t.filterReservedTags(out)
	t.rewritePaths(out)
	t.collapseServerBasePaths(out)

	return out
}

func (t *Transformer) stripRootExtensions(doc Document) {
	for _, ext := range []string{extPolicy, extDocumentation} {
		if _, ok := doc[ext]; ok {
			t.log.Debug("dropping root vendor extension", "extension", ext)
			delete(doc, ext)
		}
	}
}

func (t *Transformer) filterReservedTags(doc Document) {
	tags, ok := doc["tags"].([]interface{})
	if !ok {
		return
	}

	kept := make([]interface{}, 0, len(tags))
	for _, raw := range tags {
		tag, ok := raw.(map[string]interface{})
		if !ok {
			kept = append(kept, raw)
			continue
		}
		name, _ := tag["name"].(string)
		if hasReservedPrefix(name) {
			t.log.Debug("dropping reserved tag", "tag", name)
			continue
		}
		kept = append(kept, raw)
	}
	doc["tags"] = kept
}

func hasReservedPrefix(name string) bool {
	for _, prefix := range reservedTagPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (t *Transformer) rewritePaths(doc Document) {
	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		return
	}

	for path, raw := range paths {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		cleaned := t.rewritePathItem(path, item)
		if len(methodEntries(cleaned)) == 0 {
			// Nothing but vendor constructs; the path has no real
			// operations and is dropped from the output.
			t.log.Debug("dropping path with no operations", "path", path)
			delete(paths, path)
			continue
		}
		paths[path] = cleaned
	}
}

// rewritePathItem returns the normalized path item. A gateway any-method
// construct expands into explicit get and post operations; regular
// operations are copied minus the gateway integration extensions.
func (t *Transformer) rewritePathItem(path string, item map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}

	if params := cleanParameters(item["parameters"]); params != nil {
		out["parameters"] = params
	}

	if anyMethod, ok := item[extAnyMethod].(map[string]interface{}); ok {
		t.log.Debug("expanding any-method construct", "path", path)
		responses, ok := anyMethod["responses"].(map[string]interface{})
		if !ok {
			responses = map[string]interface{}{
				"200": map[string]interface{}{"description": "Successful response"},
				"500": map[string]interface{}{"description": "Internal server error"},
			}
		}

		get := map[string]interface{}{"responses": deepCopyValue(responses)}
		post := map[string]interface{}{
			"responses": deepCopyValue(responses),
			"requestBody": map[string]interface{}{
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]interface{}{"type": "object"},
					},
				},
			},
		}
		if params, ok := anyMethod["parameters"].([]interface{}); ok {
			get["parameters"] = deepCopyValue(params)
			post["parameters"] = deepCopyValue(params)
		}

		out["get"] = get
		out["post"] = post
		return out
	}

	for _, method := range httpMethods {
		op, ok := item[method].(map[string]interface{})
		if !ok {
			continue
		}
		delete(op, extIntegration)
		delete(op, extAuth)
		out[method] = op
	}
	return out
}

func methodEntries(item map[string]interface{}) []string {
	var methods []string
	for _, method := range httpMethods {
		if _, ok := item[method]; ok {
			methods = append(methods, method)
		}
	}
	return methods
}

func cleanParameters(raw interface{}) []interface{} {
	params, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	for _, p := range params {
		if param, ok := p.(map[string]interface{}); ok {
			delete(param, extParamValidator)
		}
	}
	return params
}

// collapseServerBasePaths substitutes a server's basePath variable default
// into its URL when the URL carries the {basePath} placeholder, removing the
// variable afterwards.
func (t *Transformer) collapseServerBasePaths(doc Document) {
	servers, ok := doc["servers"].([]interface{})
	if !ok {
		return
	}

	for _, raw := range servers {
		server, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		url, _ := server["url"].(string)
		if !strings.Contains(url, "{basePath}") {
			continue
		}
		variables, ok := server["variables"].(map[string]interface{})
		if !ok {
			continue
		}
		basePath, ok := variables["basePath"].(map[string]interface{})
		if !ok {
			continue
		}
		def, ok := basePath["default"].(string)
		if !ok {
			continue
		}

		server["url"] = strings.ReplaceAll(url, "{basePath}", def)
		delete(variables, "basePath")
		if len(variables) == 0 {
			delete(server, "variables")
		}
	}
}
