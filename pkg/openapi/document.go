// Package openapi manipulates gateway-exported OpenAPI documents ahead of a
// push to the documentation platform.
//
// Documents are handled as loosely-typed JSON objects rather than a typed
// OpenAPI model: the transform must preserve every field it does not
// recognize, and gateway exports routinely carry vendor extensions a typed
// model would drop.
package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Document is a parsed OpenAPI document.
type Document map[string]interface{}

// ParseDocument parses raw JSON bytes into a Document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return doc, nil
}

// Serialize marshals the document to indented JSON. Go marshals map keys in
// sorted order, so serialization is deterministic and safe to fingerprint.
func (d Document) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize OpenAPI document: %w", err)
	}
	return data, nil
}

// DeepCopy returns a copy of the document sharing no mutable state with the
// receiver.
func (d Document) DeepCopy() Document {
	if d == nil {
		return nil
	}
	return deepCopyMap(d)
}

// Fingerprint returns the SHA-256 hex digest of content. Used for change
// detection between runs.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		// Scalars (string, float64, bool, nil) are immutable.
		return val
	}
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}
