package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"openapi":"3.0.1","info":{"title":"t"}}`))
	require.NoError(t, err)
	assert.Equal(t, "3.0.1", doc["openapi"])

	_, err = ParseDocument([]byte("not json"))
	assert.Error(t, err)
}

func TestSerialize_Deterministic(t *testing.T) {
	doc := Document{"b": 1.0, "a": 2.0}
	first, err := doc.Serialize()
	require.NoError(t, err)
	second, err := doc.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.JSONEq(t, `{"a": 2, "b": 1}`, string(first))
}

func TestDeepCopy(t *testing.T) {
	doc := Document{
		"nested": map[string]interface{}{"key": "value"},
		"list":   []interface{}{map[string]interface{}{"k": "v"}},
	}

	clone := doc.DeepCopy()
	clone["nested"].(map[string]interface{})["key"] = "changed"
	clone["list"].([]interface{})[0].(map[string]interface{})["k"] = "changed"

	assert.Equal(t, "value", doc["nested"].(map[string]interface{})["key"])
	assert.Equal(t, "v", doc["list"].([]interface{})[0].(map[string]interface{})["k"])
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("content"))
	assert.Equal(t, a, Fingerprint([]byte("content")))
	assert.NotEqual(t, a, Fingerprint([]byte("other")))
	assert.Len(t, a, 64)
}
