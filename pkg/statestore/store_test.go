package statestore

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), ".specsync/state.json", nil)

	doc := store.Load()
	require.NotNil(t, doc)
	assert.Empty(t, doc.Entries)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "state.json", []byte("{broken"), 0o644))

	doc := NewStore(fs, "state.json", nil).Load()
	require.NotNil(t, doc)
	assert.Empty(t, doc.Entries)
}

func TestStore_SaveRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, ".specsync/nested/state.json", nil)

	id := Identity{Domain: "payments", Service: "orders", Stage: "prod"}
	doc := NewDocument()
	entry := doc.Entry(id)
	entry.SpecID = "spec-1"
	entry.CollectionUID = "col-1"
	entry.LastSpecSHA = "abc"
	entry.Environments = map[string]string{"dev": "env-1"}

	require.NoError(t, store.Save(doc))

	loaded := store.Load()
	got := loaded.Entry(id)
	assert.Equal(t, "spec-1", got.SpecID)
	assert.Equal(t, "col-1", got.CollectionUID)
	assert.Equal(t, "abc", got.LastSpecSHA)
	assert.Equal(t, map[string]string{"dev": "env-1"}, got.Environments)

	// meta is written for auditability
	assert.NotEmpty(t, loaded.Meta.UpdatedAt)
}

func TestDocument_EntryCreatesOnFirstReference(t *testing.T) {
	doc := NewDocument()
	id := Identity{Domain: "d", Service: "s", Stage: "st"}

	first := doc.Entry(id)
	first.SpecID = "spec-1"

	// same identity returns the same entry
	assert.Equal(t, "spec-1", doc.Entry(id).SpecID)
	assert.Len(t, doc.Entries, 1)

	// a distinct identity gets a fresh empty entry
	other := doc.Entry(Identity{Domain: "d", Service: "s", Stage: "dev"})
	assert.Empty(t, other.SpecID)
	assert.Len(t, doc.Entries, 2)
}
