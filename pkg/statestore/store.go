package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
)

// Entry caches the remote identifiers resolved for one identity. Fields are
// optional until first populated and are never deleted by the tool; editing
// the state file by hand is the only removal path.
type Entry struct {
	SpecID        string            `json:"specId,omitempty"`
	CollectionUID string            `json:"collectionUid,omitempty"`
	LastSpecSHA   string            `json:"lastSpecSha,omitempty"`
	Environments  map[string]string `json:"environments,omitempty"`
}

// Meta is free-form audit information written on every save. It is never
// read back by the tool.
type Meta struct {
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Document is the full state file contents.
type Document struct {
	Entries map[string]*Entry `json:"entries"`
	Meta    Meta              `json:"meta"`
}

// NewDocument returns an empty state document.
func NewDocument() *Document {
	return &Document{Entries: map[string]*Entry{}}
}

// Entry returns the state entry for id, creating an empty one on first
// reference.
func (d *Document) Entry(id Identity) *Entry {
	if d.Entries == nil {
		d.Entries = map[string]*Entry{}
	}
	key := id.Key()
	if e, ok := d.Entries[key]; ok {
		return e
	}
	e := &Entry{}
	d.Entries[key] = e
	return e
}

// Store reads and writes state documents at a fixed path. Local state is
// advisory: a missing or corrupt file degrades to an empty document rather
// than failing the run. Concurrent writers are not protected against; the
// caller is responsible for running one reconciliation per state file at a
// time.
type Store struct {
	fs   afero.Fs
	path string
	log  hclog.Logger
}

// NewStore creates a Store for path on fs. A nil fs uses the OS filesystem;
// a nil logger is replaced with a null logger.
func NewStore(fs afero.Fs, path string, log hclog.Logger) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Store{fs: fs, path: path, log: log.Named("state")}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state document. A missing or unparsable file is logged and
// treated as empty state; Load never fails the caller.
func (s *Store) Load() *Document {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("state file not found, starting with empty state",
				"path", s.path)
		} else {
			s.log.Warn("failed to read state file, starting with empty state",
				"path", s.path, "error", err)
		}
		return NewDocument()
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("failed to parse state file, starting with empty state",
			"path", s.path, "error", err)
		return NewDocument()
	}
	if doc.Entries == nil {
		doc.Entries = map[string]*Entry{}
	}
	return &doc
}

// Save writes the state document, creating parent directories as needed.
func (s *Store) Save(doc *Document) error {
	doc.Meta = Meta{
		Description: "specsync local state; safe to delete, identifiers are re-resolved by name",
		Version:     "1",
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", s.path, err)
	}

	s.log.Debug("saved state", "path", s.path, "entries", len(doc.Entries))
	return nil
}
