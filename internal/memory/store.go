// Package memory provides the local JSON-file-backed state stores: a
// single-document store holding the current project slot and a newest-first
// archive of completed runs.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Document is a JSON object persisted as a whole on every save. Values are
// kept raw so the store stays agnostic of what callers put in it.
type Document map[string]json.RawMessage

// Get unmarshals the value stored under key into v. Returns false if the
// key is absent or the value does not fit v.
func (d Document) Get(key string, v interface{}) bool {
	raw, ok := d[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Set marshals v and stores it under key.
func (d Document) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	d[key] = raw
	return nil
}

// Delete removes a key from the document.
func (d Document) Delete(key string) {
	delete(d, key)
}

// FileStore persists a single Document to a JSON file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "memory.store").Logger(),
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the document from disk. A missing or unparseable file is not
// an error — it degrades to an empty document so the workflow can restart
// from scratch.
func (s *FileStore) Load() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() Document {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("state file unreadable, starting empty")
		}
		return Document{}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("state file corrupt, starting empty")
		return Document{}
	}
	if doc == nil {
		doc = Document{}
	}
	return doc
}

// Save writes the full document atomically (temp file + rename),
// pretty-printed. Write failures propagate to the caller.
func (s *FileStore) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path, doc)
}

// Update applies fn to a freshly loaded document under the store lock and
// persists the result, so concurrent updaters cannot lose each other's keys.
func (s *FileStore) Update(fn func(Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if err := fn(doc); err != nil {
		return err
	}
	return writeJSONAtomic(s.path, doc)
}

func writeJSONAtomic(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
