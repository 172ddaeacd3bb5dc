package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ArchivedProject is one flattened record of a workflow run, shaped for the
// frontend project list.
type ArchivedProject struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	DetailsMarkdown string    `json:"details_markdown"`
	Status          string    `json:"status"`
	ExecutedAt      time.Time `json:"executed_at"`
	Source          string    `json:"source"`
}

// Archive is an append-only, newest-first JSON array file of run records.
type Archive struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// NewArchive creates an archive backed by the given file path.
func NewArchive(path string, logger zerolog.Logger) *Archive {
	return &Archive{
		path:   path,
		logger: logger.With().Str("component", "memory.archive").Logger(),
	}
}

// Append inserts a record at the head of the archive (newest first).
func (a *Archive) Append(rec ArchivedProject) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := a.read()
	records = append([]ArchivedProject{rec}, records...)
	if err := writeJSONAtomic(a.path, records); err != nil {
		return fmt.Errorf("append archive record: %w", err)
	}
	return nil
}

// List returns all archived records, newest first.
func (a *Archive) List() ([]ArchivedProject, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.read(), nil
}

// read loads the archive file, treating a missing or corrupt file as empty.
func (a *Archive) read() []ArchivedProject {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Warn().Err(err).Str("path", a.path).Msg("archive file unreadable, starting empty")
		}
		return []ArchivedProject{}
	}

	var records []ArchivedProject
	if err := json.Unmarshal(raw, &records); err != nil {
		a.logger.Warn().Err(err).Str("path", a.path).Msg("archive file corrupt, starting empty")
		return []ArchivedProject{}
	}
	return records
}
