package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	return NewArchive(filepath.Join(t.TempDir(), "projects.json"), zerolog.Nop())
}

func TestArchive_ListEmpty(t *testing.T) {
	a := testArchive(t)
	records, err := a.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestArchive_AppendNewestFirst(t *testing.T) {
	a := testArchive(t)

	require.NoError(t, a.Append(ArchivedProject{ID: "1", Title: "first", Status: "success"}))
	require.NoError(t, a.Append(ArchivedProject{ID: "2", Title: "second", Status: "skipped"}))

	records, err := a.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Title)
	assert.Equal(t, "first", records[1].Title)
}

func TestArchive_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.json")
	require.NoError(t, os.WriteFile(path, []byte("[broken"), 0o644))

	a := NewArchive(path, zerolog.Nop())
	records, err := a.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	// Append still works and supersedes the corrupt content.
	require.NoError(t, a.Append(ArchivedProject{ID: "1", Title: "fresh", ExecutedAt: time.Now().UTC()}))
	records, err = a.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].Title)
}
