package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemill/pagemill/internal/domain"
)

func TestExtractFile_NotAPDF(t *testing.T) {
	e := NewExtractor()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := e.ExtractFile(path)
	assert.ErrorIs(t, err, domain.ErrNotAPDF)
}

func TestExtractFile_MissingFile(t *testing.T) {
	e := NewExtractor()

	_, err := e.ExtractFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestExtractFile_MissingNonPDFReportsNotFound(t *testing.T) {
	e := NewExtractor()

	_, err := e.ExtractFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestExtractFile_CorruptPDF(t *testing.T) {
	e := NewExtractor()

	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a real pdf"), 0o644))

	_, err := e.ExtractFile(path)
	assert.Error(t, err)
}

func TestListDirectory_MissingDir(t *testing.T) {
	e := NewExtractor()

	_, err := e.ListDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, domain.ErrDirectoryNotFound)
}

func TestListDirectory_NoPDFs(t *testing.T) {
	e := NewExtractor()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hi"), 0o644))

	_, err := e.ListDirectory(dir)
	assert.ErrorIs(t, err, domain.ErrNoPDFsInDirectory)
}

func TestListDirectory_SortedPDFsOnly(t *testing.T) {
	e := NewExtractor()

	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	paths, err := e.ListDirectory(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a.PDF"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.pdf"), paths[1])
}
