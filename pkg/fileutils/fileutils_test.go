package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.epub")
	dst := filepath.Join(dir, "nested", "dst.epub")
	require.NoError(t, os.WriteFile(src, []byte("contents"), 0o640))

	store := NewStore()
	require.NoError(t, store.Copy(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestCopyMissingSource(t *testing.T) {
	store := NewStore()
	err := store.Copy(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "dst"))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store := NewStore()
	require.NoError(t, store.Delete(path))

	exists, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(path))
}

func TestEnsureDataDirs(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")

	booksDir, coversDir, err := EnsureDataDirs(dataDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "books"), booksDir)
	assert.Equal(t, filepath.Join(dataDir, "covers"), coversDir)
	assert.DirExists(t, booksDir)
	assert.DirExists(t, coversDir)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/epub+zip", MimeType("/books/hobbit.EPUB"))
	assert.Equal(t, "application/pdf", MimeType("paper.pdf"))
	assert.Equal(t, "application/octet-stream", MimeType("notes.txt"))
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("book.azw3"))
	assert.True(t, IsSupportedFormat("book.mobi"))
	assert.False(t, IsSupportedFormat("book.docx"))
	assert.False(t, IsSupportedFormat("book"))
}
