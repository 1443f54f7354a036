// Package fileutils is the OS-backed file-storage collaborator. The library
// service only sees the Copy/Delete/Exists surface; everything else here is
// bookkeeping around the data directory.
package fileutils

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store performs file operations on the local filesystem.
type Store struct{}

func NewStore() Store {
	return Store{}
}

func (Store) Copy(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WithStack(err)
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return errors.WithStack(err)
	}

	// Copy file permissions
	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	err = destFile.Chmod(sourceInfo.Mode())
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Delete removes a file. Deleting an already-absent file is not an error.
func (Store) Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

func (Store) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.WithStack(err)
}

// EnsureDataDirs creates the books and covers directories under the data
// directory and returns their paths.
func EnsureDataDirs(dataDir string) (booksDir, coversDir string, err error) {
	booksDir = filepath.Join(dataDir, "books")
	coversDir = filepath.Join(dataDir, "covers")
	for _, dir := range []string{booksDir, coversDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", "", errors.Wrapf(err, "failed to create data directory: %s", dir)
		}
	}
	return booksDir, coversDir, nil
}

var mimeTypes = map[string]string{
	"epub": "application/epub+zip",
	"pdf":  "application/pdf",
	"mobi": "application/x-mobipocket-ebook",
	"azw":  "application/vnd.amazon.ebook",
	"azw3": "application/vnd.amazon.ebook",
}

// MimeType returns the MIME type for a book file based on its extension.
func MimeType(path string) string {
	if mt, ok := mimeTypes[Extension(path)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Extension returns the lowercased file extension without the leading dot.
func Extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// IsSupportedFormat reports whether the file extension is an importable book
// format.
func IsSupportedFormat(path string) bool {
	_, ok := mimeTypes[Extension(path)]
	return ok
}
