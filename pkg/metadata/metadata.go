// Package metadata resolves the format and descriptive metadata of imported
// book files. Extraction is best-effort: failures degrade to filename-derived
// defaults at the call site, they never abort an import.
package metadata

import (
	"github.com/codexbooks/codex/pkg/fileutils"
	"github.com/codexbooks/codex/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

type Metadata struct {
	Title       string
	Author      string
	Description string
	TotalPages  int
}

type Extractor interface {
	Extract(path string, fileType models.FileType) (*Metadata, error)
}

// Stub is the default extractor. Per-format parsing belongs to the rendering
// side; the library degrades to filename-derived defaults.
type Stub struct{}

func (Stub) Extract(_ string, _ models.FileType) (*Metadata, error) {
	return &Metadata{}, nil
}

var mimeToFileType = map[string]models.FileType{
	"application/epub+zip":               models.FileTypeEPUB,
	"application/pdf":                    models.FileTypePDF,
	"application/x-mobipocket-ebook":     models.FileTypeMOBI,
	"application/vnd.amazon.ebook":       models.FileTypeAZW,
	"application/vnd.amazon.mobi8-ebook": models.FileTypeAZW3,
}

// DetectFileType resolves the format of a file, preferring the extension and
// falling back to content sniffing for files without a recognized one.
func DetectFileType(path string) (models.FileType, error) {
	if ft := models.FileType(fileutils.Extension(path)); ft.Valid() {
		return ft, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	for mime, ft := range mimeToFileType {
		if mtype.Is(mime) {
			return ft, nil
		}
	}
	return "", errors.Errorf("unsupported file format: %s", mtype.String())
}
