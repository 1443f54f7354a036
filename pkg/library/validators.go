package library

import "github.com/codexbooks/codex/pkg/models"

type importBookParams struct {
	SourcePath string          `validate:"required"`
	FileType   models.FileType `validate:"omitempty,oneof=epub pdf mobi azw azw3"`
}

type createCategoryParams struct {
	Name  string `validate:"required,max=100"`
	Color string `validate:"omitempty,max=30"`
}

type createAnnotationParams struct {
	BookID string `validate:"required"`
	CFI    string `validate:"required"`
	Text   string `validate:"required"`
	Color  string `validate:"required,max=30"`
}
