package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Annotation is a highlighted text range, always anchored by a CFI.
type Annotation struct {
	ID        string
	BookID    string
	CFI       string
	Text      string
	Note      *string
	Color     string
	CreatedAt time.Time
}

// NewAnnotation fills a partially populated annotation with safe defaults.
func NewAnnotation(a Annotation) *Annotation {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return &a
}

type AnnotationRecord struct {
	bun.BaseModel `bun:"table:annotations,alias:a"`

	ID        string  `bun:"id,pk"`
	BookID    string  `bun:"bookId"`
	CFI       string  `bun:"cfi"`
	Text      string  `bun:"text"`
	Note      *string `bun:"note"`
	Color     string  `bun:"color"`
	CreatedAt int64   `bun:"createdAt"`
}

func (a *Annotation) ToRecord() *AnnotationRecord {
	return &AnnotationRecord{
		ID:        a.ID,
		BookID:    a.BookID,
		CFI:       a.CFI,
		Text:      a.Text,
		Note:      a.Note,
		Color:     a.Color,
		CreatedAt: a.CreatedAt.UnixMilli(),
	}
}

func AnnotationFromRecord(rec *AnnotationRecord) *Annotation {
	return &Annotation{
		ID:        rec.ID,
		BookID:    rec.BookID,
		CFI:       rec.CFI,
		Text:      rec.Text,
		Note:      rec.Note,
		Color:     rec.Color,
		CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
	}
}
