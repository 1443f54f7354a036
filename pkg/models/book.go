package models

import (
	"math"
	"time"

	"github.com/creasty/defaults"
	"github.com/uptrace/bun"
)

// FileType identifies the format of an imported book file.
type FileType string

const (
	FileTypeEPUB FileType = "epub"
	FileTypePDF  FileType = "pdf"
	FileTypeMOBI FileType = "mobi"
	FileTypeAZW  FileType = "azw"
	FileTypeAZW3 FileType = "azw3"
)

// FileTypes lists every supported format.
var FileTypes = []FileType{FileTypeEPUB, FileTypePDF, FileTypeMOBI, FileTypeAZW, FileTypeAZW3}

func (ft FileType) Valid() bool {
	for _, t := range FileTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Book is the root aggregate of the library. Bookmarks, annotations, reading
// progress rows, and category memberships are owned by their book and go away
// with it.
type Book struct {
	ID          string
	Title       string `default:"Unknown Title"`
	Author      string `default:"Unknown Author"`
	Description string
	FilePath    string
	FileType    FileType `default:"epub"`
	CoverImage  *string
	AddedAt     time.Time
	LastReadAt  *time.Time
	TotalPages  int
	CurrentPage int
	CurrentCFI  *string
	ReadingTime int // cumulative minutes, never decreases
	IsFavorite  bool
}

// NewBook fills a partially populated book with safe defaults so that no
// field is ever left undefined. The ID stays blank until the caller assigns
// one.
func NewBook(b Book) *Book {
	defaults.MustSet(&b)
	if b.AddedAt.IsZero() {
		b.AddedAt = time.Now()
	}
	return &b
}

// Progress is the percentage read, rounded. Unknown page counts report 0.
func (b *Book) Progress() int {
	if b.TotalPages == 0 {
		return 0
	}
	return int(math.Round(float64(b.CurrentPage) / float64(b.TotalPages) * 100))
}

func (b *Book) IsReading() bool {
	return b.CurrentPage > 0 && b.CurrentPage < b.TotalPages
}

func (b *Book) IsCompleted() bool {
	return b.TotalPages > 0 && b.CurrentPage >= b.TotalPages
}

// BookRecord is the row shape of a book: the on-disk contract shared by every
// storage backend. Timestamps are millisecond epoch integers and booleans are
// 0/1, matching the relational schema.
type BookRecord struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          string  `bun:"id,pk"`
	Title       string  `bun:"title"`
	Author      string  `bun:"author"`
	Description string  `bun:"description"`
	FilePath    string  `bun:"filePath"`
	FileType    string  `bun:"fileType"`
	CoverImage  *string `bun:"coverImage"`
	AddedAt     int64   `bun:"addedAt"`
	LastReadAt  *int64  `bun:"lastReadAt"`
	TotalPages  int     `bun:"totalPages"`
	CurrentPage int     `bun:"currentPage"`
	CurrentCFI  *string `bun:"currentCfi"`
	ReadingTime int     `bun:"readingTime"`
	IsFavorite  int     `bun:"isFavorite"`
}

func (b *Book) ToRecord() *BookRecord {
	rec := &BookRecord{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		FilePath:    b.FilePath,
		FileType:    string(b.FileType),
		CoverImage:  b.CoverImage,
		AddedAt:     b.AddedAt.UnixMilli(),
		TotalPages:  b.TotalPages,
		CurrentPage: b.CurrentPage,
		CurrentCFI:  b.CurrentCFI,
		ReadingTime: b.ReadingTime,
	}
	if b.LastReadAt != nil {
		ms := b.LastReadAt.UnixMilli()
		rec.LastReadAt = &ms
	}
	if b.IsFavorite {
		rec.IsFavorite = 1
	}
	return rec
}

func BookFromRecord(rec *BookRecord) *Book {
	b := &Book{
		ID:          rec.ID,
		Title:       rec.Title,
		Author:      rec.Author,
		Description: rec.Description,
		FilePath:    rec.FilePath,
		FileType:    FileType(rec.FileType),
		CoverImage:  rec.CoverImage,
		AddedAt:     time.UnixMilli(rec.AddedAt).UTC(),
		TotalPages:  rec.TotalPages,
		CurrentPage: rec.CurrentPage,
		CurrentCFI:  rec.CurrentCFI,
		ReadingTime: rec.ReadingTime,
		IsFavorite:  rec.IsFavorite == 1,
	}
	if rec.LastReadAt != nil {
		t := time.UnixMilli(*rec.LastReadAt).UTC()
		b.LastReadAt = &t
	}
	return b
}
