package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Bookmark marks a position in a book. Reflowable formats carry a CFI, fixed
// layouts a page number; neither is enforced exclusively.
type Bookmark struct {
	ID        string
	BookID    string
	CFI       *string
	Page      *int
	CreatedAt time.Time
	Note      *string
}

// NewBookmark fills a partially populated bookmark with safe defaults.
func NewBookmark(bm Bookmark) *Bookmark {
	if bm.CreatedAt.IsZero() {
		bm.CreatedAt = time.Now()
	}
	return &bm
}

type BookmarkRecord struct {
	bun.BaseModel `bun:"table:bookmarks,alias:bm"`

	ID        string  `bun:"id,pk"`
	BookID    string  `bun:"bookId"`
	CFI       *string `bun:"cfi"`
	Page      *int    `bun:"page"`
	CreatedAt int64   `bun:"createdAt"`
	Note      *string `bun:"note"`
}

func (bm *Bookmark) ToRecord() *BookmarkRecord {
	return &BookmarkRecord{
		ID:        bm.ID,
		BookID:    bm.BookID,
		CFI:       bm.CFI,
		Page:      bm.Page,
		CreatedAt: bm.CreatedAt.UnixMilli(),
		Note:      bm.Note,
	}
}

func BookmarkFromRecord(rec *BookmarkRecord) *Bookmark {
	return &Bookmark{
		ID:        rec.ID,
		BookID:    rec.BookID,
		CFI:       rec.CFI,
		Page:      rec.Page,
		CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
		Note:      rec.Note,
	}
}
