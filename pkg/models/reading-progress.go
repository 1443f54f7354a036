package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReadingProgress is one reading session. Rows are append-only; totals are
// derived by folding the history, never by updating rows in place.
type ReadingProgress struct {
	ID        string
	BookID    string
	Date      time.Time
	PagesRead int
	TimeSpent int // minutes
}

// NewReadingProgress fills a partially populated session row with safe
// defaults.
func NewReadingProgress(rp ReadingProgress) *ReadingProgress {
	if rp.Date.IsZero() {
		rp.Date = time.Now()
	}
	return &rp
}

type ReadingProgressRecord struct {
	bun.BaseModel `bun:"table:reading_progress,alias:rp"`

	ID        string `bun:"id,pk"`
	BookID    string `bun:"bookId"`
	Date      int64  `bun:"date"`
	PagesRead int    `bun:"pagesRead"`
	TimeSpent int    `bun:"timeSpent"`
}

func (rp *ReadingProgress) ToRecord() *ReadingProgressRecord {
	return &ReadingProgressRecord{
		ID:        rp.ID,
		BookID:    rp.BookID,
		Date:      rp.Date.UnixMilli(),
		PagesRead: rp.PagesRead,
		TimeSpent: rp.TimeSpent,
	}
}

func ReadingProgressFromRecord(rec *ReadingProgressRecord) *ReadingProgress {
	return &ReadingProgress{
		ID:        rec.ID,
		BookID:    rec.BookID,
		Date:      time.UnixMilli(rec.Date).UTC(),
		PagesRead: rec.PagesRead,
		TimeSpent: rec.TimeSpent,
	}
}
