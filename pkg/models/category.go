package models

import (
	"github.com/creasty/defaults"
	"github.com/uptrace/bun"
)

type Category struct {
	ID        string
	Name      string
	Color     string `default:"#6200EE"`
	SortOrder int
}

// NewCategory fills a partially populated category with safe defaults.
func NewCategory(c Category) *Category {
	defaults.MustSet(&c)
	return &c
}

type CategoryRecord struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID        string `bun:"id,pk"`
	Name      string `bun:"name"`
	Color     string `bun:"color"`
	SortOrder int    `bun:"sortOrder"`
}

func (c *Category) ToRecord() *CategoryRecord {
	return &CategoryRecord{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		SortOrder: c.SortOrder,
	}
}

func CategoryFromRecord(rec *CategoryRecord) *Category {
	return &Category{
		ID:        rec.ID,
		Name:      rec.Name,
		Color:     rec.Color,
		SortOrder: rec.SortOrder,
	}
}

// BookCategory is the many-to-many membership between books and categories.
// The pair is unique; rows cascade away with either parent.
type BookCategory struct {
	BookID     string
	CategoryID string
}

type BookCategoryRecord struct {
	bun.BaseModel `bun:"table:book_categories,alias:bc"`

	BookID     string `bun:"bookId,pk"`
	CategoryID string `bun:"categoryId,pk"`
}

func (bc *BookCategory) ToRecord() *BookCategoryRecord {
	return &BookCategoryRecord{BookID: bc.BookID, CategoryID: bc.CategoryID}
}

func BookCategoryFromRecord(rec *BookCategoryRecord) *BookCategory {
	return &BookCategory{BookID: rec.BookID, CategoryID: rec.CategoryID}
}
