package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id TEXT PRIMARY KEY NOT NULL,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				description TEXT,
				filePath TEXT NOT NULL,
				fileType TEXT NOT NULL,
				coverImage TEXT,
				addedAt INTEGER NOT NULL,
				lastReadAt INTEGER,
				totalPages INTEGER NOT NULL DEFAULT 0,
				currentPage INTEGER NOT NULL DEFAULT 0,
				currentCfi TEXT,
				readingTime INTEGER NOT NULL DEFAULT 0,
				isFavorite INTEGER NOT NULL DEFAULT 0
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE categories (
				id TEXT PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				color TEXT NOT NULL,
				sortOrder INTEGER NOT NULL DEFAULT 0
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE book_categories (
				bookId TEXT NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				categoryId TEXT NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
				PRIMARY KEY (bookId, categoryId)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE bookmarks (
				id TEXT PRIMARY KEY NOT NULL,
				bookId TEXT NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				cfi TEXT,
				page INTEGER,
				createdAt INTEGER NOT NULL,
				note TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE annotations (
				id TEXT PRIMARY KEY NOT NULL,
				bookId TEXT NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				cfi TEXT NOT NULL,
				text TEXT NOT NULL,
				note TEXT,
				color TEXT NOT NULL,
				createdAt INTEGER NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE reading_progress (
				id TEXT PRIMARY KEY NOT NULL,
				bookId TEXT NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				date INTEGER NOT NULL,
				pagesRead INTEGER NOT NULL DEFAULT 0,
				timeSpent INTEGER NOT NULL DEFAULT 0
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}

		indexes := []string{
			`CREATE INDEX ix_books_author ON books (author)`,
			`CREATE INDEX ix_books_added_at ON books (addedAt)`,
			`CREATE INDEX ix_books_last_read_at ON books (lastReadAt)`,
			`CREATE INDEX ix_book_categories_category_id ON book_categories (categoryId)`,
			`CREATE INDEX ix_bookmarks_book_id ON bookmarks (bookId)`,
			`CREATE INDEX ix_annotations_book_id ON annotations (bookId)`,
			`CREATE INDEX ix_reading_progress_book_id ON reading_progress (bookId)`,
			`CREATE INDEX ix_reading_progress_date ON reading_progress (date)`,
		}
		for _, stmt := range indexes {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{
			"reading_progress",
			"annotations",
			"bookmarks",
			"book_categories",
			"categories",
			"books",
		}
		for _, table := range tables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
