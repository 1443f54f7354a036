package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/codexbooks/codex/pkg/errcodes"
	"github.com/codexbooks/codex/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupSQLite(t *testing.T) Storage {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database and its pragmas on one
	// handle.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	s := NewSQLite(db)
	require.NoError(t, s.Init(context.Background()))

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func setupMemory(t *testing.T) Storage {
	t.Helper()

	s := NewMemory()
	require.NoError(t, s.Init(context.Background()))

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// backends is the conformance table: every property below must hold for every
// backend identically.
var backends = map[string]func(t *testing.T) Storage{
	"sqlite": setupSQLite,
	"memory": setupMemory,
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Storage)) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, setup(t))
		})
	}
}

func testBook(id, title, author string, addedAt time.Time) *models.Book {
	return models.NewBook(models.Book{
		ID:       id,
		Title:    title,
		Author:   author,
		FilePath: "/books/" + id + ".epub",
		AddedAt:  addedAt,
	})
}

func testTime(offsetMinutes int) time.Time {
	return time.UnixMilli(1700000000000).UTC().Add(time.Duration(offsetMinutes) * time.Minute)
}

func TestBookCRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		book := testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))
		require.NoError(t, s.AddBook(ctx, book))

		got, err := s.RetrieveBook(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, book, got)

		book.CurrentPage = 57
		book.TotalPages = 310
		require.NoError(t, s.UpdateBook(ctx, book))

		got, err = s.RetrieveBook(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, 57, got.CurrentPage)
		assert.Equal(t, 310, got.TotalPages)

		require.NoError(t, s.DeleteBook(ctx, "b1"))
		_, err = s.RetrieveBook(ctx, "b1")
		assert.ErrorIs(t, err, errcodes.NotFound("Book"))
	})
}

func TestRetrieveBookMiss(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		_, err := s.RetrieveBook(context.Background(), "nope")
		assert.ErrorIs(t, err, errcodes.NotFound("Book"))
	})
}

func TestUpdateMissingBookDoesNotInsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "Dune", "Frank Herbert", testTime(0))))

		ghost := testBook("ghost", "Ghost", "Nobody", testTime(1))
		require.NoError(t, s.UpdateBook(ctx, ghost))

		books, err := s.ListBooks(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 1)
		assert.Equal(t, "b1", books[0].ID)
	})
}

func TestListBooksOrderedByAddedAtDescending(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "First", "A", testTime(0))))
		require.NoError(t, s.AddBook(ctx, testBook("b2", "Second", "B", testTime(10))))
		require.NoError(t, s.AddBook(ctx, testBook("b3", "Third", "C", testTime(20))))

		books, err := s.ListBooks(ctx)
		require.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, "b3", books[0].ID)
		assert.Equal(t, "b2", books[1].ID)
		assert.Equal(t, "b1", books[2].ID)
	})
}

func TestSearchBooks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		require.NoError(t, s.AddBook(ctx, testBook("b2", "Dune", "Frank Herbert", testTime(1))))
		require.NoError(t, s.AddBook(ctx, testBook("b3", "The Silmarillion", "J.R.R. Tolkien", testTime(2))))

		t.Run("case-insensitive author substring", func(t *testing.T) {
			books, err := s.SearchBooks(ctx, "tolkien")
			require.NoError(t, err)
			require.Len(t, books, 2)
			// Ordered by title ascending.
			assert.Equal(t, "The Hobbit", books[0].Title)
			assert.Equal(t, "The Silmarillion", books[1].Title)
		})

		t.Run("title substring", func(t *testing.T) {
			books, err := s.SearchBooks(ctx, "hobbit")
			require.NoError(t, err)
			require.Len(t, books, 1)
			assert.Equal(t, "b1", books[0].ID)
		})

		t.Run("no match", func(t *testing.T) {
			books, err := s.SearchBooks(ctx, "asimov")
			require.NoError(t, err)
			assert.Empty(t, books)
		})
	})
}

func TestDeleteBookCascades(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c1", Name: "Fantasy"})))
		require.NoError(t, s.AddBookToCategory(ctx, "b1", "c1"))
		require.NoError(t, s.AddBookmark(ctx, models.NewBookmark(models.Bookmark{ID: "bm1", BookID: "b1", CreatedAt: testTime(1)})))
		note := "opening line"
		require.NoError(t, s.AddAnnotation(ctx, models.NewAnnotation(models.Annotation{
			ID: "a1", BookID: "b1", CFI: "epubcfi(/6/4!/4/10/2:0)", Text: "In a hole", Note: &note, Color: "#FFEB3B", CreatedAt: testTime(1),
		})))
		require.NoError(t, s.AddReadingProgress(ctx, models.NewReadingProgress(models.ReadingProgress{
			ID: "rp1", BookID: "b1", Date: testTime(2), PagesRead: 10, TimeSpent: 5,
		})))

		require.NoError(t, s.DeleteBook(ctx, "b1"))

		bookmarks, err := s.ListBookmarksByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, bookmarks)

		annotations, err := s.ListAnnotationsByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, annotations)

		progress, err := s.ListReadingProgressByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, progress)

		books, err := s.ListBooksByCategory(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, books)

		// The category itself is untouched.
		categories, err := s.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, categories, 1)
	})
}

func TestDeleteCategoryLeavesBooksIntact(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c1", Name: "Fantasy"})))
		require.NoError(t, s.AddBookToCategory(ctx, "b1", "c1"))

		require.NoError(t, s.DeleteCategory(ctx, "c1"))

		book, err := s.RetrieveBook(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "The Hobbit", book.Title)

		categories, err := s.ListCategoriesByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(t, categories)
	})
}

func TestCategoriesOrderedBySortOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c2", Name: "Later", SortOrder: 2})))
		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c0", Name: "First", SortOrder: 0})))
		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c1", Name: "Middle", SortOrder: 1})))

		categories, err := s.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 3)
		assert.Equal(t, "c0", categories[0].ID)
		assert.Equal(t, "c1", categories[1].ID)
		assert.Equal(t, "c2", categories[2].ID)
	})
}

func TestCategoryMembership(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "Older", "A", testTime(0))))
		require.NoError(t, s.AddBook(ctx, testBook("b2", "Newer", "B", testTime(5))))
		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c1", Name: "Shelf"})))

		require.NoError(t, s.AddBookToCategory(ctx, "b1", "c1"))
		require.NoError(t, s.AddBookToCategory(ctx, "b2", "c1"))
		// Duplicate pair is a no-op.
		require.NoError(t, s.AddBookToCategory(ctx, "b1", "c1"))

		books, err := s.ListBooksByCategory(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, "b2", books[0].ID)
		assert.Equal(t, "b1", books[1].ID)

		require.NoError(t, s.RemoveBookFromCategory(ctx, "b1", "c1"))
		books, err = s.ListBooksByCategory(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "b2", books[0].ID)
	})
}

func TestOrphanWritesAreRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		require.NoError(t, s.AddCategory(ctx, models.NewCategory(models.Category{ID: "c1", Name: "Fantasy"})))

		err := s.AddBookmark(ctx, models.NewBookmark(models.Bookmark{ID: "bm1", BookID: "ghost", CreatedAt: testTime(1)}))
		assert.ErrorIs(t, err, errcodes.ConstraintViolation(""))

		err = s.AddAnnotation(ctx, models.NewAnnotation(models.Annotation{
			ID: "a1", BookID: "ghost", CFI: "epubcfi(/6/4!/4/2/1:0)", Text: "x", Color: "#FFEB3B", CreatedAt: testTime(1),
		}))
		assert.ErrorIs(t, err, errcodes.ConstraintViolation(""))

		err = s.AddReadingProgress(ctx, models.NewReadingProgress(models.ReadingProgress{
			ID: "rp1", BookID: "ghost", Date: testTime(1),
		}))
		assert.ErrorIs(t, err, errcodes.ConstraintViolation(""))

		err = s.AddBookToCategory(ctx, "ghost", "c1")
		assert.ErrorIs(t, err, errcodes.ConstraintViolation(""))

		err = s.AddBookToCategory(ctx, "b1", "ghost")
		assert.ErrorIs(t, err, errcodes.ConstraintViolation(""))
	})
}

func TestBookmarksOrderedByCreatedAtDescending(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		require.NoError(t, s.AddBookmark(ctx, models.NewBookmark(models.Bookmark{ID: "bm1", BookID: "b1", CreatedAt: testTime(1)})))
		require.NoError(t, s.AddBookmark(ctx, models.NewBookmark(models.Bookmark{ID: "bm2", BookID: "b1", CreatedAt: testTime(3)})))
		require.NoError(t, s.AddBookmark(ctx, models.NewBookmark(models.Bookmark{ID: "bm3", BookID: "b1", CreatedAt: testTime(2)})))

		bookmarks, err := s.ListBookmarksByBook(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, bookmarks, 3)
		assert.Equal(t, "bm2", bookmarks[0].ID)
		assert.Equal(t, "bm3", bookmarks[1].ID)
		assert.Equal(t, "bm1", bookmarks[2].ID)

		require.NoError(t, s.DeleteBookmark(ctx, "bm2"))
		bookmarks, err = s.ListBookmarksByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Len(t, bookmarks, 2)
	})
}

func TestAnnotationsOrderedByCreatedAtDescending(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		for i, id := range []string{"a1", "a2", "a3"} {
			require.NoError(t, s.AddAnnotation(ctx, models.NewAnnotation(models.Annotation{
				ID: id, BookID: "b1", CFI: "epubcfi(/6/4!/4/2/1:0)", Text: "x", Color: "#FFEB3B", CreatedAt: testTime(i),
			})))
		}

		annotations, err := s.ListAnnotationsByBook(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, annotations, 3)
		assert.Equal(t, "a3", annotations[0].ID)
		assert.Equal(t, "a1", annotations[2].ID)

		require.NoError(t, s.DeleteAnnotation(ctx, "a3"))
		annotations, err = s.ListAnnotationsByBook(ctx, "b1")
		require.NoError(t, err)
		assert.Len(t, annotations, 2)
	})
}

func TestReadingProgressLogAndTotals(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "The Hobbit", "J.R.R. Tolkien", testTime(0))))
		require.NoError(t, s.AddReadingProgress(ctx, models.NewReadingProgress(models.ReadingProgress{
			ID: "rp1", BookID: "b1", Date: testTime(1), PagesRead: 10, TimeSpent: 5,
		})))
		require.NoError(t, s.AddReadingProgress(ctx, models.NewReadingProgress(models.ReadingProgress{
			ID: "rp2", BookID: "b1", Date: testTime(2), PagesRead: 20, TimeSpent: 15,
		})))

		progress, err := s.ListReadingProgressByBook(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, progress, 2)
		// Most recent session first.
		assert.Equal(t, "rp2", progress[0].ID)
		assert.Equal(t, "rp1", progress[1].ID)

		totals, err := s.TotalReadingStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 20, totals.TotalTime)
		assert.Equal(t, 30, totals.TotalPages)
	})
}

func TestOperationsFailBeforeInit(t *testing.T) {
	uninitialized := map[string]Storage{
		"sqlite": NewSQLite(nil),
		"memory": NewMemory(),
	}
	for name, s := range uninitialized {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			err := s.AddBook(ctx, testBook("b1", "x", "y", testTime(0)))
			assert.ErrorIs(t, err, errcodes.StorageUnavailable())

			_, err = s.ListBooks(ctx)
			assert.ErrorIs(t, err, errcodes.StorageUnavailable())

			err = s.Close()
			assert.ErrorIs(t, err, errcodes.StorageUnavailable())
		})
	}
}

func TestOperationsFailAfterClose(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		ctx := context.Background()

		require.NoError(t, s.AddBook(ctx, testBook("b1", "x", "y", testTime(0))))
		require.NoError(t, s.Close())

		_, err := s.ListBooks(ctx)
		assert.ErrorIs(t, err, errcodes.StorageUnavailable())

		err = s.UpdateBook(ctx, testBook("b1", "x", "y", testTime(0)))
		assert.ErrorIs(t, err, errcodes.StorageUnavailable())
	})
}

func TestDoubleInitFailsLoudly(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		err := s.Init(context.Background())
		assert.Error(t, err)
		assert.NotErrorIs(t, err, errcodes.StorageUnavailable())
	})
}

func TestSchemaApplicationIsIdempotent(t *testing.T) {
	// Re-running migrations against an initialized store is a no-op, not an
	// error and not data loss.
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	ctx := context.Background()
	first := NewSQLite(db)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.AddBook(ctx, testBook("b1", "Kept", "A", testTime(0))))
	first.ready = false // release the handle without closing the shared db

	second := NewSQLite(db)
	require.NoError(t, second.Init(ctx))

	books, err := second.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Kept", books[0].Title)

	require.NoError(t, second.Close())
}
