// Package storage defines the persistence contract of the library core and
// its interchangeable backends. Every implementation exposes the same logical
// rows and key semantics: the durable SQLite backend enforces them through the
// relational schema, the volatile in-memory backend replicates them by hand.
package storage

import (
	"context"

	"github.com/codexbooks/codex/pkg/models"
)

// ReadingTotals is the global aggregate over the reading_progress log.
type ReadingTotals struct {
	TotalTime  int // minutes
	TotalPages int
}

// Storage is the backend contract. All operations fail with
// errcodes.StorageUnavailable before Init or after Close. Writes referencing
// a missing parent row fail with errcodes.ConstraintViolation instead of
// inserting an orphan.
type Storage interface {
	// Init establishes the store and applies the schema. A second call fails
	// loudly; it never silently reopens a different store.
	Init(ctx context.Context) error
	Close() error

	AddBook(ctx context.Context, book *models.Book) error
	// UpdateBook replaces the full record keyed by id. Updating a missing id
	// is a no-op, never an insert.
	UpdateBook(ctx context.Context, book *models.Book) error
	// DeleteBook removes the book and cascades to bookmarks, annotations,
	// reading progress, and category memberships in one transactional pass.
	DeleteBook(ctx context.Context, id string) error
	// ListBooks returns all books ordered by addedAt descending.
	ListBooks(ctx context.Context) ([]*models.Book, error)
	RetrieveBook(ctx context.Context, id string) (*models.Book, error)
	// SearchBooks matches a case-insensitive substring of title or author,
	// ordered by title ascending.
	SearchBooks(ctx context.Context, query string) ([]*models.Book, error)

	AddCategory(ctx context.Context, category *models.Category) error
	// ListCategories returns all categories ordered by sortOrder ascending.
	ListCategories(ctx context.Context) ([]*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	// AddBookToCategory is a no-op when the pair already exists.
	AddBookToCategory(ctx context.Context, bookID, categoryID string) error
	RemoveBookFromCategory(ctx context.Context, bookID, categoryID string) error
	ListBooksByCategory(ctx context.Context, categoryID string) ([]*models.Book, error)
	ListCategoriesByBook(ctx context.Context, bookID string) ([]*models.Category, error)

	AddBookmark(ctx context.Context, bookmark *models.Bookmark) error
	// ListBookmarksByBook returns bookmarks ordered by createdAt descending.
	ListBookmarksByBook(ctx context.Context, bookID string) ([]*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, id string) error

	AddAnnotation(ctx context.Context, annotation *models.Annotation) error
	// ListAnnotationsByBook returns annotations ordered by createdAt descending.
	ListAnnotationsByBook(ctx context.Context, bookID string) ([]*models.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error

	// AddReadingProgress appends to the session log. Rows are never updated.
	AddReadingProgress(ctx context.Context, progress *models.ReadingProgress) error
	// ListReadingProgressByBook returns sessions ordered by date descending.
	ListReadingProgressByBook(ctx context.Context, bookID string) ([]*models.ReadingProgress, error)
	TotalReadingStats(ctx context.Context) (*ReadingTotals, error)
}
