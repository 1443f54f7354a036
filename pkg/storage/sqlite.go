package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/codexbooks/codex/pkg/errcodes"
	"github.com/codexbooks/codex/pkg/migrations"
	"github.com/codexbooks/codex/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// SQLite is the durable backend. Cascades and foreign keys are enforced by
// the schema itself; this layer only maps rows to entities at the boundary.
type SQLite struct {
	db    *bun.DB
	ready bool
}

var _ Storage = (*SQLite)(nil)

func NewSQLite(db *bun.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Init(ctx context.Context) error {
	if s.ready {
		return errors.New("storage is already initialized")
	}
	if _, err := migrations.BringUpToDate(ctx, s.db); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *SQLite) Close() error {
	if !s.ready {
		return errcodes.StorageUnavailable()
	}
	s.ready = false
	return errors.WithStack(s.db.Close())
}

func (s *SQLite) guard() error {
	if !s.ready {
		return errcodes.StorageUnavailable()
	}
	return nil
}

// mapWriteError translates SQLite constraint failures into the error
// taxonomy. Everything else propagates with a stack.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return errcodes.ConstraintViolation("Write references a row that does not exist.")
	}
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY") {
		return errcodes.ConstraintViolation("A row with this key already exists.")
	}
	return errors.WithStack(err)
}

func (s *SQLite) AddBook(ctx context.Context, book *models.Book) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewInsert().Model(book.ToRecord()).Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) UpdateBook(ctx context.Context, book *models.Book) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewUpdate().Model(book.ToRecord()).WherePK().Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) DeleteBook(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*models.BookRecord)(nil)).
		Where("b.id = ?", id).
		Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) ListBooks(ctx context.Context) ([]*models.Book, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.BookRecord
	err := s.db.NewSelect().
		Model(&recs).
		Order("b.addedAt DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return booksFromRecords(recs), nil
}

func (s *SQLite) RetrieveBook(ctx context.Context, id string) (*models.Book, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rec := &models.BookRecord{}
	err := s.db.NewSelect().
		Model(rec).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return models.BookFromRecord(rec), nil
}

func (s *SQLite) SearchBooks(ctx context.Context, query string) ([]*models.Book, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var recs []*models.BookRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ?", pattern, pattern).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return booksFromRecords(recs), nil
}

func (s *SQLite) AddCategory(ctx context.Context, category *models.Category) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewInsert().Model(category.ToRecord()).Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) ListCategories(ctx context.Context) ([]*models.Category, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.CategoryRecord
	err := s.db.NewSelect().
		Model(&recs).
		Order("c.sortOrder ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	categories := make([]*models.Category, 0, len(recs))
	for _, rec := range recs {
		categories = append(categories, models.CategoryFromRecord(rec))
	}
	return categories, nil
}

func (s *SQLite) DeleteCategory(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*models.CategoryRecord)(nil)).
		Where("c.id = ?", id).
		Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) AddBookToCategory(ctx context.Context, bookID, categoryID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	bc := models.BookCategory{BookID: bookID, CategoryID: categoryID}
	_, err := s.db.NewInsert().
		Model(bc.ToRecord()).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) RemoveBookFromCategory(ctx context.Context, bookID, categoryID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*models.BookCategoryRecord)(nil)).
		Where("bc.bookId = ? AND bc.categoryId = ?", bookID, categoryID).
		Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) ListBooksByCategory(ctx context.Context, categoryID string) ([]*models.Book, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.BookRecord
	err := s.db.NewSelect().
		Model(&recs).
		Join("INNER JOIN book_categories AS bc ON bc.bookId = b.id").
		Where("bc.categoryId = ?", categoryID).
		Order("b.addedAt DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return booksFromRecords(recs), nil
}

func (s *SQLite) ListCategoriesByBook(ctx context.Context, bookID string) ([]*models.Category, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.CategoryRecord
	err := s.db.NewSelect().
		Model(&recs).
		Join("INNER JOIN book_categories AS bc ON bc.categoryId = c.id").
		Where("bc.bookId = ?", bookID).
		Order("c.sortOrder ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	categories := make([]*models.Category, 0, len(recs))
	for _, rec := range recs {
		categories = append(categories, models.CategoryFromRecord(rec))
	}
	return categories, nil
}

func (s *SQLite) AddBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewInsert().Model(bookmark.ToRecord()).Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) ListBookmarksByBook(ctx context.Context, bookID string) ([]*models.Bookmark, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.BookmarkRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("bm.bookId = ?", bookID).
		Order("bm.createdAt DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	bookmarks := make([]*models.Bookmark, 0, len(recs))
	for _, rec := range recs {
		bookmarks = append(bookmarks, models.BookmarkFromRecord(rec))
	}
	return bookmarks, nil
}

func (s *SQLite) DeleteBookmark(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*models.BookmarkRecord)(nil)).
		Where("bm.id = ?", id).
		Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) AddAnnotation(ctx context.Context, annotation *models.Annotation) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewInsert().Model(annotation.ToRecord()).Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) ListAnnotationsByBook(ctx context.Context, bookID string) ([]*models.Annotation, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.AnnotationRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("a.bookId = ?", bookID).
		Order("a.createdAt DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	annotations := make([]*models.Annotation, 0, len(recs))
	for _, rec := range recs {
		annotations = append(annotations, models.AnnotationFromRecord(rec))
	}
	return annotations, nil
}

func (s *SQLite) DeleteAnnotation(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*models.AnnotationRecord)(nil)).
		Where("a.id = ?", id).
		Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) AddReadingProgress(ctx context.Context, progress *models.ReadingProgress) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.NewInsert().Model(progress.ToRecord()).Exec(ctx)
	return mapWriteError(err)
}

func (s *SQLite) ListReadingProgressByBook(ctx context.Context, bookID string) ([]*models.ReadingProgress, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var recs []*models.ReadingProgressRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("rp.bookId = ?", bookID).
		Order("rp.date DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	progress := make([]*models.ReadingProgress, 0, len(recs))
	for _, rec := range recs {
		progress = append(progress, models.ReadingProgressFromRecord(rec))
	}
	return progress, nil
}

func (s *SQLite) TotalReadingStats(ctx context.Context) (*ReadingTotals, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	totals := &ReadingTotals{}
	err := s.db.NewSelect().
		Model((*models.ReadingProgressRecord)(nil)).
		ColumnExpr("COALESCE(SUM(rp.timeSpent), 0)").
		ColumnExpr("COALESCE(SUM(rp.pagesRead), 0)").
		Scan(ctx, &totals.TotalTime, &totals.TotalPages)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return totals, nil
}

func booksFromRecords(recs []*models.BookRecord) []*models.Book {
	books := make([]*models.Book, 0, len(recs))
	for _, rec := range recs {
		books = append(books, models.BookFromRecord(rec))
	}
	return books
}
