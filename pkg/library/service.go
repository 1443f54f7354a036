// Package library is the domain facade over the storage backend. It composes
// CRUD operations into book-lifecycle operations whose side effects reach
// beyond the database: file placement on import, file cleanup on delete.
package library

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/codexbooks/codex/pkg/errcodes"
	"github.com/codexbooks/codex/pkg/metadata"
	"github.com/codexbooks/codex/pkg/models"
	"github.com/codexbooks/codex/pkg/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// FileStore is the file-storage collaborator consumed during import and
// delete. Delete is idempotent: removing an already-absent file is not an
// error.
type FileStore interface {
	Copy(src, dst string) error
	Delete(path string) error
	Exists(path string) (bool, error)
}

type Service struct {
	store    storage.Storage
	files    FileStore
	extract  metadata.Extractor
	booksDir string
	validate *validator.Validate
	log      logger.Logger
}

type Options struct {
	// DataDir is the root under which imported book files live.
	DataDir string
	// Extractor overrides the default best-effort metadata stub.
	Extractor metadata.Extractor
}

func NewService(store storage.Storage, files FileStore, opts Options) *Service {
	extract := opts.Extractor
	if extract == nil {
		extract = metadata.Stub{}
	}
	return &Service{
		store:    store,
		files:    files,
		extract:  extract,
		booksDir: filepath.Join(opts.DataDir, "books"),
		validate: validator.New(),
		log:      logger.New(),
	}
}

// ImportBook copies the source file into the library, extracts whatever
// metadata it can, and inserts the book row. Extraction failures degrade to
// filename-derived defaults; they never abort the import.
func (svc *Service) ImportBook(ctx context.Context, sourcePath string, fileType models.FileType) (*models.Book, error) {
	err := svc.validate.Struct(importBookParams{SourcePath: sourcePath, FileType: fileType})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if fileType == "" {
		fileType, err = metadata.DetectFileType(sourcePath)
		if err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	fileName := filepath.Base(sourcePath)
	destPath := filepath.Join(svc.booksDir, id+"_"+fileName)

	if err := svc.files.Copy(sourcePath, destPath); err != nil {
		return nil, errcodes.IOFailure(err)
	}

	meta, err := svc.extract.Extract(destPath, fileType)
	if err != nil {
		svc.log.Warn("metadata extraction failed", logger.Data{"path": destPath, "error": err.Error()})
		meta = &metadata.Metadata{}
	}

	title := meta.Title
	if title == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	book := models.NewBook(models.Book{
		ID:          id,
		Title:       title,
		Author:      meta.Author,
		Description: meta.Description,
		FilePath:    destPath,
		FileType:    fileType,
		TotalPages:  meta.TotalPages,
	})

	if err := svc.store.AddBook(ctx, book); err != nil {
		// Import is not atomic across copy and insert. The destination name
		// is derived from the fresh id, so reclaiming it cannot touch another
		// book's file.
		if derr := svc.files.Delete(destPath); derr != nil {
			svc.log.Warn("failed to remove copied file after aborted import", logger.Data{"path": destPath, "error": derr.Error()})
		}
		return nil, err
	}

	return book, nil
}

// DeleteBook removes the book's backing file and cover, then its row. File
// cleanup failures never block the row deletion: a stale file is recoverable
// garbage, a stale row resurrects a deleted book. Deleting an unknown id is a
// no-op.
func (svc *Service) DeleteBook(ctx context.Context, id string) error {
	book, err := svc.store.RetrieveBook(ctx, id)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Book")) {
			return nil
		}
		return err
	}

	if err := svc.files.Delete(book.FilePath); err != nil {
		svc.log.Warn("failed to delete book file", logger.Data{"path": book.FilePath, "error": err.Error()})
	}
	if book.CoverImage != nil {
		if err := svc.files.Delete(*book.CoverImage); err != nil {
			svc.log.Warn("failed to delete cover image", logger.Data{"path": *book.CoverImage, "error": err.Error()})
		}
	}

	return svc.store.DeleteBook(ctx, id)
}

// UpdateReadingPosition moves the book to a new position and stamps
// lastReadAt. The page is not bounded by totalPages: page counts can be
// discovered after import.
func (svc *Service) UpdateReadingPosition(ctx context.Context, id string, currentPage int, currentCFI *string) error {
	book, err := svc.store.RetrieveBook(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	book.CurrentPage = currentPage
	book.CurrentCFI = currentCFI
	book.LastReadAt = &now

	return svc.store.UpdateBook(ctx, book)
}

// ToggleFavorite is a read-modify-write; concurrent toggles on the same id
// are last-write-wins.
func (svc *Service) ToggleFavorite(ctx context.Context, id string) (*models.Book, error) {
	book, err := svc.store.RetrieveBook(ctx, id)
	if err != nil {
		return nil, err
	}

	book.IsFavorite = !book.IsFavorite
	if err := svc.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return svc.store.ListBooks(ctx)
}

func (svc *Service) RetrieveBook(ctx context.Context, id string) (*models.Book, error) {
	return svc.store.RetrieveBook(ctx, id)
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book) error {
	return svc.store.UpdateBook(ctx, book)
}

func (svc *Service) SearchBooks(ctx context.Context, query string) ([]*models.Book, error) {
	return svc.store.SearchBooks(ctx, query)
}

// CreateCategory appends a category at the end of the display order.
func (svc *Service) CreateCategory(ctx context.Context, name, color string) (*models.Category, error) {
	err := svc.validate.Struct(createCategoryParams{Name: name, Color: color})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	existing, err := svc.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	category := models.NewCategory(models.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		SortOrder: len(existing),
	})
	if err := svc.store.AddCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (svc *Service) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return svc.store.ListCategories(ctx)
}

func (svc *Service) DeleteCategory(ctx context.Context, id string) error {
	return svc.store.DeleteCategory(ctx, id)
}

func (svc *Service) AddBookToCategory(ctx context.Context, bookID, categoryID string) error {
	return svc.store.AddBookToCategory(ctx, bookID, categoryID)
}

func (svc *Service) RemoveBookFromCategory(ctx context.Context, bookID, categoryID string) error {
	return svc.store.RemoveBookFromCategory(ctx, bookID, categoryID)
}

func (svc *Service) ListBooksByCategory(ctx context.Context, categoryID string) ([]*models.Book, error) {
	return svc.store.ListBooksByCategory(ctx, categoryID)
}

func (svc *Service) ListCategoriesByBook(ctx context.Context, bookID string) ([]*models.Category, error) {
	return svc.store.ListCategoriesByBook(ctx, bookID)
}

func (svc *Service) CreateBookmark(ctx context.Context, bookID string, cfi *string, page *int, note *string) (*models.Bookmark, error) {
	bookmark := models.NewBookmark(models.Bookmark{
		ID:     uuid.NewString(),
		BookID: bookID,
		CFI:    cfi,
		Page:   page,
		Note:   note,
	})
	if err := svc.store.AddBookmark(ctx, bookmark); err != nil {
		return nil, err
	}
	return bookmark, nil
}

func (svc *Service) ListBookmarks(ctx context.Context, bookID string) ([]*models.Bookmark, error) {
	return svc.store.ListBookmarksByBook(ctx, bookID)
}

func (svc *Service) DeleteBookmark(ctx context.Context, id string) error {
	return svc.store.DeleteBookmark(ctx, id)
}

func (svc *Service) CreateAnnotation(ctx context.Context, bookID, cfi, text, color string, note *string) (*models.Annotation, error) {
	err := svc.validate.Struct(createAnnotationParams{BookID: bookID, CFI: cfi, Text: text, Color: color})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	annotation := models.NewAnnotation(models.Annotation{
		ID:     uuid.NewString(),
		BookID: bookID,
		CFI:    cfi,
		Text:   text,
		Color:  color,
		Note:   note,
	})
	if err := svc.store.AddAnnotation(ctx, annotation); err != nil {
		return nil, err
	}
	return annotation, nil
}

func (svc *Service) ListAnnotations(ctx context.Context, bookID string) ([]*models.Annotation, error) {
	return svc.store.ListAnnotationsByBook(ctx, bookID)
}

func (svc *Service) DeleteAnnotation(ctx context.Context, id string) error {
	return svc.store.DeleteAnnotation(ctx, id)
}

// TrackReadingSession appends a session to the progress log and folds its
// minutes into the book's cumulative reading time.
func (svc *Service) TrackReadingSession(ctx context.Context, bookID string, pagesRead, timeSpent int) (*models.ReadingProgress, error) {
	progress := models.NewReadingProgress(models.ReadingProgress{
		ID:        uuid.NewString(),
		BookID:    bookID,
		PagesRead: pagesRead,
		TimeSpent: timeSpent,
	})
	if err := svc.store.AddReadingProgress(ctx, progress); err != nil {
		return nil, err
	}

	book, err := svc.store.RetrieveBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	book.ReadingTime += timeSpent
	if err := svc.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}

	return progress, nil
}

func (svc *Service) ListReadingSessions(ctx context.Context, bookID string) ([]*models.ReadingProgress, error) {
	return svc.store.ListReadingProgressByBook(ctx, bookID)
}

func (svc *Service) ReadingStats(ctx context.Context) (*storage.ReadingTotals, error) {
	return svc.store.TotalReadingStats(ctx)
}
