package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/codexbooks/codex/pkg/errcodes"
	"github.com/codexbooks/codex/pkg/models"
	"github.com/pkg/errors"
)

// Memory is the volatile fallback backend for hosts without an embedded
// relational engine. It has no native constraint machinery, so it replicates
// the schema's foreign-key rejection and cascade behavior by hand. The mutex
// only keeps map access safe; it does not serialize logical read-modify-write
// sequences, so the documented last-write-wins race is preserved.
type Memory struct {
	mu    sync.Mutex
	ready bool

	books          map[string]*models.Book
	categories     map[string]*models.Category
	bookCategories []models.BookCategory
	bookmarks      map[string]*models.Bookmark
	annotations    map[string]*models.Annotation
	progress       []*models.ReadingProgress
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return errors.New("storage is already initialized")
	}
	m.books = map[string]*models.Book{}
	m.categories = map[string]*models.Category{}
	m.bookCategories = nil
	m.bookmarks = map[string]*models.Bookmark{}
	m.annotations = map[string]*models.Annotation{}
	m.progress = nil
	m.ready = true
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	m.ready = false
	return nil
}

// Entities are copied on the way in and out through their record form so that
// callers can never mutate stored rows through shared pointers.
func cloneBook(b *models.Book) *models.Book {
	return models.BookFromRecord(b.ToRecord())
}

func cloneCategory(c *models.Category) *models.Category {
	return models.CategoryFromRecord(c.ToRecord())
}

func cloneBookmark(bm *models.Bookmark) *models.Bookmark {
	return models.BookmarkFromRecord(bm.ToRecord())
}

func cloneAnnotation(a *models.Annotation) *models.Annotation {
	return models.AnnotationFromRecord(a.ToRecord())
}

func cloneReadingProgress(rp *models.ReadingProgress) *models.ReadingProgress {
	return models.ReadingProgressFromRecord(rp.ToRecord())
}

func (m *Memory) AddBook(_ context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	if _, ok := m.books[book.ID]; ok {
		return errcodes.ConstraintViolation("A row with this key already exists.")
	}
	m.books[book.ID] = cloneBook(book)
	return nil
}

func (m *Memory) UpdateBook(_ context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	// Updating a missing id is a no-op, never an insert.
	if _, ok := m.books[book.ID]; !ok {
		return nil
	}
	m.books[book.ID] = cloneBook(book)
	return nil
}

func (m *Memory) DeleteBook(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	// Parent and all owned rows vanish in one pass under the same lock, so no
	// intermediate state is ever observable.
	delete(m.books, id)
	kept := m.bookCategories[:0]
	for _, bc := range m.bookCategories {
		if bc.BookID != id {
			kept = append(kept, bc)
		}
	}
	m.bookCategories = kept
	for bmID, bm := range m.bookmarks {
		if bm.BookID == id {
			delete(m.bookmarks, bmID)
		}
	}
	for aID, a := range m.annotations {
		if a.BookID == id {
			delete(m.annotations, aID)
		}
	}
	keptProgress := m.progress[:0]
	for _, rp := range m.progress {
		if rp.BookID != id {
			keptProgress = append(keptProgress, rp)
		}
	}
	m.progress = keptProgress
	return nil
}

func (m *Memory) ListBooks(_ context.Context) ([]*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	return m.listBooksLocked(func(*models.Book) bool { return true }), nil
}

// listBooksLocked returns matching books ordered by addedAt descending. The
// caller must hold the mutex.
func (m *Memory) listBooksLocked(match func(*models.Book) bool) []*models.Book {
	books := make([]*models.Book, 0, len(m.books))
	for _, b := range m.books {
		if match(b) {
			books = append(books, cloneBook(b))
		}
	}
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].AddedAt.After(books[j].AddedAt)
	})
	return books
}

func (m *Memory) RetrieveBook(_ context.Context, id string) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	b, ok := m.books[id]
	if !ok {
		return nil, errcodes.NotFound("Book")
	}
	return cloneBook(b), nil
}

func (m *Memory) SearchBooks(_ context.Context, query string) ([]*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	q := strings.ToLower(query)
	books := m.listBooksLocked(func(b *models.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q)
	})
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].Title < books[j].Title
	})
	return books, nil
}

func (m *Memory) AddCategory(_ context.Context, category *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	if _, ok := m.categories[category.ID]; ok {
		return errcodes.ConstraintViolation("A row with this key already exists.")
	}
	m.categories[category.ID] = cloneCategory(category)
	return nil
}

func (m *Memory) ListCategories(_ context.Context) ([]*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	categories := make([]*models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, cloneCategory(c))
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].SortOrder < categories[j].SortOrder
	})
	return categories, nil
}

func (m *Memory) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	delete(m.categories, id)
	kept := m.bookCategories[:0]
	for _, bc := range m.bookCategories {
		if bc.CategoryID != id {
			kept = append(kept, bc)
		}
	}
	m.bookCategories = kept
	return nil
}

func (m *Memory) AddBookToCategory(_ context.Context, bookID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	if _, ok := m.books[bookID]; !ok {
		return errcodes.ConstraintViolation("Write references a row that does not exist.")
	}
	if _, ok := m.categories[categoryID]; !ok {
		return errcodes.ConstraintViolation("Write references a row that does not exist.")
	}
	for _, bc := range m.bookCategories {
		if bc.BookID == bookID && bc.CategoryID == categoryID {
			return nil
		}
	}
	m.bookCategories = append(m.bookCategories, models.BookCategory{BookID: bookID, CategoryID: categoryID})
	return nil
}

func (m *Memory) RemoveBookFromCategory(_ context.Context, bookID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	kept := m.bookCategories[:0]
	for _, bc := range m.bookCategories {
		if bc.BookID != bookID || bc.CategoryID != categoryID {
			kept = append(kept, bc)
		}
	}
	m.bookCategories = kept
	return nil
}

func (m *Memory) ListBooksByCategory(_ context.Context, categoryID string) ([]*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	members := map[string]bool{}
	for _, bc := range m.bookCategories {
		if bc.CategoryID == categoryID {
			members[bc.BookID] = true
		}
	}
	return m.listBooksLocked(func(b *models.Book) bool { return members[b.ID] }), nil
}

func (m *Memory) ListCategoriesByBook(_ context.Context, bookID string) ([]*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	categories := make([]*models.Category, 0)
	for _, bc := range m.bookCategories {
		if bc.BookID != bookID {
			continue
		}
		if c, ok := m.categories[bc.CategoryID]; ok {
			categories = append(categories, cloneCategory(c))
		}
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].SortOrder < categories[j].SortOrder
	})
	return categories, nil
}

func (m *Memory) AddBookmark(_ context.Context, bookmark *models.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	if _, ok := m.books[bookmark.BookID]; !ok {
		return errcodes.ConstraintViolation("Write references a row that does not exist.")
	}
	if _, ok := m.bookmarks[bookmark.ID]; ok {
		return errcodes.ConstraintViolation("A row with this key already exists.")
	}
	m.bookmarks[bookmark.ID] = cloneBookmark(bookmark)
	return nil
}

func (m *Memory) ListBookmarksByBook(_ context.Context, bookID string) ([]*models.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	bookmarks := make([]*models.Bookmark, 0)
	for _, bm := range m.bookmarks {
		if bm.BookID == bookID {
			bookmarks = append(bookmarks, cloneBookmark(bm))
		}
	}
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
	return bookmarks, nil
}

func (m *Memory) DeleteBookmark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	delete(m.bookmarks, id)
	return nil
}

func (m *Memory) AddAnnotation(_ context.Context, annotation *models.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	if _, ok := m.books[annotation.BookID]; !ok {
		return errcodes.ConstraintViolation("Write references a row that does not exist.")
	}
	if _, ok := m.annotations[annotation.ID]; ok {
		return errcodes.ConstraintViolation("A row with this key already exists.")
	}
	m.annotations[annotation.ID] = cloneAnnotation(annotation)
	return nil
}

func (m *Memory) ListAnnotationsByBook(_ context.Context, bookID string) ([]*models.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	annotations := make([]*models.Annotation, 0)
	for _, a := range m.annotations {
		if a.BookID == bookID {
			annotations = append(annotations, cloneAnnotation(a))
		}
	}
	sort.SliceStable(annotations, func(i, j int) bool {
		return annotations[i].CreatedAt.After(annotations[j].CreatedAt)
	})
	return annotations, nil
}

func (m *Memory) DeleteAnnotation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	delete(m.annotations, id)
	return nil
}

func (m *Memory) AddReadingProgress(_ context.Context, progress *models.ReadingProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return errcodes.StorageUnavailable()
	}
	if _, ok := m.books[progress.BookID]; !ok {
		return errcodes.ConstraintViolation("Write references a row that does not exist.")
	}
	m.progress = append(m.progress, cloneReadingProgress(progress))
	return nil
}

func (m *Memory) ListReadingProgressByBook(_ context.Context, bookID string) ([]*models.ReadingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	progress := make([]*models.ReadingProgress, 0)
	for _, rp := range m.progress {
		if rp.BookID == bookID {
			progress = append(progress, cloneReadingProgress(rp))
		}
	}
	sort.SliceStable(progress, func(i, j int) bool {
		return progress[i].Date.After(progress[j].Date)
	})
	return progress, nil
}

func (m *Memory) TotalReadingStats(_ context.Context) (*ReadingTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, errcodes.StorageUnavailable()
	}
	totals := &ReadingTotals{}
	for _, rp := range m.progress {
		totals.TotalTime += rp.TimeSpent
		totals.TotalPages += rp.PagesRead
	}
	return totals, nil
}
