// Package state holds the in-memory book collection consumed by
// presentation: the current book list, per-operation lifecycle status, and
// the currently open book. It is an explicitly owned container; every read
// and dispatch goes through a *Store, never through package-level state.
package state

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/misbahzulfiqar/AppwriteBookStore/service"
)

// Operation names the action kinds whose lifecycle is tracked.
type Operation string

const (
	OpCreate      Operation = "create"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpUploadCover Operation = "uploadCover"
)

// Status is a per-operation lifecycle flag. The zero value means no dispatch
// of that kind has run (or its status was cleared).
type Status string

const (
	StatusNone    Status = ""
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// BookAPI is the slice of the book collection service the store dispatches
// through.
type BookAPI interface {
	GetUserBooks(ctx context.Context) ([]models.Book, error)
	GetPublicBooks(ctx context.Context) ([]models.Book, error)
	CreateBook(ctx context.Context, input models.BookInput, pdf, cover *service.FileUpload) (*models.Book, error)
	UpdateBook(ctx context.Context, bookID string, upd models.BookUpdate) (*models.Book, error)
	DeleteBook(ctx context.Context, bookID string) (service.DeleteResult, error)
	UpdateCoverImage(ctx context.Context, bookID string, cover service.FileUpload) (*models.Book, error)
	UpdateReadingProgress(ctx context.Context, bookID string, page int) (*models.Book, error)
}

// Store is the single in-memory source of truth for the loaded book list.
// Remote calls run outside the lock, so dispatches may overlap; list
// responses that raced a completed mutation are discarded (see revision).
type Store struct {
	api BookAPI
	log *log.Logger

	mu                  sync.Mutex
	books               []models.Book
	isLoading           bool
	isUploadingCover    bool
	coverUploadProgress int
	currentReadingBook  *models.Book
	lastError           string
	opStatus            map[Operation]Status

	// revision counts applied mutations. A list fetch records it at
	// dispatch; if it moved by the time the response lands, the response
	// is stale and dropped rather than clobbering the newer list.
	revision uint64
}

func NewStore(api BookAPI, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		api:      api,
		log:      logger,
		opStatus: map[Operation]Status{},
	}
}

/* ----- dispatch lifecycle helpers ----- */

func (s *Store) begin(op Operation, cover bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cover {
		s.isUploadingCover = true
		s.coverUploadProgress = 0
	} else {
		s.isLoading = true
	}
	s.lastError = ""
	if op != "" {
		s.opStatus[op] = StatusPending
	}
}

func (s *Store) fail(op Operation, cover bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cover {
		s.isUploadingCover = false
		s.coverUploadProgress = 0
	} else {
		s.isLoading = false
	}
	s.lastError = err.Error()
	if op != "" {
		s.opStatus[op] = StatusError
	}
}

/* ----- dispatches ----- */

// LoadBooks replaces the list with the user's full library.
func (s *Store) LoadBooks(ctx context.Context) error {
	return s.load(ctx, s.api.GetUserBooks)
}

// LoadPublicBooks replaces the list with only public records.
func (s *Store) LoadPublicBooks(ctx context.Context) error {
	return s.load(ctx, s.api.GetPublicBooks)
}

func (s *Store) load(ctx context.Context, fetch func(context.Context) ([]models.Book, error)) error {
	s.begin("", false)
	s.mu.Lock()
	rev := s.revision
	s.mu.Unlock()

	books, err := fetch(ctx)
	if err != nil {
		s.fail("", false, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if s.revision != rev {
		// A mutation landed while the fetch was in flight; its result is
		// newer than this snapshot. Keep the list as is.
		s.log.Debug("discarding stale book list", "fetched", len(books))
		return nil
	}
	s.books = books
	return nil
}

// CreateBook creates a record and appends it to the list.
func (s *Store) CreateBook(ctx context.Context, input models.BookInput, pdf, cover *service.FileUpload) (*models.Book, error) {
	s.begin(OpCreate, false)
	book, err := s.api.CreateBook(ctx, input, pdf, cover)
	if err != nil {
		s.fail(OpCreate, false, err)
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	s.books = append(s.books, *book)
	s.opStatus[OpCreate] = StatusSuccess
	s.revision++
	return book, nil
}

// UpdateBook applies a partial update and replaces the matching list entry
// wholesale with the returned record.
func (s *Store) UpdateBook(ctx context.Context, bookID string, upd models.BookUpdate) (*models.Book, error) {
	s.begin(OpUpdate, false)
	book, err := s.api.UpdateBook(ctx, bookID, upd)
	if err != nil {
		s.fail(OpUpdate, false, err)
		return nil, err
	}
	s.settleReplace(OpUpdate, book)
	return book, nil
}

// DeleteBook deletes a record and removes it from the list. The returned
// DeleteResult reports whether file cleanup completed.
func (s *Store) DeleteBook(ctx context.Context, bookID string) (service.DeleteResult, error) {
	s.begin(OpDelete, false)
	res, err := s.api.DeleteBook(ctx, bookID)
	if err != nil {
		s.fail(OpDelete, false, err)
		return res, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	for i := range s.books {
		if s.books[i].ID == bookID {
			s.books = append(s.books[:i], s.books[i+1:]...)
			break
		}
	}
	if s.currentReadingBook != nil && s.currentReadingBook.ID == bookID {
		s.currentReadingBook = nil
	}
	s.opStatus[OpDelete] = StatusSuccess
	s.revision++
	return res, nil
}

// UploadCover replaces a book's cover image.
func (s *Store) UploadCover(ctx context.Context, bookID string, cover service.FileUpload) (*models.Book, error) {
	s.begin(OpUploadCover, true)
	book, err := s.api.UpdateCoverImage(ctx, bookID, cover)
	if err != nil {
		s.fail(OpUploadCover, true, err)
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isUploadingCover = false
	s.coverUploadProgress = 100
	s.replaceLocked(book)
	s.opStatus[OpUploadCover] = StatusSuccess
	s.revision++
	return book, nil
}

// UpdateReadingProgress persists the reader's current page and replaces the
// list entry with the returned record. No operation status is tracked for
// progress saves; they happen continuously while reading.
func (s *Store) UpdateReadingProgress(ctx context.Context, bookID string, page int) (*models.Book, error) {
	s.begin("", false)
	book, err := s.api.UpdateReadingProgress(ctx, bookID, page)
	if err != nil {
		s.fail("", false, err)
		return nil, err
	}
	s.settleReplace("", book)
	return book, nil
}

func (s *Store) settleReplace(op Operation, book *models.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	s.replaceLocked(book)
	if op != "" {
		s.opStatus[op] = StatusSuccess
	}
	s.revision++
}

// replaceLocked swaps the matching list entry wholesale; the returned record
// is authoritative, not merged field by field. Also refreshes the open book.
func (s *Store) replaceLocked(book *models.Book) {
	for i := range s.books {
		if s.books[i].ID == book.ID {
			s.books[i] = *book
			break
		}
	}
	if s.currentReadingBook != nil && s.currentReadingBook.ID == book.ID {
		b := *book
		s.currentReadingBook = &b
	}
}

/* ----- local-only mutations ----- */

// ManualUpdate merges partial fields into a list entry without a remote
// call, for optimistic UI updates. Callers own eventual consistency with a
// later real update. Reports whether the book was present.
func (s *Store) ManualUpdate(bookID string, upd models.BookUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID != bookID {
			continue
		}
		applyUpdate(&s.books[i], upd)
		if s.currentReadingBook != nil && s.currentReadingBook.ID == bookID {
			b := s.books[i]
			s.currentReadingBook = &b
		}
		s.revision++
		return true
	}
	return false
}

func applyUpdate(b *models.Book, upd models.BookUpdate) {
	if upd.Title != nil {
		b.Title = *upd.Title
	}
	if upd.Author != nil {
		b.Author = *upd.Author
	}
	if upd.Description != nil {
		b.Description = *upd.Description
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	if upd.PagesRead != nil {
		b.PagesRead = *upd.PagesRead
	}
	if upd.TotalPages != nil {
		b.TotalPages = *upd.TotalPages
	}
	if upd.Rating != nil {
		b.Rating = *upd.Rating
	}
	if upd.CoverImageID != nil {
		b.CoverImageID = *upd.CoverImageID
		// The derived URL belongs to the old id; drop it rather than serve
		// a stale link.
		b.CoverImageURL = ""
	}
	if upd.LastReadPage != nil {
		b.LastReadPage = *upd.LastReadPage
	}
	if upd.IsPublic != nil {
		b.IsPublic = *upd.IsPublic
	}
	if upd.LastReadAt != nil {
		b.LastReadAt = upd.LastReadAt
	}
	if upd.UpdatedAt != nil {
		b.UpdatedAt = *upd.UpdatedAt
	}
}

// ClearBooks empties the list and resets errors and operation statuses,
// e.g. on logout.
func (s *Store) ClearBooks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = nil
	s.lastError = ""
	s.opStatus = map[Operation]Status{}
	s.revision++
}

// ClearOperationStatus resets one operation's status, or all of them when
// op is empty.
func (s *Store) ClearOperationStatus(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op == "" {
		s.opStatus = map[Operation]Status{}
		return
	}
	delete(s.opStatus, op)
}

func (s *Store) SetCurrentReadingBook(bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == bookID {
			b := s.books[i]
			s.currentReadingBook = &b
			return true
		}
	}
	return false
}

func (s *Store) ClearCurrentReadingBook() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentReadingBook = nil
}

func (s *Store) SetCoverUploadProgress(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.coverUploadProgress = pct
}

/* ----- reads ----- */

// Books returns a copy of the list in backend order.
func (s *Store) Books() []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Book, len(s.books))
	copy(out, s.books)
	return out
}

// Book returns the list entry with the given id.
func (s *Store) Book(bookID string) (*models.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == bookID {
			b := s.books[i]
			return &b, true
		}
	}
	return nil, false
}

// BooksByStatus returns the list entries with the given reading status.
func (s *Store) BooksByStatus(status models.Status) []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Book
	for _, b := range s.books {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

func (s *Store) IsUploadingCover() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isUploadingCover
}

func (s *Store) CoverUploadProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coverUploadProgress
}

func (s *Store) CurrentReadingBook() *models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentReadingBook == nil {
		return nil
	}
	b := *s.currentReadingBook
	return &b
}

// LastError returns the most recent dispatch failure message, cleared when a
// new dispatch starts.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// OperationStatus returns the lifecycle flag for one operation kind. A new
// dispatch of the same kind overwrites the previous terminal status.
func (s *Store) OperationStatus(op Operation) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opStatus[op]
}
