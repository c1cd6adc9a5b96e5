package service

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/misbahzulfiqar/AppwriteBookStore/store"
	"github.com/pkg/errors"
)

// DocumentStore is the document half of the remote backend: book records
// keyed by opaque string ids.
type DocumentStore interface {
	CreateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	BookByID(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, q store.Query) ([]models.Book, error)
	UpdateBook(ctx context.Context, id string, upd models.BookUpdate) (*models.Book, error)
	DeleteBook(ctx context.Context, id string) error
}

// FileUpload is a file received from the caller, fully buffered so its real
// type can be sniffed before anything is written remotely.
type FileUpload struct {
	Name        string
	ContentType string // declared by the client; not trusted
	Data        []byte
}

// DeleteResult reports how much of a book deletion actually happened. File
// cleanup is best-effort: a false PDFFile or CoverFile means an orphaned blob
// was left behind, not that the deletion failed.
type DeleteResult struct {
	Record    bool `json:"record"`
	PDFFile   bool `json:"pdfFile"`
	CoverFile bool `json:"coverFile"`
}

// MigrationResult summarizes a MigrateBooksToPublic sweep.
type MigrationResult struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BookService translates book-domain intents into document- and file-store
// calls and decorates every returned record with derived access URLs.
type BookService struct {
	docs     DocumentStore
	files    FileStore
	validate *validator.Validate
	log      *log.Logger
}

func NewBookService(docs DocumentStore, files FileStore, logger *log.Logger) *BookService {
	if logger == nil {
		logger = log.Default()
	}
	return &BookService{
		docs:     docs,
		files:    files,
		validate: validator.New(),
		log:      logger,
	}
}

// addURLs decorates a record with view URLs resolved from its file ids. URLs
// are recomputed on every read and never persisted, so a changed file id can
// never serve a stale URL. Resolution failures leave the URL empty; reads
// should not fail because a link could not be signed.
func (s *BookService) addURLs(ctx context.Context, book *models.Book) *models.Book {
	if book == nil {
		return nil
	}
	book.CoverImageURL = ""
	book.PDFURL = ""
	if book.CoverImageID != "" {
		url, err := s.files.FileViewURL(ctx, book.CoverImageID)
		if err != nil {
			s.log.Warn("resolve cover url", "book", book.ID, "err", err)
		} else {
			book.CoverImageURL = url
		}
	}
	if book.PDFFileID != "" {
		url, err := s.files.FileViewURL(ctx, book.PDFFileID)
		if err != nil {
			s.log.Warn("resolve pdf url", "book", book.ID, "err", err)
		} else {
			book.PDFURL = url
		}
	}
	return book
}

func (s *BookService) addURLsAll(ctx context.Context, books []models.Book) []models.Book {
	for i := range books {
		s.addURLs(ctx, &books[i])
	}
	return books
}

// uploadPDF validates and stores a PDF, returning its new file id.
func (s *BookService) uploadPDF(ctx context.Context, file *FileUpload) (string, error) {
	fileID := uuid.NewString()
	if err := s.files.CreateFile(ctx, fileID, file.Data, "application/pdf"); err != nil {
		return "", &UploadError{Op: "upload pdf", Err: err}
	}
	return fileID, nil
}

// uploadCover stores a cover image, returning its new file id.
func (s *BookService) uploadCover(ctx context.Context, file *FileUpload) (string, error) {
	contentType := mimetype.Detect(file.Data).String()
	fileID := uuid.NewString()
	if err := s.files.CreateFile(ctx, fileID, file.Data, contentType); err != nil {
		return "", &UploadError{Op: "upload cover image", Err: err}
	}
	return fileID, nil
}

func isPDF(file *FileUpload) bool {
	return mimetype.Detect(file.Data).Is("application/pdf")
}

func isImage(file *FileUpload) bool {
	return strings.HasPrefix(mimetype.Detect(file.Data).String(), "image/")
}

// CreateBook uploads the required PDF (and the optional cover image), then
// creates the record with collection defaults applied. All validation happens
// before the first remote write. If the record creation fails after the
// uploads succeeded, the just-uploaded files are best-effort deleted.
func (s *BookService) CreateBook(ctx context.Context, input models.BookInput, pdf *FileUpload, cover *FileUpload) (*models.Book, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, &ValidationError{Msg: "invalid book data: " + err.Error()}
	}
	if pdf == nil || len(pdf.Data) == 0 {
		return nil, &ValidationError{Msg: "a PDF file is required"}
	}
	if !isPDF(pdf) {
		return nil, &ValidationError{Msg: "file must be a PDF"}
	}
	if cover != nil && len(cover.Data) > 0 && !isImage(cover) {
		return nil, &ValidationError{Msg: "cover must be an image"}
	}

	var coverImageID string
	if cover != nil && len(cover.Data) > 0 {
		id, err := s.uploadCover(ctx, cover)
		if err != nil {
			return nil, err
		}
		coverImageID = id
	}
	pdfFileID, err := s.uploadPDF(ctx, pdf)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	book := &models.Book{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Author:       input.Author,
		Description:  input.Description,
		Status:       input.Status,
		PagesRead:    input.PagesRead,
		TotalPages:   input.TotalPages,
		Rating:       input.Rating,
		PDFFileID:    pdfFileID,
		CoverImageID: coverImageID,
		LastReadPage: 0,
		IsPublic:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if book.Status == "" {
		book.Status = models.StatusWantToRead
	}
	if book.PagesRead == "" {
		book.PagesRead = "0"
	}
	if book.TotalPages == "" {
		book.TotalPages = "0"
	}
	if input.IsPublic != nil {
		book.IsPublic = *input.IsPublic
	}

	created, err := s.docs.CreateBook(ctx, book)
	if err != nil {
		s.cleanupFiles(ctx, pdfFileID, coverImageID)
		return nil, &DocumentError{Op: "create book", Err: err}
	}
	return s.addURLs(ctx, created), nil
}

// cleanupFiles removes files uploaded for a record that never materialized.
func (s *BookService) cleanupFiles(ctx context.Context, fileIDs ...string) {
	for _, id := range fileIDs {
		if id == "" {
			continue
		}
		if err := s.files.DeleteFile(ctx, id); err != nil {
			s.log.Warn("cleanup orphaned file", "file", id, "err", err)
		}
	}
}

// GetBookByID returns a single record, URL-decorated.
func (s *BookService) GetBookByID(ctx context.Context, bookID string) (*models.Book, error) {
	book, err := s.docs.BookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{BookID: bookID}
		}
		return nil, &DocumentError{Op: "get book", Err: err}
	}
	return s.addURLs(ctx, book), nil
}

func (s *BookService) list(ctx context.Context, q store.Query) ([]models.Book, error) {
	books, err := s.docs.ListBooks(ctx, q)
	if err != nil {
		return nil, &DocumentError{Op: "list books", Err: err}
	}
	return s.addURLsAll(ctx, books), nil
}

// GetUserBooks lists the authenticated user's whole library.
func (s *BookService) GetUserBooks(ctx context.Context) ([]models.Book, error) {
	return s.list(ctx, store.Query{})
}

// GetAllBooks lists every record, public and private.
func (s *BookService) GetAllBooks(ctx context.Context) ([]models.Book, error) {
	return s.list(ctx, store.Query{})
}

// GetPublicBooks lists only records flagged public.
func (s *BookService) GetPublicBooks(ctx context.Context) ([]models.Book, error) {
	return s.list(ctx, store.Query{
		Filters: []store.Filter{{Field: "isPublic", Value: true}},
	})
}

// SearchBooks matches the query against title and author.
func (s *BookService) SearchBooks(ctx context.Context, query string, publicOnly bool) ([]models.Book, error) {
	q := store.Query{Search: query}
	if publicOnly {
		q.Filters = append(q.Filters, store.Filter{Field: "isPublic", Value: true})
	}
	return s.list(ctx, q)
}

// GetBooksByStatus lists records with the given reading status.
func (s *BookService) GetBooksByStatus(ctx context.Context, status models.Status, publicOnly bool) ([]models.Book, error) {
	q := store.Query{Filters: []store.Filter{{Field: "status", Value: status}}}
	if publicOnly {
		q.Filters = append(q.Filters, store.Filter{Field: "isPublic", Value: true})
	}
	return s.list(ctx, q)
}

// GetRecentBooks lists the most recently created records, newest first.
func (s *BookService) GetRecentBooks(ctx context.Context, limit int, publicOnly bool) ([]models.Book, error) {
	if limit <= 0 {
		limit = 10
	}
	q := store.Query{
		Limit:     int64(limit),
		SortField: "createdAt",
		SortDesc:  true,
	}
	if publicOnly {
		q.Filters = append(q.Filters, store.Filter{Field: "isPublic", Value: true})
	}
	return s.list(ctx, q)
}

// UpdateBook applies a typed partial update; absent fields stay untouched.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, upd models.BookUpdate) (*models.Book, error) {
	if err := s.validate.Struct(upd); err != nil {
		return nil, &ValidationError{Msg: "invalid update: " + err.Error()}
	}
	now := time.Now().UTC()
	upd.UpdatedAt = &now
	book, err := s.docs.UpdateBook(ctx, bookID, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{BookID: bookID}
		}
		return nil, &DocumentError{Op: "update book", Err: err}
	}
	return s.addURLs(ctx, book), nil
}

// UpdateCoverImage uploads a replacement cover and points the record at it.
// The previous cover blob, if any, is left in place, matching the backend's
// original behavior.
func (s *BookService) UpdateCoverImage(ctx context.Context, bookID string, cover FileUpload) (*models.Book, error) {
	if len(cover.Data) == 0 {
		return nil, &ValidationError{Msg: "a cover image file is required"}
	}
	if !isImage(&cover) {
		return nil, &ValidationError{Msg: "cover must be an image"}
	}
	coverImageID, err := s.uploadCover(ctx, &cover)
	if err != nil {
		return nil, err
	}
	return s.UpdateBook(ctx, bookID, models.BookUpdate{CoverImageID: &coverImageID})
}

// ToggleBookVisibility flips the record's public flag.
func (s *BookService) ToggleBookVisibility(ctx context.Context, bookID string, makePublic bool) (*models.Book, error) {
	return s.UpdateBook(ctx, bookID, models.BookUpdate{IsPublic: &makePublic})
}

// UpdateReadingProgress records the reader's current page.
func (s *BookService) UpdateReadingProgress(ctx context.Context, bookID string, page int) (*models.Book, error) {
	if page < 0 {
		return nil, &ValidationError{Msg: "page must not be negative"}
	}
	now := time.Now().UTC()
	return s.UpdateBook(ctx, bookID, models.BookUpdate{
		LastReadPage: &page,
		LastReadAt:   &now,
	})
}

// DeleteBook removes the record and best-effort deletes its stored files.
// File deletion failures are logged and reflected in the result but never
// abort the record deletion.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) (DeleteResult, error) {
	book, err := s.docs.BookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DeleteResult{}, &NotFoundError{BookID: bookID}
		}
		return DeleteResult{}, &DocumentError{Op: "get book", Err: err}
	}

	res := DeleteResult{PDFFile: true, CoverFile: true}
	if book.PDFFileID != "" {
		if err := s.files.DeleteFile(ctx, book.PDFFileID); err != nil {
			s.log.Warn("delete pdf file", "book", bookID, "file", book.PDFFileID, "err", err)
			res.PDFFile = false
		}
	}
	if book.CoverImageID != "" {
		if err := s.files.DeleteFile(ctx, book.CoverImageID); err != nil {
			s.log.Warn("delete cover file", "book", bookID, "file", book.CoverImageID, "err", err)
			res.CoverFile = false
		}
	}

	if err := s.docs.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return res, &NotFoundError{BookID: bookID}
		}
		return res, &DocumentError{Op: "delete book", Err: err}
	}
	res.Record = true
	return res, nil
}

// PDFViewURL resolves a fresh in-browser URL for the book's PDF.
func (s *BookService) PDFViewURL(ctx context.Context, bookID string) (string, error) {
	book, err := s.GetBookByID(ctx, bookID)
	if err != nil {
		return "", err
	}
	if book.PDFFileID == "" {
		return "", &ValidationError{Msg: "book has no PDF attached"}
	}
	url, err := s.files.FileViewURL(ctx, book.PDFFileID)
	if err != nil {
		return "", &UploadError{Op: "resolve view url", Err: err}
	}
	return url, nil
}

// PDFDownloadURL resolves a fresh save-as URL for the book's PDF, named
// after the book title.
func (s *BookService) PDFDownloadURL(ctx context.Context, bookID string) (string, error) {
	book, err := s.GetBookByID(ctx, bookID)
	if err != nil {
		return "", err
	}
	if book.PDFFileID == "" {
		return "", &ValidationError{Msg: "book has no PDF attached"}
	}
	url, err := s.files.FileDownloadURL(ctx, book.PDFFileID, book.Title+".pdf")
	if err != nil {
		return "", &UploadError{Op: "resolve download url", Err: err}
	}
	return url, nil
}

// MigrateBooksToPublic backfills isPublic=true on records created before the
// flag existed. Individual failures are counted, never abort the sweep.
func (s *BookService) MigrateBooksToPublic(ctx context.Context) (MigrationResult, error) {
	books, err := s.docs.ListBooks(ctx, store.Query{MissingField: "isPublic"})
	if err != nil {
		return MigrationResult{}, &DocumentError{Op: "list unmigrated books", Err: err}
	}
	public := true
	res := MigrationResult{Total: len(books)}
	for _, book := range books {
		if _, err := s.UpdateBook(ctx, book.ID, models.BookUpdate{IsPublic: &public}); err != nil {
			s.log.Warn("migrate book to public", "book", book.ID, "err", err)
			res.Failed++
			continue
		}
		res.Successful++
	}
	return res, nil
}
