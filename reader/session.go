// Package reader implements the PDF reader page's contract: resolve a
// viewable URL for a book's PDF and persist the reader's page as it changes.
package reader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/pkg/errors"
)

var (
	// ErrBookNotFound means the book id is not in the loaded library.
	ErrBookNotFound = errors.New("book not found in library")
	// ErrNoPDF means the record exists but has no PDF attached.
	ErrNoPDF = errors.New("this book has no PDF file")
)

// LoadError means a URL could be resolved but the PDF could not be reached
// through it, even via the download fallback.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load PDF (check bucket permissions, that the file exists, and CORS settings): %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Library is the slice of the state store a session reads from and
// dispatches to.
type Library interface {
	Book(bookID string) (*models.Book, bool)
	UpdateReadingProgress(ctx context.Context, bookID string, page int) (*models.Book, error)
}

// URLResolver resolves access URLs from a file id.
type URLResolver interface {
	FileViewURL(ctx context.Context, fileID string) (string, error)
	FileDownloadURL(ctx context.Context, fileID, filename string) (string, error)
}

// Session is one open book in the reader. Not safe for concurrent use; the
// viewer drives it from a single event loop.
type Session struct {
	lib   Library
	log   *log.Logger
	probe *http.Client

	book        models.Book
	url         string
	currentPage int
}

// Option configures a Session.
type Option func(*Session)

// WithProbeClient replaces the HTTP client used for the URL reachability
// check.
func WithProbeClient(c *http.Client) Option {
	return func(s *Session) { s.probe = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Open locates the book in the library, resolves a reachable URL for its
// PDF, and positions the session at the last read page (or page 1). The view
// URL is tried first; if it cannot be resolved or reached, the download URL
// is the fallback. No URL work happens when the book is missing or has no
// PDF attached.
func Open(ctx context.Context, lib Library, files URLResolver, bookID string, opts ...Option) (*Session, error) {
	s := &Session{
		lib:   lib,
		log:   log.Default(),
		probe: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	book, ok := lib.Book(bookID)
	if !ok {
		return nil, ErrBookNotFound
	}
	if book.PDFFileID == "" {
		return nil, ErrNoPDF
	}
	s.book = *book

	url, err := files.FileViewURL(ctx, book.PDFFileID)
	if err == nil {
		err = s.probeURL(ctx, url)
	}
	if err != nil {
		s.log.Warn("view url unusable, falling back to download url", "book", bookID, "err", err)
		fallback, ferr := files.FileDownloadURL(ctx, book.PDFFileID, book.Title+".pdf")
		if ferr == nil {
			ferr = s.probeURL(ctx, fallback)
		}
		if ferr != nil {
			return nil, &LoadError{Err: ferr}
		}
		url = fallback
	}
	s.url = url

	s.currentPage = 1
	if book.LastReadPage > 0 {
		s.currentPage = book.LastReadPage
	}
	return s, nil
}

// probeURL checks that the resolved URL actually serves the file.
func (s *Session) probeURL(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pdf access failed (status %d)", resp.StatusCode)
	}
	return nil
}

// URL returns the resolved PDF URL handed to the viewer.
func (s *Session) URL() string { return s.url }

// CurrentPage returns the page the viewer should display.
func (s *Session) CurrentPage() int { return s.currentPage }

// Book returns the record the session was opened on.
func (s *Session) Book() models.Book { return s.book }

// PageChanged records a page-change event from the viewer. Progress is
// persisted only when the page actually differs from the stored one; save
// failures are logged and never interrupt reading.
func (s *Session) PageChanged(ctx context.Context, page int) {
	if page < 1 {
		return
	}
	s.currentPage = page
	if page == s.book.LastReadPage {
		return
	}
	updated, err := s.lib.UpdateReadingProgress(ctx, s.book.ID, page)
	if err != nil {
		s.log.Warn("saving reading progress failed", "book", s.book.ID, "page", page, "err", err)
		return
	}
	s.book = *updated
}
