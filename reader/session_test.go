package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLibrary struct {
	books         map[string]models.Book
	progressCalls []int
	progressErr   error
}

func (f *fakeLibrary) Book(bookID string) (*models.Book, bool) {
	b, ok := f.books[bookID]
	if !ok {
		return nil, false
	}
	return &b, true
}

func (f *fakeLibrary) UpdateReadingProgress(_ context.Context, bookID string, page int) (*models.Book, error) {
	f.progressCalls = append(f.progressCalls, page)
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	b := f.books[bookID]
	b.LastReadPage = page
	f.books[bookID] = b
	return &b, nil
}

type fakeResolver struct {
	viewURL       string
	viewErr       error
	downloadURL   string
	downloadErr   error
	viewCalls     int
	downloadCalls int
}

func (f *fakeResolver) FileViewURL(context.Context, string) (string, error) {
	f.viewCalls++
	return f.viewURL, f.viewErr
}

func (f *fakeResolver) FileDownloadURL(context.Context, string, string) (string, error) {
	f.downloadCalls++
	return f.downloadURL, f.downloadErr
}

func pdfServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusOK {
			w.Header().Set("Content-Type", "application/pdf")
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte("%PDF-1.4"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func library(lastReadPage int) *fakeLibrary {
	return &fakeLibrary{books: map[string]models.Book{
		"b1": {ID: "b1", Title: "Dune", PDFFileID: "f1", LastReadPage: lastReadPage},
		"b2": {ID: "b2", Title: "No File"},
	}}
}

func TestOpenBookNotFound(t *testing.T) {
	t.Parallel()

	files := &fakeResolver{}
	_, err := Open(context.Background(), library(0), files, "missing")

	require.ErrorIs(t, err, ErrBookNotFound)
	assert.Zero(t, files.viewCalls, "no URL resolution for an unknown book")
}

func TestOpenBookWithoutPDF(t *testing.T) {
	t.Parallel()

	files := &fakeResolver{}
	_, err := Open(context.Background(), library(0), files, "b2")

	require.ErrorIs(t, err, ErrNoPDF)
	assert.Zero(t, files.viewCalls, "no URL resolution when no PDF is attached")
	assert.Zero(t, files.downloadCalls)
}

func TestOpenUsesViewURL(t *testing.T) {
	t.Parallel()

	srv := pdfServer(t, http.StatusOK)
	files := &fakeResolver{viewURL: srv.URL + "/view"}

	s, err := Open(context.Background(), library(0), files, "b1")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/view", s.URL())
	assert.Zero(t, files.downloadCalls)
	assert.Equal(t, 1, s.CurrentPage(), "no stored progress starts at page 1")
}

func TestOpenStartsAtLastReadPage(t *testing.T) {
	t.Parallel()

	srv := pdfServer(t, http.StatusOK)
	files := &fakeResolver{viewURL: srv.URL}

	s, err := Open(context.Background(), library(37), files, "b1")
	require.NoError(t, err)

	assert.Equal(t, 37, s.CurrentPage())
}

func TestOpenFallsBackToDownloadURL(t *testing.T) {
	t.Parallel()

	denied := pdfServer(t, http.StatusForbidden)
	ok := pdfServer(t, http.StatusOK)
	files := &fakeResolver{viewURL: denied.URL, downloadURL: ok.URL}

	s, err := Open(context.Background(), library(0), files, "b1")
	require.NoError(t, err)

	assert.Equal(t, ok.URL, s.URL())
	assert.Equal(t, 1, files.downloadCalls)
}

func TestOpenReportsLoadErrorWhenBothURLsFail(t *testing.T) {
	t.Parallel()

	denied := pdfServer(t, http.StatusForbidden)
	files := &fakeResolver{viewURL: denied.URL, downloadURL: denied.URL}

	_, err := Open(context.Background(), library(0), files, "b1")

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, err.Error(), "permissions")
}

func TestOpenFallsBackWhenViewResolutionFails(t *testing.T) {
	t.Parallel()

	ok := pdfServer(t, http.StatusOK)
	files := &fakeResolver{viewErr: errors.New("sign failed"), downloadURL: ok.URL}

	s, err := Open(context.Background(), library(0), files, "b1")
	require.NoError(t, err)
	assert.Equal(t, ok.URL, s.URL())
}

func TestPageChangedDispatchesOnlyOnRealChange(t *testing.T) {
	t.Parallel()

	srv := pdfServer(t, http.StatusOK)
	lib := library(10)
	files := &fakeResolver{viewURL: srv.URL}
	s, err := Open(context.Background(), lib, files, "b1")
	require.NoError(t, err)

	s.PageChanged(context.Background(), 42)
	require.Equal(t, []int{42}, lib.progressCalls, "page 42 vs stored 10 fires exactly one dispatch")

	s.PageChanged(context.Background(), 42)
	assert.Equal(t, []int{42}, lib.progressCalls, "repeating the same page fires none")
	assert.Equal(t, 42, s.CurrentPage())
}

func TestPageChangedFailureDoesNotInterruptReading(t *testing.T) {
	t.Parallel()

	srv := pdfServer(t, http.StatusOK)
	lib := library(10)
	lib.progressErr = errors.New("update book: network down")
	files := &fakeResolver{viewURL: srv.URL}
	s, err := Open(context.Background(), lib, files, "b1")
	require.NoError(t, err)

	s.PageChanged(context.Background(), 42)

	assert.Equal(t, 42, s.CurrentPage(), "the reader keeps going")
	// The stored page is still 10, so the next change retries the save.
	s.PageChanged(context.Background(), 43)
	assert.Equal(t, []int{42, 43}, lib.progressCalls)
}
