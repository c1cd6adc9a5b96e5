package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/misbahzulfiqar/AppwriteBookStore/models"
	"github.com/misbahzulfiqar/AppwriteBookStore/service"
)

type BooksHandler struct {
	Svc      *service.BookService
	MaxBytes int64
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serviceError maps the service error taxonomy to HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *service.ValidationError:
		jsonError(w, http.StatusBadRequest, err.Error())
	case *service.NotFoundError:
		jsonError(w, http.StatusNotFound, err.Error())
	case *service.UploadError:
		jsonError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error("book request failed", "err", err)
		jsonError(w, http.StatusInternalServerError, err.Error())
	}
}

// List handles GET /api/books. Query parameters select a listing variant:
// scope=public restricts every variant to public records, q searches title
// and author, status filters by reading status, recent=N returns the newest
// N records.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	publicOnly := r.URL.Query().Get("scope") == "public"

	var (
		books []models.Book
		err   error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		books, err = h.Svc.SearchBooks(r.Context(), r.URL.Query().Get("q"), publicOnly)
	case r.URL.Query().Get("status") != "":
		books, err = h.Svc.GetBooksByStatus(r.Context(), models.Status(r.URL.Query().Get("status")), publicOnly)
	case r.URL.Query().Get("recent") != "":
		limit, _ := strconv.Atoi(r.URL.Query().Get("recent"))
		books, err = h.Svc.GetRecentBooks(r.Context(), limit, publicOnly)
	case publicOnly:
		books, err = h.Svc.GetPublicBooks(r.Context())
	default:
		books, err = h.Svc.GetAllBooks(r.Context())
	}
	if err != nil {
		serviceError(w, err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.Svc.GetBookByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// formFile reads one optional multipart file fully into memory.
func formFile(r *http.Request, field string) (*service.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &service.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// Create handles POST /api/books: multipart form with the metadata fields, a
// required "pdf" file and an optional "cover" file.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	input := models.BookInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Author:      strings.TrimSpace(r.FormValue("author")),
		Description: r.FormValue("description"),
		Status:      models.Status(r.FormValue("status")),
		PagesRead:   r.FormValue("pagesRead"),
		TotalPages:  r.FormValue("totalPages"),
	}
	if v := r.FormValue("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "rating must be an integer")
			return
		}
		input.Rating = rating
	}
	if v := r.FormValue("isPublic"); v != "" {
		isPublic, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "isPublic must be a boolean")
			return
		}
		input.IsPublic = &isPublic
	}

	pdf, err := formFile(r, "pdf")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read pdf file")
		return
	}
	cover, err := formFile(r, "cover")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read cover file")
		return
	}

	book, err := h.Svc.CreateBook(r.Context(), input, pdf, cover)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// Update handles PATCH /api/books/{id} with a typed partial update; fields
// absent from the body are left untouched.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	book, err := h.Svc.UpdateBook(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}. The response reports whether file
// cleanup completed; the record itself is always gone on 200.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.DeleteBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UploadCover handles POST /api/books/{id}/cover with a multipart "cover"
// file.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	cover, err := formFile(r, "cover")
	if err != nil || cover == nil {
		jsonError(w, http.StatusBadRequest, "missing cover file")
		return
	}
	book, err := h.Svc.UpdateCoverImage(r.Context(), chi.URLParam(r, "id"), *cover)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type ProgressRequest struct {
	Page int `json:"page"`
}

// Progress handles PUT /api/books/{id}/progress.
func (h *BooksHandler) Progress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	book, err := h.Svc.UpdateReadingProgress(r.Context(), chi.URLParam(r, "id"), req.Page)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type VisibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

// Visibility handles PATCH /api/books/{id}/visibility.
func (h *BooksHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}
	book, err := h.Svc.ToggleBookVisibility(r.Context(), chi.URLParam(r, "id"), req.IsPublic)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type URLResponse struct {
	URL string `json:"url"`
}

// ViewURL handles GET /api/books/{id}/view-url.
func (h *BooksHandler) ViewURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.Svc.PDFViewURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, URLResponse{URL: url})
}

// DownloadURL handles GET /api/books/{id}/download-url.
func (h *BooksHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.Svc.PDFDownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, URLResponse{URL: url})
}

// MigratePublic handles POST /api/books/migrate-public, a one-time backfill
// of the isPublic flag on old records.
func (h *BooksHandler) MigratePublic(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.MigrateBooksToPublic(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
