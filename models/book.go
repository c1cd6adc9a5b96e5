package models

import "time"

// Status is a book's reading status. Transitions are unconstrained; any
// status can be set from any other.
type Status string

const (
	StatusWantToRead Status = "want-to-read"
	StatusReading    Status = "reading"
	StatusFinished   Status = "finished"
)

// Book is a single book's persisted metadata document. IDs are assigned by
// the client at creation time and never change; PDFFileID is set exactly once
// when the book is created.
type Book struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Title        string     `bson:"title" json:"title"`
	Author       string     `bson:"author" json:"author"`
	Description  string     `bson:"description,omitempty" json:"description,omitempty"`
	Status       Status     `bson:"status" json:"status"`
	PagesRead    string     `bson:"pagesRead" json:"pagesRead"`
	TotalPages   string     `bson:"totalPages" json:"totalPages"`
	Rating       int        `bson:"rating" json:"rating"`
	PDFFileID    string     `bson:"pdfFileId" json:"pdfFileId"`
	CoverImageID string     `bson:"coverImageId,omitempty" json:"coverImageId,omitempty"`
	LastReadPage int        `bson:"lastReadPage" json:"lastReadPage"`
	IsPublic     bool       `bson:"isPublic" json:"isPublic"`
	LastReadAt   *time.Time `bson:"lastReadAt,omitempty" json:"lastReadAt,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`

	// Derived at read time from the file ids above; never persisted.
	CoverImageURL string `bson:"-" json:"coverImageUrl,omitempty"`
	PDFURL        string `bson:"-" json:"pdfUrl,omitempty"`
}

// BookInput is the caller-supplied metadata for a new book. Zero values fall
// back to the collection defaults (status want-to-read, rating 0, pages "0",
// public true).
type BookInput struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Description string `json:"description"`
	Status      Status `json:"status" validate:"omitempty,oneof=want-to-read reading finished"`
	PagesRead   string `json:"pagesRead" validate:"omitempty,numeric"`
	TotalPages  string `json:"totalPages" validate:"omitempty,numeric"`
	Rating      int    `json:"rating" validate:"min=0,max=5"`
	IsPublic    *bool  `json:"isPublic"`
}

// BookUpdate is a typed partial update. Only non-nil fields are written;
// everything else is left untouched. PDFFileID is deliberately absent: the
// PDF file reference is immutable after creation.
type BookUpdate struct {
	Title        *string    `json:"title,omitempty" validate:"omitempty,min=1"`
	Author       *string    `json:"author,omitempty" validate:"omitempty,min=1"`
	Description  *string    `json:"description,omitempty"`
	Status       *Status    `json:"status,omitempty" validate:"omitempty,oneof=want-to-read reading finished"`
	PagesRead    *string    `json:"pagesRead,omitempty" validate:"omitempty,numeric"`
	TotalPages   *string    `json:"totalPages,omitempty" validate:"omitempty,numeric"`
	Rating       *int       `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	CoverImageID *string    `json:"coverImageId,omitempty"`
	LastReadPage *int       `json:"lastReadPage,omitempty" validate:"omitempty,min=0"`
	IsPublic     *bool      `json:"isPublic,omitempty"`
	LastReadAt   *time.Time `json:"lastReadAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// IsEmpty reports whether the update would write nothing.
func (u BookUpdate) IsEmpty() bool {
	return u.Title == nil && u.Author == nil && u.Description == nil &&
		u.Status == nil && u.PagesRead == nil && u.TotalPages == nil &&
		u.Rating == nil && u.CoverImageID == nil && u.LastReadPage == nil &&
		u.IsPublic == nil && u.LastReadAt == nil && u.UpdatedAt == nil
}
