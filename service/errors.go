package service

import "fmt"

// ValidationError means the request was rejected before any remote call was
// made: a required file or field is missing, or a file is of the wrong type.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// UploadError means a file transfer to the object store failed.
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// DocumentError means a document-store create/read/update/delete failed.
type DocumentError struct {
	Op  string
	Err error
}

func (e *DocumentError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *DocumentError) Unwrap() error { return e.Err }

// NotFoundError means the referenced book does not exist.
type NotFoundError struct {
	BookID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("book %s not found", e.BookID) }
