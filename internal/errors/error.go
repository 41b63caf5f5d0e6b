package errors

import "errors"

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrArchiveNotFound    = errors.New("archived record not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrVersionConflict    = errors.New("document was changed by another request")
	ErrInternal           = errors.New("internal error")
)
