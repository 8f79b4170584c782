package extract

import "errors"

var (
	// ErrInvalidDocument indicates the bytes could not be parsed as a document.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyDocument indicates a structurally valid document with no pages.
	ErrEmptyDocument = errors.New("document has no pages")
)
