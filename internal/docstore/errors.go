package docstore

import "errors"

var (
	// ErrInvalidPath indicates an empty or malformed collection path.
	ErrInvalidPath = errors.New("invalid collection path")
	// ErrInvalidDocument indicates a document without an id or data.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrClosed indicates the store or subscription has been closed.
	ErrClosed = errors.New("docstore closed")
)
