package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and the HTTP layer translates them into status codes.
//
// - ErrNotFound: the named list or value does not exist
// - ErrConflict: the value already exists
// - ErrInvalidInput: the request cannot be applied as given
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)
