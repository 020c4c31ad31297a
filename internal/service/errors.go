package service

import "errors"

// Callers only ever see these. Hasher, codec and store failures are logged
// and collapsed into one of them at the service boundary.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal error")
)
