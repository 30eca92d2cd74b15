package service

import (
	"errors"
	"fmt"

	"doccatalog/internal/identity"
	"doccatalog/internal/repository"
)

// Error taxonomy surfaced by DocumentService. Callers match with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnauthenticated    = identity.ErrUnauthenticated
	ErrNotFound           = repository.ErrNotFound
	ErrDuplicateLocalID   = repository.ErrDuplicateLocalID
)

// ValidationError describes a bad input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
