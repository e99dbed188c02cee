package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation targets an id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrCorruptStore matches every *CorruptStoreError.
	ErrCorruptStore = errors.New("corrupt store")
)

// ValidationError rejects an operation before anything is written.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// CorruptStoreError reports a backing file that exists but cannot be parsed.
type CorruptStoreError struct {
	Collection string
	Path       string
	Err        error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("%s collection at %s is corrupt: %v", e.Collection, e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

func (e *CorruptStoreError) Is(target error) bool { return target == ErrCorruptStore }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
