package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request with missing or malformed fields.
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ProviderError is returned when the email provider rejects or fails a send.
type ProviderError struct {
	StatusCode int // 0 when the provider was unreachable
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return "provider send failed: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError is returned when a database insert or update fails.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
