// Package exception provides the error types and error handling utilities used
// across the metastore. It standardizes errors raised by repository backends
// and the upgrade orchestration so callers can classify them with errors.Is.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel errors forming the metastore error taxonomy. Backends and the
// orchestrator wrap these so that callers can detect the category of a failure
// with errors.Is regardless of the concrete backend.
var (
	// ErrDuplicateEntity is returned by create operations when an entity with
	// the same identity already exists in the repository.
	ErrDuplicateEntity = errors.New("entity already exists")

	// ErrEntityNotFound is returned by update and delete operations when the
	// targeted entity does not exist in the repository.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnsupportedInputType is returned by the structural cloner when a form
	// contains an input variant outside the closed set. This indicates a model
	// bug, never an expected runtime condition.
	ErrUnsupportedInputType = errors.New("unsupported input type")

	// ErrUpgradeFailure wraps any error raised during a schema upgrade. The
	// repository is rolled back to its pre-upgrade state before this is
	// returned.
	ErrUpgradeFailure = errors.New("schema upgrade failed")
)

// StoreError is the structured error type raised by metastore components.
// It carries the module where the error occurred, a message, the wrapped
// original error and a stack trace captured at construction time.
type StoreError struct {
	// Module indicates the component where the error occurred
	// (e.g., "repository", "upgrade", "model", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewStoreError creates a new StoreError wrapping originalErr.
func NewStoreError(module, message string, originalErr error) *StoreError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &StoreError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// NewStoreErrorf creates a new StoreError with a formatted message.
// If the last argument is an error it is extracted and wrapped instead of
// being interpolated into the message.
func NewStoreErrorf(module, format string, a ...interface{}) *StoreError {
	var originalErr error
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}

	return NewStoreError(module, fmt.Sprintf(format, args...), originalErr)
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap / errors.Is.
func (e *StoreError) Unwrap() error {
	return e.OriginalErr
}

// NewDuplicateEntity creates a StoreError classified as ErrDuplicateEntity.
func NewDuplicateEntity(module, message string, originalErr error) *StoreError {
	return NewStoreError(module, message, join(ErrDuplicateEntity, originalErr))
}

// NewEntityNotFound creates a StoreError classified as ErrEntityNotFound.
func NewEntityNotFound(module, message string, originalErr error) *StoreError {
	return NewStoreError(module, message, join(ErrEntityNotFound, originalErr))
}

// NewUnsupportedInputType creates a StoreError classified as
// ErrUnsupportedInputType.
func NewUnsupportedInputType(module, message string) *StoreError {
	return NewStoreError(module, message, ErrUnsupportedInputType)
}

// NewUpgradeFailure creates a StoreError classified as ErrUpgradeFailure,
// carrying the original cause of the failed upgrade.
func NewUpgradeFailure(module, message string, originalErr error) *StoreError {
	return NewStoreError(module, message, join(ErrUpgradeFailure, originalErr))
}

// join pairs a sentinel with the underlying cause. When there is no cause the
// sentinel is wrapped directly.
func join(sentinel, originalErr error) error {
	if originalErr != nil {
		return errors.Join(sentinel, originalErr)
	}
	return sentinel
}

// IsDuplicateEntity reports whether err indicates a duplicate identity.
func IsDuplicateEntity(err error) bool {
	return errors.Is(err, ErrDuplicateEntity)
}

// IsEntityNotFound reports whether err indicates a missing entity.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsUpgradeFailure reports whether err indicates a failed schema upgrade.
func IsUpgradeFailure(err error) bool {
	return errors.Is(err, ErrUpgradeFailure)
}

// ExtractErrorMessage extracts a display message from an error. For
// StoreError it returns the cleaner Message field, otherwise Error().
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
