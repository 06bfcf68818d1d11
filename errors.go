package shelf

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// Operation rejections. These leave ledger state untouched.
	ErrUnauthorized      = errors.New("shelf: unauthorized")
	ErrNotFound          = errors.New("shelf: not found")
	ErrInsufficientStock = errors.New("shelf: insufficient stock")
	ErrInsufficientFunds = errors.New("shelf: insufficient funds")
	ErrInvalidAmount     = errors.New("shelf: invalid amount")
	ErrOverflow          = errors.New("shelf: arithmetic overflow")
	ErrInvalidInput      = errors.New("shelf: invalid input")
	ErrAlreadyExists     = errors.New("shelf: already exists")

	// Lifecycle errors
	ErrNotStarted    = errors.New("shelf: ledger not started")
	ErrOwnerMismatch = errors.New("shelf: snapshot owner does not match ledger owner")

	// Store errors
	ErrStoreNotReady  = errors.New("shelf: store not ready")
	ErrStoreClosed    = errors.New("shelf: store is closed")
	ErrCorruptJournal = errors.New("shelf: corrupt journal")
	// ErrSequenceConflict is returned by stores when a record with the same
	// sequence was already appended, typically by another writer.
	ErrSequenceConflict = errors.New("shelf: journal sequence conflict")
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("shelf: validation failed for %s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidInput as the error's kind.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRejection returns true if the error is a precondition failure of a
// ledger operation, as opposed to a storage or lifecycle failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady)
}
