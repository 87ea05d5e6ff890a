package tables

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when inserting a record whose id is already present.
var ErrDuplicateID = errors.New("duplicate id")

// StorageError reports a failed table write.
type StorageError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Table is the affected table.
	Table string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes storage errors.
type ErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the store has no room for the new value.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeSerialization indicates the records could not be encoded.
	ErrCodeSerialization ErrorCode = "SERIALIZATION"

	// ErrCodeInvalid indicates the records failed schema validation.
	ErrCodeInvalid ErrorCode = "INVALID_RECORD"

	// ErrCodeIO indicates the underlying store failed.
	ErrCodeIO ErrorCode = "IO"

	// ErrCodeVersionConflict indicates another writer won every retry.
	ErrCodeVersionConflict ErrorCode = "VERSION_CONFLICT"
)

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsQuotaError returns true if err is a quota exceeded storage error.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

// IsConflictError returns true if err is a version conflict that outlived retries.
func IsConflictError(err error) bool {
	return hasCode(err, ErrCodeVersionConflict)
}

// IsSerializationError returns true if err is a serialization storage error.
func IsSerializationError(err error) bool {
	return hasCode(err, ErrCodeSerialization)
}

// IsInvalidError returns true if err is a schema validation storage error.
func IsInvalidError(err error) bool {
	return hasCode(err, ErrCodeInvalid)
}

func hasCode(err error, code ErrorCode) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
