// Package vaulterr defines the error taxonomy shared by the key manager,
// cipher codec and entity store.
//
// Every failure that crosses a package boundary is an *Error carrying a Code,
// so callers can branch with errors.As (or the Is* helpers) regardless of how
// many times the error was wrapped on the way up:
//
//   - KEY_UNAVAILABLE: secret store inaccessible; recovered with an ephemeral key
//   - DECRYPTION_FAILED: malformed token, wrong key, or failed authentication
//   - VALIDATION: caller supplied an out-of-range or malformed argument
//   - NOT_FOUND: identifier does not exist on an update-by-key path
//   - STORAGE: underlying SQLite failure, never retried
package vaulterr

import (
	"errors"
	"fmt"
)

// Code categorizes vault errors.
type Code string

const (
	// CodeKeyUnavailable indicates the platform secret store could not be used.
	CodeKeyUnavailable Code = "KEY_UNAVAILABLE"

	// CodeDecryptionFailed indicates a ciphertext token could not be opened.
	CodeDecryptionFailed Code = "DECRYPTION_FAILED"

	// CodeValidation indicates a rejected argument. No mutation happened.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound indicates a missing row on a path that requires one.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStorage indicates a storage engine failure.
	CodeStorage Code = "STORAGE"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation that failed, e.g. "add journal entry".
	Op string

	// Message is a human-readable description. For validation errors it
	// names the offending constraint.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a VALIDATION error naming the violated constraint.
func Validation(op, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Decryption returns a DECRYPTION_FAILED error.
func Decryption(op, message string, err error) *Error {
	return &Error{Code: CodeDecryptionFailed, Op: op, Message: message, Err: err}
}

// KeyUnavailable returns a KEY_UNAVAILABLE error.
func KeyUnavailable(op, message string, err error) *Error {
	return &Error{Code: CodeKeyUnavailable, Op: op, Message: message, Err: err}
}

// NotFound returns a NOT_FOUND error.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps an engine failure as a STORAGE error. Errors that already
// carry a code (decryption failures in particular) pass through unchanged
// so their category is preserved.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	return &Error{Code: CodeStorage, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// IsDecryptionFailure reports whether err is a DECRYPTION_FAILED error.
func IsDecryptionFailure(err error) bool {
	return CodeOf(err) == CodeDecryptionFailed
}

// IsValidation reports whether err is a VALIDATION error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsKeyUnavailable reports whether err is a KEY_UNAVAILABLE error.
func IsKeyUnavailable(err error) bool {
	return CodeOf(err) == CodeKeyUnavailable
}

// IsStorage reports whether err is a STORAGE error.
func IsStorage(err error) bool {
	return CodeOf(err) == CodeStorage
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
