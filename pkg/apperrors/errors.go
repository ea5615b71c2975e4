// Package apperrors provides code-typed errors shared by the services,
// the HTTP handlers and the CLI.
//
//	err := apperrors.New(apperrors.CodeSnapshotNotFound, "snapshot %s not found", id)
//	if apperrors.Is(err, apperrors.CodeSnapshotNotFound) {
//	    // 404
//	}
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeStudentNotFound   Code = "STUDENT_NOT_FOUND"
	CodeSubjectNotFound   Code = "SUBJECT_NOT_FOUND"
	CodeSnapshotNotFound  Code = "SNAPSHOT_NOT_FOUND"
	CodeNoSubjects        Code = "NO_SUBJECTS"
	CodeRunInProgress     Code = "RUN_IN_PROGRESS"
	CodePreferencesLocked Code = "PREFERENCES_LOCKED"
	CodeConflict          Code = "CONFLICT"

	// CodeMalformedResult signals that a strategy returned a result the
	// orchestrator refuses to persist. It is always an internal failure.
	CodeMalformedResult Code = "MALFORMED_ENGINE_RESULT"

	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix for *Error values
// and the plain error string otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound groups every *_NOT_FOUND code.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case CodeNotFound, CodeStudentNotFound, CodeSubjectNotFound, CodeSnapshotNotFound:
		return true
	}
	return false
}
