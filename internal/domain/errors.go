package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable code attached to every failure the
// service surfaces to callers. Codes are part of the API contract; messages are not.
type ErrorCode string

const (
	CodeConfigMissing          ErrorCode = "CONFIG_MISSING"
	CodeConfigMalformed        ErrorCode = "CONFIG_MALFORMED"
	CodeSystemNotFound         ErrorCode = "SYSTEM_NOT_FOUND"
	CodeUnsupportedFileFormat  ErrorCode = "UNSUPPORTED_FILE_FORMAT"
	CodeEmptyFile              ErrorCode = "EMPTY_FILE"
	CodeNoDataRows             ErrorCode = "NO_DATA_ROWS"
	CodeMissingRequiredColumns ErrorCode = "MISSING_REQUIRED_COLUMNS"
	CodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	CodePreviewNotFound        ErrorCode = "PREVIEW_NOT_FOUND"
	CodePreviewExpired         ErrorCode = "PREVIEW_EXPIRED"
	CodeReassignmentConflict   ErrorCode = "REASSIGNMENT_CONFLICT"
	CodeInternal               ErrorCode = "INTERNAL"
)

// Error carries a stable code and an operator-safe message. Internal details
// (paths, wrapped causes) stay in the wrapped error and are never serialized.
type Error struct {
	Code    ErrorCode
	Message string

	// MissingColumns is populated for CodeMissingRequiredColumns.
	MissingColumns []string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError creates a coded error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code and message to an underlying cause.
func WrapError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf extracts the machine code from err, or CodeInternal for uncoded errors.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
