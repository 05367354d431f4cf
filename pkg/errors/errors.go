package errors

import (
	"errors"
	"fmt"
)

// Code classifies an application error.
type Code int

const (
	CodeNotFound Code = iota + 1000
	CodeMismatch
	CodeInactive
	CodeConflict
	CodeValidation
	CodeIllegalTransition
	CodeUnauthorized
	CodeInternal
)

// AppError represents an application error
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the classification of err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err is classified under code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Error constructors

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Mismatch(message string) *AppError {
	return &AppError{
		Code:    CodeMismatch,
		Message: message,
	}
}

func Inactive(resource string) *AppError {
	return &AppError{
		Code:    CodeInactive,
		Message: fmt.Sprintf("%s is not active", resource),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Err:     err,
	}
}

func IllegalTransition(message string) *AppError {
	return &AppError{
		Code:    CodeIllegalTransition,
		Message: message,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal server error",
		Err:     err,
	}
}
