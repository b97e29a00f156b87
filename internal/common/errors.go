package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by AppError
const (
	CodeConfig           = "CONFIG_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeIncomplete       = "INCOMPLETE_FORM"
	CodeInconsistent     = "INCONSISTENT_FORM"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeBusy             = "EXTRACTION_IN_PROGRESS"
	CodeDatabase         = "DATABASE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrDatabase         = errors.New("database error")
	ErrValidation       = errors.New("validation failed")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrInconsistent     = errors.New("form disagrees with the document")
	ErrBusy             = errors.New("an extraction is already running")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error onto the status the HTTP layer answers with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeInvalidInput, CodeIncomplete, CodeConfig:
			return http.StatusBadRequest
		case CodeInconsistent:
			return http.StatusConflict
		case CodeBusy:
			return http.StatusTooManyRequests
		case CodeExtractionFailed:
			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInconsistent):
		return http.StatusConflict
	case errors.Is(err, ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrExtractionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ErrorCode returns the AppError code of err, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
