// Package errors defines the sentinel errors shared across the search
// engine and service layers, plus an AppError wrapper that carries an
// HTTP status for the API surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownDocument is returned by removals of ids that were
	// never indexed. Non-fatal; the index is unchanged.
	ErrUnknownDocument = errors.New("unknown document")
	// ErrPartialUpdate is returned when a caller attempts a
	// partial-field update instead of a full re-index.
	ErrPartialUpdate = errors.New("partial update requires full re-index")
	// ErrEmptyQuery marks a query that reduced to zero terms after
	// stopword elimination. It is a distinct outcome, not a failure:
	// the result set is empty, never all documents.
	ErrEmptyQuery = errors.New("query has no searchable terms")
	// ErrInvalidWeightLabel is a configuration error, fatal at
	// startup validation and never produced at query time.
	ErrInvalidWeightLabel = errors.New("invalid field weight label")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTimeout            = errors.New("operation timed out")
	ErrInternal           = errors.New("internal error")
)

// AppError wraps a sentinel with a human-readable message and an HTTP
// status code for the service layer.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the status the API should answer
// with. An explicit AppError status wins; sentinels carry defaults.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownDocument):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrPartialUpdate), errors.Is(err, ErrInvalidWeightLabel):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is re-exports errors.Is so callers don't need both packages.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
