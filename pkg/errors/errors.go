package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/medflow/report-explainer/pkg/i18n"
)

// Standard error types
var (
	ErrBadRequest = errors.New("bad request")
	ErrValidation = errors.New("validation error")
	ErrExtraction = errors.New("document extraction failed")
	ErrGeneration = errors.New("generation failed")
	ErrInternal   = errors.New("internal server error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"` // i18n key for localization
	Params     map[string]string `json:"-"` // Parameters for i18n interpolation
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize returns a localized version of the error message
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		MessageKey: "errors.bad_request",
		StatusCode: http.StatusBadRequest,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    i18n.T("errors.validation_failed"),
		MessageKey: "errors.validation_failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// ExtractionFailed reports an unreadable document. The cause is kept for
// logging only and never rendered to the caller.
func ExtractionFailed(cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrExtraction, cause),
		Code:       "EXTRACTION_FAILED",
		Message:    i18n.T("errors.extraction_failed"),
		MessageKey: "errors.extraction_failed",
		StatusCode: http.StatusInternalServerError,
	}
}

// GenerationFailed reports a failed or timed out primary generation stage.
func GenerationFailed(cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrGeneration, cause),
		Code:       "GENERATION_FAILED",
		Message:    i18n.T("errors.generation_failed"),
		MessageKey: "errors.generation_failed",
		StatusCode: http.StatusInternalServerError,
	}
}

// TopicFailed reports a failed additional-info lookup
func TopicFailed(cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrGeneration, cause),
		Code:       "GENERATION_FAILED",
		Message:    i18n.T("errors.topic_failed"),
		MessageKey: "errors.topic_failed",
		StatusCode: http.StatusInternalServerError,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		MessageKey: "errors.internal",
		StatusCode: http.StatusInternalServerError,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
