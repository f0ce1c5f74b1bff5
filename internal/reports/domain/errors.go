package domain

import (
	"errors"
	"fmt"
)

// Pipeline error kinds
var (
	ErrValidation = errors.New("validation error")
	ErrExtraction = errors.New("extraction error")
	ErrGeneration = errors.New("generation error")
)

// ErrorKind classifies a hard pipeline failure
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindExtraction ErrorKind = "extraction"
	KindGeneration ErrorKind = "generation"
)

// PipelineError is a hard failure that aborts a request. It matches its
// kind's sentinel through errors.Is and unwraps to the cause.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Details map[string]string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := string(e.Kind) + " error"
	if e.Stage != "" {
		msg = fmt.Sprintf("%s in stage %s", msg, e.Stage)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *PipelineError) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindExtraction:
		return target == ErrExtraction
	case KindGeneration:
		return target == ErrGeneration
	}
	return false
}

// ValidationError reports a malformed request, keyed by form field
func ValidationError(details map[string]string) *PipelineError {
	return &PipelineError{Kind: KindValidation, Stage: "validate", Details: details}
}

// ExtractionError reports an unreadable or unavailable document
func ExtractionError(stage string, err error) *PipelineError {
	return &PipelineError{Kind: KindExtraction, Stage: stage, Err: err}
}

// GenerationError reports a failed hard generative stage
func GenerationError(stage string, err error) *PipelineError {
	return &PipelineError{Kind: KindGeneration, Stage: stage, Err: err}
}
