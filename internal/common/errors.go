package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and analysis pipeline. Per-page and
// per-batch failures are swallowed locally with a warning; only total failure
// of a stage with no fallback left surfaces one of these to the caller.
var (
	// ErrUnsupportedDocument marks input bytes that cannot be parsed as a
	// paged document or decoded as an image.
	ErrUnsupportedDocument = errors.New("unsupported document")

	// ErrImageProcessing marks a codec or transform failure on one page.
	// Non-fatal: the page is skipped and the pipeline continues.
	ErrImageProcessing = errors.New("image processing failed")

	// ErrComposition marks an attempt to merge an empty image list. The
	// caller degrades to text-only evidence.
	ErrComposition = errors.New("no images to compose")

	// ErrExtractionFailed marks a pipeline run where no strategy produced
	// text. Reported to the user as "text not recognized", never a 5xx.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrRecognitionRefused marks a vision response that still looks like a
	// safety refusal after the retry. Handled internally, never surfaced raw.
	ErrRecognitionRefused = errors.New("recognition refused")

	// ErrAnalysisParse marks reasoning output with no parseable JSON object.
	// Degrades to an uncertain verdict carrying the raw text.
	ErrAnalysisParse = errors.New("analysis output not parseable")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// AppError carries a stable code alongside a message and cause.
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

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
