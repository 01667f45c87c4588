package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a request rejected before any work started.
	ErrValidation = errors.New("invalid request")
	// ErrEncodingFailed marks a failed or artifact-less rio rgbify run.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrExtractionFailed marks a failed or artifact-less mb-util run.
	ErrExtractionFailed = errors.New("tile extraction failed")
	// ErrConversionFailed marks a failed or artifact-less pmtiles convert run.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrCanceled marks a run stopped by context cancellation.
	ErrCanceled = errors.New("pipeline canceled")
)

// StageError is the failure of one processing stage.
type StageError struct {
	Stage   Stage
	Command string // command line, empty for in-process stages
	Err     error
	Stderr  string // captured tail of the tool's stderr
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s stage failed: %v", e.Stage, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, sentinel error, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

// ErrorType classifies err for metrics and span attributes.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEncodingFailed):
		return "encoding_failed"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrConversionFailed):
		return "conversion_failed"
	default:
		var se *StageError
		if errors.As(err, &se) {
			return string(se.Stage) + "_failed"
		}
		return "error"
	}
}
