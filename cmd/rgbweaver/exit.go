package main

import (
	"errors"

	"github.com/ManuGH/rgbweaver/internal/pipeline"
)

// Process exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitCanceled = 130
)

// usageError marks invocation mistakes: bad flags, missing arguments, conflicting options.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrCanceled):
		return exitCanceled
	case errors.As(err, &ue):
		return exitUsage
	default:
		return exitError
	}
}
