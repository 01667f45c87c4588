// Package toolexec runs the external encoding, extraction and archiving tools.
// Stages only see the Executor interface so tests can script tool behaviour.
package toolexec

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Command describes one external tool invocation.
type Command struct {
	Name string   // binary name or path
	Args []string // arguments, without the binary
	Dir  string   // optional working directory
}

// Tool returns the short tool label used for logs and metrics.
func (c Command) Tool() string {
	base := filepath.Base(c.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a completed tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string // tail of stderr, newest line last
	Duration time.Duration
}

// Success reports whether the tool exited with status zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Executor runs external commands synchronously.
//
// A non-nil error means the command could not be started or was canceled;
// a tool that ran and failed is reported through Result.ExitCode.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}
