// Package toolexectest provides a scripted toolexec.Executor for tests.
package toolexectest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

// HandlerFunc emulates one tool. It may create artifacts on disk.
type HandlerFunc func(ctx context.Context, cmd toolexec.Command) (toolexec.Result, error)

// Fake dispatches commands to handlers registered per tool label.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []toolexec.Command
}

// New creates an empty fake. Unregistered tools fail to start.
func New() *Fake {
	return &Fake{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for commands whose Tool() equals tool.
func (f *Fake) Handle(tool string, fn HandlerFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[tool] = fn
	return f
}

// Run implements toolexec.Executor.
func (f *Fake) Run(ctx context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	fn, ok := f.handlers[cmd.Tool()]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return toolexec.Result{ExitCode: -1}, err
	}
	if !ok {
		return toolexec.Result{ExitCode: -1}, fmt.Errorf("start %s: executable file not found", cmd.Tool())
	}
	return fn(ctx, cmd)
}

// Calls returns a copy of every command seen so far.
func (f *Fake) Calls() []toolexec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]toolexec.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Tools returns the tool labels of every command seen so far, in order.
func (f *Fake) Tools() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Tool()
	}
	return out
}

// Exit returns a handler that only reports the given exit code and stderr.
func Exit(code int, stderr string) HandlerFunc {
	return func(context.Context, toolexec.Command) (toolexec.Result, error) {
		return toolexec.Result{ExitCode: code, Stderr: stderr}, nil
	}
}

// WriteFile creates path (and parents) with size bytes of filler.
func WriteFile(path string, size int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, make([]byte, size), 0o600)
}
