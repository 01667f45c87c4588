// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/metrics"
	"github.com/ManuGH/rgbweaver/internal/procgroup"
)

const (
	stderrTailLines = 256
	// Time allowed for output pipes to drain after the process group was killed.
	waitDelay = 5 * time.Second

	// Streamed stderr lines are logged at most this often; progress bars redraw far faster.
	streamInterval = 200 * time.Millisecond
	streamBurst    = 20
)

// Local executes commands on the host with os/exec.
type Local struct {
	// StreamOutput logs every stderr line at debug level while the tool runs.
	StreamOutput bool
}

// NewLocal creates a host executor.
func NewLocal(streamOutput bool) *Local {
	return &Local{StreamOutput: streamOutput}
}

// Run starts the command in its own process group and waits for it to exit.
// Cancelling ctx kills the whole group.
func (l *Local) Run(ctx context.Context, c Command) (Result, error) {
	tool := c.Tool()
	logger := xglog.WithComponentFromContext(ctx, "toolexec").With().Str(xglog.FieldTool, tool).Logger()

	if err := ctx.Err(); err != nil {
		metrics.RecordToolRun(tool, "canceled", 0)
		return Result{ExitCode: -1}, err
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...) // #nosec G204 -- binaries come from config or the bundled table
	cmd.Dir = c.Dir
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd) }
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	ring := NewLineRing(stderrTailLines)
	var suppressed int
	if l.StreamOutput {
		limiter := rate.NewLimiter(rate.Every(streamInterval), streamBurst)
		ring.onLine = func(line string) {
			if !limiter.Allow() {
				suppressed++
				return
			}
			logger.Debug().Str("line", line).Msg("tool output")
		}
	}
	cmd.Stdout = &stdout
	cmd.Stderr = ring

	logger.Debug().Strs(xglog.FieldArgs, c.Args).Msg("starting tool")

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.RecordToolRun(tool, "start_error", 0)
		return Result{ExitCode: -1}, fmt.Errorf("start %s: %w", tool, err)
	}
	logger.Debug().Int(xglog.FieldPID, cmd.Process.Pid).Msg("tool started")

	waitErr := cmd.Wait()
	ring.Flush()
	if suppressed > 0 {
		logger.Debug().Int("suppressed_lines", suppressed).Msg("tool output throttled")
	}

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   strings.Join(ring.LastN(stderrTailLines), "\n"),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		metrics.RecordToolRun(tool, "canceled", res.Duration.Seconds())
		logger.Warn().Dur(xglog.FieldDuration, res.Duration).Msg("tool canceled")
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		metrics.RecordToolRun(tool, "start_error", res.Duration.Seconds())
		return res, fmt.Errorf("wait %s: %w", tool, waitErr)
	}

	result := "ok"
	if !res.Success() {
		result = "exit_nonzero"
	}
	metrics.RecordToolRun(tool, result, res.Duration.Seconds())

	logger.Debug().
		Int(xglog.FieldExitCode, res.ExitCode).
		Dur(xglog.FieldDuration, res.Duration).
		Msg("tool finished")

	return res, nil
}
