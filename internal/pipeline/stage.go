package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/metrics"
	"github.com/ManuGH/rgbweaver/internal/telemetry"
	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

type stageFunc func(ctx context.Context) (StageResult, error)

// runStage times, traces and records one stage.
func (r *run) runStage(ctx context.Context, stage Stage, tool string, fn stageFunc) (StageResult, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.stage."+string(stage),
		trace.WithAttributes(telemetry.StageAttributes(string(stage), tool)...))
	defer span.End()

	logger := r.logger.With().Str(xglog.FieldStage, string(stage)).Logger()
	logger.Info().Str(xglog.FieldEvent, "stage.start").Msg("stage started")

	start := time.Now()
	res, err := fn(ctx)
	elapsed := time.Since(start)

	res.Stage = stage
	res.Duration = elapsed
	res.OK = err == nil
	res.Err = err
	r.stages = append(r.stages, StageTiming{Stage: stage, Duration: elapsed, OK: err == nil})
	metrics.ObserveStage(string(stage), elapsed.Seconds(), err != nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Dur(xglog.FieldDuration, elapsed).Msg("stage failed")
		return res, err
	}
	logger.Info().Dur(xglog.FieldDuration, elapsed).Str(xglog.FieldEvent, "stage.done").Msg("stage finished")
	return res, nil
}

// runTool executes cmd and checks that it produced artifact.
// Every failure is reported as a *StageError wrapping sentinel.
func (r *run) runTool(ctx context.Context, stage Stage, sentinel error, cmd toolexec.Command, artifact string, wantDir bool) (toolexec.Result, error) {
	r.logger.Debug().
		Str(xglog.FieldStage, string(stage)).
		Str(xglog.FieldTool, cmd.Tool()).
		Strs(xglog.FieldArgs, cmd.Args).
		Msg("running tool")

	res, err := r.o.Executor.Run(ctx, cmd)
	if err != nil {
		return res, &StageError{
			Stage:   stage,
			Command: cmd.String(),
			Err:     fmt.Errorf("%w: %w", sentinel, err),
			Stderr:  res.Stderr,
		}
	}
	trace.SpanFromContext(ctx).SetAttributes(telemetry.ToolResultAttributes(res.ExitCode, fileSize(artifact))...)
	if !res.Success() {
		return res, &StageError{
			Stage:   stage,
			Command: cmd.String(),
			Err:     fmt.Errorf("%w: %s exited with status %d", sentinel, cmd.Tool(), res.ExitCode),
			Stderr:  res.Stderr,
		}
	}
	fi, err := os.Stat(artifact)
	if err != nil || fi.IsDir() != wantDir {
		return res, &StageError{
			Stage:   stage,
			Command: cmd.String(),
			Err:     fmt.Errorf("%w: expected output %s was not created", sentinel, artifact),
			Stderr:  res.Stderr,
		}
	}
	return res, nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return 0
	}
	return fi.Size()
}
