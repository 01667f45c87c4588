// Package pipeline turns a DEM into terrain-RGB tiles by sequencing external tools.
//
// A run validates the request, extracts DEM metadata, resolves the output kind and
// then executes the strategy for that kind inside a private temp scope. Stages run
// strictly one after another because each consumes the artifact of the previous one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/rgbweaver/internal/archive/mbtiles"
	"github.com/ManuGH/rgbweaver/internal/dem"
	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/metrics"
	"github.com/ManuGH/rgbweaver/internal/output"
	"github.com/ManuGH/rgbweaver/internal/pipeline/fsm"
	"github.com/ManuGH/rgbweaver/internal/platform/binary"
	"github.com/ManuGH/rgbweaver/internal/telemetry"
	"github.com/ManuGH/rgbweaver/internal/tempscope"
	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

// MetadataExtractor reads DEM metadata. *dem.Extractor implements it.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string, computeStats bool) (dem.Info, error)
}

// ConverterResolver locates the PMTiles converter. *binary.Table implements it.
type ConverterResolver interface {
	ResolveCurrent() (string, error)
}

// ArchiveInspector reads tile counts from an MBTiles archive.
type ArchiveInspector func(ctx context.Context, path string) (mbtiles.Summary, error)

// Tools names the external executables found on PATH.
type Tools struct {
	Rio    string
	MBUtil string
}

// DefaultTools returns the standard executable names.
func DefaultTools() Tools {
	return Tools{Rio: "rio", MBUtil: "mb-util"}
}

// Orchestrator runs pipelines. It holds no per-run state and may be shared by
// concurrent runs as long as their destinations differ.
type Orchestrator struct {
	Executor  toolexec.Executor
	Extractor MetadataExtractor
	Converter ConverterResolver
	Tools     Tools

	// TempParent hosts the per-run scratch directory; empty means os.TempDir.
	TempParent string
	// Inspect enriches encode metadata with exact tile counts when set.
	Inspect ArchiveInspector
	// LogicalCPUs feeds the worker advisory; zero disables it.
	LogicalCPUs int
}

// Result is the outcome of a successful run.
type Result struct {
	RunID          string
	Kind           output.Kind
	OutputPath     string
	Metadata       Metadata
	Stages         []StageTiming
	ProcessingTime time.Duration
	TotalTime      time.Duration
	DEM            dem.Info
	ZoomLevels     int
}

// OutputBytes is the size of the final artifact, or of all tiles for directory outputs.
func (r *Result) OutputBytes() int64 {
	if n, ok := r.Metadata.Int64("total_size_bytes"); ok {
		return n
	}
	n, _ := r.Metadata.Int64("file_size_bytes")
	return n
}

type run struct {
	o       *Orchestrator
	req     Request
	id      string
	logger  zerolog.Logger
	tracer  trace.Tracer
	machine *fsm.Machine[State, event]

	info      dem.Info
	spec      output.Spec
	converter string
	scope     *tempscope.Scope
	stages    []StageTiming
	procTime  time.Duration
}

// Run executes one pipeline. On failure no Result is returned; the error wraps
// one of the package sentinels, output.ErrUnsupportedFormat, output.ErrOutputExists,
// binary.ErrUnsupportedPlatform, binary.ErrBinaryMissing or dem.ErrMetadata.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	id := uuid.NewString()
	ctx = xglog.ContextWithRunID(ctx, id)

	r := &run{
		o:       o,
		req:     req,
		id:      id,
		logger:  xglog.WithComponentFromContext(ctx, "pipeline"),
		tracer:  telemetry.Tracer(telemetry.TracerName),
		machine: newRunMachine(),
	}
	r.machine.OnTransition(func(from, to State, _ event) {
		r.logger.Info().
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Msg("pipeline state changed")
	})

	ctx, span := r.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	r.logger.Info().
		Str(xglog.FieldInputPath, req.Input).
		Str(xglog.FieldOutputPath, req.Output).
		Int(xglog.FieldMinZoom, req.MinZoom).
		Int(xglog.FieldMaxZoom, req.MaxZoom).
		Msg("pipeline started")

	final, err := r.execute(ctx)
	span.SetAttributes(telemetry.RunAttributes(id, r.kindLabel(), req.Input, req.Output,
		req.MinZoom, req.MaxZoom, req.Options.Format)...)
	if err != nil {
		err = r.classify(ctx, err)
		if _, ferr := r.machine.Fire(eventFail); ferr != nil {
			r.logger.Debug().Err(ferr).Msg("fail transition rejected")
		}
		metrics.IncPipelineRun(r.kindLabel(), resultLabel(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.ErrorAttributes(err, ErrorType(err))...)
		r.logger.Error().Err(err).Str(xglog.FieldEvent, "pipeline.failed").Msg("pipeline failed")
		return nil, err
	}

	total := time.Since(started)
	md := final.Metadata.Merge(Metadata{
		"processing_time_seconds": roundTo(r.procTime.Seconds(), 3),
		"total_time_seconds":      roundTo(total.Seconds(), 3),
	})
	res := &Result{
		RunID:          id,
		Kind:           r.spec.Kind,
		OutputPath:     r.spec.Path,
		Metadata:       md,
		Stages:         r.stages,
		ProcessingTime: r.procTime,
		TotalTime:      total,
		DEM:            r.info,
		ZoomLevels:     req.ZoomLevels(),
	}

	size := res.OutputBytes()
	metrics.RecordOutputBytes(size)
	metrics.IncPipelineRun(r.kindLabel(), "ok")
	logAdvice(r.logger, OutputSizeAdvice(size))

	r.logger.Info().
		Str(xglog.FieldOutputKind, r.kindLabel()).
		Str(xglog.FieldOutputPath, res.OutputPath).
		Dur(xglog.FieldDuration, total).
		Int("stages", len(res.Stages)).
		Msg("pipeline finished")
	return res, nil
}

func (r *run) execute(ctx context.Context) (StageResult, error) {
	if err := r.req.Validate(); err != nil {
		return StageResult{}, err
	}

	if r.o.Extractor == nil {
		return StageResult{}, errors.New("pipeline: no metadata extractor configured")
	}
	info, err := r.o.Extractor.Extract(ctx, r.req.Input, !r.req.Options.SkipStats)
	if err != nil {
		return StageResult{}, err
	}
	r.info = info
	r.fire(eventExtracted)

	spec, err := output.Resolve(r.req.Output, r.req.Options.TileJSON)
	if err != nil {
		return StageResult{}, err
	}
	r.spec = spec
	r.fire(eventResolved)
	r.logger = r.logger.With().Str(xglog.FieldOutputKind, spec.Kind.String()).Logger()

	// Converter resolution and output preparation fail before any temp resource exists.
	if spec.Kind.NeedsConverter() {
		if err := r.resolveConverter(); err != nil {
			return StageResult{}, err
		}
	}
	if err := output.Prepare(spec, r.req.Options.Force); err != nil {
		return StageResult{}, err
	}

	levels := r.req.ZoomLevels()
	logAdvice(r.logger, Advise(levels, r.req.Options.Workers, r.o.LogicalCPUs))
	r.logger.Info().
		Str("estimate", EstimateDuration(levels, r.req.Options.Workers)).
		Msg("estimated processing time")

	if err := ctx.Err(); err != nil {
		return StageResult{}, err
	}

	scope, err := tempscope.Open(r.o.TempParent, r.logger)
	if err != nil {
		return StageResult{}, err
	}
	defer scope.Close()
	r.scope = scope

	r.fire(eventExecute)
	start := time.Now()
	final, err := r.strategy(ctx)
	r.procTime = time.Since(start)
	if err != nil {
		return StageResult{}, err
	}
	r.fire(eventComplete)
	return final, nil
}

func (r *run) resolveConverter() error {
	if r.o.Converter == nil {
		return &binary.Error{Platform: binary.Current(), Err: binary.ErrBinaryMissing}
	}
	path, err := r.o.Converter.ResolveCurrent()
	if err != nil {
		return err
	}
	r.converter = path
	r.logger.Debug().Str(xglog.FieldPath, path).Msg("pmtiles converter resolved")
	return nil
}

func (r *run) fire(ev event) {
	if _, err := r.machine.Fire(ev); err != nil {
		// The transition table covers every path through execute.
		r.logger.Error().Err(err).Msg("unexpected pipeline transition")
	}
}

// classify maps context cancellation onto ErrCanceled.
func (r *run) classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrCanceled) {
		return err
	}
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w during %s: %w", ErrCanceled, r.machine.State(), cerr)
	}
	return err
}

func (r *run) kindLabel() string {
	if r.spec.Kind == 0 {
		return "unknown"
	}
	return r.spec.Kind.String()
}

func resultLabel(err error) string {
	if errors.Is(err, ErrCanceled) {
		return "canceled"
	}
	return "failed"
}
