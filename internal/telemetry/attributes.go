// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for pipeline spans.
const (
	// Run attributes
	RunIDKey      = "rgbweaver.run_id"
	OutputKindKey = "rgbweaver.output_kind"
	MinZoomKey    = "rgbweaver.min_zoom"
	MaxZoomKey    = "rgbweaver.max_zoom"
	TileFormatKey = "rgbweaver.tile_format"
	InputPathKey  = "rgbweaver.input_path"
	OutputPathKey = "rgbweaver.output_path"

	// Stage attributes
	StageKey    = "rgbweaver.stage"
	ToolKey     = "rgbweaver.tool"
	ExitCodeKey = "rgbweaver.exit_code"
	ArtifactKey = "rgbweaver.artifact_bytes"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RunAttributes creates span attributes describing one pipeline run.
func RunAttributes(runID, outputKind, input, output string, minZoom, maxZoom int, format string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RunIDKey, runID),
		attribute.String(OutputKindKey, outputKind),
		attribute.String(InputPathKey, input),
		attribute.String(OutputPathKey, output),
		attribute.Int(MinZoomKey, minZoom),
		attribute.Int(MaxZoomKey, maxZoom),
		attribute.String(TileFormatKey, format),
	}
}

// StageAttributes creates stage span attributes. Empty tool is omitted.
func StageAttributes(stage, tool string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(StageKey, stage)}
	if tool != "" {
		attrs = append(attrs, attribute.String(ToolKey, tool))
	}
	return attrs
}

// ToolResultAttributes records the outcome of an external tool.
func ToolResultAttributes(exitCode int, artifactBytes int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ExitCodeKey, exitCode),
		attribute.Int64(ArtifactKey, artifactBytes),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
