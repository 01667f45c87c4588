// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Pipeline fields
	FieldStage      = "stage"
	FieldOutputKind = "output_kind"
	FieldOldState   = "old_state"
	FieldNewState   = "new_state"
	FieldDuration   = "duration"

	// Tool fields
	FieldTool     = "tool"
	FieldArgs     = "args"
	FieldExitCode = "exit_code"
	FieldStderr   = "stderr"
	FieldPID      = "pid"

	// Path fields
	FieldPath       = "path"
	FieldInputPath  = "input_path"
	FieldOutputPath = "output_path"
	FieldTempDir    = "temp_dir"

	// Zoom fields
	FieldMinZoom = "min_zoom"
	FieldMaxZoom = "max_zoom"
)
