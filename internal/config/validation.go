// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/rgbweaver/internal/pipeline"
	"github.com/ManuGH/rgbweaver/internal/validate"
)

var exporters = []string{"grpc", "http"}

// Validate checks the effective configuration.
func Validate(cfg Config) error {
	v := validate.New()

	v.NotEmpty("tools.rio", cfg.Tools.Rio)
	v.NotEmpty("tools.mb_util", cfg.Tools.MBUtil)

	d := cfg.Defaults
	if err := pipeline.ValidateZoom(d.MinZoom, d.MaxZoom); err != nil {
		v.AddError("defaults.zoom", err.Error(), fmt.Sprintf("%d..%d", d.MinZoom, d.MaxZoom))
	}
	v.Positive("defaults.workers", d.Workers)
	v.OneOf("defaults.format", d.Format, pipeline.TileFormats)
	v.PositiveFloat("defaults.interval", d.Interval)
	v.NonNegative("defaults.round_digits", d.RoundDigits)
	v.OneOf("defaults.scheme", d.Scheme, pipeline.Schemes)

	if _, err := validate.ParseLogLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", err.Error(), cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, exporters)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}
	if cfg.MaxInputBytes < 0 {
		v.AddError("max_input_size", "must not be negative", cfg.MaxInputBytes)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
