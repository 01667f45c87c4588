// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Defaults()))

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty rio", func(c *Config) { c.Tools.Rio = " " }, "tools.rio"},
		{"inverted zoom", func(c *Config) { c.Defaults.MinZoom = 15 }, "defaults.zoom"},
		{"zero workers", func(c *Config) { c.Defaults.Workers = 0 }, "defaults.workers"},
		{"unknown scheme", func(c *Config) { c.Defaults.Scheme = "google" }, "defaults.scheme"},
		{"zero interval", func(c *Config) { c.Defaults.Interval = 0 }, "defaults.interval"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad exporter", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"sampling above one", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.SamplingRate = 1.5 }, "telemetry.sampling_rate"},
		{"negative size", func(c *Config) { c.MaxInputBytes = -1 }, "max_input_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_TelemetryIgnoredWhenDisabled(t *testing.T) {
	cfg := Defaults()
	cfg.Telemetry.Exporter = "zipkin"
	assert.NoError(t, Validate(cfg))
}
