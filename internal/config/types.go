// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// Config is the effective configuration after defaults, file and environment.
type Config struct {
	Tools     ToolsConfig
	Defaults  DefaultsConfig
	PMTiles   PMTilesConfig
	Log       LogConfig
	Telemetry TelemetryConfig

	// TempDir hosts per-run scratch directories; empty means the OS default.
	TempDir string
	// MaxInputBytes rejects larger DEMs; zero disables the limit.
	MaxInputBytes int64
	// MetricsFile receives a Prometheus textfile after each run when set.
	MetricsFile string

	Version string
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	Rio    string
	MBUtil string
	// PMTiles is an explicit converter path that bypasses the platform table.
	PMTiles string
	// PMTilesBinDir holds the bundled per-platform converter binaries.
	PMTilesBinDir string
}

// DefaultsConfig seeds CLI flags that were not given explicitly.
type DefaultsConfig struct {
	MinZoom     int
	MaxZoom     int
	Workers     int
	Format      string
	BaseVal     float64
	Interval    float64
	RoundDigits int
	Scheme      string
	TileJSON    bool
}

// PMTilesConfig tunes the converter.
type PMTilesConfig struct {
	Deduplication bool
	TmpDir        string
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string
	Pretty bool
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig mirrors the YAML document. Pointers distinguish "unset" from zero.
type FileConfig struct {
	Tools struct {
		Rio           string `yaml:"rio"`
		MBUtil        string `yaml:"mb_util"`
		PMTiles       string `yaml:"pmtiles"`
		PMTilesBinDir string `yaml:"pmtiles_bin_dir"`
	} `yaml:"tools"`

	Defaults struct {
		MinZoom     *int     `yaml:"min_zoom"`
		MaxZoom     *int     `yaml:"max_zoom"`
		Workers     *int     `yaml:"workers"`
		Format      string   `yaml:"format"`
		BaseVal     *float64 `yaml:"base_val"`
		Interval    *float64 `yaml:"interval"`
		RoundDigits *int     `yaml:"round_digits"`
		Scheme      string   `yaml:"scheme"`
		TileJSON    *bool    `yaml:"tilejson"`
	} `yaml:"defaults"`

	PMTiles struct {
		Deduplication *bool  `yaml:"deduplication"`
		TmpDir        string `yaml:"tmp_dir"`
	} `yaml:"pmtiles"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"log"`

	Telemetry struct {
		Enabled      *bool    `yaml:"enabled"`
		Exporter     string   `yaml:"exporter"`
		Endpoint     string   `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"sampling_rate"`
	} `yaml:"telemetry"`

	TempDir      string `yaml:"temp_dir"`
	MaxInputSize string `yaml:"max_input_size"`
	MetricsFile  string `yaml:"metrics_file"`
}
