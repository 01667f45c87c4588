// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/rgbweaver/internal/pipeline"
	"github.com/ManuGH/rgbweaver/internal/platform/binary"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	envFiles        []string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		envFiles:        []string{".env"},
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithEnvFiles replaces the dotenv files read before the environment layer.
func (l *Loader) WithEnvFiles(paths ...string) *Loader {
	l.envFiles = paths
	return l
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envBytes(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBytes(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: dotenv -> defaults -> file (strict) -> env -> validate.
func (l *Loader) Load() (Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Tools: ToolsConfig{
			Rio:           "rio",
			MBUtil:        "mb-util",
			PMTilesBinDir: binary.DefaultDir(),
		},
		Defaults: DefaultsConfig{
			MinZoom:     pipeline.DefaultMinZoom,
			MaxZoom:     pipeline.DefaultMaxZoom,
			Workers:     pipeline.DefaultWorkers,
			Format:      pipeline.DefaultFormat,
			BaseVal:     pipeline.DefaultBaseVal,
			Interval:    pipeline.DefaultInterval,
			RoundDigits: pipeline.DefaultRoundDigits,
			Scheme:      pipeline.DefaultScheme,
			TileJSON:    true,
		},
		PMTiles: PMTilesConfig{Deduplication: true},
		Log:     LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Exporter:     "http",
			SamplingRate: 1.0,
		},
	}
}

func (l *Loader) loadEnvFiles() error {
	for _, p := range l.envFiles {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *Config, src *FileConfig) error {
	setString(&dst.Tools.Rio, expandEnv(src.Tools.Rio))
	setString(&dst.Tools.MBUtil, expandEnv(src.Tools.MBUtil))
	setString(&dst.Tools.PMTiles, expandEnv(src.Tools.PMTiles))
	setString(&dst.Tools.PMTilesBinDir, expandEnv(src.Tools.PMTilesBinDir))

	d := src.Defaults
	setPtr(&dst.Defaults.MinZoom, d.MinZoom)
	setPtr(&dst.Defaults.MaxZoom, d.MaxZoom)
	setPtr(&dst.Defaults.Workers, d.Workers)
	setString(&dst.Defaults.Format, d.Format)
	setPtr(&dst.Defaults.BaseVal, d.BaseVal)
	setPtr(&dst.Defaults.Interval, d.Interval)
	setPtr(&dst.Defaults.RoundDigits, d.RoundDigits)
	setString(&dst.Defaults.Scheme, d.Scheme)
	setPtr(&dst.Defaults.TileJSON, d.TileJSON)

	setPtr(&dst.PMTiles.Deduplication, src.PMTiles.Deduplication)
	setString(&dst.PMTiles.TmpDir, expandEnv(src.PMTiles.TmpDir))

	setString(&dst.Log.Level, src.Log.Level)
	setPtr(&dst.Log.Pretty, src.Log.Pretty)

	setPtr(&dst.Telemetry.Enabled, src.Telemetry.Enabled)
	setString(&dst.Telemetry.Exporter, src.Telemetry.Exporter)
	setString(&dst.Telemetry.Endpoint, expandEnv(src.Telemetry.Endpoint))
	setPtr(&dst.Telemetry.SamplingRate, src.Telemetry.SamplingRate)

	setString(&dst.TempDir, expandEnv(src.TempDir))
	setString(&dst.MetricsFile, expandEnv(src.MetricsFile))
	if src.MaxInputSize != "" {
		n, err := parseSize(src.MaxInputSize)
		if err != nil {
			return fmt.Errorf("max_input_size: %w", err)
		}
		dst.MaxInputBytes = n
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *Config) {
	cfg.Tools.Rio = l.envString(EnvPrefix+"RIO_BIN", cfg.Tools.Rio)
	cfg.Tools.MBUtil = l.envString(EnvPrefix+"MBUTIL_BIN", cfg.Tools.MBUtil)
	cfg.Tools.PMTiles = l.envString(EnvPrefix+"PMTILES_BIN", cfg.Tools.PMTiles)
	cfg.Tools.PMTilesBinDir = l.envString(EnvPrefix+"PMTILES_BIN_DIR", cfg.Tools.PMTilesBinDir)

	cfg.Defaults.MinZoom = l.envInt(EnvPrefix+"MIN_ZOOM", cfg.Defaults.MinZoom)
	cfg.Defaults.MaxZoom = l.envInt(EnvPrefix+"MAX_ZOOM", cfg.Defaults.MaxZoom)
	cfg.Defaults.Workers = l.envInt(EnvPrefix+"WORKERS", cfg.Defaults.Workers)
	cfg.Defaults.Format = l.envString(EnvPrefix+"FORMAT", cfg.Defaults.Format)
	cfg.Defaults.BaseVal = l.envFloat(EnvPrefix+"BASE_VAL", cfg.Defaults.BaseVal)
	cfg.Defaults.Interval = l.envFloat(EnvPrefix+"INTERVAL", cfg.Defaults.Interval)
	cfg.Defaults.RoundDigits = l.envInt(EnvPrefix+"ROUND_DIGITS", cfg.Defaults.RoundDigits)
	cfg.Defaults.Scheme = l.envString(EnvPrefix+"SCHEME", cfg.Defaults.Scheme)
	cfg.Defaults.TileJSON = l.envBool(EnvPrefix+"TILEJSON", cfg.Defaults.TileJSON)

	cfg.PMTiles.Deduplication = l.envBool(EnvPrefix+"PMTILES_DEDUPLICATION", cfg.PMTiles.Deduplication)
	cfg.PMTiles.TmpDir = l.envString(EnvPrefix+"PMTILES_TMPDIR", cfg.PMTiles.TmpDir)

	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = l.envBool(EnvPrefix+"LOG_PRETTY", cfg.Log.Pretty)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TRACING_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.TempDir = l.envString(EnvPrefix+"TEMP_DIR", cfg.TempDir)
	cfg.MaxInputBytes = l.envBytes(EnvPrefix+"MAX_INPUT_SIZE", cfg.MaxInputBytes)
	cfg.MetricsFile = l.envString(EnvPrefix+"METRICS_FILE", cfg.MetricsFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// expandEnv expands ${VAR} references in file values.
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}
