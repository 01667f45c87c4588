package pipeline

import (
	"math"
	"time"
)

// Metadata is the key/value statistics produced by stages.
type Metadata map[string]any

// Merge returns a new map holding m extended by later. Keys in later replace
// keys in m; no key of m is ever dropped.
func (m Metadata) Merge(later Metadata) Metadata {
	out := make(Metadata, len(m)+len(later))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range later {
		out[k] = v
	}
	return out
}

// Int64 returns an integer value stored under key.
func (m Metadata) Int64(key string) (int64, bool) {
	switch v := m[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// Float returns a numeric value stored under key as float64.
func (m Metadata) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns a string value stored under key.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

// Stage names the processing steps of a run.
type Stage string

const (
	StageEncode   Stage = "encode"
	StageConvert  Stage = "convert"
	StageExtract  Stage = "extract"
	StageTileJSON Stage = "tilejson"
	StageStats    Stage = "stats"
)

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage      Stage
	OK         bool
	OutputPath string
	Metadata   Metadata
	Err        error
	Duration   time.Duration
}

// StageTiming records how long one executed stage took.
type StageTiming struct {
	Stage    Stage
	Duration time.Duration
	OK       bool
}

// EstimatedTiles is the sum of 4^z over [minZoom, maxZoom]. It is an upper
// bound for a global extent, not an exact count.
func EstimatedTiles(minZoom, maxZoom int) int64 {
	var n int64
	for z := minZoom; z <= maxZoom; z++ {
		n += int64(1) << (2 * uint(z))
	}
	return n
}

const bytesPerMB = 1024 * 1024

func sizeMB(n int64) float64 {
	return roundTo(float64(n)/bytesPerMB, 2)
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}

// CompressionRatio is the percentage saved going from intermediate to final bytes,
// rounded to one decimal. Zero when intermediate is empty.
func CompressionRatio(final, intermediate int64) float64 {
	if intermediate <= 0 {
		return 0
	}
	return roundTo((1-float64(final)/float64(intermediate))*100, 1)
}
