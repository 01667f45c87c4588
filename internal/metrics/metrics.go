// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors recorded during a pipeline run.
// A CLI run has no scrape endpoint, so collectors live on a private registry that
// can be dumped to a node-exporter textfile after the run.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry all rgbweaver collectors are registered with.
var Registry = prometheus.NewRegistry()

var (
	toolRunsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "rgbweaver_tool_runs_total",
		Help: "Total number of external tool invocations by outcome",
	}, []string{"tool", "result"}) // result=ok|exit_nonzero|start_error|canceled

	toolDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rgbweaver_tool_duration_seconds",
		Help:    "Wall time of external tool invocations",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 16), // 100ms to ~55min
	}, []string{"tool"})

	stageDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rgbweaver_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 16),
	}, []string{"stage"})

	stageFailuresTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "rgbweaver_stage_failures_total",
		Help: "Total number of failed pipeline stages",
	}, []string{"stage"})

	pipelineRunsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "rgbweaver_pipeline_runs_total",
		Help: "Pipeline runs by output kind and outcome",
	}, []string{"output_kind", "result"}) // result=ok|failed|canceled

	outputTiles = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "rgbweaver_output_tiles",
		Help: "Tiles written per zoom level by the last directory run",
	}, []string{"zoom"})

	outputBytes = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "rgbweaver_output_bytes",
		Help: "Size in bytes of the final artifact of the last run",
	})

	tempCleanupFailuresTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "rgbweaver_temp_cleanup_failures_total",
		Help: "Temporary paths that could not be removed",
	})
)

// RecordToolRun records one external tool invocation.
func RecordToolRun(tool, result string, seconds float64) {
	toolRunsTotal.WithLabelValues(tool, result).Inc()
	toolDuration.WithLabelValues(tool).Observe(seconds)
}

// ObserveStage records the duration of a pipeline stage and counts failures.
func ObserveStage(stage string, seconds float64, failed bool) {
	stageDuration.WithLabelValues(stage).Observe(seconds)
	if failed {
		stageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// IncPipelineRun counts a finished pipeline run.
func IncPipelineRun(kind, result string) {
	pipelineRunsTotal.WithLabelValues(kind, result).Inc()
}

// RecordTilesPerZoom replaces the per-zoom tile gauges.
func RecordTilesPerZoom(perZoom map[int]int) {
	outputTiles.Reset()
	for z, n := range perZoom {
		outputTiles.WithLabelValues(strconv.Itoa(z)).Set(float64(n))
	}
}

// RecordOutputBytes records the size of the final artifact.
func RecordOutputBytes(n int64) { outputBytes.Set(float64(n)) }

// IncTempCleanupFailure counts a temporary path that survived cleanup.
func IncTempCleanupFailure() { tempCleanupFailuresTotal.Inc() }

// WriteTextfile dumps the registry in the node-exporter textfile format.
// The file is written to a temporary name and renamed into place.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
