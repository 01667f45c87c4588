package pipeline

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
)

// Advisory thresholds. None of them ever blocks a run.
const (
	LargeZoomRange       = 10
	VeryLargeZoomRange   = 15
	RecommendedWorkers   = 8
	LargeOutputBytes     = 500 * bytesPerMB
	VeryLargeOutputBytes = 2000 * bytesPerMB
)

// EstimateDuration gives a rough wall time for encoding levels zoom levels
// with workers processes: two minutes per level at four workers.
func EstimateDuration(levels, workers int) string {
	if workers < 1 {
		workers = 1
	}
	factor := min(float64(workers)/4, 1.0)
	minutes := float64(levels) * 2 / factor
	if minutes < 60 {
		return fmt.Sprintf("~%d minutes", int(minutes))
	}
	return fmt.Sprintf("~%.1f hours", minutes/60)
}

// Advice is one non-fatal observation about a request.
type Advice struct {
	Level   zerolog.Level
	Message string
}

// Advise inspects the zoom range and worker count. logicalCPUs may be zero when unknown.
func Advise(levels, workers, logicalCPUs int) []Advice {
	var out []Advice
	if levels > LargeZoomRange {
		out = append(out, Advice{
			Level:   zerolog.WarnLevel,
			Message: fmt.Sprintf("large zoom range (%d levels) will generate many tiles and may take significant time", levels),
		})
	}
	if levels > VeryLargeZoomRange && workers < RecommendedWorkers {
		out = append(out, Advice{
			Level:   zerolog.InfoLevel,
			Message: fmt.Sprintf("consider reducing the zoom range or using more workers (e.g. %d) for better performance", RecommendedWorkers),
		})
	}
	if logicalCPUs > 0 && workers > logicalCPUs {
		out = append(out, Advice{
			Level:   zerolog.InfoLevel,
			Message: fmt.Sprintf("%d workers requested but only %d logical CPUs are available", workers, logicalCPUs),
		})
	}
	return out
}

// OutputSizeAdvice warns about unusually large results.
func OutputSizeAdvice(size int64) []Advice {
	switch {
	case size > VeryLargeOutputBytes:
		return []Advice{{
			Level:   zerolog.WarnLevel,
			Message: fmt.Sprintf("very large output (%s); consider a smaller zoom range", humanize.IBytes(uint64(size))),
		}}
	case size > LargeOutputBytes:
		return []Advice{{
			Level:   zerolog.InfoLevel,
			Message: fmt.Sprintf("large output (%s)", humanize.IBytes(uint64(size))),
		}}
	default:
		return nil
	}
}

func logAdvice(logger zerolog.Logger, advice []Advice) {
	for _, a := range advice {
		logger.WithLevel(a.Level).Str(xglog.FieldEvent, "advisory").Msg(a.Message)
	}
}
