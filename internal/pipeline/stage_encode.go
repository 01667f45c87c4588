package pipeline

import (
	"context"
	"strconv"

	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

// encodeCommand builds the rio rgbify invocation writing dst.
func (r *run) encodeCommand(dst string) toolexec.Command {
	o := r.req.Options
	args := []string{
		"rgbify",
		r.req.Input,
		dst,
		"--min-z", strconv.Itoa(r.req.MinZoom),
		"--max-z", strconv.Itoa(r.req.MaxZoom),
		"--base-val", formatFloat(o.BaseVal),
		"--interval", formatFloat(o.Interval),
		"--round-digits", strconv.Itoa(o.RoundDigits),
		"--workers", strconv.Itoa(o.Workers),
		"--format", o.Format,
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}
	return toolexec.Command{Name: r.o.Tools.Rio, Args: args}
}

// encode produces an MBTiles archive at dst.
func (r *run) encode(ctx context.Context, dst string) (StageResult, error) {
	cmd := r.encodeCommand(dst)
	return r.runStage(ctx, StageEncode, cmd.Tool(), func(ctx context.Context) (StageResult, error) {
		if _, err := r.runTool(ctx, StageEncode, ErrEncodingFailed, cmd, dst, false); err != nil {
			return StageResult{OutputPath: dst}, err
		}

		o := r.req.Options
		size := fileSize(dst)
		md := Metadata{
			"format":      "mbtiles",
			"tile_format": o.Format,
			"min_zoom":    r.req.MinZoom,
			"max_zoom":    r.req.MaxZoom,
			"zoom_levels": r.req.ZoomLevels(),
			"encoding_params": map[string]any{
				"base_val":     o.BaseVal,
				"interval":     o.Interval,
				"round_digits": o.RoundDigits,
			},
			"file_size_bytes": size,
			"file_size_mb":    sizeMB(size),
			"workers_used":    o.Workers,
			"estimated_tiles": EstimatedTiles(r.req.MinZoom, r.req.MaxZoom),
			"processing_tool": "rio-rgbify",
		}
		r.inspectArchive(ctx, dst, md)
		return StageResult{OutputPath: dst, Metadata: md}, nil
	})
}

// inspectArchive adds exact tile counts when the archive can be read. Failures are logged only.
func (r *run) inspectArchive(ctx context.Context, path string, md Metadata) {
	if r.o.Inspect == nil {
		return
	}
	summary, err := r.o.Inspect(ctx, path)
	if err != nil {
		r.logger.Debug().Err(err).Msg("mbtiles inspection skipped")
		return
	}
	md["archive_tiles"] = summary.TotalTiles
	md["archive_tiles_per_zoom"] = summary.TilesPerZoom
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
