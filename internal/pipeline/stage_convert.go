package pipeline

import (
	"context"

	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

func (r *run) convertCommand(src, dst string) toolexec.Command {
	args := []string{"convert", src, dst}
	if !r.req.Options.Deduplication {
		args = append(args, "--no-deduplication")
	}
	if dir := r.req.Options.ConvertTmpDir; dir != "" {
		args = append(args, "--tmpdir", dir)
	}
	return toolexec.Command{Name: r.converter, Args: args}
}

// convert turns the intermediate MBTiles archive into the final PMTiles archive.
func (r *run) convert(ctx context.Context, intermediate string) (StageResult, error) {
	dst := r.spec.Path
	cmd := r.convertCommand(intermediate, dst)
	return r.runStage(ctx, StageConvert, cmd.Tool(), func(ctx context.Context) (StageResult, error) {
		if _, err := r.runTool(ctx, StageConvert, ErrConversionFailed, cmd, dst, false); err != nil {
			return StageResult{OutputPath: dst}, err
		}
		tmpSize := fileSize(intermediate)
		size := fileSize(dst)
		return StageResult{OutputPath: dst, Metadata: Metadata{
			"format":                    "pmtiles",
			"file_size_bytes":           size,
			"file_size_mb":              sizeMB(size),
			"converted_from":            "mbtiles",
			"compression":               "pmtiles_optimized",
			"temp_mbtiles_size_bytes":   tmpSize,
			"temp_mbtiles_size_mb":      sizeMB(tmpSize),
			"compression_ratio_percent": CompressionRatio(size, tmpSize),
			"pmtiles_binary":            r.converter,
			"conversion_tool":           "go-pmtiles",
		}}, nil
	})
}
