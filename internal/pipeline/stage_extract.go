package pipeline

import (
	"context"

	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

func (r *run) extractCommand(src, tilesDir string) toolexec.Command {
	args := []string{
		src,
		tilesDir,
		"--scheme", r.req.Options.Scheme,
		"--image_format", r.req.Options.Format,
	}
	if !r.req.Options.Verbose {
		args = append(args, "--silent")
	}
	return toolexec.Command{Name: r.o.Tools.MBUtil, Args: args}
}

// extract expands the intermediate archive into <output>/tiles.
func (r *run) extract(ctx context.Context, archive string) (StageResult, error) {
	tilesDir := r.spec.TilesDir()
	cmd := r.extractCommand(archive, tilesDir)
	return r.runStage(ctx, StageExtract, cmd.Tool(), func(ctx context.Context) (StageResult, error) {
		if _, err := r.runTool(ctx, StageExtract, ErrExtractionFailed, cmd, tilesDir, true); err != nil {
			return StageResult{OutputPath: tilesDir}, err
		}
		return StageResult{OutputPath: tilesDir, Metadata: Metadata{
			"tiles_directory": tilesDir,
			"scheme":          r.req.Options.Scheme,
			"extraction_tool": "mb-util",
		}}, nil
	})
}
