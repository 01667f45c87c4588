package main

import (
	"context"
	"os/exec"

	"github.com/ManuGH/rgbweaver/internal/archive/mbtiles"
	"github.com/ManuGH/rgbweaver/internal/config"
	"github.com/ManuGH/rgbweaver/internal/dem"
	"github.com/ManuGH/rgbweaver/internal/infrastructure/gdal"
	"github.com/ManuGH/rgbweaver/internal/pipeline"
	"github.com/ManuGH/rgbweaver/internal/platform/binary"
	"github.com/ManuGH/rgbweaver/internal/platform/host"
	"github.com/ManuGH/rgbweaver/internal/toolexec"
)

// deps are the host-facing collaborators; tests replace them with fakes.
type deps struct {
	executor    func(verbose bool) toolexec.Executor
	extractor   func() pipeline.MetadataExtractor
	converters  func(cfg config.Config) *binary.Table
	inspect     pipeline.ArchiveInspector
	lookPath    func(string) (string, error)
	logicalCPUs func(context.Context) int
	probeHost   func(ctx context.Context, tempDir string) (host.Facts, []error)
}

func defaultDeps() deps {
	return deps{
		executor: func(verbose bool) toolexec.Executor { return toolexec.NewLocal(verbose) },
		extractor: func() pipeline.MetadataExtractor {
			return dem.NewExtractor(gdal.NewOpener(), gdal.NewReprojector())
		},
		converters:  converterTable,
		inspect:     mbtiles.Inspect,
		lookPath:    exec.LookPath,
		logicalCPUs: host.LogicalCPUs,
		probeHost:   host.Probe,
	}
}

func converterTable(cfg config.Config) *binary.Table {
	var opts []binary.Option
	if cfg.Tools.PMTiles != "" {
		opts = append(opts, binary.WithOverride(cfg.Tools.PMTiles))
	}
	return binary.NewTable(cfg.Tools.PMTilesBinDir, opts...)
}
