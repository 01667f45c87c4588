package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rgbweaver/internal/archive/mbtiles"
	"github.com/ManuGH/rgbweaver/internal/dem"
	"github.com/ManuGH/rgbweaver/internal/dem/demtest"
	"github.com/ManuGH/rgbweaver/internal/output"
	"github.com/ManuGH/rgbweaver/internal/platform/binary"
	"github.com/ManuGH/rgbweaver/internal/tilejson"
	"github.com/ManuGH/rgbweaver/internal/toolexec"
	"github.com/ManuGH/rgbweaver/internal/toolexec/toolexectest"
)

const converterPath = "/opt/rgbweaver/bin/pmtiles-linux-x64"

type staticConverter struct {
	path string
	err  error
}

func (c staticConverter) ResolveCurrent() (string, error) { return c.path, c.err }

type fixture struct {
	dir     string
	input   string
	tmp     string
	fake    *toolexectest.Fake
	orch    *Orchestrator
	raster  *demtest.Raster
	request Request
}

func newFixture(t *testing.T, minZoom, maxZoom int) *fixture {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "alps.tif")
	require.NoError(t, os.WriteFile(input, []byte("dem"), 0o600))
	tmp := filepath.Join(dir, "scratch")
	require.NoError(t, os.MkdirAll(tmp, 0o750))

	raster := demtest.Geographic(dem.Bounds{Left: 6, Bottom: 45, Right: 8, Top: 47}, []float64{400, 1200, 4100})
	fake := toolexectest.New()
	fake.Handle("rio", func(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
		return toolexec.Result{}, toolexectest.WriteFile(cmd.Args[2], 4096)
	})
	fake.Handle("mb-util", func(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
		for z := minZoom; z <= maxZoom; z++ {
			tile := filepath.Join(cmd.Args[1], strconv.Itoa(z), "0", "0.png")
			if err := toolexectest.WriteFile(tile, 100); err != nil {
				return toolexec.Result{}, err
			}
		}
		return toolexec.Result{}, nil
	})
	fake.Handle("pmtiles-linux-x64", func(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
		return toolexec.Result{}, toolexectest.WriteFile(cmd.Args[2], 1024)
	})

	opts := DefaultOptions()
	return &fixture{
		dir:    dir,
		input:  input,
		tmp:    tmp,
		fake:   fake,
		raster: raster,
		orch: &Orchestrator{
			Executor:   fake,
			Extractor:  dem.NewExtractor(&demtest.Opener{Any: raster}, &demtest.Reprojector{}),
			Converter:  staticConverter{path: converterPath},
			Tools:      DefaultTools(),
			TempParent: tmp,
		},
		request: Request{Input: input, MinZoom: minZoom, MaxZoom: maxZoom, Options: opts},
	}
}

func (f *fixture) run(t *testing.T, out string) (*Result, error) {
	t.Helper()
	req := f.request
	req.Output = filepath.Join(f.dir, out)
	return f.orch.Run(context.Background(), req)
}

func (f *fixture) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp scope left files behind")
}

func TestRun_MBTiles(t *testing.T) {
	f := newFixture(t, 8, 10)

	res, err := f.run(t, "terrain.mbtiles")
	require.NoError(t, err)

	assert.Equal(t, output.KindMBTiles, res.Kind)
	assert.FileExists(t, res.OutputPath)
	assert.Equal(t, 3, res.ZoomLevels)
	require.Len(t, res.Stages, 1)
	assert.Equal(t, StageEncode, res.Stages[0].Stage)
	assert.Equal(t, []string{"rio"}, f.fake.Tools())

	assert.Equal(t, "mbtiles", res.Metadata["format"])
	assert.Equal(t, EstimatedTiles(8, 10), res.Metadata["estimated_tiles"])
	assert.Equal(t, int64(65536+262144+1048576), res.Metadata["estimated_tiles"])
	assert.Equal(t, int64(4096), res.OutputBytes())
	assert.Contains(t, res.Metadata, "processing_time_seconds")
	assert.Contains(t, res.Metadata, "total_time_seconds")
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.DEM.Max)
	assert.InDelta(t, 4100, *res.DEM.Max, 1e-9)
	f.assertScratchEmpty(t)
}

func TestRun_EncodeCommandCarriesParameters(t *testing.T) {
	f := newFixture(t, 5, 6)
	f.request.Options.BaseVal = -500.5
	f.request.Options.Interval = 0.25
	f.request.Options.Workers = 2
	f.request.Options.Format = "webp"
	f.request.Options.Verbose = true

	_, err := f.run(t, "out.mbtiles")
	require.NoError(t, err)

	calls := f.fake.Calls()
	require.Len(t, calls, 1)
	args := calls[0].Args
	assert.Equal(t, "rgbify", args[0])
	assert.Equal(t, f.input, args[1])
	assert.Subset(t, args, []string{"--min-z", "5", "--max-z", "6", "--base-val", "-500.5", "--interval", "0.25", "--workers", "2", "--format", "webp", "--verbose"})
}

func TestRun_PMTiles(t *testing.T) {
	f := newFixture(t, 8, 9)

	res, err := f.run(t, "terrain.pmtiles")
	require.NoError(t, err)

	assert.Equal(t, output.KindPMTiles, res.Kind)
	assert.Equal(t, []string{"rio", "pmtiles-linux-x64"}, f.fake.Tools())
	require.Len(t, res.Stages, 2)

	convert := f.fake.Calls()[1]
	assert.Equal(t, converterPath, convert.Name)
	assert.Equal(t, "convert", convert.Args[0])
	assert.Equal(t, res.OutputPath, convert.Args[2])

	assert.Equal(t, "pmtiles", res.Metadata["format"])
	assert.Equal(t, "mbtiles", res.Metadata["converted_from"])
	assert.Equal(t, 75.0, res.Metadata["compression_ratio_percent"])
	assert.Equal(t, int64(4096), res.Metadata["temp_mbtiles_size_bytes"])
	// Encode keys survive the merge.
	assert.Equal(t, "rio-rgbify", res.Metadata["processing_tool"])
	f.assertScratchEmpty(t)
}

func TestRun_PMTilesConvertFlags(t *testing.T) {
	f := newFixture(t, 8, 8)
	f.request.Options.Deduplication = false
	f.request.Options.ConvertTmpDir = "/var/tmp"

	_, err := f.run(t, "terrain.pmtiles")
	require.NoError(t, err)
	args := f.fake.Calls()[1].Args
	assert.Subset(t, args, []string{"--no-deduplication", "--tmpdir", "/var/tmp"})
}

func TestRun_PMTilesWithoutConverterFailsBeforeAnySubprocess(t *testing.T) {
	tests := []struct {
		name      string
		converter ConverterResolver
		sentinel  error
	}{
		{
			name:      "unsupported platform",
			converter: staticConverter{err: &binary.Error{Platform: binary.Platform{OS: "linux", Arch: "riscv64"}, Err: binary.ErrUnsupportedPlatform}},
			sentinel:  binary.ErrUnsupportedPlatform,
		},
		{
			name:      "no converter configured",
			converter: nil,
			sentinel:  binary.ErrBinaryMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 8, 9)
			f.orch.Converter = tt.converter

			res, err := f.run(t, "terrain.pmtiles")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Empty(t, f.fake.Calls())
			assert.NoFileExists(t, filepath.Join(f.dir, "terrain.pmtiles"))
			f.assertScratchEmpty(t)
		})
	}
}

func TestRun_UnsupportedPlatformMessageListsAlternatives(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.orch.Converter = staticConverter{err: &binary.Error{Platform: binary.Platform{OS: "freebsd", Arch: "amd64"}, Err: binary.ErrUnsupportedPlatform}}

	_, err := f.run(t, "terrain.pmtiles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mbtiles")
	assert.Contains(t, err.Error(), "tiles")
}

func TestRun_TilesDirectoryWithTileJSON(t *testing.T) {
	f := newFixture(t, 8, 10)

	res, err := f.run(t, "terrain")
	require.NoError(t, err)

	assert.Equal(t, output.KindTilesWithJSON, res.Kind)
	assert.Equal(t, []string{"rio", "mb-util"}, f.fake.Tools())
	stages := make([]Stage, len(res.Stages))
	for i, s := range res.Stages {
		stages[i] = s.Stage
	}
	assert.Equal(t, []Stage{StageEncode, StageExtract, StageTileJSON, StageStats}, stages)

	assert.Equal(t, "tiles", res.Metadata["format"])
	assert.Equal(t, 3, res.Metadata["total_tiles"])
	assert.Equal(t, map[int]int{8: 1, 9: 1, 10: 1}, res.Metadata["tiles_per_zoom"])
	assert.Equal(t, int64(300), res.OutputBytes())
	assert.Equal(t, true, res.Metadata["tilejson_generated"])
	// Encode metadata is kept underneath the directory keys.
	assert.Equal(t, EstimatedTiles(8, 10), res.Metadata["estimated_tiles"])

	doc, err := tilejson.Read(filepath.Join(res.OutputPath, "tiles.json"))
	require.NoError(t, err)
	assert.Equal(t, 8, doc.MinZoom)
	assert.Equal(t, 10, doc.MaxZoom)
	assert.Equal(t, "alps", doc.Name)
	assert.Equal(t, "Terrain RGB tiles generated from alps.tif", doc.Description)
	assert.Equal(t, []string{"./tiles/{z}/{x}/{y}.png"}, doc.Tiles)
	assert.Equal(t, []float64{6, 45, 8, 47}, doc.Bounds)
	f.assertScratchEmpty(t)
}

func TestRun_TilesDirectoryWithoutTileJSON(t *testing.T) {
	f := newFixture(t, 3, 4)
	f.request.Options.TileJSON = false

	res, err := f.run(t, "terrain")
	require.NoError(t, err)

	assert.Equal(t, output.KindTiles, res.Kind)
	assert.NoFileExists(t, filepath.Join(res.OutputPath, "tiles.json"))
	assert.Equal(t, false, res.Metadata["tilejson_generated"])
	assert.Nil(t, res.Metadata["tilejson_path"])
	assert.Len(t, res.Stages, 3)
}

func TestRun_TileJSONUsesBaseURL(t *testing.T) {
	f := newFixture(t, 8, 8)
	f.request.Options.BaseURL = "https://tiles.example.com/alps/"
	f.request.Options.Format = "webp"
	f.request.Options.Name = "Alps"

	res, err := f.run(t, "terrain")
	require.NoError(t, err)

	doc, err := tilejson.Read(filepath.Join(res.OutputPath, "tiles.json"))
	require.NoError(t, err)
	assert.Equal(t, "Alps", doc.Name)
	assert.Equal(t, []string{"https://tiles.example.com/alps/{z}/{x}/{y}.webp"}, doc.Tiles)
	assert.Equal(t, "webp", doc.Format)
}

func TestRun_EncodingFailureCarriesStderr(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.fake.Handle("rio", toolexectest.Exit(1, "rasterio: band 1 unreadable"))

	res, err := f.run(t, "terrain.mbtiles")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEncodingFailed)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageEncode, se.Stage)
	assert.Contains(t, se.Stderr, "band 1 unreadable")
	assert.Contains(t, err.Error(), "band 1 unreadable")
	assert.Contains(t, se.Command, "rgbify")
	f.assertScratchEmpty(t)
}

func TestRun_EncoderReportsSuccessWithoutArtifact(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.fake.Handle("rio", toolexectest.Exit(0, ""))

	_, err := f.run(t, "terrain.mbtiles")
	assert.ErrorIs(t, err, ErrEncodingFailed)
	assert.ErrorContains(t, err, "was not created")
}

func TestRun_ExtractionWithoutTilesDirectoryFails(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.fake.Handle("mb-util", toolexectest.Exit(0, ""))

	_, err := f.run(t, "terrain")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtract, se.Stage)
	f.assertScratchEmpty(t)
}

func TestRun_ConversionFailure(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.fake.Handle("pmtiles-linux-x64", toolexectest.Exit(2, "convert: corrupt archive"))

	_, err := f.run(t, "terrain.pmtiles")
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.ErrorContains(t, err, "corrupt archive")
	f.assertScratchEmpty(t)
}

func TestRun_Cancellation(t *testing.T) {
	f := newFixture(t, 8, 9)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.fake.Handle("rio", func(ctx context.Context, cmd toolexec.Command) (toolexec.Result, error) {
		if err := toolexectest.WriteFile(cmd.Args[2], 10); err != nil {
			return toolexec.Result{}, err
		}
		cancel()
		return toolexec.Result{ExitCode: -1}, ctx.Err()
	})

	req := f.request
	req.Output = filepath.Join(f.dir, "terrain")
	res, err := f.orch.Run(ctx, req)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"rio"}, f.fake.Tools())
	f.assertScratchEmpty(t)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	f := newFixture(t, 8, 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := f.request
	req.Output = filepath.Join(f.dir, "terrain.mbtiles")
	_, err := f.orch.Run(ctx, req)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Empty(t, f.fake.Calls())
}

func TestRun_OutputExists(t *testing.T) {
	f := newFixture(t, 8, 9)
	existing := filepath.Join(f.dir, "terrain.mbtiles")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o600))

	_, err := f.run(t, "terrain.mbtiles")
	assert.ErrorIs(t, err, output.ErrOutputExists)
	assert.Empty(t, f.fake.Calls())

	f.request.Options.Force = true
	res, err := f.run(t, "terrain.mbtiles")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), res.OutputBytes())
}

func TestRun_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"inverted zoom", func(r *Request) { r.MinZoom, r.MaxZoom = 12, 10 }},
		{"zoom above limit", func(r *Request) { r.MaxZoom = 23 }},
		{"missing input", func(r *Request) { r.Input = filepath.Join(filepath.Dir(r.Input), "missing.tif") }},
		{"unknown format", func(r *Request) { r.Options.Format = "jpeg" }},
		{"zero workers", func(r *Request) { r.Options.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 8, 9)
			req := f.request
			req.Output = filepath.Join(f.dir, "out.mbtiles")
			tt.mutate(&req)

			_, err := f.orch.Run(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, f.fake.Calls())
		})
	}
}

func TestRun_UnsupportedExtension(t *testing.T) {
	f := newFixture(t, 8, 9)
	_, err := f.run(t, "terrain.zip")
	assert.ErrorIs(t, err, output.ErrUnsupportedFormat)
	assert.Empty(t, f.fake.Calls())
}

func TestRun_MetadataExtractionFailure(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.orch.Extractor = dem.NewExtractor(&demtest.Opener{}, &demtest.Reprojector{})

	_, err := f.run(t, "terrain.mbtiles")
	assert.ErrorIs(t, err, dem.ErrMetadata)
	assert.Empty(t, f.fake.Calls())
}

func TestRun_InspectorEnrichesEncodeMetadata(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.orch.Inspect = func(context.Context, string) (mbtiles.Summary, error) {
		return mbtiles.Summary{TotalTiles: 7, TilesPerZoom: map[int]int{8: 2, 9: 5}}, nil
	}

	res, err := f.run(t, "terrain.mbtiles")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Metadata["archive_tiles"])
	assert.Equal(t, map[int]int{8: 2, 9: 5}, res.Metadata["archive_tiles_per_zoom"])
}

func TestRun_InspectorFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, 8, 9)
	f.orch.Inspect = func(context.Context, string) (mbtiles.Summary, error) {
		return mbtiles.Summary{}, errors.New("file is not a database")
	}

	res, err := f.run(t, "terrain.mbtiles")
	require.NoError(t, err)
	assert.NotContains(t, res.Metadata, "archive_tiles")
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "encoding_failed", ErrorType(&StageError{Stage: StageEncode, Err: ErrEncodingFailed}))
	assert.Equal(t, "tilejson_failed", ErrorType(&StageError{Stage: StageTileJSON, Err: errors.New("disk full")}))
	assert.Equal(t, "validation", ErrorType(fmt.Errorf("%w: bad zoom", ErrValidation)))
	assert.Equal(t, "canceled", ErrorType(fmt.Errorf("%w: x", ErrCanceled)))
}
