package dem

import (
	"context"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
)

// Extractor builds Info from a raster path.
type Extractor struct {
	opener      Opener
	reprojector Reprojector
}

// NewExtractor wires the raster collaborators.
func NewExtractor(opener Opener, reprojector Reprojector) *Extractor {
	return &Extractor{opener: opener, reprojector: reprojector}
}

// Extract opens path and reads its metadata.
//
// Reprojection and statistics are best effort: their failures are logged and
// leave the native bounds or nil statistics in place.
func (e *Extractor) Extract(ctx context.Context, path string, computeStats bool) (Info, error) {
	logger := xglog.WithComponentFromContext(ctx, "dem").With().Str(xglog.FieldInputPath, path).Logger()
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	r, err := e.opener.Open(path)
	if err != nil {
		return Info{}, &Error{Path: path, Op: "open", Err: err}
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			logger.Debug().Err(cerr).Msg("close raster")
		}
	}()

	info := Info{
		Path:     path,
		Width:    r.Width(),
		Height:   r.Height(),
		Bands:    r.BandCount(),
		CRS:      r.CRS(),
		Bounds:   r.Bounds(),
		DataType: r.DataType(),
	}
	if nd, ok := r.NoData(); ok {
		info.NoData = &nd
	}
	if info.Width <= 0 || info.Height <= 0 || info.Bands <= 0 {
		return Info{}, &Error{Path: path, Op: "read", Err: errEmptyRaster}
	}

	info.BoundsWGS84 = e.wgs84Bounds(logger, r, info.Bounds)
	info.CenterWGS84 = info.BoundsWGS84.Center()

	if computeStats {
		info.Min, info.Max = statistics(logger, r)
	}

	logger.Info().
		Str("summary", info.Summary()).
		Str("bounds_wgs84", info.BoundsWGS84.String()).
		Msg("DEM metadata extracted")
	return info, nil
}

func (e *Extractor) wgs84Bounds(logger zerolog.Logger, r Raster, native Bounds) Bounds {
	if r.CRS() == "" {
		logger.Warn().Msg("no CRS defined, assuming bounds are already WGS84")
		return native
	}
	if r.IsGeographic() {
		return native
	}
	if e.reprojector == nil {
		logger.Warn().Msg("no reprojector configured, using native bounds")
		return native
	}
	b, err := e.reprojector.TransformBounds(r.CRS(), native)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to transform bounds to WGS84, using native bounds")
		return native
	}
	return b.Clamp()
}

func statistics(logger zerolog.Logger, r Raster) (*float64, *float64) {
	band, err := r.ReadMasked(1)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to compute statistics")
		return nil, nil
	}
	values := band.Values()
	if len(values) == 0 {
		logger.Warn().Msg("no valid data found for statistics")
		return nil, nil
	}
	lo, hi := floats.Min(values), floats.Max(values)
	return &lo, &hi
}
