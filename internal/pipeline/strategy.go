package pipeline

import (
	"context"
	"fmt"

	xglog "github.com/ManuGH/rgbweaver/internal/log"
	"github.com/ManuGH/rgbweaver/internal/output"
)

// strategy executes the stage sequence for the resolved output kind and returns
// a result whose metadata merges every stage in execution order.
func (r *run) strategy(ctx context.Context) (StageResult, error) {
	switch r.spec.Kind {
	case output.KindMBTiles:
		return r.mbtilesStrategy(ctx)
	case output.KindPMTiles:
		return r.pmtilesStrategy(ctx)
	case output.KindTiles, output.KindTilesWithJSON:
		return r.tilesStrategy(ctx)
	default:
		return StageResult{}, fmt.Errorf("%w: %s", output.ErrUnsupportedFormat, r.spec.Kind)
	}
}

func (r *run) mbtilesStrategy(ctx context.Context) (StageResult, error) {
	return r.encode(ctx, r.spec.Path)
}

func (r *run) pmtilesStrategy(ctx context.Context) (StageResult, error) {
	intermediate := r.scope.NewPath(".mbtiles")
	enc, err := r.encode(ctx, intermediate)
	if err != nil {
		return enc, err
	}
	if err := ctx.Err(); err != nil {
		return enc, err
	}
	conv, err := r.convert(ctx, intermediate)
	if err != nil {
		return conv, err
	}
	conv.Metadata = enc.Metadata.Merge(conv.Metadata)
	return conv, nil
}

func (r *run) tilesStrategy(ctx context.Context) (StageResult, error) {
	intermediate := r.scope.NewPath(".mbtiles")
	enc, err := r.encode(ctx, intermediate)
	if err != nil {
		return enc, err
	}
	md := enc.Metadata
	if err := ctx.Err(); err != nil {
		return enc, err
	}

	ext, err := r.extract(ctx, intermediate)
	if err != nil {
		return ext, err
	}
	md = md.Merge(ext.Metadata)

	tj := Metadata{"tilejson_generated": false, "tilejson_path": nil}
	if r.spec.TileJSON {
		res, err := r.writeTileJSON(ctx)
		if err != nil {
			return res, err
		}
		tj = res.Metadata
	}
	md = md.Merge(tj)

	st, err := r.collectStats(ctx)
	if err != nil {
		return st, err
	}
	md = md.Merge(st.Metadata)

	r.logger.Info().
		Str(xglog.FieldEvent, "tiles.generated").
		Interface("total_tiles", md["total_tiles"]).
		Interface("total_size_mb", md["total_size_mb"]).
		Msg("tiles generated")

	return StageResult{Stage: StageStats, OK: true, OutputPath: r.spec.Path, Metadata: md}, nil
}
