package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ManuGH/rgbweaver/internal/dem"
	"github.com/ManuGH/rgbweaver/internal/tilejson"
)

// directoryTemplate addresses tiles relative to tiles.json at the output root.
const directoryTemplate = "./tiles/{z}/{x}/{y}.{format}"

func (r *run) tileJSONParams() tilejson.Params {
	o := r.req.Options
	base := filepath.Base(r.req.Input)
	name := o.Name
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	description := o.Description
	if description == "" {
		description = "Terrain RGB tiles generated from " + base
	}
	p := tilejson.Params{
		Name:        name,
		MinZoom:     r.req.MinZoom,
		MaxZoom:     r.req.MaxZoom,
		Format:      o.Format,
		Scheme:      o.Scheme,
		Description: description,
		Attribution: o.Attribution,
		BaseURL:     o.BaseURL,
		Extra: map[string]any{
			"generator": "rgbweaver",
			"encoding_params": map[string]any{
				"base_val":     o.BaseVal,
				"interval":     o.Interval,
				"round_digits": o.RoundDigits,
			},
		},
	}
	if p.BaseURL == "" {
		p.URLTemplate = directoryTemplate
	}
	if r.info.HasStats() {
		p.Extra["elevation_range"] = []float64{*r.info.Min, *r.info.Max}
	}
	return p
}

// writeTileJSON builds the sidecar from the extracted DEM metadata.
func (r *run) writeTileJSON(ctx context.Context) (StageResult, error) {
	path := r.spec.TileJSONPath()
	return r.runStage(ctx, StageTileJSON, "", func(context.Context) (StageResult, error) {
		doc := tilejson.Build(r.info, r.tileJSONParams())
		if err := tilejson.Write(path, doc); err != nil {
			return StageResult{OutputPath: path}, &StageError{
				Stage: StageTileJSON,
				Err:   fmt.Errorf("%w: write tilejson: %w", dem.ErrMetadata, err),
			}
		}
		return StageResult{OutputPath: path, Metadata: Metadata{
			"tilejson_generated": true,
			"tilejson_path":      path,
		}}, nil
	})
}
