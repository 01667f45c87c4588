// Package tilejson builds TileJSON 3.0.0 documents for terrain-RGB tile directories.
package tilejson

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/ManuGH/rgbweaver/internal/dem"
)

const (
	Version            = "3.0.0"
	TilesetVersion     = "1.0.0"
	Encoding           = "mapbox"
	TileSize           = 512
	DefaultDescription = "Terrain RGB tiles generated from DEM"
	DefaultTemplate    = "./{z}/{x}/{y}.{format}"
)

// Params are the caller supplied parts of a document.
type Params struct {
	Name        string
	MinZoom     int
	MaxZoom     int
	Format      string
	Scheme      string
	Description string
	Attribution string
	// URLTemplate may contain {format}; it wins over BaseURL.
	URLTemplate string
	BaseURL     string
	// Extra keys are added unless they collide with a standard key.
	Extra map[string]any
}

// Document is a TileJSON document. Standard fields always take precedence over Extra.
type Document struct {
	TileJSON    string    `json:"tilejson"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Scheme      string    `json:"scheme"`
	Tiles       []string  `json:"tiles"`
	MinZoom     int       `json:"minzoom"`
	MaxZoom     int       `json:"maxzoom"`
	Bounds      []float64 `json:"bounds"`
	Center      []float64 `json:"center"`
	Format      string    `json:"format"`
	Attribution string    `json:"attribution"`
	Description string    `json:"description"`
	Encoding    string    `json:"encoding"`
	TileSize    int       `json:"tileSize"`

	Extra map[string]any `json:"-"`
}

// Build assembles a document from DEM metadata and params.
func Build(info dem.Info, p Params) Document {
	description := p.Description
	if description == "" {
		description = DefaultDescription
	}
	center := info.CenterWGS84
	doc := Document{
		TileJSON:    Version,
		Name:        p.Name,
		Version:     TilesetVersion,
		Scheme:      p.Scheme,
		Tiles:       []string{TileURL(p)},
		MinZoom:     p.MinZoom,
		MaxZoom:     p.MaxZoom,
		Bounds:      info.BoundsWGS84.Slice(),
		Center:      []float64{center.Lon, center.Lat, float64(p.MinZoom)},
		Format:      p.Format,
		Attribution: p.Attribution,
		Description: description,
		Encoding:    Encoding,
		TileSize:    TileSize,
	}
	if len(p.Extra) > 0 {
		std := doc.standard()
		doc.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			if _, taken := std[k]; taken {
				continue
			}
			doc.Extra[k] = v
		}
	}
	return doc
}

// TileURL renders the tile URL template for p with {format} substituted.
func TileURL(p Params) string {
	tmpl := p.URLTemplate
	if tmpl == "" {
		if base := strings.TrimRight(p.BaseURL, "/"); base != "" {
			tmpl = base + "/{z}/{x}/{y}.{format}"
		} else {
			tmpl = DefaultTemplate
		}
	}
	return strings.ReplaceAll(tmpl, "{format}", p.Format)
}

func (d Document) standard() map[string]any {
	return map[string]any{
		"tilejson":    d.TileJSON,
		"name":        d.Name,
		"version":     d.Version,
		"scheme":      d.Scheme,
		"tiles":       d.Tiles,
		"minzoom":     d.MinZoom,
		"maxzoom":     d.MaxZoom,
		"bounds":      d.Bounds,
		"center":      d.Center,
		"format":      d.Format,
		"attribution": d.Attribution,
		"description": d.Description,
		"encoding":    d.Encoding,
		"tileSize":    d.TileSize,
	}
}

// Map returns the document as a flat key/value map, extras included.
func (d Document) Map() map[string]any {
	out := d.standard()
	for k, v := range d.Extra {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON emits standard and extra keys in one object.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// UnmarshalJSON splits a decoded object into standard fields and extras.
func (d *Document) UnmarshalJSON(b []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	*d = Document(p)
	std := d.standard()
	extra := maps.Clone(all)
	maps.DeleteFunc(extra, func(k string, _ any) bool {
		_, taken := std[k]
		return taken
	})
	if len(extra) > 0 {
		d.Extra = extra
	}
	return nil
}
