// Package output maps a destination path to the kind of artifact rgbweaver produces.
package output

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat means the destination suffix names no known output kind.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrOutputExists means the destination is occupied and force was not requested.
	ErrOutputExists = errors.New("output already exists")
)

// Kind is the closed set of output artifacts.
type Kind int

const (
	KindMBTiles Kind = iota + 1
	KindPMTiles
	KindTiles
	KindTilesWithJSON
)

// AllKinds lists every kind in display order.
var AllKinds = []Kind{KindMBTiles, KindPMTiles, KindTiles, KindTilesWithJSON}

func (k Kind) String() string {
	switch k {
	case KindMBTiles:
		return "mbtiles"
	case KindPMTiles:
		return "pmtiles"
	case KindTiles:
		return "tiles"
	case KindTilesWithJSON:
		return "tiles+tilejson"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Description is the human-readable label used in reports.
func (k Kind) Description() string {
	switch k {
	case KindMBTiles:
		return "MBTiles archive"
	case KindPMTiles:
		return "PMTiles archive"
	case KindTiles:
		return "Tiles directory"
	case KindTilesWithJSON:
		return "Tiles directory with TileJSON"
	default:
		return "unknown"
	}
}

// Extension returns the file suffix for archive kinds, empty for directories.
func (k Kind) Extension() string {
	switch k {
	case KindMBTiles:
		return ".mbtiles"
	case KindPMTiles:
		return ".pmtiles"
	default:
		return ""
	}
}

// IsDirectory reports whether the kind is a tile directory.
func (k Kind) IsDirectory() bool {
	return k == KindTiles || k == KindTilesWithJSON
}

// NeedsConverter reports whether producing the kind requires the bundled converter.
func (k Kind) NeedsConverter() bool { return k == KindPMTiles }

// Spec is the resolved output target. It is an immutable value.
type Spec struct {
	Kind     Kind
	Path     string
	TileJSON bool
}

// TilesDir is the tile tree inside a directory output.
func (s Spec) TilesDir() string { return filepath.Join(s.Path, "tiles") }

// TileJSONPath is the sidecar location inside a directory output.
func (s Spec) TileJSONPath() string { return filepath.Join(s.Path, "tiles.json") }

var suffixes = map[string]Kind{
	".mbtiles": KindMBTiles,
	".pmtiles": KindPMTiles,
}

// Resolve classifies dest by its suffix, compared case-insensitively.
// A path without suffix is a tile directory; wantTileJSON selects the sidecar variant.
func Resolve(dest string, wantTileJSON bool) (Spec, error) {
	ext := strings.ToLower(filepath.Ext(dest))
	if ext == "" {
		kind := KindTiles
		if wantTileJSON {
			kind = KindTilesWithJSON
		}
		return Spec{Kind: kind, Path: dest, TileJSON: wantTileJSON}, nil
	}
	kind, ok := suffixes[ext]
	if !ok {
		return Spec{}, fmt.Errorf("%w %q: supported outputs are .mbtiles, .pmtiles or a directory path without extension",
			ErrUnsupportedFormat, ext)
	}
	return Spec{Kind: kind, Path: dest}, nil
}

// Supported lists the kinds available on this platform. converterAvailable is only
// consulted for kinds that need the converter.
func Supported(converterAvailable func() bool) []Kind {
	out := make([]Kind, 0, len(AllKinds))
	for _, k := range AllKinds {
		if k.NeedsConverter() && (converterAvailable == nil || !converterAvailable()) {
			continue
		}
		out = append(out, k)
	}
	return out
}
