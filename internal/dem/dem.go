// Package dem reads the metadata of a digital elevation model.
//
// Raster access sits behind Opener, Raster and Reprojector so the extractor can be
// exercised without a raster library; the GDAL implementation lives in
// internal/infrastructure/gdal.
package dem

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMetadata classifies every failure to open or read a DEM.
var ErrMetadata = errors.New("metadata extraction failed")

var errEmptyRaster = errors.New("raster has no pixels or bands")

// Error wraps a raster failure with the offending path.
type Error struct {
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the ErrMetadata class and the underlying cause.
func (e *Error) Unwrap() []error { return []error{ErrMetadata, e.Err} }

// Extensions are the DEM file suffixes accepted as input (lowercase).
var Extensions = []string{
	".tif", ".tiff", ".img", ".bil", ".bip", ".bsq", ".asc",
	".dem", ".hgt", ".dt0", ".dt1", ".dt2", ".vrt",
}

// Bounds is an axis-aligned box in some CRS.
type Bounds struct {
	Left, Bottom, Right, Top float64
}

// Slice returns [left, bottom, right, top].
func (b Bounds) Slice() []float64 {
	return []float64{b.Left, b.Bottom, b.Right, b.Top}
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{Lon: (b.Left + b.Right) / 2, Lat: (b.Bottom + b.Top) / 2}
}

// Clamp restricts the box to the valid longitude/latitude range.
func (b Bounds) Clamp() Bounds {
	return Bounds{
		Left:   clamp(b.Left, -180, 180),
		Bottom: clamp(b.Bottom, -90, 90),
		Right:  clamp(b.Right, -180, 180),
		Top:    clamp(b.Top, -90, 90),
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", b.Left, b.Bottom, b.Right, b.Top)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// Point is a WGS84 coordinate.
type Point struct {
	Lon, Lat float64
}

// Info is the metadata of one DEM. It is read-only after extraction.
type Info struct {
	Path        string
	Width       int
	Height      int
	Bands       int
	CRS         string // empty when the raster carries no reference system
	Bounds      Bounds // native CRS
	BoundsWGS84 Bounds
	CenterWGS84 Point
	Min         *float64 // nil when statistics were skipped or no valid pixel exists
	Max         *float64
	NoData      *float64
	DataType    string
}

// HasStats reports whether both Min and Max are known.
func (i Info) HasStats() bool { return i.Min != nil && i.Max != nil }

// Summary renders a one-line description for logs.
func (i Info) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d, %d band(s), %s", i.Width, i.Height, i.Bands, i.DataType)
	if i.CRS != "" {
		fmt.Fprintf(&b, ", crs=%s", i.CRS)
	}
	if i.HasStats() {
		fmt.Fprintf(&b, ", range=%g..%g", *i.Min, *i.Max)
	}
	return b.String()
}

// MaskedBand is one band read as float64 with a validity mask.
type MaskedBand struct {
	Data  []float64
	Valid []bool // same length as Data; false marks nodata
}

// Values returns the unmasked samples.
func (m MaskedBand) Values() []float64 {
	out := make([]float64, 0, len(m.Data))
	for i, v := range m.Data {
		if i < len(m.Valid) && m.Valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// Opener opens rasters by path.
type Opener interface {
	Open(path string) (Raster, error)
}

// Raster is an open raster dataset.
type Raster interface {
	Width() int
	Height() int
	BandCount() int
	// CRS returns the reference system as WKT or an authority code, empty if absent.
	CRS() string
	// IsGeographic reports whether the CRS is EPSG:4326 already.
	IsGeographic() bool
	Bounds() Bounds
	NoData() (float64, bool)
	DataType() string
	// ReadMasked reads a 1-based band.
	ReadMasked(band int) (MaskedBand, error)
	Close() error
}

// Reprojector transforms a box from srcCRS into EPSG:4326.
type Reprojector interface {
	TransformBounds(srcCRS string, b Bounds) (Bounds, error)
}
