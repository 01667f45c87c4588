// Package gdal implements the dem raster interfaces on top of GDAL.
package gdal

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/ManuGH/rgbweaver/internal/dem"
)

var registerOnce sync.Once

// Opener opens rasters through GDAL.
type Opener struct{}

// NewOpener registers the GDAL drivers once and returns an Opener.
func NewOpener() *Opener {
	registerOnce.Do(godal.RegisterAll)
	return &Opener{}
}

// Open implements dem.Opener.
func (o *Opener) Open(path string) (dem.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, err
	}
	return &raster{ds: ds}, nil
}

type raster struct {
	ds *godal.Dataset
}

func (r *raster) Width() int { return r.ds.Structure().SizeX }
func (r *raster) Height() int { return r.ds.Structure().SizeY }
func (r *raster) BandCount() int { return r.ds.Structure().NBands }

func (r *raster) CRS() string {
	return strings.TrimSpace(r.ds.Projection())
}

func (r *raster) IsGeographic() bool {
	wkt := r.CRS()
	if wkt == "" {
		return false
	}
	return isWGS84(wkt)
}

func (r *raster) Bounds() dem.Bounds {
	gt, err := r.ds.GeoTransform()
	if err != nil {
		// GDAL's default geotransform is the pixel grid.
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}
	st := r.ds.Structure()
	x0, y0 := gt[0], gt[3]
	x1 := gt[0] + float64(st.SizeX)*gt[1] + float64(st.SizeY)*gt[2]
	y1 := gt[3] + float64(st.SizeX)*gt[4] + float64(st.SizeY)*gt[5]
	return dem.Bounds{
		Left:   math.Min(x0, x1),
		Bottom: math.Min(y0, y1),
		Right:  math.Max(x0, x1),
		Top:    math.Max(y0, y1),
	}
}

func (r *raster) NoData() (float64, bool) {
	bands := r.ds.Bands()
	if len(bands) == 0 {
		return 0, false
	}
	return bands[0].NoData()
}

func (r *raster) DataType() string {
	switch r.ds.Structure().DataType {
	case godal.Byte:
		return "uint8"
	case godal.UInt16:
		return "uint16"
	case godal.Int16:
		return "int16"
	case godal.UInt32:
		return "uint32"
	case godal.Int32:
		return "int32"
	case godal.Float32:
		return "float32"
	case godal.Float64:
		return "float64"
	default:
		return "unknown"
	}
}

func (r *raster) ReadMasked(band int) (dem.MaskedBand, error) {
	bands := r.ds.Bands()
	if band < 1 || band > len(bands) {
		return dem.MaskedBand{}, fmt.Errorf("band %d out of range (1..%d)", band, len(bands))
	}
	b := bands[band-1]
	st := b.Structure()
	data := make([]float64, st.SizeX*st.SizeY)
	if err := b.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return dem.MaskedBand{}, fmt.Errorf("read band %d: %w", band, err)
	}
	nodata, hasNoData := b.NoData()
	valid := make([]bool, len(data))
	for i, v := range data {
		valid[i] = !math.IsNaN(v) && (!hasNoData || v != nodata)
	}
	return dem.MaskedBand{Data: data, Valid: valid}, nil
}

func (r *raster) Close() error {
	return r.ds.Close()
}

func isWGS84(wkt string) bool {
	src, err := godal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return false
	}
	defer src.Close()
	wgs, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return false
	}
	defer wgs.Close()
	return src.IsSame(wgs)
}
