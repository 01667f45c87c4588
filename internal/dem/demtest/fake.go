// Package demtest provides in-memory rasters for tests.
package demtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ManuGH/rgbweaver/internal/dem"
)

// EPSG4326 is the CRS string fakes use for geographic rasters.
const EPSG4326 = "EPSG:4326"

// Raster is a configurable dem.Raster.
type Raster struct {
	W, H, Count int
	CRSValue    string
	Box         dem.Bounds
	NoDataValue *float64
	Type        string
	Band        dem.MaskedBand
	ReadErr     error

	mu     sync.Mutex
	closed bool
}

// Geographic returns a single-band float32 raster in EPSG:4326 covering b.
func Geographic(b dem.Bounds, data []float64) *Raster {
	valid := make([]bool, len(data))
	for i := range valid {
		valid[i] = true
	}
	return &Raster{
		W: len(data), H: 1, Count: 1,
		CRSValue: EPSG4326,
		Box:      b,
		Type:     "float32",
		Band:     dem.MaskedBand{Data: data, Valid: valid},
	}
}

func (r *Raster) Width() int { return r.W }
func (r *Raster) Height() int { return r.H }
func (r *Raster) BandCount() int { return r.Count }
func (r *Raster) CRS() string { return r.CRSValue }
func (r *Raster) IsGeographic() bool { return r.CRSValue == EPSG4326 }
func (r *Raster) Bounds() dem.Bounds { return r.Box }
func (r *Raster) DataType() string { return r.Type }

func (r *Raster) NoData() (float64, bool) {
	if r.NoDataValue == nil {
		return 0, false
	}
	return *r.NoDataValue, true
}

func (r *Raster) ReadMasked(band int) (dem.MaskedBand, error) {
	if band < 1 || band > r.Count {
		return dem.MaskedBand{}, fmt.Errorf("band %d out of range", band)
	}
	if r.ReadErr != nil {
		return dem.MaskedBand{}, r.ReadErr
	}
	return r.Band, nil
}

func (r *Raster) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Raster) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Opener serves rasters by path.
type Opener struct {
	Rasters map[string]*Raster
	// Any, when set, is returned for paths missing from Rasters.
	Any *Raster
}

func (o *Opener) Open(path string) (dem.Raster, error) {
	if r, ok := o.Rasters[path]; ok {
		return r, nil
	}
	if o.Any != nil {
		return o.Any, nil
	}
	return nil, errors.New("not recognized as a supported file format")
}

// Reprojector applies Fn, or fails with Err.
type Reprojector struct {
	Fn    func(dem.Bounds) dem.Bounds
	Err   error
	Calls int
}

func (p *Reprojector) TransformBounds(_ string, b dem.Bounds) (dem.Bounds, error) {
	p.Calls++
	if p.Err != nil {
		return dem.Bounds{}, p.Err
	}
	if p.Fn == nil {
		return b, nil
	}
	return p.Fn(b), nil
}
