package gdal

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"

	"github.com/ManuGH/rgbweaver/internal/dem"
)

// densifyPoints is the number of points sampled per edge, endpoints included.
const densifyPoints = 21

// Reprojector transforms bounding boxes to EPSG:4326.
type Reprojector struct{}

// NewReprojector returns a GDAL backed dem.Reprojector.
func NewReprojector() *Reprojector {
	registerOnce.Do(godal.RegisterAll)
	return &Reprojector{}
}

// TransformBounds samples every edge of b, transforms the samples and returns their envelope.
func (p *Reprojector) TransformBounds(srcCRS string, b dem.Bounds) (dem.Bounds, error) {
	src, err := godal.NewSpatialRefFromWKT(srcCRS)
	if err != nil {
		return dem.Bounds{}, fmt.Errorf("parse source CRS: %w", err)
	}
	defer src.Close()
	dst, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return dem.Bounds{}, fmt.Errorf("create EPSG:4326: %w", err)
	}
	defer dst.Close()

	trn, err := godal.NewTransform(src, dst)
	if err != nil {
		return dem.Bounds{}, fmt.Errorf("create transform: %w", err)
	}
	defer trn.Close()

	xs, ys := EdgePoints(b, densifyPoints)
	ok := make([]bool, len(xs))
	if err := trn.TransformEx(xs, ys, nil, ok); err != nil {
		// TransformEx reports partial failure; the ok mask tells which points survived.
		if !anyTrue(ok) {
			return dem.Bounds{}, fmt.Errorf("transform bounds: %w", err)
		}
	}
	return Envelope(xs, ys, ok)
}

// EdgePoints returns n points per edge of b, walking the ring counter-clockwise.
func EdgePoints(b dem.Bounds, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = make([]float64, 0, 4*n)
	ys = make([]float64, 0, 4*n)
	step := func(a, z float64, i int) float64 {
		return a + (z-a)*float64(i)/float64(n-1)
	}
	for i := 0; i < n; i++ {
		xs = append(xs, step(b.Left, b.Right, i))
		ys = append(ys, b.Bottom)
	}
	for i := 0; i < n; i++ {
		xs = append(xs, b.Right)
		ys = append(ys, step(b.Bottom, b.Top, i))
	}
	for i := 0; i < n; i++ {
		xs = append(xs, step(b.Right, b.Left, i))
		ys = append(ys, b.Top)
	}
	for i := 0; i < n; i++ {
		xs = append(xs, b.Left)
		ys = append(ys, step(b.Top, b.Bottom, i))
	}
	return xs, ys
}

var errNoPoints = errors.New("no point of the bounding box could be transformed")

// Envelope returns the bounding box of the points flagged in ok.
func Envelope(xs, ys []float64, ok []bool) (dem.Bounds, error) {
	out := dem.Bounds{
		Left: math.Inf(1), Bottom: math.Inf(1),
		Right: math.Inf(-1), Top: math.Inf(-1),
	}
	seen := false
	for i := range xs {
		if i >= len(ok) || !ok[i] || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			continue
		}
		seen = true
		out.Left = math.Min(out.Left, xs[i])
		out.Right = math.Max(out.Right, xs[i])
		out.Bottom = math.Min(out.Bottom, ys[i])
		out.Top = math.Max(out.Top, ys[i])
	}
	if !seen {
		return dem.Bounds{}, errNoPoints
	}
	return out, nil
}

func anyTrue(v []bool) bool {
	for _, b := range v {
		if b {
			return true
		}
	}
	return false
}
