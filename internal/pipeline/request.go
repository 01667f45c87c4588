package pipeline

import (
	"fmt"
	"os"

	"github.com/ManuGH/rgbweaver/internal/dem"
	"github.com/ManuGH/rgbweaver/internal/validate"
)

// Zoom and encoding limits.
const (
	MinZoomLimit = 0
	MaxZoomLimit = 22

	DefaultMinZoom     = 8
	DefaultMaxZoom     = 14
	DefaultBaseVal     = -10000.0
	DefaultInterval    = 0.1
	DefaultRoundDigits = 0
	DefaultWorkers     = 4
	DefaultFormat      = "png"
	DefaultScheme      = "xyz"
)

var (
	// TileFormats are the image formats rio rgbify can write.
	TileFormats = []string{"png", "webp"}
	// Schemes are the row conventions mb-util understands.
	Schemes = []string{"xyz", "tms", "zyx", "wms"}
)

// Request is one pipeline invocation.
type Request struct {
	Input   string
	Output  string
	MinZoom int
	MaxZoom int
	Options Options
}

// Options tune encoding and output.
type Options struct {
	Workers     int
	Format      string
	BaseVal     float64
	Interval    float64
	RoundDigits int
	Scheme      string

	Name        string
	Description string
	Attribution string
	BaseURL     string

	TileJSON bool
	Force    bool
	Verbose  bool

	// SkipStats disables min/max computation on the DEM.
	SkipStats bool
	// MaxInputBytes rejects larger inputs; zero disables the check.
	MaxInputBytes int64

	// PMTiles conversion flags.
	Deduplication bool
	ConvertTmpDir string
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Workers:       DefaultWorkers,
		Format:        DefaultFormat,
		BaseVal:       DefaultBaseVal,
		Interval:      DefaultInterval,
		RoundDigits:   DefaultRoundDigits,
		Scheme:        DefaultScheme,
		TileJSON:      true,
		Deduplication: true,
	}
}

// ZoomLevels is the number of levels in the requested range.
func (r Request) ZoomLevels() int { return r.MaxZoom - r.MinZoom + 1 }

// ValidateZoom checks 0 <= minZoom <= maxZoom <= 22.
func ValidateZoom(minZoom, maxZoom int) error {
	v := validate.New()
	validateZoom(v, minZoom, maxZoom)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func validateZoom(v *validate.Validator, minZoom, maxZoom int) {
	v.Range("min_zoom", minZoom, MinZoomLimit, MaxZoomLimit)
	v.Range("max_zoom", maxZoom, MinZoomLimit, MaxZoomLimit)
	if maxZoom < minZoom {
		v.AddError("max_zoom", fmt.Sprintf("must be >= min_zoom (%d)", minZoom), maxZoom)
	}
}

// Validate checks every field that can be verified without running a tool.
func (r Request) Validate() error {
	v := validate.New()
	validateZoom(v, r.MinZoom, r.MaxZoom)

	o := r.Options
	v.Positive("workers", o.Workers)
	v.OneOf("format", o.Format, TileFormats)
	v.OneOf("scheme", o.Scheme, Schemes)
	v.PositiveFloat("interval", o.Interval)
	v.NonNegative("round_digits", o.RoundDigits)
	v.URL("base_url", o.BaseURL, []string{"http", "https"})
	v.NotEmpty("output", r.Output)

	v.RegularFile("input", r.Input)
	v.Extension("input", r.Input, dem.Extensions)
	if o.MaxInputBytes > 0 {
		if fi, err := os.Stat(r.Input); err == nil && fi.Size() > o.MaxInputBytes {
			v.AddError("input", fmt.Sprintf("file is %d bytes, limit is %d", fi.Size(), o.MaxInputBytes), r.Input)
		}
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
