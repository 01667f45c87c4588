package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataMerge_LaterWinsAndNothingIsDropped(t *testing.T) {
	base := Metadata{"format": "mbtiles", "min_zoom": 8}
	later := Metadata{"format": "tiles", "total_tiles": 12}

	got := base.Merge(later)

	assert.Equal(t, Metadata{"format": "tiles", "min_zoom": 8, "total_tiles": 12}, got)
	assert.Equal(t, "mbtiles", base["format"], "receiver must not be mutated")
}

func TestMetadataAccessors(t *testing.T) {
	md := Metadata{"a": 3, "b": int64(4), "c": 1.5, "d": "x"}

	n, ok := md.Int64("a")
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	n, ok = md.Int64("b")
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)
	_, ok = md.Int64("c")
	assert.False(t, ok)

	f, ok := md.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	s, ok := md.String("d")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = md.String("missing")
	assert.False(t, ok)
}

func TestEstimatedTiles(t *testing.T) {
	assert.Equal(t, int64(1), EstimatedTiles(0, 0))
	assert.Equal(t, int64(1+4+16), EstimatedTiles(0, 2))
	assert.Equal(t, int64(65536+262144+1048576), EstimatedTiles(8, 10))
}

func TestCompressionRatio(t *testing.T) {
	assert.Equal(t, 75.0, CompressionRatio(250, 1000))
	assert.Equal(t, 33.3, CompressionRatio(2, 3))
	assert.Equal(t, 0.0, CompressionRatio(10, 0))
	assert.Equal(t, -50.0, CompressionRatio(150, 100))
}

func TestSizeMB(t *testing.T) {
	assert.Equal(t, 1.5, sizeMB(1536*1024))
	assert.Equal(t, 0.0, sizeMB(0))
}
