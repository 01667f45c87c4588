package gdal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rgbweaver/internal/dem"
)

func TestEdgePoints(t *testing.T) {
	b := dem.Bounds{Left: 0, Bottom: 0, Right: 10, Top: 20}
	xs, ys := EdgePoints(b, densifyPoints)

	require.Len(t, xs, 4*densifyPoints)
	require.Len(t, ys, 4*densifyPoints)
	assert.Equal(t, 0.0, xs[0])
	assert.Equal(t, 10.0, xs[densifyPoints-1])
	assert.Equal(t, 20.0, ys[2*densifyPoints-1])
	assert.InDelta(t, 0.5, xs[1], 1e-12)

	env, err := Envelope(xs, ys, allTrue(len(xs)))
	require.NoError(t, err)
	assert.Equal(t, b, env)
}

func TestEnvelope_SkipsFailedPoints(t *testing.T) {
	xs := []float64{1, 100, 3}
	ys := []float64{2, 200, 4}
	env, err := Envelope(xs, ys, []bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, dem.Bounds{Left: 1, Bottom: 2, Right: 3, Top: 4}, env)
}

func TestEnvelope_NoValidPoint(t *testing.T) {
	_, err := Envelope([]float64{1}, []float64{2}, []bool{false})
	require.ErrorIs(t, err, errNoPoints)
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}
