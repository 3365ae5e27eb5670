package raster_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/geo"
	"github.com/fieldsight/spectral-etl/internal/raster"
)

// --- mocks ---

// memSource is an in-memory raster.Source over a 2-D float32 grid.
type memSource struct {
	data      []float32
	width     int
	height    int
	transform raster.Affine
	crs       string
	closed    bool
}

func (s *memSource) CRS() string              { return s.crs }
func (s *memSource) Transform() raster.Affine { return s.transform }
func (s *memSource) Size() (int, int)         { return s.width, s.height }
func (s *memSource) Close() error             { s.closed = true; return nil }

func (s *memSource) Read(win raster.Window) ([]float32, error) {
	out := make([]float32, win.Width*win.Height)
	for r := 0; r < win.Height; r++ {
		for c := 0; c < win.Width; c++ {
			out[r*win.Width+c] = s.data[(win.Row+r)*s.width+(win.Col+c)]
		}
	}
	return out, nil
}

// grid4x4 builds a 4x4 source with values 0..15, pixel size 1, origin at
// the top-left corner (0, 4) so pixel centers sit at half-unit coordinates.
func grid4x4() *memSource {
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i)
	}
	return &memSource{
		data:      data,
		width:     4,
		height:    4,
		transform: raster.Affine{A: 1, E: -1, C: 0, F: 4},
		crs:       geo.WGS84,
	}
}

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func countValid(data []float32) int {
	n := 0
	for _, v := range data {
		if !math.IsNaN(float64(v)) {
			n++
		}
	}
	return n
}

// --- tests ---

func TestReadWindow_NilGeometry_FullBand(t *testing.T) {
	src := grid4x4()

	band, masked, err := raster.ReadWindow(src, nil, geo.WGS84)
	require.NoError(t, err)

	assert.Nil(t, masked)
	assert.Equal(t, 4, band.Width)
	assert.Equal(t, 4, band.Height)
	assert.Equal(t, 16, countValid(band.Data))
	assert.Equal(t, float32(5), band.At(1, 1))
}

func TestReadWindow_GeometryMasksPixelCenters(t *testing.T) {
	src := grid4x4()

	// Covers a 3x3 pixel window but only the center pixel's center point.
	geom := square(0.6, 1.6, 2.4, 3.4)

	band, masked, err := raster.ReadWindow(src, geom, geo.WGS84)
	require.NoError(t, err)
	require.NotNil(t, masked)

	assert.Equal(t, 3, band.Width)
	assert.Equal(t, 3, band.Height)
	assert.Equal(t, 1, countValid(band.Data))

	// Full-grid pixel (row 1, col 1) has value 5; in the window it sits at
	// (row 1, col 1) as well since the window starts at the origin.
	assert.Equal(t, float32(5), band.At(1, 1))
}

func TestReadWindow_WindowTransformShifted(t *testing.T) {
	src := grid4x4()

	geom := square(1.0, 1.0, 3.0, 3.0)

	band, _, err := raster.ReadWindow(src, geom, geo.WGS84)
	require.NoError(t, err)

	assert.Equal(t, 2, band.Width)
	assert.Equal(t, 2, band.Height)

	// The window starts at pixel (1, 1), so its transform origin moves to
	// CRS point (1, 3).
	x, y := band.Transform.XY(0, 0)
	assert.InDelta(t, 1.0, x, 1e-12)
	assert.InDelta(t, 3.0, y, 1e-12)
}

func TestReadWindow_GeometryOutsideRaster_Degenerate(t *testing.T) {
	src := grid4x4()

	geom := square(10, 10, 12, 12)

	_, _, err := raster.ReadWindow(src, geom, geo.WGS84)
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrDegenerateWindow)
}
