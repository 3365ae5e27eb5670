package raster_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/geo"
	"github.com/fieldsight/spectral-etl/internal/raster"
)

func TestAlign_SameShape_ReturnsSourceUnchanged(t *testing.T) {
	nan := float32(math.NaN())
	src := raster.Band{
		Data:      []float32{1, 2, nan, 4},
		Width:     2,
		Height:    2,
		Transform: raster.Affine{A: 1, E: -1, F: 2},
		CRS:       geo.WGS84,
	}
	target := raster.Band{
		Data:      make([]float32, 4),
		Width:     2,
		Height:    2,
		Transform: raster.Affine{A: 1, E: -1, F: 2},
		CRS:       geo.WGS84,
	}

	out, err := raster.Align(src, target, nil)
	require.NoError(t, err)

	// No resampling: the original samples come back exactly, NaN included.
	assert.Equal(t, float32(1), out.At(0, 0))
	assert.Equal(t, float32(2), out.At(0, 1))
	assert.True(t, math.IsNaN(float64(out.At(1, 0))))
	assert.Equal(t, float32(4), out.At(1, 1))
}

func TestAlign_CoarseOntoFine_Interpolates(t *testing.T) {
	// One row of two 2-unit pixels covering x in [0, 4].
	src := raster.Band{
		Data:      []float32{0, 1},
		Width:     2,
		Height:    1,
		Transform: raster.Affine{A: 2, E: -2, F: 2},
		CRS:       geo.WGS84,
	}
	// Four 1-unit pixels over the same extent.
	target := raster.Band{
		Data:      make([]float32, 4),
		Width:     4,
		Height:    1,
		Transform: raster.Affine{A: 1, E: -2, F: 2},
		CRS:       geo.WGS84,
	}

	out, err := raster.Align(src, target, nil)
	require.NoError(t, err)
	require.Equal(t, 4, out.Width)
	require.Equal(t, 1, out.Height)

	want := []float64{0, 0.25, 0.75, 1}
	for i, w := range want {
		assert.InDelta(t, w, float64(out.Data[i]), 1e-6, "pixel %d", i)
	}
}

func TestAlign_NaNNeighbor_RenormalizesWeights(t *testing.T) {
	nan := float32(math.NaN())
	src := raster.Band{
		Data:      []float32{nan, 1},
		Width:     2,
		Height:    1,
		Transform: raster.Affine{A: 2, E: -2, F: 2},
		CRS:       geo.WGS84,
	}
	target := raster.Band{
		Data:      make([]float32, 4),
		Width:     4,
		Height:    1,
		Transform: raster.Affine{A: 1, E: -2, F: 2},
		CRS:       geo.WGS84,
	}

	out, err := raster.Align(src, target, nil)
	require.NoError(t, err)

	// Pixels whose only covering neighbor is NaN stay NaN; pixels with one
	// valid neighbor take its full value after renormalization.
	assert.True(t, math.IsNaN(float64(out.Data[0])))
	assert.InDelta(t, 1.0, float64(out.Data[1]), 1e-6)
	assert.InDelta(t, 1.0, float64(out.Data[2]), 1e-6)
	assert.InDelta(t, 1.0, float64(out.Data[3]), 1e-6)
}

func TestAlign_TargetOutsideSourceCoverage_NaN(t *testing.T) {
	src := raster.Band{
		Data:      []float32{5},
		Width:     1,
		Height:    1,
		Transform: raster.Affine{A: 1, E: -1, F: 1},
		CRS:       geo.WGS84,
	}
	// Two pixels: the first over the source, the second entirely beyond it.
	target := raster.Band{
		Data:      make([]float32, 2),
		Width:     2,
		Height:    1,
		Transform: raster.Affine{A: 1, E: -1, F: 1},
		CRS:       geo.WGS84,
	}

	out, err := raster.Align(src, target, nil)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, float64(out.Data[0]), 1e-6)
	assert.True(t, math.IsNaN(float64(out.Data[1])))
}
