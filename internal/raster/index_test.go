package raster_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/raster"
)

func band1xN(values ...float32) raster.Band {
	return raster.Band{Data: values, Width: len(values), Height: 1}
}

func TestComputeIndex_NormalizedDifference(t *testing.T) {
	a := band1xN(3, 1, 0.5)
	b := band1xN(1, 3, 0.5)

	result, err := raster.ComputeIndex(a, b)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, float64(result.Values[0]), 1e-5)
	assert.InDelta(t, -0.5, float64(result.Values[1]), 1e-5)
	assert.InDelta(t, 0.0, float64(result.Values[2]), 1e-5)
	assert.Equal(t, 3, result.Stats.ValidPixelCount)
}

func TestComputeIndex_ZeroBands_EpsilonKeepsFinite(t *testing.T) {
	a := band1xN(0)
	b := band1xN(0)

	result, err := raster.ComputeIndex(a, b)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(float64(result.Values[0])))
	assert.InDelta(t, 0.0, float64(result.Values[0]), 1e-5)
}

func TestComputeIndex_NaNPropagatesAndIsExcluded(t *testing.T) {
	nan := float32(math.NaN())
	a := band1xN(3, nan, 2)
	b := band1xN(1, 1, nan)

	result, err := raster.ComputeIndex(a, b)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(float64(result.Values[0])))
	assert.True(t, math.IsNaN(float64(result.Values[1])))
	assert.True(t, math.IsNaN(float64(result.Values[2])))
	assert.Equal(t, 1, result.Stats.ValidPixelCount)
	assert.InDelta(t, 0.5, result.Stats.Mean, 1e-5)
}

func TestComputeIndex_AllNaN_ZeroStats(t *testing.T) {
	nan := float32(math.NaN())
	a := band1xN(nan, nan)
	b := band1xN(1, 2)

	result, err := raster.ComputeIndex(a, b)
	require.NoError(t, err)

	assert.Equal(t, raster.Stats{}, result.Stats)
}

func TestComputeIndex_MismatchedShapes_Error(t *testing.T) {
	a := band1xN(1, 2)
	b := band1xN(1, 2, 3)

	_, err := raster.ComputeIndex(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched shapes")
}

func TestComputeIndex_PopulationStatistics(t *testing.T) {
	// Values 0.2, 0.4, 0.6 scaled through the index: pick band pairs whose
	// normalized difference lands on those values exactly.
	a := band1xN(6, 7, 8)
	b := band1xN(4, 3, 2)

	result, err := raster.ComputeIndex(a, b)
	require.NoError(t, err)

	s := result.Stats
	assert.InDelta(t, 0.4, s.Mean, 1e-5)
	assert.InDelta(t, math.Sqrt(0.08/3.0), s.Std, 1e-5)
	assert.InDelta(t, 0.2, s.Min, 1e-5)
	assert.InDelta(t, 0.6, s.Max, 1e-5)
	assert.Equal(t, 3, s.ValidPixelCount)
}
