package raster

import (
	"fmt"
	"math"
)

// epsilon keeps the normalized-difference denominator away from zero when
// both bands are exactly zero at a pixel.
const epsilon = 1e-6

// Stats summarizes the finite cells of an index raster. When no finite
// cells exist every scalar is 0.0, never NaN.
type Stats struct {
	Mean            float64 `json:"mean"`
	Std             float64 `json:"std"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	ValidPixelCount int     `json:"valid_pixel_count"`
}

// IndexResult is one computed normalized-difference raster plus its
// summary statistics.
type IndexResult struct {
	Values []float32
	Width  int
	Height int
	Stats  Stats
}

// ComputeIndex evaluates (a - b) / (a + b + epsilon) per pixel in float32.
// NaN propagates through the arithmetic, so a result cell is valid only
// where both inputs are. Inputs must be aligned first; mismatched shapes
// are an invariant violation, not a recoverable condition.
func ComputeIndex(a, b Band) (IndexResult, error) {
	if !a.SameShape(b) {
		return IndexResult{}, fmt.Errorf("compute index: mismatched shapes %dx%d vs %dx%d",
			a.Width, a.Height, b.Width, b.Height)
	}

	values := make([]float32, len(a.Data))
	for i := range a.Data {
		values[i] = (a.Data[i] - b.Data[i]) / (a.Data[i] + b.Data[i] + epsilon)
	}

	return IndexResult{
		Values: values,
		Width:  a.Width,
		Height: a.Height,
		Stats:  computeStats(values),
	}, nil
}

func computeStats(values []float32) Stats {
	var (
		count    int
		sum      float64
		sumSq    float64
		min, max float64
	)
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if count == 0 {
			min, max = f, f
		} else {
			min = math.Min(min, f)
			max = math.Max(max, f)
		}
		count++
		sum += f
		sumSq += f * f
	}

	if count == 0 {
		return Stats{}
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Stats{
		Mean:            mean,
		Std:             math.Sqrt(variance),
		Min:             min,
		Max:             max,
		ValidPixelCount: count,
	}
}
