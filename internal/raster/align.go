package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/fieldsight/spectral-etl/internal/geo"
)

// Align resamples src onto target's grid when their shapes differ.
//
// The target grid is authoritative: satellite bands ship at mixed native
// resolutions (10 m vs 20 m), and the finer band's grid determines output
// shape so the finer band is never degraded. When shapes already match the
// source band is returned unchanged, preserving original pixel values
// bit-for-bit.
//
// Resampling is NaN-aware bilinear. After resampling the target geometry
// mask is re-applied, so values never bleed across the geometry boundary.
func Align(src, target Band, targetGeom orb.Geometry) (Band, error) {
	if src.SameShape(target) {
		return src, nil
	}

	toSrc, err := geo.Transformer(target.CRS, src.CRS)
	if err != nil {
		return Band{}, fmt.Errorf("align bands: %w", err)
	}

	nan := float32(math.NaN())
	dst := Band{
		Data:      make([]float32, target.Width*target.Height),
		Width:     target.Width,
		Height:    target.Height,
		Transform: target.Transform,
		CRS:       target.CRS,
	}
	for i := range dst.Data {
		dst.Data[i] = nan
	}

	for row := 0; row < dst.Height; row++ {
		for col := 0; col < dst.Width; col++ {
			x, y := dst.Transform.XY(float64(col)+0.5, float64(row)+0.5)
			sx, sy := toSrc(x, y)
			sc, sr := src.Transform.ColRow(sx, sy)
			dst.Set(row, col, sampleBilinear(src, sc-0.5, sr-0.5))
		}
	}

	if targetGeom != nil {
		maskOutside(dst, targetGeom)
	}
	return dst, nil
}

// sampleBilinear interpolates src at fractional pixel-center coordinates.
// Positions outside the source coverage yield NaN; NaN neighbors are dropped
// with weight renormalization so a single valid neighbor still contributes.
func sampleBilinear(src Band, col, row float64) float32 {
	// Coverage extends half a pixel beyond the outermost centers.
	if col < -0.5 || col > float64(src.Width)-0.5 || row < -0.5 || row > float64(src.Height)-0.5 {
		return float32(math.NaN())
	}

	c0 := int(math.Floor(col))
	r0 := int(math.Floor(row))
	fc := col - float64(c0)
	fr := row - float64(r0)

	var sum, weight float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			c := clamp(c0+dc, 0, src.Width-1)
			r := clamp(r0+dr, 0, src.Height-1)
			v := src.At(r, c)
			if isNaN32(v) {
				continue
			}
			w := weightFor(fc, dc) * weightFor(fr, dr)
			sum += float64(v) * w
			weight += w
		}
	}
	if weight == 0 {
		return float32(math.NaN())
	}
	return float32(sum / weight)
}

func weightFor(frac float64, offset int) float64 {
	if offset == 0 {
		return 1 - frac
	}
	return frac
}
