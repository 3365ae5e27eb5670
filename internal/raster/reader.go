package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/fieldsight/spectral-etl/internal/geo"
)

// ErrDegenerateWindow is returned when a geometry's bounds shrink to a
// zero-width or zero-height pixel window on the band grid.
var ErrDegenerateWindow = errors.New("degenerate read window")

// ReadWindow reads a geometry-masked window from a band source.
//
// With a nil geometry the full band is returned unmasked. Otherwise the
// geometry is reprojected into the band's CRS, the minimal covering pixel
// window is read, and every pixel whose center falls outside the geometry is
// set to NaN. The reprojected geometry is returned alongside the band so
// callers can re-apply the same mask after resampling.
//
// Retries are the caller's responsibility; open and read failures surface
// as-is.
func ReadWindow(src Source, geom orb.Geometry, geomCRS string) (Band, orb.Geometry, error) {
	width, height := src.Size()

	if geom == nil {
		data, err := src.Read(Window{Width: width, Height: height})
		if err != nil {
			return Band{}, nil, fmt.Errorf("read band: %w", err)
		}
		return Band{
			Data:      data,
			Width:     width,
			Height:    height,
			Transform: src.Transform(),
			CRS:       src.CRS(),
		}, nil, nil
	}

	projected, err := geo.TransformGeometry(geom, geomCRS, src.CRS())
	if err != nil {
		return Band{}, nil, fmt.Errorf("reproject geometry: %w", err)
	}

	win, err := windowFromBound(projected.Bound(), src.Transform(), width, height)
	if err != nil {
		return Band{}, nil, fmt.Errorf("read band: %w", err)
	}

	data, err := src.Read(win)
	if err != nil {
		return Band{}, nil, fmt.Errorf("read band window: %w", err)
	}

	band := Band{
		Data:      data,
		Width:     win.Width,
		Height:    win.Height,
		Transform: src.Transform().Shift(win.Col, win.Row),
		CRS:       src.CRS(),
	}
	maskOutside(band, projected)
	return band, projected, nil
}

// windowFromBound computes the minimal pixel window covering a CRS-space
// bound, clamped to the raster extent.
func windowFromBound(bound orb.Bound, transform Affine, width, height int) (Window, error) {
	c0, r0 := transform.ColRow(bound.Min[0], bound.Max[1])
	c1, r1 := transform.ColRow(bound.Max[0], bound.Min[1])

	colMin := int(math.Floor(math.Min(c0, c1)))
	rowMin := int(math.Floor(math.Min(r0, r1)))
	colMax := int(math.Ceil(math.Max(c0, c1)))
	rowMax := int(math.Ceil(math.Max(r0, r1)))

	colMin = clamp(colMin, 0, width)
	rowMin = clamp(rowMin, 0, height)
	colMax = clamp(colMax, 0, width)
	rowMax = clamp(rowMax, 0, height)

	win := Window{
		Col:    colMin,
		Row:    rowMin,
		Width:  colMax - colMin,
		Height: rowMax - rowMin,
	}
	if win.Width <= 0 || win.Height <= 0 {
		return Window{}, ErrDegenerateWindow
	}
	return win, nil
}

// maskOutside sets every pixel whose center lies outside the geometry to NaN.
// The geometry must already be in the band's CRS.
func maskOutside(band Band, geom orb.Geometry) {
	nan := float32(math.NaN())
	for row := 0; row < band.Height; row++ {
		for col := 0; col < band.Width; col++ {
			x, y := band.Transform.XY(float64(col)+0.5, float64(row)+0.5)
			if !contains(geom, orb.Point{x, y}) {
				band.Set(row, col, nan)
			}
		}
	}
}

func contains(geom orb.Geometry, pt orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Ring:
		return planar.RingContains(g, pt)
	default:
		return geom.Bound().Contains(pt)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
