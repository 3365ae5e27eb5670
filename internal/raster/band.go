// Package raster implements the band-alignment, resampling, and
// normalized-difference index computation that turns heterogeneous-resolution
// satellite bands into a single aligned index raster with summary statistics.
//
// All pixel data is float32 with NaN as the only no-data marker, regardless
// of the source encoding. Band access is pluggable through [Opener] so the
// engine never depends on a particular imagery format; windowed reads over
// tiled cloud formats are a source concern, not handled here.
package raster

import (
	"context"
	"math"
)

// Affine is a 2-D pixel transform in row-major (rasterio) layout:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// For north-up imagery B and D are zero and E is negative.
type Affine struct {
	A, B, C, D, E, F float64
}

// XY maps fractional pixel coordinates to CRS coordinates.
func (t Affine) XY(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// ColRow inverts the transform, mapping CRS coordinates to fractional
// pixel coordinates.
func (t Affine) ColRow(x, y float64) (col, row float64) {
	det := t.A*t.E - t.B*t.D
	dx, dy := x-t.C, y-t.F
	return (t.E*dx - t.B*dy) / det, (t.A*dy - t.D*dx) / det
}

// Shift returns the transform of a sub-window whose origin is at pixel
// (col, row) of the parent raster.
func (t Affine) Shift(col, row int) Affine {
	x, y := t.XY(float64(col), float64(row))
	return Affine{A: t.A, B: t.B, C: x, D: t.D, E: t.E, F: y}
}

// Window is a rectangular pixel region of a raster.
type Window struct {
	Col, Row      int
	Width, Height int
}

// Band is an in-memory raster band: row-major float32 samples on a regular
// grid with an affine transform and a CRS. NaN denotes no data.
type Band struct {
	Data      []float32
	Width     int
	Height    int
	Transform Affine
	CRS       string
}

// At returns the sample at (row, col). No bounds check.
func (b Band) At(row, col int) float32 {
	return b.Data[row*b.Width+col]
}

// Set writes the sample at (row, col). No bounds check.
func (b Band) Set(row, col int, v float32) {
	b.Data[row*b.Width+col] = v
}

// SameShape reports whether two bands have identical pixel dimensions.
func (b Band) SameShape(other Band) bool {
	return b.Width == other.Width && b.Height == other.Height
}

// Source is one openable raster band. Read returns row-major float32
// samples for the requested window, converting from the source encoding.
type Source interface {
	CRS() string
	Transform() Affine
	Size() (width, height int)
	Read(win Window) ([]float32, error)
	Close() error
}

// Opener opens a band by href (signed URL or local path).
type Opener interface {
	Open(ctx context.Context, href string) (Source, error)
}

func isNaN32(v float32) bool {
	return math.IsNaN(float64(v))
}
