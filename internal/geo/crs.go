// Package geo handles coordinate reference system parsing and geometry
// reprojection. Every geometry entering the engine carries an explicit CRS
// string ("EPSG:<code>"); comparisons always happen in a single target CRS
// per operation.
package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// WGS84 is the CRS of all field and bbox geometries at the system boundary.
const WGS84 = "EPSG:4326"

// TransformFunc maps a coordinate pair from one CRS to another.
type TransformFunc func(x, y float64) (float64, float64)

// Transformer builds a coordinate transform between two EPSG-coded systems.
// Supported codes: 4326 (lon/lat), 3857 (web mercator), and the UTM families
// 326xx (northern) and 327xx (southern), which cover Sentinel-2 band grids.
func Transformer(from, to string) (TransformFunc, error) {
	if normalize(from) == normalize(to) {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}

	src, err := crsFor(from)
	if err != nil {
		return nil, err
	}
	dst, err := crsFor(to)
	if err != nil {
		return nil, err
	}

	f := wgs84.Transform(src, dst)
	return func(x, y float64) (float64, float64) {
		a, b, _ := f(x, y, 0)
		return a, b
	}, nil
}

// TransformGeometry reprojects every coordinate of g from one CRS to another.
// The input geometry is not modified.
func TransformGeometry(g orb.Geometry, from, to string) (orb.Geometry, error) {
	tf, err := Transformer(from, to)
	if err != nil {
		return nil, err
	}

	switch geom := g.(type) {
	case orb.Point:
		x, y := tf(geom[0], geom[1])
		return orb.Point{x, y}, nil
	case orb.Ring:
		return transformRing(geom, tf), nil
	case orb.Polygon:
		return transformPolygon(geom, tf), nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(geom))
		for i, p := range geom {
			out[i] = transformPolygon(p, tf)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("transform geometry: unsupported type %s", g.GeoJSONType())
	}
}

func transformPolygon(p orb.Polygon, tf TransformFunc) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		out[i] = transformRing(ring, tf)
	}
	return out
}

func transformRing(r orb.Ring, tf TransformFunc) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, pt := range r {
		x, y := tf(pt[0], pt[1])
		out[i] = orb.Point{x, y}
	}
	return out
}

func crsFor(name string) (wgs84.CoordinateReferenceSystem, error) {
	code, err := EPSGCode(name)
	if err != nil {
		return nil, err
	}

	switch {
	case code == 4326:
		return wgs84.LonLat(), nil
	case code == 3857:
		return wgs84.WebMercator(), nil
	case code > 32600 && code <= 32660:
		return wgs84.UTM(float64(code-32600), true), nil
	case code > 32700 && code <= 32760:
		return wgs84.UTM(float64(code-32700), false), nil
	default:
		return nil, fmt.Errorf("unsupported CRS EPSG:%d", code)
	}
}

// EPSGCode parses an "EPSG:<code>" string (case-insensitive) or a bare
// numeric code into its integer EPSG code.
func EPSGCode(name string) (int, error) {
	s := normalize(name)
	s = strings.TrimPrefix(s, "EPSG:")
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse CRS %q: %w", name, err)
	}
	return code, nil
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
