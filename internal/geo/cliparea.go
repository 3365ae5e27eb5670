package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// ClipToArea intersects g with the processing area. A single-ring convex
// polygon area is intersected exactly; any other area geometry is
// approximated by its bounding box. Returns nil when nothing of g remains
// inside the area.
func ClipToArea(area, g orb.Geometry) orb.Geometry {
	if area == nil {
		return g
	}

	poly, ok := area.(orb.Polygon)
	if !ok || len(poly) != 1 {
		return clip.Geometry(area.Bound(), g)
	}
	window := openRing(poly[0])
	if len(window) < 3 {
		return clip.Geometry(area.Bound(), g)
	}
	sign := ringSign(window)

	switch geom := g.(type) {
	case orb.Polygon:
		out := clipPolygonToWindow(geom, window, sign)
		if out == nil {
			return nil
		}
		return out
	case orb.MultiPolygon:
		var out orb.MultiPolygon
		for _, p := range geom {
			if c := clipPolygonToWindow(p, window, sign); c != nil {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return clip.Geometry(area.Bound(), g)
	}
}

// clipPolygonToWindow clips every ring of p. A vanished exterior ring means
// the whole polygon is gone; vanished holes are simply dropped.
func clipPolygonToWindow(p orb.Polygon, window orb.Ring, sign float64) orb.Polygon {
	var out orb.Polygon
	for i, ring := range p {
		c := clipRingToWindow(ring, window, sign)
		if len(c) == 0 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// clipRingToWindow runs Sutherland-Hodgman against each edge of the convex
// window. Degenerate output (under three distinct vertices) collapses to nil.
func clipRingToWindow(r orb.Ring, window orb.Ring, sign float64) orb.Ring {
	pts := []orb.Point(openRing(r))
	for i := range window {
		a := window[i]
		b := window[(i+1)%len(window)]
		pts = clipEdge(pts, a, b, sign)
		if len(pts) == 0 {
			return nil
		}
	}
	pts = dropRepeats(pts)
	if len(pts) < 3 {
		return nil
	}
	out := make(orb.Ring, 0, len(pts)+1)
	out = append(out, pts...)
	out = append(out, pts[0])
	return out
}

func clipEdge(pts []orb.Point, a, b orb.Point, sign float64) []orb.Point {
	var out []orb.Point
	n := len(pts)
	for i := 0; i < n; i++ {
		cur := pts[i]
		prev := pts[(i+n-1)%n]
		curIn := sign*edgeCross(a, b, cur) >= 0
		prevIn := sign*edgeCross(a, b, prev) >= 0
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, edgeIntersect(prev, cur, a, b), cur)
		case !curIn && prevIn:
			out = append(out, edgeIntersect(prev, cur, a, b))
		}
	}
	return out
}

func edgeCross(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func edgeIntersect(p, q, a, b orb.Point) orb.Point {
	dp := edgeCross(a, b, p)
	dq := edgeCross(a, b, q)
	t := dp / (dp - dq)
	return orb.Point{p[0] + t*(q[0]-p[0]), p[1] + t*(q[1]-p[1])}
}

func openRing(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

func dropRepeats(pts []orb.Point) []orb.Point {
	out := pts[:0]
	for _, p := range pts {
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func ringSign(r orb.Ring) float64 {
	var area float64
	for i := range r {
		j := (i + 1) % len(r)
		area += r[i][0]*r[j][1] - r[j][0]*r[i][1]
	}
	if area < 0 {
		return -1
	}
	return 1
}
