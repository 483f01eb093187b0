package memgeo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// vertices flattens every coordinate of g.
func vertices(g orb.Geometry) []orb.Point {
	switch g := g.(type) {
	case orb.Point:
		return []orb.Point{g}
	case orb.MultiPoint:
		return g
	case orb.LineString:
		return g
	case orb.Ring:
		return g
	case orb.MultiLineString:
		var pts []orb.Point
		for _, ls := range g {
			pts = append(pts, ls...)
		}
		return pts
	case orb.Polygon:
		var pts []orb.Point
		for _, r := range g {
			pts = append(pts, r...)
		}
		return pts
	case orb.MultiPolygon:
		var pts []orb.Point
		for _, p := range g {
			pts = append(pts, vertices(p)...)
		}
		return pts
	case orb.Collection:
		var pts []orb.Point
		for _, c := range g {
			pts = append(pts, vertices(c)...)
		}
		return pts
	case orb.Bound:
		return vertices(g.ToRing())
	}
	return nil
}

// toMercator returns a projected copy of g.
func toMercator(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// hausdorff is the discrete Hausdorff distance between the vertex sets
// of a and b.
func hausdorff(a, b orb.Geometry) float64 {
	va, vb := vertices(a), vertices(b)
	if len(va) == 0 || len(vb) == 0 {
		return math.Inf(1)
	}
	return math.Max(directed(va, vb), directed(vb, va))
}

func directed(from, to []orb.Point) float64 {
	var worst float64
	for _, p := range from {
		best := math.Inf(1)
		for _, q := range to {
			if d := planar.Distance(p, q); d < best {
				best = d
			}
		}
		if best > worst {
			worst = best
		}
	}
	return worst
}

// area is the unsigned planar area of g.
func area(g orb.Geometry) float64 {
	return math.Abs(planar.Area(g))
}

// ringArea is the unsigned shoelace area of r.
func ringArea(r orb.Ring) float64 {
	pts := openRing(r)
	var sum float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		sum += p[0]*q[1] - q[0]*p[1]
	}
	return math.Abs(sum) / 2
}

// convexHull returns the closed counter-clockwise hull of pts using the
// monotone chain algorithm.
func convexHull(pts []orb.Point) orb.Ring {
	ps := append([]orb.Point(nil), pts...)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
	if len(ps) < 3 {
		return orb.Ring(ps)
	}

	hull := make([]orb.Point, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// the last point repeats the first and closes the ring
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// clipArea returns the area of g inside the convex ring clip.
func clipArea(g orb.Geometry, clip orb.Ring) float64 {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return 0
		}
		a := ringArea(clipRing(g[0], clip))
		for _, hole := range g[1:] {
			a -= ringArea(clipRing(hole, clip))
		}
		return a
	case orb.MultiPolygon:
		var a float64
		for _, p := range g {
			a += clipArea(p, clip)
		}
		return a
	}
	return 0
}

// clipRing clips subject against a counter-clockwise convex ring with the
// Sutherland-Hodgman algorithm.
func clipRing(subject, clip orb.Ring) orb.Ring {
	out := openRing(subject)
	edges := openRing(clip)
	for i := range edges {
		if len(out) == 0 {
			break
		}
		a, b := edges[i], edges[(i+1)%len(edges)]
		in := out
		out = nil
		for j := range in {
			cur, prev := in[j], in[(j+len(in)-1)%len(in)]
			curIn, prevIn := cross(a, b, cur) >= 0, cross(a, b, prev) >= 0
			if curIn {
				if !prevIn {
					out = append(out, intersect(prev, cur, a, b))
				}
				out = append(out, cur)
			} else if prevIn {
				out = append(out, intersect(prev, cur, a, b))
			}
		}
	}
	if len(out) < 3 {
		return nil
	}
	return append(orb.Ring(out), out[0])
}

// openRing drops the closing point of r.
func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// intersect returns the intersection of segment p-q with the line a-b.
func intersect(p, q, a, b orb.Point) orb.Point {
	dx, dy := q[0]-p[0], q[1]-p[1]
	ex, ey := b[0]-a[0], b[1]-a[1]
	denom := dx*ey - dy*ex
	if denom == 0 {
		return q
	}
	t := ((a[0]-p[0])*ey - (a[1]-p[1])*ex) / denom
	return orb.Point{p[0] + t*dx, p[1] + t*dy}
}
