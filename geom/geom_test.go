package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMBRIntersectsClosedBoundary(t *testing.T) {
	a := MBR{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := MBR{MinX: 10, MinY: 0, MaxX: 20, MaxY: 10}
	if !Intersects(a, b) {
		t.Fatal("rectangles sharing only an edge must intersect (closed boundary)")
	}
}

func TestMBREmptyNeverIntersects(t *testing.T) {
	a := EmptyMBR()
	b := MBR{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	if Intersects(a, b) || Intersects(b, a) {
		t.Fatal("an empty MBR must never intersect anything")
	}
}

func TestMBRContainsPointInclusive(t *testing.T) {
	m := MBR{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	if !ContainsPoint(m, Point{X: 10, Y: 10}) {
		t.Fatal("boundary point must be contained (inclusive)")
	}
}

func TestMBRExpandSkipsEmpty(t *testing.T) {
	m := MBR{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}
	got := Expand(m, EmptyMBR())
	if got != m {
		t.Fatalf("expanding with an empty MBR must be a no-op, got %+v", got)
	}
}

func TestPolylineCentroid(t *testing.T) {
	// S2: polyline [(0,0),(10,0)] -> centroid (5,0), MBR (0,0,10,0).
	p := Polyline{Points: []Point{{0, 0}, {10, 0}}}
	c := p.Centroid()
	if !almostEqual(c.X, 5) || !almostEqual(c.Y, 0) {
		t.Fatalf("centroid = %+v, want (5,0)", c)
	}
	m := p.MBR()
	if m != (MBR{0, 0, 10, 0}) {
		t.Fatalf("mbr = %+v, want (0,0,10,0)", m)
	}
}

func TestPolylineCoincidentVerticesLengthZero(t *testing.T) {
	p := Polyline{Points: []Point{{3, 3}, {3, 3}, {3, 3}}}
	if p.Length() != 0 {
		t.Fatalf("length = %v, want 0", p.Length())
	}
	c := p.Centroid()
	if c != p.Points[0] {
		t.Fatalf("centroid = %+v, want first vertex %+v", c, p.Points[0])
	}
}

func TestPolygonCentroidAndArea(t *testing.T) {
	// S3: square (0,0)-(10,10) -> centroid (5,5), area 100.
	poly := Polygon{Exterior: []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	c := poly.Centroid()
	if !almostEqual(c.X, 5) || !almostEqual(c.Y, 5) {
		t.Fatalf("centroid = %+v, want (5,5)", c)
	}
	if !almostEqual(poly.Area(), 100) {
		t.Fatalf("area = %v, want 100", poly.Area())
	}
}

func TestPolygonAreaSubtractsHoles(t *testing.T) {
	outer := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	hole := []Point{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}
	poly := Polygon{Exterior: outer, Holes: [][]Point{hole}}
	if !almostEqual(poly.Area(), 96) {
		t.Fatalf("area = %v, want 96", poly.Area())
	}
}

func TestPolygonDegenerateCentroidFallback(t *testing.T) {
	// Zero-area (collinear) triangle: falls back to arithmetic mean.
	poly := Polygon{Exterior: []Point{{0, 0}, {1, 0}, {2, 0}}}
	c := poly.Centroid()
	if !almostEqual(c.X, 1) || !almostEqual(c.Y, 0) {
		t.Fatalf("centroid = %+v, want (1,0)", c)
	}
}
