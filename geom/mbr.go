package geom

import "math"

// MBR is an axis-aligned minimum bounding rectangle. An empty MBR has
// MinX > MaxX; all operations treat that as the canonical "no extent" value
// rather than a distinguished sentinel struct.
type MBR struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyMBR returns the canonical empty rectangle.
func EmptyMBR() MBR {
	return MBR{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// IsEmpty reports whether m has no extent.
func (m MBR) IsEmpty() bool {
	return m.MinX > m.MaxX
}

// PointMBR returns the degenerate MBR covering exactly p.
func PointMBR(p Point) MBR {
	return MBR{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// Intersects reports whether a and b overlap, using closed half-planes:
// rectangles that only share a boundary edge or corner intersect.
func Intersects(a, b MBR) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX && a.MinY <= b.MaxY && a.MaxY >= b.MinY
}

// ContainsPoint reports whether m contains p, inclusive of the boundary.
func ContainsPoint(m MBR, p Point) bool {
	if m.IsEmpty() {
		return false
	}
	return p.X >= m.MinX && p.X <= m.MaxX && p.Y >= m.MinY && p.Y <= m.MaxY
}

// Contains reports whether a fully contains b, inclusive of shared boundaries.
func Contains(a, b MBR) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return b.MinX >= a.MinX && b.MaxX <= a.MaxX && b.MinY >= a.MinY && b.MaxY <= a.MaxY
}

// ExpandPoint returns m unioned with p. If m is empty, the result is the
// degenerate MBR at p.
func ExpandPoint(m MBR, p Point) MBR {
	if m.IsEmpty() {
		return PointMBR(p)
	}
	return MBR{
		MinX: math.Min(m.MinX, p.X),
		MinY: math.Min(m.MinY, p.Y),
		MaxX: math.Max(m.MaxX, p.X),
		MaxY: math.Max(m.MaxY, p.Y),
	}
}

// Expand returns the union of a and b. An empty operand is skipped rather
// than propagated, so unioning anything with an empty MBR is a no-op on
// that side.
func Expand(a, b MBR) MBR {
	if b.IsEmpty() {
		return a
	}
	if a.IsEmpty() {
		return b
	}
	return MBR{
		MinX: math.Min(a.MinX, b.MinX),
		MinY: math.Min(a.MinY, b.MinY),
		MaxX: math.Max(a.MaxX, b.MaxX),
		MaxY: math.Max(a.MaxY, b.MaxY),
	}
}

// Area returns the rectangle's area, zero for an empty MBR.
func Area(m MBR) float64 {
	if m.IsEmpty() {
		return 0
	}
	return (m.MaxX - m.MinX) * (m.MaxY - m.MinY)
}

// Centroid returns the rectangle's center, (0,0) for an empty MBR.
func Centroid(m MBR) Point {
	if m.IsEmpty() {
		return Point{}
	}
	return Point{X: (m.MinX + m.MaxX) / 2, Y: (m.MinY + m.MaxY) / 2}
}

// Width returns the rectangle's width, zero for an empty MBR.
func (m MBR) Width() float64 {
	if m.IsEmpty() {
		return 0
	}
	return m.MaxX - m.MinX
}

// Height returns the rectangle's height, zero for an empty MBR.
func (m MBR) Height() float64 {
	if m.IsEmpty() {
		return 0
	}
	return m.MaxY - m.MinY
}
