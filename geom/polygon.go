package geom

// Polygon is an exterior ring plus zero or more interior (hole) rings.
// Rings may be supplied open or closed (last vertex repeating the first);
// callers must not mix that with any assumption about ring length, since
// Area/Centroid operate on the ring as given.
type Polygon struct {
	Exterior []Point
	Holes    [][]Point
}

// areaCentroidEpsilon is the |signed area| threshold below which a
// polygon's exterior ring is treated as degenerate for centroid purposes.
const areaCentroidEpsilon = 1e-10

// signedAreaX2 returns twice the signed area contribution used by the
// shoelace formula, i.e. Σ (xᵢyᵢ₊₁ − xᵢ₊₁yᵢ), not yet divided by 2.
func signedAreaX2(ring []Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum
}

// SignedArea returns the exterior ring's signed area (positive for
// counter-clockwise winding).
func (p Polygon) SignedArea() float64 {
	return signedAreaX2(p.Exterior) / 2
}

// Area returns |exterior signed area| − Σ |hole signed area|.
func (p Polygon) Area() float64 {
	area := abs(p.SignedArea())
	for _, hole := range p.Holes {
		area -= abs(signedAreaX2(hole) / 2)
	}
	return area
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// MBR returns the bounding box of the exterior ring only.
func (p Polygon) MBR() MBR {
	m := EmptyMBR()
	for _, pt := range p.Exterior {
		m = ExpandPoint(m, pt)
	}
	return m
}

// Centroid returns the standard signed-area centroid of the exterior ring:
//
//	Σ (xᵢ+xᵢ₊₁)(xᵢyᵢ₊₁−xᵢ₊₁yᵢ) / 6A
//
// If the exterior ring's signed area magnitude is below
// areaCentroidEpsilon, it falls back to the arithmetic mean of the
// exterior vertices.
func (p Polygon) Centroid() Point {
	n := len(p.Exterior)
	if n == 0 {
		return Point{}
	}

	a := p.SignedArea()
	if abs(a) < areaCentroidEpsilon {
		var sx, sy float64
		for _, pt := range p.Exterior {
			sx += pt.X
			sy += pt.Y
		}
		return Point{X: sx / float64(n), Y: sy / float64(n)}
	}

	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := p.Exterior[i].X*p.Exterior[j].Y - p.Exterior[j].X*p.Exterior[i].Y
		cx += (p.Exterior[i].X + p.Exterior[j].X) * cross
		cy += (p.Exterior[i].Y + p.Exterior[j].Y) * cross
	}
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}
