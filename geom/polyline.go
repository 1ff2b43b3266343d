package geom

// Polyline is an ordered, open sequence of vertices.
type Polyline struct {
	Points []Point
}

// Length returns the polyline's total segment length.
func (p Polyline) Length() float64 {
	var total float64
	for i := 1; i < len(p.Points); i++ {
		total += Distance(p.Points[i-1], p.Points[i])
	}
	return total
}

// MBR returns the bounding box of the polyline's vertices.
func (p Polyline) MBR() MBR {
	m := EmptyMBR()
	for _, pt := range p.Points {
		m = ExpandPoint(m, pt)
	}
	return m
}

// lengthCentroidEpsilon is the total-length threshold below which a
// polyline's vertices are treated as coincident for centroid purposes.
const lengthCentroidEpsilon = 1e-10

// Centroid returns the segment-length-weighted average of segment
// midpoints. If the polyline's total length is below lengthCentroidEpsilon
// (all vertices effectively coincident), the centroid falls back to the
// first vertex.
func (p Polyline) Centroid() Point {
	if len(p.Points) == 0 {
		return Point{}
	}
	total := p.Length()
	if total < lengthCentroidEpsilon {
		return p.Points[0]
	}

	var cx, cy float64
	for i := 1; i < len(p.Points); i++ {
		a, b := p.Points[i-1], p.Points[i]
		segLen := Distance(a, b)
		if segLen == 0 {
			continue
		}
		midX := (a.X + b.X) / 2
		midY := (a.Y + b.Y) / 2
		cx += midX * segLen
		cy += midY * segLen
	}
	return Point{X: cx / total, Y: cy / total}
}
