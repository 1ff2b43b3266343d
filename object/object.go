// Package object implements the tagged spatial-object variant that every
// other Urbis component stores, references, or serializes: a Point,
// Polyline, or Polygon plus a cached centroid/MBR pair, a unique id, and an
// opaque properties blob.
package object

import (
	"github.com/urbis/urbis/geom"
)

// Kind tags which geometry variant an Object carries.
type Kind uint8

const (
	// KindPoint marks a degenerate single-coordinate geometry.
	KindPoint Kind = iota + 1
	// KindPolyline marks an open vertex sequence.
	KindPolyline
	// KindPolygon marks an exterior ring plus optional holes.
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindPolyline:
		return "polyline"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// ID is a unique, non-zero 64-bit object identifier. The zero value means
// "unassigned" and is never handed out by an index.
type ID uint64

// Object is the tagged spatial-object variant described in spec.md §3.
// Centroid and MBR are derived fields: they are correct only immediately
// after construction or a call to UpdateDerived, which callers must invoke
// after any geometry mutation. Equality between objects is by Id, never by
// geometry.
type Object struct {
	ID         ID
	Kind       Kind
	Point      geom.Point
	Polyline   geom.Polyline
	Polygon    geom.Polygon
	Centroid   geom.Point
	MBR        geom.MBR
	Properties []byte
}

// NewPoint builds a Point object. Points have no minimum-vertex invariant
// to violate, so this never fails.
func NewPoint(p geom.Point, props []byte) Object {
	o := Object{Kind: KindPoint, Point: p, Properties: cloneBytes(props)}
	o.UpdateDerived()
	return o
}

// NewPolyline builds a Polyline object. Fails with InvalidGeometry if
// fewer than one vertex is supplied.
func NewPolyline(points []geom.Point, props []byte) (Object, error) {
	if len(points) < 1 {
		return Object{}, errInvalidGeometry("polyline requires at least 1 vertex")
	}
	o := Object{
		Kind:       KindPolyline,
		Polyline:   geom.Polyline{Points: clonePoints(points)},
		Properties: cloneBytes(props),
	}
	o.UpdateDerived()
	return o, nil
}

// NewPolygon builds a Polygon object from an exterior ring (optionally
// closed) and zero or more holes. Fails with InvalidGeometry if the
// exterior ring has fewer than 3 points.
func NewPolygon(exterior []geom.Point, holes [][]geom.Point, props []byte) (Object, error) {
	if len(exterior) < 3 {
		return Object{}, errInvalidGeometry("polygon requires at least 3 exterior vertices")
	}
	clonedHoles := make([][]geom.Point, len(holes))
	for i, h := range holes {
		clonedHoles[i] = clonePoints(h)
	}
	o := Object{
		Kind: KindPolygon,
		Polygon: geom.Polygon{
			Exterior: clonePoints(exterior),
			Holes:    clonedHoles,
		},
		Properties: cloneBytes(props),
	}
	o.UpdateDerived()
	return o, nil
}

// UpdateDerived recomputes Centroid and MBR from the current geometry, per
// spec.md §3's per-variant rules. Every component that stores an Object
// assumes this has been called since the last geometry mutation.
func (o *Object) UpdateDerived() {
	switch o.Kind {
	case KindPoint:
		o.Centroid = o.Point
		o.MBR = geom.PointMBR(o.Point)
	case KindPolyline:
		o.Centroid = o.Polyline.Centroid()
		o.MBR = o.Polyline.MBR()
	case KindPolygon:
		o.Centroid = o.Polygon.Centroid()
		o.MBR = o.Polygon.MBR()
	}
}

// AppendVertex appends a vertex to a Polyline or Polygon's exterior ring.
// Callers must call UpdateDerived afterward: mutators stay cheap and
// derived state is recomputed explicitly rather than on every mutation.
func (o *Object) AppendVertex(p geom.Point) error {
	switch o.Kind {
	case KindPolyline:
		o.Polyline.Points = append(o.Polyline.Points, p)
		return nil
	case KindPolygon:
		o.Polygon.Exterior = append(o.Polygon.Exterior, p)
		return nil
	default:
		return errInvalidGeometry("cannot append a vertex to a point")
	}
}

// AddHole appends an interior ring to a Polygon. Callers must call
// UpdateDerived afterward (holes affect Area, not Centroid/MBR, but the
// invariant is uniform across mutators).
func (o *Object) AddHole(ring []geom.Point) error {
	if o.Kind != KindPolygon {
		return errInvalidGeometry("holes only apply to polygons")
	}
	o.Polygon.Holes = append(o.Polygon.Holes, clonePoints(ring))
	return nil
}

// SetProperties replaces the object's opaque property blob.
func (o *Object) SetProperties(props []byte) {
	o.Properties = cloneBytes(props)
}

// Area returns the object's area: zero for points and polylines, the
// polygon rule (§3) for polygons.
func (o *Object) Area() float64 {
	if o.Kind == KindPolygon {
		return o.Polygon.Area()
	}
	return 0
}

// Clone returns a deep copy, including the properties blob. This is the
// operation page.Page.Add relies on to give each page exclusive ownership
// of its stored objects.
func (o Object) Clone() Object {
	c := o
	c.Polyline = geom.Polyline{Points: clonePoints(o.Polyline.Points)}
	c.Polygon = geom.Polygon{
		Exterior: clonePoints(o.Polygon.Exterior),
		Holes:    make([][]geom.Point, len(o.Polygon.Holes)),
	}
	for i, h := range o.Polygon.Holes {
		c.Polygon.Holes[i] = clonePoints(h)
	}
	c.Properties = cloneBytes(o.Properties)
	return c
}

func clonePoints(pts []geom.Point) []geom.Point {
	if pts == nil {
		return nil
	}
	out := make([]geom.Point, len(pts))
	copy(out, pts)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// invalidGeometryError is a package-local error carrying a message; it is
// wrapped by callers (object is a low-level package with no dependency on
// the root package's Error type, to avoid an import cycle since the root
// package depends on object).
type invalidGeometryError struct{ msg string }

func (e *invalidGeometryError) Error() string { return "invalid geometry: " + e.msg }

func errInvalidGeometry(msg string) error { return &invalidGeometryError{msg: msg} }
