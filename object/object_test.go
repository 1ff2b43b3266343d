package object

import (
	"testing"

	"github.com/urbis/urbis/geom"
)

func TestNewPolygonRejectsTooFewPoints(t *testing.T) {
	_, err := NewPolygon([]geom.Point{{0, 0}, {1, 1}}, nil, nil)
	if err == nil {
		t.Fatal("expected error for 2-point polygon")
	}
}

func TestNewPolygonAcceptsThreePoints(t *testing.T) {
	_, err := NewPolygon([]geom.Point{{0, 0}, {1, 0}, {1, 1}}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error for 3-point polygon: %v", err)
	}
}

func TestNewPolylineRejectsEmpty(t *testing.T) {
	_, err := NewPolyline(nil, nil)
	if err == nil {
		t.Fatal("expected error for empty polyline")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	o, err := NewPolyline([]geom.Point{{0, 0}, {1, 1}}, []byte("props"))
	if err != nil {
		t.Fatal(err)
	}
	c := o.Clone()
	c.Polyline.Points[0] = geom.Point{X: 99, Y: 99}
	c.Properties[0] = 'X'
	if o.Polyline.Points[0] != (geom.Point{0, 0}) {
		t.Fatal("clone mutation leaked into original geometry")
	}
	if string(o.Properties) != "props" {
		t.Fatal("clone mutation leaked into original properties")
	}
}

func TestEqualityIsByID(t *testing.T) {
	a := NewPoint(geom.Point{X: 1, Y: 1}, nil)
	b := NewPoint(geom.Point{X: 1, Y: 1}, nil)
	a.ID, b.ID = 1, 1
	if a.ID != b.ID {
		t.Fatal("expected equal ids to compare equal")
	}
}
