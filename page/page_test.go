package page

import (
	"testing"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

func TestAddRejectsBeyondCapacity(t *testing.T) {
	p := New(1, 2)
	a := object.NewPoint(geom.Point{X: 0, Y: 0}, nil)
	a.ID = 1
	b := object.NewPoint(geom.Point{X: 1, Y: 1}, nil)
	b.ID = 2
	c := object.NewPoint(geom.Point{X: 2, Y: 2}, nil)
	c.ID = 3

	if err := p.Add(a); err != nil {
		t.Fatalf("Add 1: %v", err)
	}
	if err := p.Add(b); err != nil {
		t.Fatalf("Add 2: %v", err)
	}
	if !p.IsFull() {
		t.Fatalf("expected page full at capacity")
	}
	if err := p.Add(c); err != ErrFull {
		t.Fatalf("Add beyond capacity: got %v, want ErrFull", err)
	}
}

func TestAddDeepCopies(t *testing.T) {
	p := New(1, 4)
	props := []byte("v1")
	o := object.NewPoint(geom.Point{X: 3, Y: 4}, props)
	o.ID = 1
	if err := p.Add(o); err != nil {
		t.Fatalf("Add: %v", err)
	}
	props[0] = 'X'
	stored, ok := p.Find(o.ID)
	if !ok {
		t.Fatalf("object not found after Add")
	}
	if string(stored.Properties) != "v1" {
		t.Fatalf("page stored a shared slice, mutation leaked: got %q", stored.Properties)
	}
}

func TestRemoveRecomputesExtentAndCentroid(t *testing.T) {
	p := New(1, 4)
	a := object.NewPoint(geom.Point{X: 0, Y: 0}, nil)
	a.ID = 1
	b := object.NewPoint(geom.Point{X: 10, Y: 10}, nil)
	b.ID = 2
	_ = p.Add(a)
	_ = p.Add(b)

	if !p.Remove(a.ID) {
		t.Fatalf("Remove: expected to find a")
	}
	if p.Count() != 1 {
		t.Fatalf("Count after Remove: got %d, want 1", p.Count())
	}
	want := geom.MBR{MinX: 10, MinY: 10, MaxX: 10, MaxY: 10}
	if p.Extent != want {
		t.Fatalf("Extent after Remove: got %+v, want %+v", p.Extent, want)
	}
	if p.Centroid != (geom.Point{X: 10, Y: 10}) {
		t.Fatalf("Centroid after Remove: got %+v", p.Centroid)
	}
	if p.IsFull() {
		t.Fatalf("page should not report full after Remove")
	}
}

func TestChecksumDetectsMutation(t *testing.T) {
	p := New(1, 4)
	o1 := object.NewPoint(geom.Point{X: 1, Y: 2}, nil)
	o1.ID = 1
	_ = p.Add(o1)
	sum := p.Checksum()
	if !p.Verify(sum) {
		t.Fatalf("Verify: fresh checksum should match")
	}
	o2 := object.NewPoint(geom.Point{X: 5, Y: 6}, nil)
	o2.ID = 2
	_ = p.Add(o2)
	if p.Verify(sum) {
		t.Fatalf("Verify: stale checksum should not match after mutation")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	p := New(7, 4)
	p.TrackID = 3
	a, _ := object.NewPolyline([]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, []byte("road"))
	a.ID = 101
	b := object.NewPoint(geom.Point{X: 5, Y: 5}, nil)
	b.ID = 102
	_ = p.Add(a)
	_ = p.Add(b)

	slotSize := SlotSize(p.Capacity)
	blob := EncodeGeometryBlob(p.Objects)
	data, err := p.Serialize(slotSize, p.Checksum(), 128, uint32(len(blob)))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(data) != slotSize {
		t.Fatalf("Serialize length: got %d, want %d", len(data), slotSize)
	}

	got, checksum, err := Deserialize(data, p.Capacity, blob)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if checksum != p.Checksum() {
		t.Fatalf("Deserialize checksum: got %d, want %d", checksum, p.Checksum())
	}
	if got.ID != p.ID || got.TrackID != p.TrackID {
		t.Fatalf("Deserialize ids: got id=%d track=%d, want id=%d track=%d", got.ID, got.TrackID, p.ID, p.TrackID)
	}
	if len(got.Objects) != 2 {
		t.Fatalf("Deserialize object count: got %d, want 2", len(got.Objects))
	}
	restored, ok := got.Find(a.ID)
	if !ok {
		t.Fatalf("Deserialize: polyline object not found")
	}
	if len(restored.Polyline.Points) != 2 || restored.Polyline.Points[1] != (geom.Point{X: 10, Y: 0}) {
		t.Fatalf("Deserialize: polyline geometry not restored, got %+v", restored.Polyline)
	}
	if string(restored.Properties) != "road" {
		t.Fatalf("Deserialize: properties not restored, got %q", restored.Properties)
	}
}

func TestSerializeRejectsSlotSmallerThanCapacity(t *testing.T) {
	p := New(1, 8)
	if _, err := p.Serialize(HeaderSize, 0, 0, 0); err == nil {
		t.Fatalf("Serialize: expected error for undersized slot")
	}
}

func TestDeserializeWithoutBlobFallsBackToCompactTuple(t *testing.T) {
	p := New(1, 4)
	poly, _ := object.NewPolygon(
		[]geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, nil, nil)
	poly.ID = 55
	_ = p.Add(poly)

	data, err := p.Serialize(SlotSize(p.Capacity), p.Checksum(), 0, 0)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, _, err := Deserialize(data, p.Capacity, nil)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	restored, ok := got.Find(poly.ID)
	if !ok {
		t.Fatalf("object not found")
	}
	if len(restored.Polygon.Exterior) != 0 {
		t.Fatalf("expected no exterior ring without a geometry blob, got %d points", len(restored.Polygon.Exterior))
	}
	if restored.MBR != poly.MBR {
		t.Fatalf("compact MBR should survive without the blob: got %+v, want %+v", restored.MBR, poly.MBR)
	}
}
