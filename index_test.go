package urbis

import (
	"path/filepath"
	"testing"

	"github.com/urbis/urbis/config"
	"github.com/urbis/urbis/geom"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	cfg := config.Defaults()
	cfg.PageCapacity = 4
	idx, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestSmallBuildAndRange(t *testing.T) {
	idx := newTestIndex(t)
	for _, p := range [][2]float64{{5, 5}, {15, 15}, {25, 25}} {
		if _, err := idx.InsertPoint(p[0], p[1], nil); err != nil {
			t.Fatalf("InsertPoint: %v", err)
		}
	}
	if err := idx.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := idx.QueryRange(geom.MBR{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20})
	if len(got) != 2 {
		t.Fatalf("QueryRange: got %d results, want 2", len(got))
	}
	ids := map[int]bool{}
	for _, o := range got {
		ids[int(o.ID)] = true
	}
	if !ids[1] || !ids[2] {
		t.Fatalf("QueryRange: got ids %v, want {1,2}", ids)
	}
	if idx.Count() != 3 {
		t.Fatalf("Count: got %d, want 3", idx.Count())
	}
}

func TestPolylineCentroid(t *testing.T) {
	idx := newTestIndex(t)
	if _, err := idx.InsertPolyline([]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, nil); err != nil {
		t.Fatalf("InsertPolyline: %v", err)
	}
	got, ok := idx.Get(1)
	if !ok {
		t.Fatalf("Get: object 1 not found")
	}
	if got.Centroid != (geom.Point{X: 5, Y: 0}) {
		t.Fatalf("Centroid: got %+v, want (5,0)", got.Centroid)
	}
	wantMBR := geom.MBR{MinX: 0, MinY: 0, MaxX: 10, MaxY: 0}
	if got.MBR != wantMBR {
		t.Fatalf("MBR: got %+v, want %+v", got.MBR, wantMBR)
	}

	results := idx.QueryRange(geom.MBR{MinX: 4, MinY: -1, MaxX: 6, MaxY: 1})
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("QueryRange: got %+v, want exactly object 1", results)
	}
}

func TestPolygonCentroid(t *testing.T) {
	idx := newTestIndex(t)
	ring := []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}}
	if _, err := idx.InsertPolygon(ring, nil, nil); err != nil {
		t.Fatalf("InsertPolygon: %v", err)
	}
	got, ok := idx.Get(1)
	if !ok {
		t.Fatalf("Get: object 1 not found")
	}
	if got.Centroid != (geom.Point{X: 5, Y: 5}) {
		t.Fatalf("Centroid: got %+v, want (5,5)", got.Centroid)
	}
	if got.Area() != 100 {
		t.Fatalf("Area: got %v, want 100", got.Area())
	}
}

func TestAdjacency(t *testing.T) {
	idx := newTestIndex(t)
	for i := 0; i < 10; i++ {
		for j := 0; j < 5; j++ {
			if _, err := idx.InsertPoint(float64(i)*100, float64(j)*100, nil); err != nil {
				t.Fatalf("InsertPoint: %v", err)
			}
		}
	}
	if err := idx.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	refs, seeks, err := idx.FindAdjacentPages(geom.MBR{MinX: 150, MinY: 150, MaxX: 350, MaxY: 350})
	if err != nil {
		t.Fatalf("FindAdjacentPages: %v", err)
	}
	if len(refs) < 1 {
		t.Fatalf("FindAdjacentPages: got 0 pages, want >= 1")
	}
	count := uint64(idx.Count())
	if seeks > count-1 {
		t.Fatalf("estimated_seeks: got %d, want <= %d", seeks, count-1)
	}
}

func TestKNN(t *testing.T) {
	idx := newTestIndex(t)
	for _, p := range [][2]float64{{0, 0}, {1, 1}, {2, 2}, {10, 10}, {20, 20}} {
		if _, err := idx.InsertPoint(p[0], p[1], nil); err != nil {
			t.Fatalf("InsertPoint: %v", err)
		}
	}
	if err := idx.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := idx.QueryKNN(0.5, 0.5, 2)
	if err != nil {
		t.Fatalf("QueryKNN: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("QueryKNN: got %+v, want ids [1 2] in order", got)
	}
}

func TestKNNCappedBySize(t *testing.T) {
	idx := newTestIndex(t)
	idx.InsertPoint(0, 0, nil)
	idx.InsertPoint(1, 1, nil)
	if err := idx.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := idx.QueryKNN(0, 0, 5)
	if err != nil {
		t.Fatalf("QueryKNN: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("QueryKNN over-request: got %d results, want 2", len(got))
	}
}

func TestPersistenceSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.urbis")

	idx := newTestIndex(t)
	idx.InsertPoint(1, 1, nil)
	idx.InsertPoint(2, 2, nil)
	if err := idx.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := newTestIndex(t)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Count() != 2 {
		t.Fatalf("Count after load: got %d, want 2", loaded.Count())
	}
	want := geom.MBR{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}
	got := loaded.Bounds()
	const eps = 1e-12
	if abs(got.MinX-want.MinX) > eps || abs(got.MinY-want.MinY) > eps ||
		abs(got.MaxX-want.MaxX) > eps || abs(got.MaxY-want.MaxY) > eps {
		t.Fatalf("Bounds after load: got %+v, want %+v", got, want)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestOptimizeIsIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	for _, p := range [][2]float64{{0, 0}, {5, 5}, {9, 9}} {
		idx.InsertPoint(p[0], p[1], nil)
	}
	if err := idx.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	first := idx.Stats()
	if err := idx.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	second := idx.Stats()
	if first != second {
		t.Fatalf("Optimize not idempotent: got %+v then %+v", first, second)
	}
}

func TestRemoveThenNotFound(t *testing.T) {
	idx := newTestIndex(t)
	id, _ := idx.InsertPoint(3, 3, nil)
	if err := idx.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := idx.Get(id); ok {
		t.Fatalf("Get after Remove: object still present")
	}
	if err := idx.Remove(id); err != ErrNotFound {
		t.Fatalf("Remove twice: got %v, want ErrNotFound", err)
	}
}

func TestRangeQueryEmptyMBRAndFullBounds(t *testing.T) {
	idx := newTestIndex(t)
	idx.InsertPoint(0, 0, nil)
	idx.InsertPoint(10, 10, nil)

	if got := idx.QueryRange(geom.EmptyMBR()); len(got) != 0 {
		t.Fatalf("QueryRange(empty): got %d results, want 0", len(got))
	}
	if got := idx.QueryRange(idx.Bounds()); len(got) != 2 {
		t.Fatalf("QueryRange(bounds): got %d results, want 2", len(got))
	}
}

func TestKNNRequiresPositiveK(t *testing.T) {
	idx := newTestIndex(t)
	idx.InsertPoint(0, 0, nil)
	if _, err := idx.QueryKNN(0, 0, 0); CodeOf(err) != InvalidArg {
		t.Fatalf("QueryKNN(k=0): got %v, want InvalidArg", err)
	}
}

