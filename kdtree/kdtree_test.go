package kdtree

import (
	"testing"

	"github.com/urbis/urbis/geom"
)

func pointItem(id uint64, x, y float64) Item {
	return Item{Point: geom.Point{X: x, Y: y}, ID: id, Kind: RefObject}
}

func TestBulkLoadMedianSplit(t *testing.T) {
	tr := New()
	tr.BulkLoad([]Item{pointItem(1, 5, 5), pointItem(2, 15, 15), pointItem(3, 25, 25)})
	if tr.Size() != 3 {
		t.Fatalf("Size: got %d, want 3", tr.Size())
	}
	stats := tr.Stats()
	if stats.Size != 3 {
		t.Fatalf("Stats.Size: got %d, want 3", stats.Size)
	}
}

func TestRangeQueryS1(t *testing.T) {
	tr := New()
	tr.BulkLoad([]Item{pointItem(1, 5, 5), pointItem(2, 15, 15), pointItem(3, 25, 25)})
	got := tr.RangeQuery(geom.MBR{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20})
	if len(got) != 2 {
		t.Fatalf("RangeQuery: got %d results, want 2", len(got))
	}
	ids := map[uint64]bool{}
	for _, it := range got {
		ids[it.ID] = true
	}
	if !ids[1] || !ids[2] {
		t.Fatalf("RangeQuery: got ids %v, want {1,2}", ids)
	}
}

func TestKNearestOrdersByDistance(t *testing.T) {
	tr := New()
	tr.BulkLoad([]Item{
		pointItem(1, 0, 0), pointItem(2, 1, 1), pointItem(3, 2, 2),
		pointItem(4, 10, 10), pointItem(5, 20, 20),
	})
	got := tr.KNearest(geom.Point{X: 0.5, Y: 0.5}, 2)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("KNearest: got %+v, want ids [1 2] in order", got)
	}
}

func TestKNearestCappedBySize(t *testing.T) {
	tr := New()
	tr.BulkLoad([]Item{pointItem(1, 0, 0), pointItem(2, 1, 1)})
	got := tr.KNearest(geom.Point{X: 0, Y: 0}, 5)
	if len(got) != 2 {
		t.Fatalf("KNearest over-request: got %d results, want 2", len(got))
	}
}

func TestNearestDescendsCorrectSide(t *testing.T) {
	tr := New()
	tr.BulkLoad([]Item{pointItem(1, 0, 0), pointItem(2, 100, 100), pointItem(3, 200, 200)})
	got, ok := tr.Nearest(geom.Point{X: 95, Y: 95})
	if !ok || got.ID != 2 {
		t.Fatalf("Nearest: got %+v, want id 2", got)
	}
}

func TestInsertWithoutRebalanceUpdatesBoundsAndSize(t *testing.T) {
	tr := New()
	tr.Insert(pointItem(1, 0, 0))
	tr.Insert(pointItem(2, 10, 10))
	if tr.Size() != 2 {
		t.Fatalf("Size after insert: got %d, want 2", tr.Size())
	}
	got := tr.RangeQuery(geom.MBR{MinX: -1, MinY: -1, MaxX: 11, MaxY: 11})
	if len(got) != 2 {
		t.Fatalf("RangeQuery after insert: got %d, want 2", len(got))
	}
}

func TestPartitionCoversRootBounds(t *testing.T) {
	tr := New()
	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, pointItem(uint64(i+1), float64(i), float64(i)))
	}
	tr.BulkLoad(items)
	blocks := tr.Partition(4)
	if len(blocks) == 0 {
		t.Fatalf("Partition produced no blocks")
	}
	union := geom.EmptyMBR()
	for _, b := range blocks {
		union = geom.Expand(union, b)
	}
	root := geom.EmptyMBR()
	for _, it := range tr.RangeQuery(geom.MBR{MinX: -1e9, MinY: -1e9, MaxX: 1e9, MaxY: 1e9}) {
		root = geom.ExpandPoint(root, it.Point)
	}
	if union != root {
		t.Fatalf("Partition union %+v does not match root bounds %+v", union, root)
	}
}

func TestPartitionItemsCoversEveryItemExactlyOnce(t *testing.T) {
	tr := New()
	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, pointItem(uint64(i+1), float64(i), float64(i)))
	}
	tr.BulkLoad(items)
	groups := tr.PartitionItems(4)
	seen := make(map[uint64]int)
	for _, g := range groups {
		for _, it := range g {
			seen[it.ID]++
		}
	}
	if len(seen) != len(items) {
		t.Fatalf("PartitionItems covered %d distinct ids, want %d", len(seen), len(items))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("id %d appeared in %d groups, want exactly 1", id, n)
		}
	}
}

func TestPartitionItemsMatchesPartitionBlockCount(t *testing.T) {
	tr := New()
	var items []Item
	for i := 0; i < 20; i++ {
		items = append(items, pointItem(uint64(i+1), float64(i), float64(i)))
	}
	tr.BulkLoad(items)
	blocks := tr.Partition(4)
	groups := tr.PartitionItems(4)
	if len(blocks) != len(groups) {
		t.Fatalf("Partition produced %d blocks but PartitionItems produced %d groups", len(blocks), len(groups))
	}
}

func TestRadiusQueryExactDistance(t *testing.T) {
	tr := New()
	tr.BulkLoad([]Item{pointItem(1, 0, 0), pointItem(2, 3, 4), pointItem(3, 100, 100)})
	got := tr.RadiusQuery(geom.Point{X: 0, Y: 0}, 5)
	if len(got) != 2 {
		t.Fatalf("RadiusQuery: got %d results, want 2", len(got))
	}
}
