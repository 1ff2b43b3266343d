package pool

import (
	"testing"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

func TestAllocatePageAssignsTrack(t *testing.T) {
	p := New(4)
	tr := p.CreateTrack(2)

	pg, err := p.AllocatePage(tr)
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if pg.TrackID != tr.ID {
		t.Fatalf("page track: got %d, want %d", pg.TrackID, tr.ID)
	}
	if got, ok := p.GetPage(pg.ID); !ok || got != pg {
		t.Fatalf("GetPage did not resolve the allocated page")
	}
}

func TestFreePageRecyclesSlot(t *testing.T) {
	p := New(4)
	tr := p.CreateTrack(4)

	a, _ := p.AllocatePage(tr)
	if err := p.FreePage(a.ID); err != nil {
		t.Fatalf("FreePage: %v", err)
	}
	if _, ok := p.GetPage(a.ID); ok {
		t.Fatalf("freed page should no longer resolve")
	}
	b, err := p.AllocatePage(tr)
	if err != nil {
		t.Fatalf("AllocatePage after free: %v", err)
	}
	if b.ID != a.ID {
		t.Fatalf("expected freed slot %d to be recycled, got %d", a.ID, b.ID)
	}
}

func TestFreePageUnknownID(t *testing.T) {
	p := New(4)
	if err := p.FreePage(99); err != ErrNotFound {
		t.Fatalf("FreePage unknown id: got %v, want ErrNotFound", err)
	}
}

func TestQueryRegionFiltersByExtent(t *testing.T) {
	p := New(4)
	tr := p.CreateTrack(4)
	near, _ := p.AllocatePage(tr)
	far, _ := p.AllocatePage(tr)

	o1 := object.NewPoint(geom.Point{X: 1, Y: 1}, nil)
	o1.ID = 1
	_ = near.Add(o1)
	o2 := object.NewPoint(geom.Point{X: 1000, Y: 1000}, nil)
	o2.ID = 2
	_ = far.Add(o2)

	got := p.QueryRegion(geom.MBR{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5})
	if len(got) != 1 || got[0].ID != near.ID {
		t.Fatalf("QueryRegion: got %+v, want only %d", got, near.ID)
	}
}

func TestStatsCountsLivePagesAndObjects(t *testing.T) {
	p := New(4)
	tr := p.CreateTrack(4)
	a, _ := p.AllocatePage(tr)
	o := object.NewPoint(geom.Point{X: 0, Y: 0}, nil)
	o.ID = 1
	_ = a.Add(o)
	_, _ = p.AllocatePage(tr)

	stats := p.Stats()
	if stats.PageCount != 2 {
		t.Fatalf("PageCount: got %d, want 2", stats.PageCount)
	}
	if stats.TrackCount != 1 {
		t.Fatalf("TrackCount: got %d, want 1", stats.TrackCount)
	}
	if stats.ObjectCount != 1 {
		t.Fatalf("ObjectCount: got %d, want 1", stats.ObjectCount)
	}
}
