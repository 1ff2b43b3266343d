package page

import "github.com/urbis/urbis/geom"

// Track is a bounded sequence of pages treated as contiguous for seek
// accounting. Track does not own Page storage (the pool does); it holds
// page ids plus an aggregate extent/centroid kept current by AddPage and
// RemovePage, which take the live *Page as an argument rather than storing
// a pointer to it.
type Track struct {
	ID       TrackID
	Capacity int
	PageIDs  []ID
	Extent   geom.MBR
	Centroid geom.Point
}

// NewTrack allocates an empty track with the given id and page capacity.
func NewTrack(id TrackID, capacity int) *Track {
	if capacity <= 0 {
		capacity = DefaultPagesPerTrack
	}
	return &Track{
		ID:       id,
		Capacity: capacity,
		PageIDs:  make([]ID, 0, capacity),
		Extent:   geom.EmptyMBR(),
	}
}

// IsFull reports whether the track already holds Capacity pages.
func (t *Track) IsFull() bool {
	return len(t.PageIDs) >= t.Capacity
}

// PageLookup resolves a page id to its live *Page, as the pool would.
// Track never stores page pointers itself; every derived-state recompute
// goes through a lookup like this one.
type PageLookup func(ID) (*Page, bool)

// AddPage appends p's id, stamps p.TrackID, and folds the track's pages
// into its aggregate extent/centroid using pages. Fails if the track is
// already full.
func (t *Track) AddPage(p *Page, pages PageLookup) error {
	if t.IsFull() {
		return ErrFull
	}
	p.TrackID = t.ID
	t.PageIDs = append(t.PageIDs, p.ID)
	t.recomputeFrom(pages)
	return nil
}

// RemovePage removes id from the track (shift-left) and recomputes
// derived state from the remaining pages via pages.
func (t *Track) RemovePage(id ID, pages PageLookup) bool {
	for i, pid := range t.PageIDs {
		if pid == id {
			t.PageIDs = append(t.PageIDs[:i], t.PageIDs[i+1:]...)
			t.recomputeFrom(pages)
			return true
		}
	}
	return false
}

// Recompute refreshes Extent/Centroid from scratch using the supplied page
// lookup. Centroid is the arithmetic mean of only the non-empty pages'
// centroids, per spec.md §4.C.
func (t *Track) Recompute(pages PageLookup) {
	t.recomputeFrom(pages)
}

func (t *Track) recomputeFrom(pages PageLookup) {
	extent := geom.EmptyMBR()
	var sx, sy float64
	var n int
	for _, pid := range t.PageIDs {
		p, ok := pages(pid)
		if !ok || p.Count() == 0 {
			continue
		}
		extent = geom.Expand(extent, p.Extent)
		sx += p.Centroid.X
		sy += p.Centroid.Y
		n++
	}
	t.Extent = extent
	if n == 0 {
		t.Centroid = geom.Point{}
		return
	}
	t.Centroid = geom.Point{X: sx / float64(n), Y: sy / float64(n)}
}
