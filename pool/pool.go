// Package pool implements the page pool spec.md §4.D describes: the sole
// owner of page and track storage. Every other component references a
// page or track by id and resolves it through the pool; nothing outside
// this package holds a *page.Page or *page.Track across a call boundary.
package pool

import (
	"errors"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/internal/bitmap"
	"github.com/urbis/urbis/page"
)

// ErrNotFound is returned when an id does not resolve to a live page or
// track. Pool is a low-level package with no dependency on the root
// package's Error type, mirroring object's and page's same avoidance of
// an import cycle (the root package depends on pool).
var ErrNotFound = errors.New("pool: not found")

const initialSlots = 64

// Stats summarizes the pool's current contents.
type Stats struct {
	PageCount   int
	TrackCount  int
	ObjectCount int
}

// Pool owns every page and track in an index, keyed by id. Page ids and
// track ids are both 1-based; slot 0 is never assigned.
type Pool struct {
	pages       []*page.Page
	tracks      []*page.Track
	freeSlots   *bitmap.Bitmap
	nextTrackID page.TrackID
	pageCap     int
}

// New creates an empty pool. pageCapacity is the object capacity of every
// page AllocatePage creates (page.DefaultObjectCapacity if <= 0).
func New(pageCapacity int) *Pool {
	if pageCapacity <= 0 {
		pageCapacity = page.DefaultObjectCapacity
	}
	return &Pool{
		pages:       make([]*page.Page, 0, initialSlots),
		tracks:      make([]*page.Track, 0, 8),
		freeSlots:   bitmap.New(initialSlots),
		nextTrackID: 1,
		pageCap:     pageCapacity,
	}
}

// lookupPage adapts GetPage to page.PageLookup for Track's aggregate
// recompute.
func (p *Pool) lookupPage(id page.ID) (*page.Page, bool) {
	return p.GetPage(id)
}

// CreateTrack allocates a new, empty track with capacity pages. Track ids
// are a monotonically increasing counter starting at 1; they are not
// reused until Reset, which starts the counter over at 1 (spec.md does not ask for track-slot recycling, only page-slot
// recycling via the free-slot bitmap).
func (p *Pool) CreateTrack(capacity int) *page.Track {
	id := p.nextTrackID
	p.nextTrackID++
	t := page.NewTrack(id, capacity)
	if int(id) > len(p.tracks) {
		p.tracks = append(p.tracks, make([]*page.Track, int(id)-len(p.tracks))...)
	}
	p.tracks[id-1] = t
	return t
}

// GetTrack resolves a track id to its live *page.Track.
func (p *Pool) GetTrack(id page.TrackID) (*page.Track, bool) {
	if id == 0 || int(id) > len(p.tracks) {
		return nil, false
	}
	t := p.tracks[id-1]
	return t, t != nil
}

// Tracks returns every live track, in ascending id order.
func (p *Pool) Tracks() []*page.Track {
	out := make([]*page.Track, 0, len(p.tracks))
	for _, t := range p.tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// AllocatePage creates a fresh page, assigns it to track, and returns it.
// The page-array slot is recycled from a prior FreePage when available,
// per spec.md §4.D+'s free-slot tracking; otherwise the backing array
// grows by doubling.
func (p *Pool) AllocatePage(track *page.Track) (*page.Page, error) {
	slot, ok := p.freeSlots.Allocate()
	if !ok {
		p.freeSlots.Extend(p.freeSlots.Capacity() * 2)
		slot, ok = p.freeSlots.Allocate()
		if !ok {
			return nil, errAlloc()
		}
	}
	id := page.ID(slot + 1)
	if int(id) > len(p.pages) {
		p.pages = append(p.pages, make([]*page.Page, int(id)-len(p.pages))...)
	}
	np := page.New(id, p.pageCap)
	p.pages[slot] = np
	if track != nil {
		if err := track.AddPage(np, p.lookupPage); err != nil {
			p.pages[slot] = nil
			p.freeSlots.Free(slot)
			return nil, err
		}
	}
	return np, nil
}

// Install places pg directly at its own id, marking the corresponding
// free-slot bitmap bit allocated. Unlike AllocatePage, Install does not
// assign an id or choose a slot — it is for restoring a page the disk
// manager already read back with its id intact (diskmgr.Open), not for
// minting new pages.
func (p *Pool) Install(pg *page.Page) {
	slot := uint32(pg.ID) - 1
	if int(pg.ID) > len(p.pages) {
		p.pages = append(p.pages, make([]*page.Page, int(pg.ID)-len(p.pages))...)
	}
	p.pages[slot] = pg
	if p.freeSlots.Capacity() <= slot {
		p.freeSlots.Extend(slot + 1)
	}
	p.freeSlots.MarkAllocated(slot)
}

// InstallTrack creates an empty track at a specific id (rather than the
// next counter value), for restoring a track whose pages reference it by
// id during diskmgr.Open. Advances the internal id counter past id if
// needed so subsequent CreateTrack calls don't collide with it.
func (p *Pool) InstallTrack(id page.TrackID, capacity int) *page.Track {
	t := page.NewTrack(id, capacity)
	if int(id) > len(p.tracks) {
		p.tracks = append(p.tracks, make([]*page.Track, int(id)-len(p.tracks))...)
	}
	p.tracks[id-1] = t
	if id >= p.nextTrackID {
		p.nextTrackID = id + 1
	}
	return t
}

// GetPage resolves a page id to its live *page.Page.
func (p *Pool) GetPage(id page.ID) (*page.Page, bool) {
	if id == 0 || int(id) > len(p.pages) {
		return nil, false
	}
	pg := p.pages[id-1]
	return pg, pg != nil
}

// FreePage releases a page's storage and recycles its array slot. It
// also removes the page from its track, so the track's aggregate stays
// consistent. Freeing an unknown id returns ErrNotFound.
func (p *Pool) FreePage(id page.ID) error {
	pg, ok := p.GetPage(id)
	if !ok {
		return ErrNotFound
	}
	if t, ok := p.GetTrack(pg.TrackID); ok {
		t.RemovePage(id, p.lookupPage)
	}
	p.pages[id-1] = nil
	p.freeSlots.Free(uint32(id) - 1)
	return nil
}

// Pages returns every live page, in ascending id order.
func (p *Pool) Pages() []*page.Page {
	out := make([]*page.Page, 0, len(p.pages))
	for _, pg := range p.pages {
		if pg != nil {
			out = append(out, pg)
		}
	}
	return out
}

// QueryRegion returns every live page whose extent intersects mbr.
func (p *Pool) QueryRegion(mbr geom.MBR) []*page.Page {
	var out []*page.Page
	for _, pg := range p.pages {
		if pg != nil && geom.Intersects(pg.Extent, mbr) {
			out = append(out, pg)
		}
	}
	return out
}

// Reset clears every page and track, recycling the pool back to empty.
// Index.Build calls this before materializing fresh blocks: a build
// always regenerates page/track layout from scratch rather than patching
// it incrementally, the same full-rebuild policy the allocation KD-tree
// already follows.
func (p *Pool) Reset() {
	p.pages = p.pages[:0]
	p.tracks = p.tracks[:0]
	p.freeSlots = bitmap.New(initialSlots)
	p.nextTrackID = 1
}

// Stats aggregates page count, track count, and total object count by
// scanning the pool, per spec.md §4.D (an O(n) scan is the documented
// contract; hot paths go through the cache and allocation tree instead).
func (p *Pool) Stats() Stats {
	var s Stats
	for _, pg := range p.pages {
		if pg != nil {
			s.PageCount++
			s.ObjectCount += pg.Count()
		}
	}
	for _, t := range p.tracks {
		if t != nil {
			s.TrackCount++
		}
	}
	return s
}

func errAlloc() error { return errAllocFailed }

var errAllocFailed = errors.New("pool: allocation exhausted")
