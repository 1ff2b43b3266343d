// Package page implements the fixed-capacity Page and bounded-sequence
// Track containers spec.md §4.C describes: the unit of I/O the disk
// manager and cache operate on, and the contiguous-on-disk grouping a
// seek-estimate is computed against.
package page

import (
	"hash/fnv"
	"math"

	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/object"
)

// Default capacities, overridable per spec.md §6's configuration surface.
// DefaultObjectCapacity is the compiled ceiling C_page; a running index's
// actual page_capacity must not exceed it.
const (
	DefaultObjectCapacity = 64
	DefaultPagesPerTrack  = 16
	DefaultBytes          = 4096
)

// Flags are the orthogonal status bits a page carries. FREE is the
// zero value (no bit set).
type Flags uint32

const (
	Allocated Flags = 1 << iota
	Full
	Dirty
	Pinned
)

// ID is a pool-unique, 1-based page identifier.
type ID uint32

// TrackID is a pool-unique, 1-based track identifier. Zero means
// unassigned.
type TrackID uint32

// Page is a fixed-capacity, ordered container of spatial objects. It
// exclusively owns the objects it stores: Add deep-copies the caller's
// value.
type Page struct {
	ID       ID
	TrackID  TrackID
	Capacity int
	Objects  []object.Object
	Extent   geom.MBR
	Centroid geom.Point
	Flags    Flags
}

// New allocates an empty page with the given id and object capacity.
func New(id ID, capacity int) *Page {
	if capacity <= 0 {
		capacity = DefaultObjectCapacity
	}
	return &Page{
		ID:       id,
		Capacity: capacity,
		Objects:  make([]object.Object, 0, capacity),
		Extent:   geom.EmptyMBR(),
		Flags:    Allocated,
	}
}

// Count returns the number of objects currently stored.
func (p *Page) Count() int {
	return len(p.Objects)
}

// IsFull reports whether the page is at capacity.
func (p *Page) IsFull() bool {
	return p.Flags&Full != 0
}

// Utilization returns count/capacity.
func (p *Page) Utilization() float64 {
	if p.Capacity == 0 {
		return 0
	}
	return float64(len(p.Objects)) / float64(p.Capacity)
}

// Add deep-copies obj into the page. Returns ErrFull if the page is
// already at capacity; a failed Add never leaves the page half-mutated.
func (p *Page) Add(obj object.Object) error {
	if len(p.Objects) >= p.Capacity {
		return errFull()
	}
	p.Objects = append(p.Objects, obj.Clone())
	p.recomputeExtentAndCentroid()
	p.Flags |= Dirty
	if len(p.Objects) == p.Capacity {
		p.Flags |= Full
	}
	return nil
}

// Find returns the object with the given id and true, or the zero value
// and false.
func (p *Page) Find(id object.ID) (object.Object, bool) {
	for i := range p.Objects {
		if p.Objects[i].ID == id {
			return p.Objects[i], true
		}
	}
	return object.Object{}, false
}

// Remove deletes the object with the given id, shifting the tail left to
// preserve insertion order among the survivors. Reports whether an object
// was removed.
func (p *Page) Remove(id object.ID) bool {
	for i := range p.Objects {
		if p.Objects[i].ID == id {
			p.Objects = append(p.Objects[:i], p.Objects[i+1:]...)
			p.Flags &^= Full
			p.Flags |= Dirty
			p.recomputeExtentAndCentroid()
			return true
		}
	}
	return false
}

// UpdateDerived fully re-unions Extent and recomputes Centroid from the
// current object set. Add/Remove keep these incrementally consistent
// already; UpdateDerived exists for callers that mutated an object's
// geometry in place (via object.Object.UpdateDerived) and need the page's
// aggregate refreshed.
func (p *Page) UpdateDerived() {
	p.recomputeExtentAndCentroid()
}

func (p *Page) recomputeExtentAndCentroid() {
	extent := geom.EmptyMBR()
	var sx, sy float64
	for _, o := range p.Objects {
		extent = geom.Expand(extent, o.MBR)
		sx += o.Centroid.X
		sy += o.Centroid.Y
	}
	p.Extent = extent
	if len(p.Objects) == 0 {
		p.Centroid = geom.Point{}
		return
	}
	p.Centroid = geom.Point{X: sx / float64(len(p.Objects)), Y: sy / float64(len(p.Objects))}
}

// Checksum computes the FNV-1a checksum over (page_id, track_id,
// object_count, per-object (id, centroid)), per spec.md §4.C. hash/fnv is
// the stdlib home for FNV-1a itself, so no third-party hashing library
// is warranted here (see DESIGN.md).
func (p *Page) Checksum() uint64 {
	h := fnv.New64a()
	var buf [8]byte

	putU32 := func(v uint32) {
		buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		h.Write(buf[:4])
	}
	putF64 := func(v float64) {
		putU64(&buf, math.Float64bits(v))
		h.Write(buf[:8])
	}

	putU32(uint32(p.ID))
	putU32(uint32(p.TrackID))
	putU32(uint32(len(p.Objects)))
	for _, o := range p.Objects {
		putU64(&buf, uint64(o.ID))
		h.Write(buf[:8])
		putF64(o.Centroid.X)
		putF64(o.Centroid.Y)
	}
	return h.Sum64()
}

// Verify recomputes the checksum and compares it to the stored value
// supplied by the caller (typically read back from a page slot).
func (p *Page) Verify(stored uint64) bool {
	return p.Checksum() == stored
}

func putU64(buf *[8]byte, v uint64) {
	buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	buf[4], buf[5], buf[6], buf[7] = byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56)
}
