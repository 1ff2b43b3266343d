// Package quadtree implements the page-level adjacency index spec.md
// §4.G describes: a recursive NW/NE/SW/SE partition over item MBRs, used
// by the index coordinator to answer "what pages sit near this region"
// without a linear scan of every page.
package quadtree

import (
	"errors"

	"github.com/urbis/urbis/geom"
)

// Default node capacity and max depth, overridable per call site.
const (
	DefaultNodeCapacity = 8
	DefaultMaxDepth     = 20
)

// ErrOutOfBounds is returned by Insert when an item's bounds don't
// intersect the tree's root bounds at all.
var ErrOutOfBounds = errors.New("quadtree: item out of bounds")

const adjacencyEpsilon = 1e-9

// Item is one indexed entry: an id, its MBR, its centroid (carried for
// callers that want it without a second lookup), and an opaque payload.
type Item struct {
	ID       uint64
	Bounds   geom.MBR
	Centroid geom.Point
	Data     any
}

// node is one quadtree node.
type node struct {
	bounds         geom.MBR
	depth          int
	leaf           bool
	items          []Item
	nw, ne, sw, se *node
}

// Tree is a page-level quadtree over a fixed root region.
type Tree struct {
	root     *node
	nodeCap  int
	maxDepth int
}

// New creates an empty tree rooted at bounds. nodeCap and maxDepth fall
// back to the spec defaults (8, 20) when <= 0.
func New(bounds geom.MBR, nodeCap, maxDepth int) *Tree {
	if nodeCap <= 0 {
		nodeCap = DefaultNodeCapacity
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tree{
		root:     &node{bounds: bounds, leaf: true},
		nodeCap:  nodeCap,
		maxDepth: maxDepth,
	}
}

// Insert adds an item. Fails ErrOutOfBounds if bounds does not intersect
// the tree's root region at all.
func (t *Tree) Insert(id uint64, bounds geom.MBR, centroid geom.Point, data any) error {
	if !geom.Intersects(t.root.bounds, bounds) {
		return ErrOutOfBounds
	}
	t.insert(t.root, Item{ID: id, Bounds: bounds, Centroid: centroid, Data: data})
	return nil
}

func (t *Tree) insert(n *node, item Item) {
	if n.leaf {
		if len(n.items) < t.nodeCap || n.depth >= t.maxDepth {
			n.items = append(n.items, item)
			return
		}
		t.split(n)
	}
	for _, child := range n.children() {
		if child != nil && geom.Contains(child.bounds, item.Bounds) {
			t.insert(child, item)
			return
		}
	}
	// Spans multiple quadrants (or no single child contains it): stays
	// at this node, per spec.md §4.G and §9's correction of the source's
	// buggy split (the parent's item list is never zeroed out here).
	n.items = append(n.items, item)
}

// split turns a leaf into an internal node with four quadrant children
// and re-homes every existing item into whichever single child fully
// contains it, leaving spanning items in the (now internal) node.
func (t *Tree) split(n *node) {
	b := n.bounds
	midX := (b.MinX + b.MaxX) / 2
	midY := (b.MinY + b.MaxY) / 2
	depth := n.depth + 1
	n.nw = &node{bounds: geom.MBR{MinX: b.MinX, MinY: midY, MaxX: midX, MaxY: b.MaxY}, depth: depth, leaf: true}
	n.ne = &node{bounds: geom.MBR{MinX: midX, MinY: midY, MaxX: b.MaxX, MaxY: b.MaxY}, depth: depth, leaf: true}
	n.sw = &node{bounds: geom.MBR{MinX: b.MinX, MinY: b.MinY, MaxX: midX, MaxY: midY}, depth: depth, leaf: true}
	n.se = &node{bounds: geom.MBR{MinX: midX, MinY: b.MinY, MaxX: b.MaxX, MaxY: midY}, depth: depth, leaf: true}
	n.leaf = false

	old := n.items
	n.items = nil
	for _, it := range old {
		placed := false
		for _, child := range n.children() {
			if geom.Contains(child.bounds, it.Bounds) {
				t.insert(child, it)
				placed = true
				break
			}
		}
		if !placed {
			n.items = append(n.items, it)
		}
	}
}

// children returns the four quadrants in the spec's stable traversal
// order: NW, NE, SW, SE.
func (n *node) children() [4]*node {
	return [4]*node{n.nw, n.ne, n.sw, n.se}
}

// RangeQuery returns every item whose MBR intersects mbr.
func (t *Tree) RangeQuery(mbr geom.MBR) []Item {
	var out []Item
	rangeQuery(t.root, mbr, &out)
	return out
}

func rangeQuery(n *node, mbr geom.MBR, out *[]Item) {
	if n == nil || !geom.Intersects(n.bounds, mbr) {
		return
	}
	for _, it := range n.items {
		if geom.Intersects(it.Bounds, mbr) {
			*out = append(*out, it)
		}
	}
	if n.leaf {
		return
	}
	for _, child := range n.children() {
		rangeQuery(child, mbr, out)
	}
}

// PointQuery returns every item whose MBR contains p, descending only
// into children whose bounds contain p.
func (t *Tree) PointQuery(p geom.Point) []Item {
	var out []Item
	pointQuery(t.root, p, &out)
	return out
}

func pointQuery(n *node, p geom.Point, out *[]Item) {
	if n == nil {
		return
	}
	for _, it := range n.items {
		if geom.ContainsPoint(it.Bounds, p) {
			*out = append(*out, it)
		}
	}
	if n.leaf {
		return
	}
	for _, child := range n.children() {
		if child != nil && geom.ContainsPoint(child.bounds, p) {
			pointQuery(child, p, out)
		}
	}
}

// FindAdjacentToRegion expands region by max(1e-6, 1% of its width) on x
// and max(1e-6, 1% of its height) on y,
// range-queries with that expanded box, then filters to items whose MBR
// overlaps or touches region within a 1e-9 tolerance. Iteration order
// matches the in-tree traversal (parent before children, NW,NE,SW,SE).
func (t *Tree) FindAdjacentToRegion(region geom.MBR) []Item {
	dx := 0.01 * region.Width()
	if dx < 1e-6 {
		dx = 1e-6
	}
	dy := 0.01 * region.Height()
	if dy < 1e-6 {
		dy = 1e-6
	}
	expanded := geom.MBR{
		MinX: region.MinX - dx, MinY: region.MinY - dy,
		MaxX: region.MaxX + dx, MaxY: region.MaxY + dy,
	}
	candidates := t.RangeQuery(expanded)
	out := make([]Item, 0, len(candidates))
	for _, it := range candidates {
		if adjacentOrIntersects(it.Bounds, region) {
			out = append(out, it)
		}
	}
	return out
}

func adjacentOrIntersects(a, b geom.MBR) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.MinX <= b.MaxX+adjacencyEpsilon && a.MaxX >= b.MinX-adjacencyEpsilon &&
		a.MinY <= b.MaxY+adjacencyEpsilon && a.MaxY >= b.MinY-adjacencyEpsilon
}

// FindByID returns the item with the given id, searching every node.
func (t *Tree) FindByID(id uint64) (Item, bool) {
	return findByID(t.root, id)
}

func findByID(n *node, id uint64) (Item, bool) {
	if n == nil {
		return Item{}, false
	}
	for _, it := range n.items {
		if it.ID == id {
			return it, true
		}
	}
	if n.leaf {
		return Item{}, false
	}
	for _, child := range n.children() {
		if it, ok := findByID(child, id); ok {
			return it, true
		}
	}
	return Item{}, false
}

// Remove deletes the item with the given id, searching every node.
func (t *Tree) Remove(id uint64) bool {
	return remove(t.root, id)
}

func remove(n *node, id uint64) bool {
	if n == nil {
		return false
	}
	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	if n.leaf {
		return false
	}
	for _, child := range n.children() {
		if remove(child, id) {
			return true
		}
	}
	return false
}

// Update removes id and reinserts it at newBounds/newCentroid/newData.
func (t *Tree) Update(id uint64, newBounds geom.MBR, newCentroid geom.Point, newData any) error {
	t.Remove(id)
	return t.Insert(id, newBounds, newCentroid, newData)
}
